package cycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// Open abre un nuevo ciclo económico para el negocio: valida que no exista uno
// activo, resuelve el sistema de precios (el principal si no se indica otro),
// fotografía el inventario en mano de cada área STOCK en su libro OPEN y, si el
// negocio arrastra órdenes pendientes, las re-etiqueta al ciclo nuevo. Todo en
// una transacción.
func (s *Service) Open(ctx context.Context, businessID, userID string, priceSystemID *string) (*entity.EconomicCycle, error) {
	ps, err := s.resolvePriceSystem(ctx, businessID, priceSystemID)
	if err != nil {
		return nil, err
	}

	carryForward, err := s.configRepo.GetBool(ctx, businessID, repository.ConfigTransferOrdersToNext, false)
	if err != nil {
		return nil, err
	}

	madeBy := actor(userID)
	var cycle *entity.EconomicCycle

	err = s.tx.Run(ctx, func(r Repos) error {
		active, err := r.Cycles.GetActive(ctx, businessID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.ErrCycleAlreadyActive
		}

		now := s.now()
		cycle = &entity.EconomicCycle{
			ID:            uuid.New().String(),
			BusinessID:    businessID,
			Name:          fmt.Sprintf("Ciclo %s", now.Format("2006-01-02")),
			OpenedBy:      madeBy,
			OpenedAt:      now,
			PriceSystemID: ps.ID,
			IsActive:      true,
		}
		// El índice único parcial en BD respalda este guard ante una carrera:
		// el segundo insert concurrente cae aquí como ErrCycleAlreadyActive.
		if err := r.Cycles.Create(ctx, cycle); err != nil {
			return err
		}

		stockAreas, err := r.Areas.ListActiveByType(ctx, businessID, entity.AreaTypeStock)
		if err != nil {
			return err
		}
		for _, area := range stockAreas {
			onHand, err := r.Stock.ListByArea(ctx, area.ID)
			if err != nil {
				return err
			}
			book := &entity.StockAreaBook{
				ID:              uuid.New().String(),
				AreaID:          area.ID,
				EconomicCycleID: cycle.ID,
				Operation:       entity.BookOperationOpen,
				State:           openingState(onHand),
				MadeBy:          madeBy,
				CreatedAt:       now,
			}
			if err := r.Books.Create(ctx, book); err != nil {
				return err
			}
		}

		if carryForward {
			prev, err := r.Cycles.GetLastClosed(ctx, businessID)
			if err != nil {
				return err
			}
			if prev != nil {
				moved, err := r.Orders.RetagPending(ctx, prev.ID, cycle.ID)
				if err != nil {
					return err
				}
				if moved > 0 {
					s.log.Info().
						Str("business_id", businessID).
						Str("cycle_id", cycle.ID).
						Int("orders", moved).
						Msg("órdenes pendientes arrastradas al ciclo nuevo")
				}
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("business_id", businessID).Msg("apertura de ciclo fallida")
		return nil, err
	}

	s.notifier.CycleOpened(ctx, businessID, cycle.ID)
	s.log.Info().
		Str("business_id", businessID).
		Str("cycle_id", cycle.ID).
		Str("price_system_id", ps.ID).
		Msg("ciclo económico abierto")
	return cycle, nil
}

func (s *Service) resolvePriceSystem(ctx context.Context, businessID string, priceSystemID *string) (*entity.PriceSystem, error) {
	var (
		ps  *entity.PriceSystem
		err error
	)
	if priceSystemID != nil {
		ps, err = s.priceRepo.GetByID(ctx, *priceSystemID)
	} else {
		ps, err = s.priceRepo.GetMain(ctx, businessID)
	}
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, domain.ErrNoPriceSystem
	}
	return ps, nil
}

// openingState construye el estado initial del libro OPEN a partir de las
// cantidades en mano, en orden determinista.
func openingState(onHand []entity.Stock) []entity.ProductBookState {
	type acc struct {
		base       entity.ProductBookState
		variations map[string]*entity.VariationBookState
	}
	byProduct := map[string]*acc{}
	get := func(productID string) *acc {
		a, ok := byProduct[productID]
		if !ok {
			a = &acc{
				base:       entity.ProductBookState{ProductID: productID},
				variations: map[string]*entity.VariationBookState{},
			}
			byProduct[productID] = a
		}
		return a
	}

	for _, st := range onHand {
		a := get(st.ProductID)
		if st.VariationID != nil {
			a.variations[*st.VariationID] = &entity.VariationBookState{
				VariationID: *st.VariationID,
				Initial:     st.Quantity,
				InStock:     st.Quantity,
			}
		} else {
			a.base.Initial = st.Quantity
			a.base.InStock = st.Quantity
		}
	}

	productIDs := make([]string, 0, len(byProduct))
	for id := range byProduct {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	state := make([]entity.ProductBookState, 0, len(byProduct))
	for _, id := range productIDs {
		a := byProduct[id]
		variationIDs := make([]string, 0, len(a.variations))
		for vid := range a.variations {
			variationIDs = append(variationIDs, vid)
		}
		sort.Strings(variationIDs)
		for _, vid := range variationIDs {
			a.base.Variations = append(a.base.Variations, *a.variations[vid])
		}
		state = append(state, a.base)
	}
	return state
}
