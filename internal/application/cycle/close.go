package cycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/application/settlement"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/job"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/reconcile"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// Close cierra el ciclo activo del negocio dentro de UNA transacción: concilia
// cada área STOCK contra su libro OPEN (anexando las ventas sintéticas y el
// libro CLOSED), computa el arqueo de cada área SALE, postea los fondos al
// ledger según las reglas de destino del área, persiste los snapshots de
// arqueo, apaga el ciclo y congela la tabla de tasas en su meta. Cualquier
// error revierte todo; reintentar antes del commit es seguro porque la
// conciliación es determinista.
func (s *Service) Close(ctx context.Context, businessID, userID string, isManual bool) (*entity.EconomicCycle, *settlement.Report, error) {
	flags, err := settlement.LoadFlags(ctx, s.configRepo, businessID, s.defaultPrecision)
	if err != nil {
		return nil, nil, err
	}
	currencies, err := s.currencyRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}
	allowPending, err := s.configRepo.GetBool(ctx, businessID, repository.ConfigAllowPendingPayment, false)
	if err != nil {
		return nil, nil, err
	}
	moduleAccounts, err := s.configRepo.GetBool(ctx, businessID, repository.ConfigModuleAccounts, false)
	if err != nil {
		return nil, nil, err
	}

	madeBy := actor(userID)
	var (
		cycle      *entity.EconomicCycle
		general    *settlement.Report
		accountIDs []string
	)

	err = s.tx.Run(ctx, func(r Repos) error {
		cycle, err = r.Cycles.GetActive(ctx, businessID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return domain.ErrNoActiveCycle
		}

		openOrders, err := r.Orders.CountOpenByCycle(ctx, cycle.ID)
		if err != nil {
			return err
		}
		if openOrders > 0 && !allowPending {
			return fmt.Errorf("%w: %d órdenes", domain.ErrOpenOrdersExist, openOrders)
		}

		now := s.now()

		if err := s.closeStockAreas(ctx, r, cycle, flags, madeBy); err != nil {
			return err
		}

		general, accountIDs, err = s.closeSaleAreas(ctx, r, cycle, currencies, flags, moduleAccounts, madeBy)
		if err != nil {
			return err
		}

		cycle.IsActive = false
		cycle.ClosedAt = &now
		closedBy := madeBy
		cycle.ClosedBy = &closedBy
		cycle.Meta = &entity.CycleMeta{
			Version:        1,
			ExchangeRates:  frozenRates(currencies),
			ClosedManually: isManual,
		}
		return r.Cycles.Close(ctx, cycle)
	})
	if err != nil {
		s.log.Error().Err(err).Str("business_id", businessID).Msg("cierre de ciclo fallido")
		return nil, nil, err
	}

	s.notifier.CycleClosed(ctx, businessID, cycle.ID)
	if !isManual {
		// Los cierres programados disparan el rollup diario por cuenta.
		params := job.AfterCloseParams{
			BusinessID:      businessID,
			EconomicCycleID: cycle.ID,
			AccountIDs:      accountIDs,
			ClosedAt:        *cycle.ClosedAt,
		}
		if err := s.queue.Enqueue(ctx, job.CodeAfterClose, params); err != nil {
			s.log.Error().Err(err).Str("cycle_id", cycle.ID).Msg("no se pudo encolar el post-cierre")
		}
	}
	s.log.Info().
		Str("business_id", businessID).
		Str("cycle_id", cycle.ID).
		Int("accounts", len(accountIDs)).
		Msg("ciclo económico cerrado")
	return cycle, general, nil
}

// closeStockAreas concilia cada área STOCK: corre el motor contra el libro
// OPEN, anexa los movimientos SALE sintéticos al log y crea el libro CLOSED.
func (s *Service) closeStockAreas(ctx context.Context, r Repos, cycle *entity.EconomicCycle, flags settlement.Flags, madeBy string) error {
	areas, err := r.Areas.ListActiveByType(ctx, cycle.BusinessID, entity.AreaTypeStock)
	if err != nil {
		return err
	}
	for _, area := range areas {
		openBook, err := r.Books.Get(ctx, area.ID, cycle.ID, entity.BookOperationOpen)
		if err != nil {
			return err
		}
		// Áreas creadas a mitad de ciclo no tienen libro OPEN: concilian
		// contra initial = 0.
		var opening []entity.ProductBookState
		if openBook != nil {
			opening = openBook.State
		}

		movements, err := r.Movements.ListSinceBook(ctx, area.ID, cycle.ID)
		if err != nil {
			return err
		}
		selled, err := r.Orders.ListSelledByStockArea(ctx, cycle.ID, area.ID)
		if err != nil {
			return err
		}
		onHand, err := r.Stock.ListByArea(ctx, area.ID)
		if err != nil {
			return err
		}

		direct, online := splitSales(selled)
		result := reconcile.Run(reconcile.Input{
			AreaID:          area.ID,
			EconomicCycleID: cycle.ID,
			Precision:       flags.Precision,
			OpeningState:    opening,
			Movements:       movements,
			DirectSales:     direct,
			OnlineSales:     online,
			OnHand:          onHand,
			MadeBy:          madeBy,
		})

		now := s.now()
		for i := range result.Synthetic {
			result.Synthetic[i].ID = uuid.New().String()
			result.Synthetic[i].CreatedAt = now
		}
		if len(result.Synthetic) > 0 {
			if err := r.Movements.CreateBatch(ctx, result.Synthetic); err != nil {
				return err
			}
		}

		closedBook := &entity.StockAreaBook{
			ID:              uuid.New().String(),
			AreaID:          area.ID,
			EconomicCycleID: cycle.ID,
			Operation:       entity.BookOperationClosed,
			State:           result.ClosedState,
			MadeBy:          madeBy,
			CreatedAt:       now,
		}
		if err := r.Books.Create(ctx, closedBook); err != nil {
			return err
		}
	}
	return nil
}

// closeSaleAreas computa el arqueo de cada área SALE, persiste sus snapshots
// (área a área y el general), y postea los fondos de las áreas configuradas
// para transferir al cierre. Los posteos se acumulan por cuenta a lo largo de
// TODAS las áreas y se pliegan en una sola llamada por lote: cada bucket
// (cuenta, moneda) se actualiza exactamente una vez aunque varias áreas le
// aporten. Devuelve el arqueo general y las cuentas tocadas.
func (s *Service) closeSaleAreas(
	ctx context.Context,
	r Repos,
	cycle *entity.EconomicCycle,
	currencies []entity.Currency,
	flags settlement.Flags,
	moduleAccounts bool,
	madeBy string,
) (*settlement.Report, []string, error) {
	areas, err := r.Areas.ListActiveByType(ctx, cycle.BusinessID, entity.AreaTypeSale)
	if err != nil {
		return nil, nil, err
	}

	srcRepos := settlement.SourceRepos{Orders: r.Orders, Cash: r.Cash, Products: r.Products}
	pending := map[string][]ledger.PendingPosting{}
	reports := make([]*settlement.Report, 0, len(areas))

	for _, area := range areas {
		src, err := settlement.GatherSources(ctx, srcRepos, cycle, area, currencies, flags)
		if err != nil {
			return nil, nil, err
		}
		report, err := settlement.Compute(src)
		if err != nil {
			return nil, nil, err
		}
		reports = append(reports, report)

		if err := s.persistStore(ctx, r, entity.StoreTypeIncomeArea, cycle.ID, &area.ID, report); err != nil {
			return nil, nil, err
		}

		if moduleAccounts && area.TransferFundsOnClose {
			for id, postings := range collectCloseFunds(cycle, area, report, src.CashOps, madeBy) {
				pending[id] = append(pending[id], postings...)
			}
		}
	}

	general := settlement.Merge(reports...)
	if err := s.persistStore(ctx, r, entity.StoreTypeIncomeGeneral, cycle.ID, nil, general); err != nil {
		return nil, nil, err
	}

	accountIDs := make([]string, 0, len(pending))
	for id := range pending {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	for _, accountID := range accountIDs {
		account, err := r.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.ledger.PostBatchInTx(ctx, r.Accounts, r.Ops, account, pending[accountID]); err != nil {
			return nil, nil, err
		}
	}
	return general, accountIDs, nil
}

// collectCloseFunds enruta los fondos del arqueo de un área a sus cuentas de
// destino: efectivo de ventas por moneda, ingresos no-efectivo por (vía,
// moneda), la extracción de salario y las operaciones manuales contabilizables.
// Solo acumula; el posteo lo hace el caller tras recorrer todas las áreas.
func collectCloseFunds(
	cycle *entity.EconomicCycle,
	area *entity.Area,
	report *settlement.Report,
	cashOps []*entity.CashRegisterOperation,
	madeBy string,
) map[string][]ledger.PendingPosting {
	byAccount := map[string][]ledger.PendingPosting{}
	add := func(accountID string, amount money.Money, tagID *string, description, opMadeBy string) {
		byAccount[accountID] = append(byAccount[accountID], ledger.PendingPosting{
			Amount: amount,
			Meta: ledger.OperationMeta{
				Description:  description,
				MadeByID:     opMadeBy,
				AccountTagID: tagID,
			},
		})
	}

	// Efectivo puro de ventas: el bucket de efectivo menos las operaciones
	// manuales (estas se postean aparte, una a una, solo las contabilizables).
	opsByCurrency := map[string]decimal.Decimal{}
	for _, co := range report.TotalCashOperations {
		opsByCurrency[co.CurrencyCode] = opsByCurrency[co.CurrencyCode].Add(co.Amount)
	}
	for _, m := range report.TotalIncomesInCash {
		amount := m.Amount.Sub(opsByCurrency[m.Currency])
		if amount.IsZero() {
			continue
		}
		accountID, tagID := area.Destination(entity.PaymentWayCash, m.Currency)
		add(accountID, money.New(amount, m.Currency), tagID,
			fmt.Sprintf("Efectivo de caja de %s al cierre de %s", area.Name, cycle.Name), madeBy)
	}

	for _, p := range report.TotalIncomesNotInCash {
		if p.Amount.IsZero() {
			continue
		}
		accountID, tagID := area.Destination(p.PaymentWay, p.CurrencyCode)
		add(accountID, money.New(p.Amount, p.CurrencyCode), tagID,
			fmt.Sprintf("Ingresos por %s de %s al cierre de %s", p.PaymentWay, area.Name, cycle.Name), madeBy)
	}

	if !report.TotalSalary.Amount.IsZero() {
		accountID, tagID := area.Destination(entity.PaymentWayCash, report.TotalSalary.CurrencyCode)
		add(accountID, money.New(report.TotalSalary.Amount, report.TotalSalary.CurrencyCode), tagID,
			fmt.Sprintf("Extracción de salario de %s al cierre de %s", area.Name, cycle.Name), madeBy)
	}

	for _, op := range cashOps {
		if !op.Accountable || op.Amount.IsZero() {
			continue
		}
		accountID, tagID := area.Destination(entity.PaymentWayCash, op.Amount.Currency)
		desc := fmt.Sprintf("Operación manual de caja (%s)", op.Type)
		if op.Observations != "" {
			desc = fmt.Sprintf("%s: %s", desc, op.Observations)
		}
		opMadeBy := op.MadeBy
		if opMadeBy == "" {
			opMadeBy = madeBy
		}
		add(accountID, op.Amount, tagID, desc, opMadeBy)
	}

	return byAccount
}

func (s *Service) persistStore(ctx context.Context, r Repos, storeType, cycleID string, areaID *string, report *settlement.Report) error {
	data, err := settlement.EncodeStore(report)
	if err != nil {
		return err
	}
	return r.Stores.Create(ctx, &entity.Store{
		ID:              uuid.New().String(),
		Type:            storeType,
		EconomicCycleID: cycleID,
		AreaID:          areaID,
		Data:            data,
		CreatedAt:       s.now(),
	})
}

// splitSales separa las líneas vendidas en directas y online para el motor de
// conciliación.
func splitSales(selled []*entity.SelledProduct) (direct, online []reconcile.SaleLine) {
	for _, sp := range selled {
		line := reconcile.SaleLine{
			ProductID:   sp.ProductID,
			VariationID: sp.VariationID,
			Quantity:    sp.Quantity,
		}
		if sp.IsOnline {
			online = append(online, line)
		} else {
			direct = append(direct, line)
		}
	}
	return direct, online
}
