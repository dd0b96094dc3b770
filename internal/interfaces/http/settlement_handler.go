package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pos-pro/internal/application/settlement"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// SettlementHandler expone los arqueos (por área y general). Para ciclos
// cerrados devuelve el snapshot memoizado; para el activo computa al vuelo.
type SettlementHandler struct {
	svc    *settlement.Service
	cycles repository.CycleRepository
	areas  repository.AreaRepository
}

// NewSettlementHandler construye el handler.
func NewSettlementHandler(svc *settlement.Service, cycles repository.CycleRepository, areas repository.AreaRepository) *SettlementHandler {
	return &SettlementHandler{svc: svc, cycles: cycles, areas: areas}
}

// resolveCycle devuelve el ciclo pedido por query (?cycle_id=) o el activo.
func (h *SettlementHandler) resolveCycle(c *fiber.Ctx, businessID string) (*entity.EconomicCycle, error) {
	if cycleID := c.Query("cycle_id"); cycleID != "" {
		// El ciclo activo y el último cerrado cubren las lecturas habituales;
		// cycle_id permite reportes históricos puntuales.
		if ec, err := h.cycles.GetActive(c.Context(), businessID); err != nil {
			return nil, err
		} else if ec != nil && ec.ID == cycleID {
			return ec, nil
		}
		if ec, err := h.cycles.GetLastClosed(c.Context(), businessID); err != nil {
			return nil, err
		} else if ec != nil && ec.ID == cycleID {
			return ec, nil
		}
		return nil, domain.ErrNoActiveCycle
	}
	ec, err := h.cycles.GetActive(c.Context(), businessID)
	if err != nil {
		return nil, err
	}
	if ec == nil {
		return nil, domain.ErrNoActiveCycle
	}
	return ec, nil
}

// General godoc
// @Summary      Arqueo general del negocio
// @Tags         settlements
// @Produce      json
// @Param        cycle_id  query  string  false  "Ciclo; por defecto el activo"
// @Success      200  {object}  settlement.Report
// @Failure      404  {object}  ErrorResponse
// @Router       /api/settlements/general [get]
func (h *SettlementHandler) General(c *fiber.Ctx) error {
	bid, ok := requireBusiness(c)
	if !ok {
		return nil
	}
	ec, err := h.resolveCycle(c, bid)
	if err != nil {
		return fail(c, err)
	}
	report, err := h.svc.GeneralReport(c.Context(), bid, ec)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// Area godoc
// @Summary      Arqueo de un área de venta
// @Tags         settlements
// @Produce      json
// @Param        areaId    path   string  true   "Área SALE"
// @Param        cycle_id  query  string  false  "Ciclo; por defecto el activo"
// @Success      200  {object}  settlement.Report
// @Failure      404  {object}  ErrorResponse
// @Router       /api/settlements/areas/{areaId} [get]
func (h *SettlementHandler) Area(c *fiber.Ctx) error {
	bid, ok := requireBusiness(c)
	if !ok {
		return nil
	}
	ec, err := h.resolveCycle(c, bid)
	if err != nil {
		return fail(c, err)
	}
	area, err := h.areas.GetByID(c.Context(), c.Params("areaId"))
	if err != nil {
		return fail(c, err)
	}
	report, err := h.svc.AreaReport(c.Context(), bid, ec, area)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}
