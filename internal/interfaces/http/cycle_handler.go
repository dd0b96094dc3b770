package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pos-pro/internal/application/cycle"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// CycleHandler maneja la apertura y el cierre del ciclo económico.
type CycleHandler struct {
	svc    *cycle.Service
	cycles repository.CycleRepository
}

// NewCycleHandler construye el handler.
func NewCycleHandler(svc *cycle.Service, cycles repository.CycleRepository) *CycleHandler {
	return &CycleHandler{svc: svc, cycles: cycles}
}

type openCycleRequest struct {
	PriceSystemID *string `json:"priceSystemId"`
}

// Open godoc
// @Summary      Abrir ciclo económico
// @Tags         economic-cycles
// @Accept       json
// @Produce      json
// @Param        body  body  openCycleRequest  false  "priceSystemId opcional; por defecto el sistema principal"
// @Success      201   {object}  map[string]any
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/economic-cycles/open [post]
func (h *CycleHandler) Open(c *fiber.Ctx) error {
	bid, ok := requireBusiness(c)
	if !ok {
		return nil
	}
	var in openCycleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	ec, err := h.svc.Open(c.Context(), bid, userID(c), in.PriceSystemID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cycleView(ec))
}

// Close godoc
// @Summary      Cerrar ciclo económico (manual)
// @Tags         economic-cycles
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/economic-cycles/close [post]
func (h *CycleHandler) Close(c *fiber.Ctx) error {
	bid, ok := requireBusiness(c)
	if !ok {
		return nil
	}
	ec, report, err := h.svc.Close(c.Context(), bid, userID(c), true)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"economicCycle": cycleView(ec),
		"settlement":    report,
	})
}

// Active godoc
// @Summary      Ciclo económico activo
// @Tags         economic-cycles
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  ErrorResponse
// @Router       /api/economic-cycles/active [get]
func (h *CycleHandler) Active(c *fiber.Ctx) error {
	bid, ok := requireBusiness(c)
	if !ok {
		return nil
	}
	ec, err := h.cycles.GetActive(c.Context(), bid)
	if err != nil {
		return fail(c, err)
	}
	if ec == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: "no hay ciclo económico activo"})
	}
	return c.JSON(cycleView(ec))
}

func cycleView(ec *entity.EconomicCycle) fiber.Map {
	return fiber.Map{
		"id":            ec.ID,
		"name":          ec.Name,
		"openedBy":      ec.OpenedBy,
		"openedAt":      ec.OpenedAt,
		"closedBy":      ec.ClosedBy,
		"closedAt":      ec.ClosedAt,
		"priceSystemId": ec.PriceSystemID,
		"isActive":      ec.IsActive,
		"meta":          ec.Meta,
	}
}
