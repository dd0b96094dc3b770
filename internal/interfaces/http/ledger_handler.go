package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// LedgerHandler maneja las operaciones manuales sobre cuentas.
type LedgerHandler struct {
	svc      *ledger.Service
	accounts repository.AccountRepository
	ops      repository.OperationRepository
	daily    repository.DailyBalanceRepository
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service, accounts repository.AccountRepository, ops repository.OperationRepository, daily repository.DailyBalanceRepository) *LedgerHandler {
	return &LedgerHandler{svc: svc, accounts: accounts, ops: ops, daily: daily}
}

type postOperationRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"codeCurrency"`
	Description  string          `json:"description"`
	AccountTagID *string         `json:"accountTagId"`
}

// PostOperation godoc
// @Summary      Registrar operación manual (debit/credit según signo)
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId  path  string                true  "Cuenta"
// @Param        body       body  postOperationRequest  true  "Monto con signo"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/accounts/{accountId}/operations [post]
func (h *LedgerHandler) PostOperation(c *fiber.Ctx) error {
	var in postOperationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	op, err := h.svc.PostOperation(c.Context(), c.Params("accountId"),
		money.New(in.Amount, in.CurrencyCode),
		ledger.OperationMeta{
			Description:  in.Description,
			MadeByID:     userID(c),
			AccountTagID: in.AccountTagID,
		})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(op)
}

type transferRequest struct {
	ToAccountID  string          `json:"toAccountId"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"codeCurrency"`
	Description  string          `json:"description"`
}

// Transfer godoc
// @Summary      Transferir entre cuentas (misma moneda)
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId  path  string           true  "Cuenta origen"
// @Param        body       body  transferRequest  true  "Destino y monto positivo"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/accounts/{accountId}/transfers [post]
func (h *LedgerHandler) Transfer(c *fiber.Ctx) error {
	var in transferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	credit, debit, err := h.svc.Transfer(c.Context(), c.Params("accountId"), in.ToAccountID,
		money.New(in.Amount, in.CurrencyCode),
		ledger.OperationMeta{Description: in.Description, MadeByID: userID(c)})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"credit": credit, "debit": debit})
}

type exchangeRequest struct {
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"codeCurrency"`
	BuyCurrency          string          `json:"buyCurrency"`
	Rate                 decimal.Decimal `json:"rate"`
	Mode                 string          `json:"mode"` // sell | buy
	DestinationAccountID *string         `json:"destinationAccountId"`
}

// Exchange godoc
// @Summary      Cambio de moneda dentro de una cuenta (o hacia otra)
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        accountId  path  string           true  "Cuenta"
// @Param        body       body  exchangeRequest  true  "Venta, moneda de compra, tasa y modo"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/accounts/{accountId}/exchanges [post]
func (h *LedgerHandler) Exchange(c *fiber.Ctx) error {
	var in exchangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	credit, debit, err := h.svc.Exchange(c.Context(), c.Params("accountId"),
		money.New(in.Amount, in.CurrencyCode), in.BuyCurrency, in.Rate, in.Mode, in.DestinationAccountID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"credit": credit, "debit": debit})
}

// DeleteOperation godoc
// @Summary      Revertir una operación del log
// @Tags         accounts
// @Produce      json
// @Param        operationId  path  string  true  "Operación"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/operations/{operationId} [delete]
func (h *LedgerHandler) DeleteOperation(c *fiber.Ctx) error {
	if err := h.svc.DeleteOperation(c.Context(), c.Params("operationId"), userID(c)); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListBalances godoc
// @Summary      Saldos por moneda de una cuenta
// @Tags         accounts
// @Produce      json
// @Param        accountId  path  string  true  "Cuenta"
// @Success      200  {array}  map[string]any
// @Router       /api/accounts/{accountId}/balances [get]
func (h *LedgerHandler) ListBalances(c *fiber.Ctx) error {
	balances, err := h.accounts.ListBalances(c.Context(), c.Params("accountId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(balances)
}

// ListOperations godoc
// @Summary      Log de operaciones de una cuenta
// @Tags         accounts
// @Produce      json
// @Param        accountId  path   string  true   "Cuenta"
// @Param        from       query  string  false  "RFC3339"
// @Param        to         query  string  false  "RFC3339"
// @Param        limit      query  int     false  "Por defecto 50"
// @Param        offset     query  int     false  "Por defecto 0"
// @Success      200  {array}  map[string]any
// @Router       /api/accounts/{accountId}/operations [get]
func (h *LedgerHandler) ListOperations(c *fiber.Ctx) error {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_DATE", Message: "from inválido (RFC3339)"})
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_DATE", Message: "to inválido (RFC3339)"})
		}
		to = &t
	}
	ops, err := h.ops.ListByAccount(c.Context(), c.Params("accountId"), from, to,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ops)
}

// ListDailyBalances godoc
// @Summary      Rollup diario de una cuenta en un rango
// @Tags         accounts
// @Produce      json
// @Param        accountId  path   string  true  "Cuenta"
// @Param        from       query  string  true  "YYYY-MM-DD"
// @Param        to         query  string  true  "YYYY-MM-DD (exclusivo)"
// @Success      200  {array}  map[string]any
// @Router       /api/accounts/{accountId}/daily-balances [get]
func (h *LedgerHandler) ListDailyBalances(c *fiber.Ctx) error {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_DATE", Message: "from inválido (YYYY-MM-DD)"})
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_DATE", Message: "to inválido (YYYY-MM-DD)"})
	}
	rows, err := h.daily.ListByAccount(c.Context(), c.Params("accountId"), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(rows)
}
