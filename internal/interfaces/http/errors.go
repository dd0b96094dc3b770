package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pos-pro/internal/domain"
)

// ErrorResponse cuerpo de error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail mapea la taxonomía de errores del dominio a estados HTTP.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrConcurrency):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Code: "RETRY", Message: "conflicto transitorio, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// Identidad del caller. La autenticación queda fuera de este servicio: un
// gateway upstream valida el token y propaga estos headers.
const (
	headerBusinessID = "X-Business-Id"
	headerUserID     = "X-User-Id"
)

func businessID(c *fiber.Ctx) string { return c.Get(headerBusinessID) }
func userID(c *fiber.Ctx) string     { return c.Get(headerUserID) }

// requireBusiness corta la petición si falta el header de negocio. Cuando
// devuelve false la respuesta ya fue escrita.
func requireBusiness(c *fiber.Ctx) (string, bool) {
	id := businessID(c)
	if id == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "MISSING_BUSINESS", Message: "falta el header " + headerBusinessID})
		return "", false
	}
	return id, true
}
