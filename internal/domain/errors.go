package domain

import (
	"errors"
	"fmt"
)

// Taxonomía de errores para decisiones programáticas (reintentos de la cola,
// mapeo HTTP). Todo error de regla de negocio envuelve uno de estos cuatro kinds.
var (
	ErrValidation  = errors.New("entrada inválida")            // culpa del caller, no se reintenta
	ErrConflict    = errors.New("conflicto de regla de negocio") // no se reintenta
	ErrNotFound    = errors.New("recurso no encontrado")       // no se reintenta
	ErrConcurrency = errors.New("error transitorio de concurrencia") // reintentable
)

// Errores de regla concretos. Cada uno preserva su kind vía %w, de modo que
// errors.Is(err, ErrConflict) y errors.Is(err, ErrAccountBlocked) funcionan a la vez.
var (
	// Ledger
	ErrAccountBlocked     = fmt.Errorf("%w: la cuenta está bloqueada", ErrConflict)
	ErrCurrencyNotAllowed = fmt.Errorf("%w: la cuenta no acepta esa moneda", ErrConflict)
	ErrZeroAmount         = fmt.Errorf("%w: el monto no puede ser cero", ErrValidation)
	ErrInsufficientFunds  = fmt.Errorf("%w: fondos insuficientes", ErrConflict)
	ErrUnmodifiable       = fmt.Errorf("%w: la operación ya no puede modificarse", ErrConflict)
	ErrAccountNotFound    = fmt.Errorf("%w: cuenta", ErrNotFound)

	// Ciclo económico
	ErrCycleAlreadyActive = fmt.Errorf("%w: ya existe un ciclo económico activo", ErrConflict)
	ErrNoActiveCycle      = fmt.Errorf("%w: no hay ciclo económico activo", ErrNotFound)
	ErrOpenOrdersExist    = fmt.Errorf("%w: existen órdenes sin facturar", ErrConflict)
	ErrNoPriceSystem      = fmt.Errorf("%w: sistema de precios principal", ErrNotFound)

	// Monedas
	ErrUnknownCurrency  = fmt.Errorf("%w: moneda sin tasa de cambio registrada", ErrValidation)
	ErrNoMainCurrency   = fmt.Errorf("%w: el negocio no tiene moneda principal", ErrNotFound)
	ErrCurrencyMismatch = fmt.Errorf("%w: monedas distintas en aritmética monetaria", ErrValidation)
)

// IsRetryable indica si la cola de trabajos debe reintentar el job que produjo err.
// Solo los errores transitorios de infraestructura califican.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}
