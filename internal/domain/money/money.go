// Package money define el primitivo monetario del motor: montos etiquetados por
// moneda con aritmética de precisión explícita y truncamiento hacia cero.
//
// El truncamiento (en vez de redondeo) es una regla de negocio, no una
// optimización: los residuos por debajo de la precisión configurada del negocio
// se descartan siempre en la misma dirección para que la contabilidad sea
// reproducible.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
)

// Money es un monto etiquetado por moneda (ej. {12.50, "USD"}).
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"codeCurrency"`
}

// New construye un Money desde un decimal y un código de moneda.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// FromFloat es una conveniencia para tests y fixtures.
func FromFloat(amount float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}
}

// Zero devuelve el cero de una moneda.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// IsZero indica si el monto es exactamente cero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsNegative indica si el monto es menor que cero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Neg devuelve el monto con el signo invertido.
func (m Money) Neg() Money { return Money{Amount: m.Amount.Neg(), Currency: m.Currency} }

// Add suma other y trunca el resultado a precision dígitos decimales.
// Falla con ErrCurrencyMismatch si las monedas difieren.
func (m Money) Add(other Money, precision int32) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", domain.ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount).Truncate(precision), Currency: m.Currency}, nil
}

// Sub resta other y trunca el resultado a precision dígitos decimales.
func (m Money) Sub(other Money, precision int32) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", domain.ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount).Truncate(precision), Currency: m.Currency}, nil
}

// Mul multiplica por un factor escalar y trunca a precision dígitos decimales.
func (m Money) Mul(factor decimal.Decimal, precision int32) Money {
	return Money{Amount: m.Amount.Mul(factor).Truncate(precision), Currency: m.Currency}
}

// Convert expresa el monto en otra moneda multiplicando por la tasa de cambio.
func (m Money) Convert(toCurrency string, rate decimal.Decimal, precision int32) Money {
	return Money{Amount: m.Amount.Mul(rate).Truncate(precision), Currency: toCurrency}
}

// String implementa fmt.Stringer ("12.50 USD"), usado en los AccountRecord.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

// Disregard aplica el umbral de descarte de residuos: trunca el valor absoluto
// a precision−1 dígitos y, si el resultado es cero, reporta que el residuo debe
// tratarse como exactamente cero. Absorbe el ruido de redondeo flotante sin
// ocultar discrepancias reales.
func Disregard(v decimal.Decimal, precision int32) bool {
	return v.Abs().Truncate(precision - 1).IsZero()
}
