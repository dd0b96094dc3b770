package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operaciones de un libro de área.
const (
	BookOperationOpen   = "OPEN"
	BookOperationClosed = "CLOSED"
)

// BookStateVersion es la versión del sobre de serialización del estado del
// libro. Los lectores deben tolerar campos adicionales dentro del payload.
const BookStateVersion = 1

// StockAreaBook es la foto inmutable del estado de inventario de un área para
// un ciclo económico. Se crea una vez al abrir (OPEN, cantidades en mano como
// initial) y una vez al cerrar (CLOSED, deltas conciliados). Nunca se muta:
// es la pista de auditoría.
type StockAreaBook struct {
	ID              string
	AreaID          string
	EconomicCycleID string
	Operation       string // OPEN | CLOSED
	State           []ProductBookState
	MadeBy          string
	CreatedAt       time.Time
}

// BookStateEnvelope es el formato persistido de StockAreaBook.State:
// {"version":1,"payload":[...]}.
type BookStateEnvelope struct {
	Version int                `json:"version"`
	Payload []ProductBookState `json:"payload"`
}

// ProductBookState es el estado por producto dentro de un libro. En el libro
// CLOSED las cantidades de salida (movements, outs, sales, onlineSales,
// processed, waste) se almacenan negadas; initial, entry e inStock no.
type ProductBookState struct {
	ProductID   string               `json:"productId"`
	Variations  []VariationBookState `json:"variations,omitempty"`
	Initial     decimal.Decimal      `json:"initial"`
	InStock     decimal.Decimal      `json:"inStock"`
	Entry       decimal.Decimal      `json:"entry"`
	Movements   decimal.Decimal      `json:"movements"`
	Outs        decimal.Decimal      `json:"outs"`
	Sales       decimal.Decimal      `json:"sales"`
	OnlineSales decimal.Decimal      `json:"onlineSales"`
	Processed   decimal.Decimal      `json:"processed"`
	Waste       decimal.Decimal      `json:"waste"`
}

// VariationBookState es el estado por variación. Cada variación balancea su
// propia ecuación contra su inStock; el agregado del producto padre no tiene
// por qué igualar la suma de sus variaciones.
type VariationBookState struct {
	VariationID string          `json:"variationId"`
	Initial     decimal.Decimal `json:"initial"`
	InStock     decimal.Decimal `json:"inStock"`
	Entry       decimal.Decimal `json:"entry"`
	Movements   decimal.Decimal `json:"movements"`
	Outs        decimal.Decimal `json:"outs"`
	Sales       decimal.Decimal `json:"sales"`
	OnlineSales decimal.Decimal `json:"onlineSales"`
	Processed   decimal.Decimal `json:"processed"`
	Waste       decimal.Decimal `json:"waste"`
}
