package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementEntry          = "ENTRY"          // entrada a bodega
	MovementOut            = "OUT"            // salida manual
	MovementMovement       = "MOVEMENT"       // traslado entre áreas
	MovementProcessed      = "PROCESSED"      // consumido en elaboración
	MovementTransformation = "TRANSFORMATION" // transformado en otro producto
	MovementWaste          = "WASTE"          // merma
	MovementSale           = "SALE"           // venta (directa, online o indirecta)
)

// StockMovement es una entrada append-only del log de movimientos de un área.
// El motor de conciliación lo lee (desde el último libro) y además le anexa
// filas SALE sintéticas por ventas directas y por ventas indirectas inferidas,
// de modo que el log quede como única fuente de verdad hacia adelante.
type StockMovement struct {
	ID              string
	ProductID       string
	VariationID     *string
	AreaID          string
	Quantity        decimal.Decimal // con signo
	Operation       string
	EconomicCycleID *string
	PriceID         *string
	Description     string
	MadeBy          string
	CreatedAt       time.Time
}

// Stock es la cantidad en mano de un producto (o variación) en un área.
type Stock struct {
	ProductID   string
	VariationID *string
	AreaID      string
	Quantity    decimal.Decimal
	UpdatedAt   time.Time
}

// Product es el modelo de lectura del catálogo consumido por el motor:
// solo lo necesario para costos y comparación de precios.
type Product struct {
	ID               string
	BusinessID       string
	Name             string
	AverageCost      decimal.Decimal
	TracksVariations bool
}

// ProductPrice es un precio de catálogo de un producto en un sistema de
// precios, usado para detectar sobreescrituras de precio en líneas vendidas.
type ProductPrice struct {
	ProductID     string
	PriceSystemID string
	Amount        decimal.Decimal
	CurrencyCode  string
}
