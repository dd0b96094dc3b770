package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
)

// Estados de orden relevantes para el arqueo.
const (
	OrderStatusBilled         = "BILLED"
	OrderStatusPaymentPending = "PAYMENT_PENDING"
	OrderStatusCancelled      = "CANCELLED"
)

// OrderReceipt es la orden producida por el flujo de venta (colaborador
// externo); aquí se consume en modo lectura para el arqueo del ciclo.
type OrderReceipt struct {
	ID              string
	BusinessID      string
	AreaID          string // área SALE que la generó
	EconomicCycleID string
	Status          string
	HouseCosted     bool // consumo de la casa: no cuenta como venta
	DiscountPercent decimal.Decimal
	CommissionPercent decimal.Decimal
	Prices          []money.Money   // totales por moneda de las líneas
	TotalCost       decimal.Decimal // en moneda de costo del negocio
	CouponDiscounts []money.Money
	Modifiers       []money.Money
	Payments        []CurrencyPayment
	AmountReturned  *money.Money // vuelto entregado en efectivo
	Tips            []PaymentLine
	Shipping        []PaymentLine
	CreatedAt       time.Time
}

// CurrencyPayment es una línea de pago de la orden.
type CurrencyPayment struct {
	Amount       decimal.Decimal
	CurrencyCode string
	PaymentWay   string // CASH | TRANSFER | CARD
}

// PaymentLine es un monto rastreado por (moneda, vía de pago): propinas y envíos.
type PaymentLine struct {
	Amount       decimal.Decimal
	CurrencyCode string
	PaymentWay   string
}

// SelledProduct es una línea vendida de una orden; la consume la conciliación
// (ventas directas por área de stock) y la detección de sobreescritura de
// precios.
type SelledProduct struct {
	ID              string
	OrderID         string
	ProductID       string
	VariationID     *string
	StockAreaID     string // área STOCK de la que se descontó
	EconomicCycleID string
	Quantity        decimal.Decimal
	PriceUnitary    money.Money // precio capturado al vender
	TotalCost       decimal.Decimal
	IsOnline        bool
	CreatedAt       time.Time
}

// Tipos de operación manual de caja.
const (
	CashOpManualDeposit  = "MANUAL_DEPOSIT"
	CashOpManualWithdraw = "MANUAL_WITHDRAW"
	CashOpManualFund     = "MANUAL_FUND"
)

// CashRegisterOperation es un depósito/extracción/fondo manual de caja dentro
// del ciclo. Accountable marca las que deben postearse al ledger en el cierre.
type CashRegisterOperation struct {
	ID              string
	EconomicCycleID string
	AreaID          string
	Type            string
	Amount          money.Money // con signo: depósitos +, extracciones −
	Observations    string
	MadeBy          string
	Accountable     bool
	CreatedAt       time.Time
}
