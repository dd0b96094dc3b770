package entity

import "github.com/shopspring/decimal"

// Tipos de área.
const (
	AreaTypeSale  = "SALE"  // genera órdenes
	AreaTypeStock = "STOCK" // mantiene inventario
)

// Vías de pago.
const (
	PaymentWayCash     = "CASH"
	PaymentWayTransfer = "TRANSFER"
	PaymentWayCard     = "CARD"
)

// Area es una ubicación física o lógica del negocio. Las áreas STOCK llevan
// inventario y participan de la conciliación; las áreas SALE generan órdenes y
// participan del arqueo.
type Area struct {
	ID         string
	BusinessID string
	Name       string
	Type       string // SALE | STOCK
	IsActive   bool

	// Configuración de salario del área (monto fijo, o porcentaje sobre un
	// umbral de ventas cuando EnablePercentSalary).
	EnablePercentSalary bool
	FixedSalary         decimal.Decimal
	PercentSalary       decimal.Decimal // ej. 0.10 = 10%
	SalaryThreshold     decimal.Decimal // base mínima para aplicar el porcentaje

	// Enrutamiento de fondos al cierre.
	TransferFundsOnClose bool
	DefaultAccountID     string            // fallback cuando ninguna regla coincide
	FundDestinations     []FundDestination
}

// FundDestination mapea una combinación (vía de pago, moneda) a la cuenta (y
// etiqueta opcional) que recibe esos fondos al cierre del ciclo.
type FundDestination struct {
	ID           string
	AreaID       string
	PaymentWay   string
	CurrencyCode string
	AccountID    string
	AccountTagID *string
}

// Destination resuelve la cuenta destino para una vía de pago y moneda.
// Devuelve la cuenta por defecto del área cuando ninguna regla coincide.
func (a *Area) Destination(paymentWay, currencyCode string) (accountID string, tagID *string) {
	for _, fd := range a.FundDestinations {
		if fd.PaymentWay == paymentWay && fd.CurrencyCode == currencyCode {
			return fd.AccountID, fd.AccountTagID
		}
	}
	return a.DefaultAccountID, nil
}
