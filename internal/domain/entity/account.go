package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
)

// Operaciones del ledger.
const (
	OperationDebit  = "debit"  // incrementa el saldo
	OperationCredit = "credit" // decrementa el saldo
)

// Account es una cuenta financiera del negocio. Si DefinedCurrency no es vacío
// la cuenta solo acepta esa moneda; vacío significa multimoneda. La cuenta es
// dueña exclusiva de sus filas de saldo y de su log de operaciones.
type Account struct {
	ID              string
	BusinessID      string
	OwnerID         string
	Name            string
	DefinedCurrency string // "" = multimoneda
	IsBlocked       bool
	IsPrivate       bool
	AllowedUserIDs  []string
	CreatedAt       time.Time
}

// AcceptsCurrency indica si la cuenta admite operaciones en la moneda dada.
func (a *Account) AcceptsCurrency(code string) bool {
	return a.DefinedCurrency == "" || a.DefinedCurrency == code
}

// AccountBalance es el bucket de saldo de una cuenta para una moneda.
// Toda mutación exige lock de fila previo dentro de la misma transacción.
type AccountBalance struct {
	ID           string
	AccountID    string
	Amount       decimal.Decimal
	CurrencyCode string
}

// AccountOperation es una entrada inmutable del ledger. El monto ya viene con
// signo tal que saldo += monto siempre; Operation es solo la etiqueta
// debit/credit derivada del signo.
type AccountOperation struct {
	ID            string
	AccountID     string
	Operation     string // debit | credit
	Amount        money.Money
	Description   string
	MadeByID      string
	RegisteredAt  time.Time
	NoTransaction string // id visible "T-<seq>", asignado post-insert
	Blocked       bool
	AccountTagID  *string
	ParentID      *string // enlaza las dos patas de un transfer/exchange
	CreatedAt     time.Time
}

// OperationFor deriva la etiqueta debit/credit del signo de un monto.
func OperationFor(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return OperationCredit
	}
	return OperationDebit
}

// AccountRecord es la pista de auditoría legible de una mutación del ledger,
// con los saldos anterior y posterior en texto. No tiene FK dura hacia la
// operación: sobrevive a reversos y borrados.
type AccountRecord struct {
	ID        string
	AccountID string
	Action    string
	Title     string
	Details   string // "saldo anterior: X | saldo posterior: Y"
	MadeByID  string
	CreatedAt time.Time
}

// Acciones registradas en AccountRecord.
const (
	RecordOperationAdded   = "OPERATION_ADDED"
	RecordOperationDeleted = "OPERATION_DELETED"
	RecordTransferExecuted = "TRANSFER_EXECUTED"
	RecordExchangeExecuted = "EXCHANGE_EXECUTED"
)

// AccountDailyBalance es el rollup diario por cuenta y moneda que materializa
// el job DAILY_BALANCE. Dato derivado: puede reconstruirse desde el ledger.
type AccountDailyBalance struct {
	AccountID    string
	CurrencyCode string
	Date         time.Time // truncado a día
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}
