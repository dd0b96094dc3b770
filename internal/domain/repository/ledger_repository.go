package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
)

// AccountRepository define el puerto de persistencia para cuentas y sus saldos.
// Toda mutación de saldo exige el lock de fila previo (GetBalanceForUpdate)
// dentro de la misma transacción; mutar sin bloquear es un bug de corrección,
// no una optimización.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	// GetBalanceForUpdate busca-o-crea el bucket (cuenta, moneda) y bloquea la
	// fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetBalanceForUpdate(ctx context.Context, accountID, currencyCode string) (*entity.AccountBalance, error)
	UpdateBalance(ctx context.Context, balance *entity.AccountBalance) error
	ListBalances(ctx context.Context, accountID string) ([]*entity.AccountBalance, error)
}

// OperationRepository define el puerto de persistencia del log inmutable de
// operaciones y de la pista de auditoría.
type OperationRepository interface {
	// Create inserta la operación y asigna su id visible de transacción
	// ("T-<seq>") en el mismo statement.
	Create(ctx context.Context, op *entity.AccountOperation) error
	GetByID(ctx context.Context, id string) (*entity.AccountOperation, error)
	Delete(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, accountID string, from, to *time.Time, limit, offset int) ([]*entity.AccountOperation, error)
	// SumByAccountAndCurrency suma los montos firmados del log; debe igualar el
	// saldo vigente de ese bucket (conservación).
	SumByAccountAndCurrency(ctx context.Context, accountID, currencyCode string) (decimal.Decimal, error)
	CreateRecord(ctx context.Context, rec *entity.AccountRecord) error
}

// DailyBalanceRepository materializa el rollup diario por cuenta y moneda.
type DailyBalanceRepository interface {
	Upsert(ctx context.Context, db *entity.AccountDailyBalance) error
	ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]*entity.AccountDailyBalance, error)
}
