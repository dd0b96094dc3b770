package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/pos-pro/internal/application/cycle"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ ledger.TxRunner = (*LedgerTxRunner)(nil)
var _ cycle.TxRunner = (*CycleTxRunner)(nil)

// LedgerTxRunner ejecuta operaciones de cuenta dentro de una transacción
// PostgreSQL, con los repositorios del ledger atados a ella.
type LedgerTxRunner struct {
	pool *pgxpool.Pool
}

// NewLedgerTxRunner construye el runner con el pool.
func NewLedgerTxRunner(pool *pgxpool.Pool) *LedgerTxRunner {
	return &LedgerTxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback.
func (r *LedgerTxRunner) Run(ctx context.Context, fn func(
	accountRepo repository.AccountRepository,
	opRepo repository.OperationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewAccountRepository(tx), NewOperationRepository(tx)); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// CycleTxRunner ejecuta el cierre/apertura del ciclo económico dentro de una
// transacción PostgreSQL: todos los repositorios que el orquestador toca van
// atados a la misma tx.
type CycleTxRunner struct {
	pool *pgxpool.Pool
}

// NewCycleTxRunner construye el runner con el pool.
func NewCycleTxRunner(pool *pgxpool.Pool) *CycleTxRunner {
	return &CycleTxRunner{pool: pool}
}

// Run inicia una transacción, arma el bundle de repositorios sobre ella y
// ejecuta fn. Cualquier error revierte todo: nunca queda un cierre parcial.
func (r *CycleTxRunner) Run(ctx context.Context, fn func(cycle.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := cycle.Repos{
		Cycles:    NewCycleRepository(tx),
		Areas:     NewAreaRepository(tx),
		Books:     NewBookRepository(tx),
		Movements: NewStockMovementRepository(tx),
		Stock:     NewStockRepository(tx),
		Orders:    NewOrderRepository(tx),
		Cash:      NewCashRegisterRepository(tx),
		Stores:    NewStoreRepository(tx),
		Products:  NewProductRepository(tx),
		Accounts:  NewAccountRepository(tx),
		Ops:       NewOperationRepository(tx),
	}
	if err := fn(repos); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
