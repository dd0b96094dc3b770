package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implementación de AccountRepository sobre PostgreSQL (usable con
// pool o tx).
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador de cuentas. Pasar pool o tx (Querier).
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// GetByID obtiene una cuenta con su lista de usuarios permitidos.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT id, business_id, owner_id, name, COALESCE(defined_currency, ''), is_blocked, is_private, allowed_user_ids, created_at
		FROM accounts WHERE id = $1`
	var a entity.Account
	err := r.q.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.BusinessID, &a.OwnerID, &a.Name, &a.DefinedCurrency,
		&a.IsBlocked, &a.IsPrivate, &a.AllowedUserIDs, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// GetBalanceForUpdate busca-o-crea el bucket (cuenta, moneda) y bloquea la
// fila hasta el fin de la transacción. El INSERT con ON CONFLICT garantiza que
// dos transacciones concurrentes convergen en la misma fila antes del lock.
func (r *AccountRepo) GetBalanceForUpdate(ctx context.Context, accountID, currencyCode string) (*entity.AccountBalance, error) {
	insert := `
		INSERT INTO account_balances (id, account_id, currency_code, amount)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (account_id, currency_code) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, uuid.New().String(), accountID, currencyCode); err != nil {
		return nil, fmt.Errorf("ensure balance row: %w", err)
	}

	query := `
		SELECT id, account_id, amount, currency_code
		FROM account_balances
		WHERE account_id = $1 AND currency_code = $2
		FOR UPDATE`
	var b entity.AccountBalance
	err := r.q.QueryRow(ctx, query, accountID, currencyCode).Scan(
		&b.ID, &b.AccountID, &b.Amount, &b.CurrencyCode,
	)
	if err != nil {
		return nil, fmt.Errorf("lock balance: %w", err)
	}
	return &b, nil
}

// UpdateBalance escribe el saldo de un bucket ya bloqueado.
func (r *AccountRepo) UpdateBalance(ctx context.Context, balance *entity.AccountBalance) error {
	query := `UPDATE account_balances SET amount = $1 WHERE id = $2`
	tag, err := r.q.Exec(ctx, query, balance.Amount, balance.ID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update balance: fila inexistente %s", balance.ID)
	}
	return nil
}

// ListBalances devuelve los buckets de saldo de una cuenta ordenados por moneda.
func (r *AccountRepo) ListBalances(ctx context.Context, accountID string) ([]*entity.AccountBalance, error) {
	query := `
		SELECT id, account_id, amount, currency_code
		FROM account_balances
		WHERE account_id = $1
		ORDER BY currency_code`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []*entity.AccountBalance
	for rows.Next() {
		var b entity.AccountBalance
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Amount, &b.CurrencyCode); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// zeroIfNil normaliza montos NULL de agregaciones SQL.
func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
