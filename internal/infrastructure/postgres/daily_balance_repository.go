package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.DailyBalanceRepository = (*DailyBalanceRepo)(nil)

// DailyBalanceRepo materializa el rollup diario por cuenta y moneda.
type DailyBalanceRepo struct {
	q Querier
}

// NewDailyBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDailyBalanceRepository(q Querier) *DailyBalanceRepo {
	return &DailyBalanceRepo{q: q}
}

// Upsert escribe el rollup de un día; re-ejecutarlo sobreescribe (idempotente).
func (r *DailyBalanceRepo) Upsert(ctx context.Context, db *entity.AccountDailyBalance) error {
	query := `
		INSERT INTO account_daily_balances (account_id, currency_code, date, total_income, total_expense)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, currency_code, date)
		DO UPDATE SET total_income = EXCLUDED.total_income, total_expense = EXCLUDED.total_expense`
	_, err := r.q.Exec(ctx, query,
		db.AccountID, db.CurrencyCode, db.Date, db.TotalIncome, db.TotalExpense,
	)
	if err != nil {
		return fmt.Errorf("upsert daily balance: %w", err)
	}
	return nil
}

// ListByAccount devuelve los rollups de una cuenta en el rango [from, to).
func (r *DailyBalanceRepo) ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]*entity.AccountDailyBalance, error) {
	query := `
		SELECT account_id, currency_code, date, total_income, total_expense
		FROM account_daily_balances
		WHERE account_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, currency_code`
	rows, err := r.q.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily balances: %w", err)
	}
	defer rows.Close()

	var out []*entity.AccountDailyBalance
	for rows.Next() {
		var db entity.AccountDailyBalance
		if err := rows.Scan(&db.AccountID, &db.CurrencyCode, &db.Date, &db.TotalIncome, &db.TotalExpense); err != nil {
			return nil, fmt.Errorf("scan daily balance: %w", err)
		}
		out = append(out, &db)
	}
	return out, rows.Err()
}
