package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

type dailyKey struct {
	accountID, currency string
	date                time.Time
}

type fakeDailyRepo struct {
	rows map[dailyKey]*entity.AccountDailyBalance
}

func newFakeDailyRepo() *fakeDailyRepo {
	return &fakeDailyRepo{rows: map[dailyKey]*entity.AccountDailyBalance{}}
}

func (f *fakeDailyRepo) Upsert(_ context.Context, db *entity.AccountDailyBalance) error {
	f.rows[dailyKey{db.AccountID, db.CurrencyCode, db.Date}] = db
	return nil
}

func (f *fakeDailyRepo) ListByAccount(_ context.Context, accountID string, _, _ time.Time) ([]*entity.AccountDailyBalance, error) {
	var out []*entity.AccountDailyBalance
	for _, r := range f.rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func addOp(store *fakeLedgerStore, accountID string, amount float64, currency string, at time.Time) {
	store.seq++
	op := &entity.AccountOperation{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Amount:    money.FromFloat(amount, currency),
		CreatedAt: at,
	}
	store.ops[op.ID] = op
}

func TestSummarizeDay_RollupPorMoneda(t *testing.T) {
	store := newFakeLedgerStore()
	daily := newFakeDailyRepo()
	svc := ledger.NewDailyBalanceService(opRepoAdapter{store}, daily, logger.Nop())

	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	addOp(store, "acc-1", 100, "USD", day.Add(9*time.Hour))
	addOp(store, "acc-1", -40, "USD", day.Add(12*time.Hour))
	addOp(store, "acc-1", 500, "CUP", day.Add(15*time.Hour))
	// Fuera de la ventana: el día anterior y otra cuenta.
	addOp(store, "acc-1", 999, "USD", day.Add(-2*time.Hour))
	addOp(store, "acc-2", 7, "USD", day.Add(10*time.Hour))

	require.NoError(t, svc.SummarizeDay(context.Background(), "acc-1", day.Add(13*time.Hour)))

	usd := daily.rows[dailyKey{"acc-1", "USD", day}]
	require.NotNil(t, usd)
	assert.True(t, usd.TotalIncome.Equal(decimal.NewFromInt(100)))
	assert.True(t, usd.TotalExpense.Equal(decimal.NewFromInt(40)), "los egresos se acumulan en valor absoluto")

	cup := daily.rows[dailyKey{"acc-1", "CUP", day}]
	require.NotNil(t, cup)
	assert.True(t, cup.TotalIncome.Equal(decimal.NewFromInt(500)))
	assert.True(t, cup.TotalExpense.IsZero())

	assert.Len(t, daily.rows, 2, "solo las monedas del día pedido")
}

func TestSummarizeDay_Idempotente(t *testing.T) {
	store := newFakeLedgerStore()
	daily := newFakeDailyRepo()
	svc := ledger.NewDailyBalanceService(opRepoAdapter{store}, daily, logger.Nop())

	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	addOp(store, "acc-1", 100, "USD", day.Add(time.Hour))

	require.NoError(t, svc.SummarizeDay(context.Background(), "acc-1", day))
	require.NoError(t, svc.SummarizeDay(context.Background(), "acc-1", day))

	assert.Len(t, daily.rows, 1)
	assert.True(t, daily.rows[dailyKey{"acc-1", "USD", day}].TotalIncome.Equal(decimal.NewFromInt(100)))
}
