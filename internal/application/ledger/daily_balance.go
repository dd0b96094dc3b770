package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

// DailyBalanceService materializa el rollup diario de ingresos/egresos por
// cuenta y moneda. Es el handler del trabajo DAILY_BALANCE que el cierre
// programado encola por cada cuenta tocada.
type DailyBalanceService struct {
	ops   repository.OperationRepository
	daily repository.DailyBalanceRepository
	log   *logger.Logger
}

// NewDailyBalanceService construye el servicio de rollup.
func NewDailyBalanceService(ops repository.OperationRepository, daily repository.DailyBalanceRepository, log *logger.Logger) *DailyBalanceService {
	return &DailyBalanceService{ops: ops, daily: daily, log: log.WithOrigin("daily_balance")}
}

// SummarizeDay recalcula el rollup de una cuenta para el día de la fecha dada
// y hace upsert por (cuenta, moneda, día). Re-ejecutarlo es idempotente.
func (s *DailyBalanceService) SummarizeDay(ctx context.Context, accountID string, date time.Time) error {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	to := from.Add(24 * time.Hour)

	operations, err := s.ops.ListByAccount(ctx, accountID, &from, &to, 0, 0)
	if err != nil {
		return err
	}

	type totals struct{ income, expense decimal.Decimal }
	byCurrency := map[string]*totals{}
	for _, op := range operations {
		t, ok := byCurrency[op.Amount.Currency]
		if !ok {
			t = &totals{}
			byCurrency[op.Amount.Currency] = t
		}
		if op.Amount.Amount.IsNegative() {
			t.expense = t.expense.Add(op.Amount.Amount.Abs())
		} else {
			t.income = t.income.Add(op.Amount.Amount)
		}
	}

	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		t := byCurrency[currency]
		err := s.daily.Upsert(ctx, &entity.AccountDailyBalance{
			AccountID:    accountID,
			CurrencyCode: currency,
			Date:         from,
			TotalIncome:  t.income,
			TotalExpense: t.expense,
		})
		if err != nil {
			return err
		}
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("date", from.Format("2006-01-02")).
		Int("currencies", len(currencies)).
		Msg("rollup diario materializado")
	return nil
}
