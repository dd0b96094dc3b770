package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.CashRegisterRepository = (*CashRegisterRepo)(nil)

// CashRegisterRepo lee las operaciones manuales de caja del ciclo.
type CashRegisterRepo struct {
	q Querier
}

// NewCashRegisterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashRegisterRepository(q Querier) *CashRegisterRepo {
	return &CashRegisterRepo{q: q}
}

// ListByCycleAndArea devuelve las operaciones de caja del área en el ciclo, en
// orden de registro.
func (r *CashRegisterRepo) ListByCycleAndArea(ctx context.Context, cycleID, areaID string) ([]*entity.CashRegisterOperation, error) {
	query := `
		SELECT id, economic_cycle_id, area_id, type, amount, currency_code, observations, made_by, accountable, created_at
		FROM cash_register_operations
		WHERE economic_cycle_id = $1 AND area_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, cycleID, areaID)
	if err != nil {
		return nil, fmt.Errorf("list cash operations: %w", err)
	}
	defer rows.Close()

	var list []*entity.CashRegisterOperation
	for rows.Next() {
		var op entity.CashRegisterOperation
		if err := rows.Scan(&op.ID, &op.EconomicCycleID, &op.AreaID, &op.Type,
			&op.Amount.Amount, &op.Amount.Currency, &op.Observations,
			&op.MadeBy, &op.Accountable, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cash operation: %w", err)
		}
		list = append(list, &op)
	}
	return list, rows.Err()
}
