package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.CycleRepository = (*CycleRepo)(nil)

// CycleRepo persiste los ciclos económicos. El invariante "a lo sumo un ciclo
// activo por negocio" lo respalda el índice único parcial uq_economic_cycles_active.
type CycleRepo struct {
	q Querier
}

// NewCycleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCycleRepository(q Querier) *CycleRepo {
	return &CycleRepo{q: q}
}

const cycleColumns = `id, business_id, name, opened_by, opened_at, closed_by, closed_at, price_system_id, meta, is_active`

// GetActive devuelve el ciclo activo del negocio, o nil si no hay ninguno.
func (r *CycleRepo) GetActive(ctx context.Context, businessID string) (*entity.EconomicCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM economic_cycles WHERE business_id = $1 AND is_active`
	ec, err := r.scanCycle(r.q.QueryRow(ctx, query, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active cycle: %w", err)
	}
	return ec, nil
}

// GetLastClosed devuelve el ciclo cerrado más reciente del negocio, o nil si
// nunca se cerró ninguno.
func (r *CycleRepo) GetLastClosed(ctx context.Context, businessID string) (*entity.EconomicCycle, error) {
	query := `
		SELECT ` + cycleColumns + `
		FROM economic_cycles
		WHERE business_id = $1 AND NOT is_active AND closed_at IS NOT NULL
		ORDER BY closed_at DESC
		LIMIT 1`
	ec, err := r.scanCycle(r.q.QueryRow(ctx, query, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last closed cycle: %w", err)
	}
	return ec, nil
}

// Create inserta el ciclo. Una violación del índice único parcial significa que
// otro proceso abrió un ciclo entre la lectura y este insert.
func (r *CycleRepo) Create(ctx context.Context, cycle *entity.EconomicCycle) error {
	query := `
		INSERT INTO economic_cycles (id, business_id, name, opened_by, opened_at, price_system_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		cycle.ID, cycle.BusinessID, cycle.Name, cycle.OpenedBy, cycle.OpenedAt,
		cycle.PriceSystemID, cycle.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCycleAlreadyActive
		}
		return fmt.Errorf("create cycle: %w", err)
	}
	return nil
}

// Close marca el ciclo como inactivo, estampa cierre y congela meta.
func (r *CycleRepo) Close(ctx context.Context, cycle *entity.EconomicCycle) error {
	meta, err := json.Marshal(cycle.Meta)
	if err != nil {
		return fmt.Errorf("marshal cycle meta: %w", err)
	}
	query := `
		UPDATE economic_cycles
		SET is_active = false, closed_by = $2, closed_at = $3, meta = $4
		WHERE id = $1 AND is_active`
	tag, err := r.q.Exec(ctx, query, cycle.ID, cycle.ClosedBy, cycle.ClosedAt, meta)
	if err != nil {
		return fmt.Errorf("close cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNoActiveCycle
	}
	return nil
}

func (r *CycleRepo) scanCycle(row pgx.Row) (*entity.EconomicCycle, error) {
	var ec entity.EconomicCycle
	var meta []byte
	err := row.Scan(
		&ec.ID, &ec.BusinessID, &ec.Name, &ec.OpenedBy, &ec.OpenedAt,
		&ec.ClosedBy, &ec.ClosedAt, &ec.PriceSystemID, &meta, &ec.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		ec.Meta = &entity.CycleMeta{}
		if err := json.Unmarshal(meta, ec.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal cycle meta: %w", err)
		}
	}
	return &ec, nil
}
