package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.AreaRepository = (*AreaRepo)(nil)

// AreaRepo lee áreas y sus reglas de enrutamiento de fondos.
type AreaRepo struct {
	q Querier
}

// NewAreaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAreaRepository(q Querier) *AreaRepo {
	return &AreaRepo{q: q}
}

const areaColumns = `id, business_id, name, type, is_active,
	enable_percent_salary, fixed_salary, percent_salary, salary_threshold,
	transfer_funds_on_close, COALESCE(default_account_id, '')`

// ListActiveByType devuelve las áreas activas de un tipo, con sus destinos de
// fondos cargados, en orden estable por nombre.
func (r *AreaRepo) ListActiveByType(ctx context.Context, businessID, areaType string) ([]*entity.Area, error) {
	query := `
		SELECT ` + areaColumns + `
		FROM areas
		WHERE business_id = $1 AND type = $2 AND is_active
		ORDER BY name, id`
	rows, err := r.q.Query(ctx, query, businessID, areaType)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []*entity.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, area := range areas {
		if err := r.loadDestinations(ctx, area); err != nil {
			return nil, err
		}
	}
	return areas, nil
}

// GetByID devuelve el área con sus destinos de fondos.
func (r *AreaRepo) GetByID(ctx context.Context, id string) (*entity.Area, error) {
	query := `SELECT ` + areaColumns + ` FROM areas WHERE id = $1`
	area, err := scanArea(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: área %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get area: %w", err)
	}
	if err := r.loadDestinations(ctx, area); err != nil {
		return nil, err
	}
	return area, nil
}

func (r *AreaRepo) loadDestinations(ctx context.Context, area *entity.Area) error {
	query := `
		SELECT id, area_id, payment_way, currency_code, account_id, account_tag_id
		FROM fund_destinations
		WHERE area_id = $1
		ORDER BY payment_way, currency_code`
	rows, err := r.q.Query(ctx, query, area.ID)
	if err != nil {
		return fmt.Errorf("list fund destinations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fd entity.FundDestination
		if err := rows.Scan(&fd.ID, &fd.AreaID, &fd.PaymentWay, &fd.CurrencyCode, &fd.AccountID, &fd.AccountTagID); err != nil {
			return fmt.Errorf("scan fund destination: %w", err)
		}
		area.FundDestinations = append(area.FundDestinations, fd)
	}
	return rows.Err()
}

func scanArea(row pgx.Row) (*entity.Area, error) {
	var a entity.Area
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.Name, &a.Type, &a.IsActive,
		&a.EnablePercentSalary, &a.FixedSalary, &a.PercentSalary, &a.SalaryThreshold,
		&a.TransferFundsOnClose, &a.DefaultAccountID,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
