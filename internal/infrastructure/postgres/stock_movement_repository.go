package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.MovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo persiste el log append-only de movimientos de inventario.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementInsert = `
	INSERT INTO stock_movements (id, product_id, variation_id, area_id, quantity, operation, economic_cycle_id, price_id, description, made_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Create persiste un movimiento de inventario.
func (r *StockMovementRepo) Create(ctx context.Context, mov *entity.StockMovement) error {
	if mov.ID == "" {
		mov.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, movementInsert,
		mov.ID, mov.ProductID, mov.VariationID, mov.AreaID, mov.Quantity,
		mov.Operation, mov.EconomicCycleID, mov.PriceID, mov.Description,
		mov.MadeBy, mov.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// CreateBatch persiste varios movimientos en un solo round-trip.
func (r *StockMovementRepo) CreateBatch(ctx context.Context, movs []entity.StockMovement) error {
	if len(movs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range movs {
		m := &movs[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		batch.Queue(movementInsert,
			m.ID, m.ProductID, m.VariationID, m.AreaID, m.Quantity,
			m.Operation, m.EconomicCycleID, m.PriceID, m.Description,
			m.MadeBy, m.CreatedAt,
		)
	}
	results := r.q.SendBatch(ctx, batch)
	defer results.Close()
	for range movs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("create stock movements batch: %w", err)
		}
	}
	return nil
}

// ListSinceBook devuelve los movimientos de un área etiquetados con el ciclo,
// en orden de registro.
func (r *StockMovementRepo) ListSinceBook(ctx context.Context, areaID, cycleID string) ([]entity.StockMovement, error) {
	query := `
		SELECT id, product_id, variation_id, area_id, quantity, operation, economic_cycle_id, price_id, description, made_by, created_at
		FROM stock_movements
		WHERE area_id = $1 AND economic_cycle_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, areaID, cycleID)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.VariationID, &m.AreaID, &m.Quantity,
			&m.Operation, &m.EconomicCycleID, &m.PriceID, &m.Description,
			&m.MadeBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
