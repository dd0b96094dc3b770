package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo consulta la cantidad real en mano por área.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// ListByArea devuelve las cantidades en mano de un área, en orden estable.
func (r *StockRepo) ListByArea(ctx context.Context, areaID string) ([]entity.Stock, error) {
	query := `
		SELECT product_id, variation_id, area_id, quantity, updated_at
		FROM stocks
		WHERE area_id = $1
		ORDER BY product_id, variation_id NULLS FIRST`
	rows, err := r.q.Query(ctx, query, areaID)
	if err != nil {
		return nil, fmt.Errorf("list stock by area: %w", err)
	}
	defer rows.Close()

	var list []entity.Stock
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.ProductID, &s.VariationID, &s.AreaID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
