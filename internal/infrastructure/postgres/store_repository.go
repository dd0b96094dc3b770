package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.StoreRepository = (*StoreRepo)(nil)

// StoreRepo persiste los snapshots de arqueo. Filas inmutables: un snapshot por
// (type, ciclo, área?) gracias al índice único; el motor consulta antes de
// escribir, así que el duplicado solo aparece en carreras y se ignora.
type StoreRepo struct {
	q Querier
}

// NewStoreRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStoreRepository(q Querier) *StoreRepo {
	return &StoreRepo{q: q}
}

// Get devuelve el snapshot (type, ciclo, área?), o nil si no existe.
func (r *StoreRepo) Get(ctx context.Context, storeType, cycleID string, areaID *string) (*entity.Store, error) {
	query := `
		SELECT id, type, economic_cycle_id, area_id, data, created_at
		FROM stores
		WHERE type = $1 AND economic_cycle_id = $2 AND area_id IS NOT DISTINCT FROM $3`
	var st entity.Store
	err := r.q.QueryRow(ctx, query, storeType, cycleID, areaID).Scan(
		&st.ID, &st.Type, &st.EconomicCycleID, &st.AreaID, &st.Data, &st.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &st, nil
}

// Create inserta el snapshot; un duplicado perdedor de carrera no es error.
func (r *StoreRepo) Create(ctx context.Context, store *entity.Store) error {
	query := `
		INSERT INTO stores (id, type, economic_cycle_id, area_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (type, economic_cycle_id, area_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		store.ID, store.Type, store.EconomicCycleID, store.AreaID, store.Data, store.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	return nil
}
