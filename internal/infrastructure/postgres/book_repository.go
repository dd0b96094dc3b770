package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.BookRepository = (*BookRepo)(nil)

// BookRepo persiste los libros de área. Las filas son inmutables: solo insert
// y lectura, nunca update.
type BookRepo struct {
	q Querier
}

// NewBookRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBookRepository(q Querier) *BookRepo {
	return &BookRepo{q: q}
}

// Create inserta el libro serializando su estado dentro del sobre versionado.
func (r *BookRepo) Create(ctx context.Context, book *entity.StockAreaBook) error {
	state, err := json.Marshal(entity.BookStateEnvelope{
		Version: entity.BookStateVersion,
		Payload: book.State,
	})
	if err != nil {
		return fmt.Errorf("marshal book state: %w", err)
	}
	query := `
		INSERT INTO stock_area_books (id, area_id, economic_cycle_id, operation, state, made_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.q.Exec(ctx, query,
		book.ID, book.AreaID, book.EconomicCycleID, book.Operation, state, book.MadeBy, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Get devuelve el libro (área, ciclo, operación), o nil si no existe.
func (r *BookRepo) Get(ctx context.Context, areaID, cycleID, operation string) (*entity.StockAreaBook, error) {
	query := `
		SELECT id, area_id, economic_cycle_id, operation, state, made_by, created_at
		FROM stock_area_books
		WHERE area_id = $1 AND economic_cycle_id = $2 AND operation = $3`
	var book entity.StockAreaBook
	var state []byte
	err := r.q.QueryRow(ctx, query, areaID, cycleID, operation).Scan(
		&book.ID, &book.AreaID, &book.EconomicCycleID, &book.Operation, &state, &book.MadeBy, &book.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	var envelope entity.BookStateEnvelope
	if err := json.Unmarshal(state, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal book state: %w", err)
	}
	book.State = envelope.Payload
	return &book, nil
}
