package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.OperationRepository = (*OperationRepo)(nil)

// OperationRepo implementación del log inmutable de operaciones sobre
// PostgreSQL (usable con pool o tx).
type OperationRepo struct {
	q Querier
}

// NewOperationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOperationRepository(q Querier) *OperationRepo {
	return &OperationRepo{q: q}
}

// Create inserta la operación. El id visible "T-<seq>" es una columna generada
// de la secuencia de inserción: vuelve en el RETURNING del mismo statement.
func (r *OperationRepo) Create(ctx context.Context, op *entity.AccountOperation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	query := `
		INSERT INTO account_operations
			(id, account_id, operation, amount, currency_code, description, made_by_id, registered_at, blocked, account_tag_id, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING no_transaction, created_at`
	err := r.q.QueryRow(ctx, query,
		op.ID, op.AccountID, op.Operation, op.Amount.Amount, op.Amount.Currency,
		op.Description, op.MadeByID, op.RegisteredAt, op.Blocked, op.AccountTagID, op.ParentID,
	).Scan(&op.NoTransaction, &op.CreatedAt)
	if err != nil {
		return fmt.Errorf("create operation: %w", err)
	}
	return nil
}

// GetByID obtiene una operación del log.
func (r *OperationRepo) GetByID(ctx context.Context, id string) (*entity.AccountOperation, error) {
	query := `
		SELECT id, account_id, operation, amount, currency_code, description, made_by_id,
		       registered_at, no_transaction, blocked, account_tag_id, parent_id, created_at
		FROM account_operations WHERE id = $1`
	var op entity.AccountOperation
	err := r.q.QueryRow(ctx, query, id).Scan(
		&op.ID, &op.AccountID, &op.Operation, &op.Amount.Amount, &op.Amount.Currency,
		&op.Description, &op.MadeByID, &op.RegisteredAt, &op.NoTransaction,
		&op.Blocked, &op.AccountTagID, &op.ParentID, &op.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: operación %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return &op, nil
}

// Delete elimina una operación (solo válido el mismo día, validado arriba).
func (r *OperationRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM account_operations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: operación %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListByAccount pagina el log de una cuenta con filtro opcional de fechas.
// limit <= 0 significa sin límite.
func (r *OperationRepo) ListByAccount(ctx context.Context, accountID string, from, to *time.Time, limit, offset int) ([]*entity.AccountOperation, error) {
	query := `
		SELECT id, account_id, operation, amount, currency_code, description, made_by_id,
		       registered_at, no_transaction, blocked, account_tag_id, parent_id, created_at
		FROM account_operations
		WHERE account_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at, seq
		LIMIT CASE WHEN $4 > 0 THEN $4 END OFFSET $5`
	rows, err := r.q.Query(ctx, query, accountID, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []*entity.AccountOperation
	for rows.Next() {
		var op entity.AccountOperation
		err := rows.Scan(
			&op.ID, &op.AccountID, &op.Operation, &op.Amount.Amount, &op.Amount.Currency,
			&op.Description, &op.MadeByID, &op.RegisteredAt, &op.NoTransaction,
			&op.Blocked, &op.AccountTagID, &op.ParentID, &op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		out = append(out, &op)
	}
	return out, rows.Err()
}

// SumByAccountAndCurrency suma los montos firmados del log de un bucket; debe
// igualar el saldo vigente (conservación).
func (r *OperationRepo) SumByAccountAndCurrency(ctx context.Context, accountID, currencyCode string) (decimal.Decimal, error) {
	query := `
		SELECT SUM(amount) FROM account_operations
		WHERE account_id = $1 AND currency_code = $2`
	var sum *decimal.Decimal
	if err := r.q.QueryRow(ctx, query, accountID, currencyCode).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum operations: %w", err)
	}
	return zeroIfNil(sum), nil
}

// CreateRecord anexa una entrada a la pista de auditoría.
func (r *OperationRepo) CreateRecord(ctx context.Context, rec *entity.AccountRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO account_records (id, account_id, action, title, details, made_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.AccountID, rec.Action, rec.Title, rec.Details, rec.MadeByID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}
