package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tu-usuario/pos-pro/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isSerializationFailure detecta fallos transitorios de concurrencia
// (deadlock 40P01, serialización 40001, lock_timeout 55P03) que la cola de
// trabajos puede reintentar.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// mapTxError preserva el kind programático de los errores transitorios para
// las decisiones de reintento de la cola.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	if isSerializationFailure(err) {
		return errors.Join(domain.ErrConcurrency, err)
	}
	return err
}
