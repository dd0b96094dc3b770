package ledger

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando los
// repositorios del ledger atados a esa tx. Garantiza atomicidad para las
// operaciones de cuenta.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		accountRepo repository.AccountRepository,
		opRepo repository.OperationRepository,
	) error) error
}
