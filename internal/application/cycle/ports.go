package cycle

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// Repos son los repositorios atados a la transacción del ciclo. El cierre lee
// y muta todo esto como una sola unidad atómica.
type Repos struct {
	Cycles    repository.CycleRepository
	Areas     repository.AreaRepository
	Books     repository.BookRepository
	Movements repository.MovementRepository
	Stock     repository.StockRepository
	Orders    repository.OrderRepository
	Cash      repository.CashRegisterRepository
	Stores    repository.StoreRepository
	Products  repository.ProductRepository
	Accounts  repository.AccountRepository
	Ops       repository.OperationRepository
}

// TxRunner ejecuta fn dentro de una transacción de BD con los repositorios
// atados a ella. Cualquier error revierte todo: nunca queda un cierre parcial.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Notifier publica los eventos del ciclo hacia fuera del proceso (pub/sub).
// Las fallas de notificación se registran pero no revierten el ciclo.
type Notifier interface {
	CycleOpened(ctx context.Context, businessID, cycleID string)
	CycleClosed(ctx context.Context, businessID, cycleID string)
}

// Enqueuer encola trabajos diferidos tras el commit.
type Enqueuer interface {
	Enqueue(ctx context.Context, code string, params any) error
}
