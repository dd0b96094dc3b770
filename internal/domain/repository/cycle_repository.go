package repository

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
)

// CycleRepository define el puerto de persistencia del ciclo económico.
type CycleRepository interface {
	GetActive(ctx context.Context, businessID string) (*entity.EconomicCycle, error)
	// GetLastClosed devuelve el ciclo cerrado más reciente del negocio, o nil si
	// nunca se cerró ninguno.
	GetLastClosed(ctx context.Context, businessID string) (*entity.EconomicCycle, error)
	// Create inserta el ciclo; una violación del índice único parcial
	// (business_id WHERE is_active) debe mapearse a ErrCycleAlreadyActive.
	Create(ctx context.Context, cycle *entity.EconomicCycle) error
	// Close marca is_active=false, estampa closed_at/closed_by y congela meta.
	Close(ctx context.Context, cycle *entity.EconomicCycle) error
}

// AreaRepository define el puerto de lectura de áreas y sus reglas de fondos.
type AreaRepository interface {
	ListActiveByType(ctx context.Context, businessID, areaType string) ([]*entity.Area, error)
	GetByID(ctx context.Context, id string) (*entity.Area, error)
}

// BookRepository define el puerto de persistencia de los libros de área
// (filas inmutables: solo Create y lectura).
type BookRepository interface {
	Create(ctx context.Context, book *entity.StockAreaBook) error
	Get(ctx context.Context, areaID, cycleID, operation string) (*entity.StockAreaBook, error)
}

// MovementRepository define el puerto del log append-only de movimientos.
type MovementRepository interface {
	Create(ctx context.Context, mov *entity.StockMovement) error
	CreateBatch(ctx context.Context, movs []entity.StockMovement) error
	// ListSinceBook devuelve los movimientos del área registrados después del
	// libro OPEN del ciclo.
	ListSinceBook(ctx context.Context, areaID, cycleID string) ([]entity.StockMovement, error)
}

// StockRepository consulta la cantidad real en mano por área.
type StockRepository interface {
	ListByArea(ctx context.Context, areaID string) ([]entity.Stock, error)
}
