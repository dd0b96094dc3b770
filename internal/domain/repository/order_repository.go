package repository

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
)

// OrderRepository consume (solo lectura, salvo el re-etiquetado de pendientes)
// las órdenes producidas por el flujo de venta.
type OrderRepository interface {
	// ListByCycleAndArea devuelve las órdenes de un área SALE para el ciclo,
	// filtradas por estados.
	ListByCycleAndArea(ctx context.Context, cycleID, areaID string, statuses []string) ([]*entity.OrderReceipt, error)
	// CountOpenByCycle cuenta órdenes sin facturar del ciclo (guard de cierre).
	CountOpenByCycle(ctx context.Context, cycleID string) (int, error)
	// RetagPending mueve las órdenes PAYMENT_PENDING de un ciclo al siguiente
	// (carry-forward habilitado). Devuelve cuántas movió.
	RetagPending(ctx context.Context, fromCycleID, toCycleID string) (int, error)
	// ListSelledByStockArea devuelve las líneas vendidas descontadas de un área
	// STOCK en la ventana del ciclo.
	ListSelledByStockArea(ctx context.Context, cycleID, stockAreaID string) ([]*entity.SelledProduct, error)
	// ListSelledByCycleAndArea devuelve las líneas vendidas de las órdenes de un
	// área SALE (para la detección de sobreescritura de precios).
	ListSelledByCycleAndArea(ctx context.Context, cycleID, saleAreaID string) ([]*entity.SelledProduct, error)
}

// CashRegisterRepository lee las operaciones manuales de caja del ciclo.
type CashRegisterRepository interface {
	ListByCycleAndArea(ctx context.Context, cycleID, areaID string) ([]*entity.CashRegisterOperation, error)
}

// StoreRepository persiste los snapshots de arqueo (memoización idempotente).
type StoreRepository interface {
	Get(ctx context.Context, storeType, cycleID string, areaID *string) (*entity.Store, error)
	Create(ctx context.Context, store *entity.Store) error
}
