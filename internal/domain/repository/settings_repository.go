package repository

import (
	"context"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
)

// Claves de configuración por negocio consumidas por el motor.
const (
	ConfigModuleAccounts        = "module_accounts"
	ConfigExtractSalaryFromCash = "extract_salary_from_cash"
	ConfigCalculateSalaryFrom   = "calculate_salary_from" // "sales" | "revenue"
	ConfigTransferOrdersToNext  = "transfer_orders_to_next_economic_cycle"
	ConfigGeneralCostCurrency   = "general_cost_currency"
	ConfigPrecisionAfterComa    = "precission_after_coma"
	ConfigAllowPendingPayment   = "pos_allow_pending_payment"
	ConfigCashIncludeTips       = "cash_operations_include_tips"
	ConfigCashIncludeDeliveries = "cash_operations_include_deliveries"
)

// ConfigRepository es el almacén de flags por negocio (colaborador de solo
// lectura). Las claves ausentes devuelven el default pedido.
type ConfigRepository interface {
	GetBool(ctx context.Context, businessID, key string, def bool) (bool, error)
	GetString(ctx context.Context, businessID, key string, def string) (string, error)
	GetInt(ctx context.Context, businessID, key string, def int) (int, error)
}

// CurrencyRepository devuelve las monedas habilitadas del negocio con su tasa.
type CurrencyRepository interface {
	ListByBusiness(ctx context.Context, businessID string) ([]entity.Currency, error)
}

// PriceSystemRepository lee los sistemas de precios del negocio.
type PriceSystemRepository interface {
	GetMain(ctx context.Context, businessID string) (*entity.PriceSystem, error)
	GetByID(ctx context.Context, id string) (*entity.PriceSystem, error)
}

// ProductRepository es el modelo de lectura del catálogo para el motor.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// ListPrices devuelve los precios de catálogo de un producto en el sistema
	// de precios del ciclo.
	ListPrices(ctx context.Context, productID, priceSystemID string) ([]entity.ProductPrice, error)
}
