package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var (
	_ repository.ConfigRepository      = (*ConfigRepo)(nil)
	_ repository.CurrencyRepository    = (*CurrencyRepo)(nil)
	_ repository.PriceSystemRepository = (*PriceSystemRepo)(nil)
	_ repository.ProductRepository     = (*ProductRepo)(nil)
)

// ConfigRepo lee los flags por negocio (tabla clave/valor). Las claves ausentes
// devuelven el default pedido, nunca error.
type ConfigRepo struct {
	q Querier
}

// NewConfigRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConfigRepository(q Querier) *ConfigRepo {
	return &ConfigRepo{q: q}
}

func (r *ConfigRepo) get(ctx context.Context, businessID, key string) (string, bool, error) {
	query := `SELECT value FROM business_configs WHERE business_id = $1 AND key = $2`
	var value string
	err := r.q.QueryRow(ctx, query, businessID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// GetBool interpreta "true"/"false" (insensible a mayúsculas).
func (r *ConfigRepo) GetBool(ctx context.Context, businessID, key string, def bool) (bool, error) {
	value, ok, err := r.get(ctx, businessID, key)
	if err != nil || !ok {
		return def, err
	}
	return strings.EqualFold(value, "true"), nil
}

func (r *ConfigRepo) GetString(ctx context.Context, businessID, key string, def string) (string, error) {
	value, ok, err := r.get(ctx, businessID, key)
	if err != nil || !ok {
		return def, err
	}
	return value, nil
}

func (r *ConfigRepo) GetInt(ctx context.Context, businessID, key string, def int) (int, error) {
	value, ok, err := r.get(ctx, businessID, key)
	if err != nil || !ok {
		return def, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(value))
	if convErr != nil {
		return def, nil
	}
	return n, nil
}

// CurrencyRepo devuelve las monedas habilitadas del negocio.
type CurrencyRepo struct {
	q Querier
}

// NewCurrencyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCurrencyRepository(q Querier) *CurrencyRepo {
	return &CurrencyRepo{q: q}
}

// ListByBusiness devuelve las monedas activas con su tasa contra la principal.
func (r *CurrencyRepo) ListByBusiness(ctx context.Context, businessID string) ([]entity.Currency, error) {
	query := `
		SELECT code, is_main, exchange_rate
		FROM currencies
		WHERE business_id = $1 AND is_active
		ORDER BY code`
	rows, err := r.q.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var list []entity.Currency
	for rows.Next() {
		var c entity.Currency
		if err := rows.Scan(&c.Code, &c.IsMain, &c.ExchangeRate); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// PriceSystemRepo lee los sistemas de precios del negocio.
type PriceSystemRepo struct {
	q Querier
}

// NewPriceSystemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPriceSystemRepository(q Querier) *PriceSystemRepo {
	return &PriceSystemRepo{q: q}
}

// GetMain devuelve el sistema de precios principal del negocio.
func (r *PriceSystemRepo) GetMain(ctx context.Context, businessID string) (*entity.PriceSystem, error) {
	query := `SELECT id, business_id, name, is_main FROM price_systems WHERE business_id = $1 AND is_main`
	return r.scan(r.q.QueryRow(ctx, query, businessID))
}

// GetByID devuelve el sistema de precios por id.
func (r *PriceSystemRepo) GetByID(ctx context.Context, id string) (*entity.PriceSystem, error) {
	query := `SELECT id, business_id, name, is_main FROM price_systems WHERE id = $1`
	return r.scan(r.q.QueryRow(ctx, query, id))
}

func (r *PriceSystemRepo) scan(row pgx.Row) (*entity.PriceSystem, error) {
	var ps entity.PriceSystem
	err := row.Scan(&ps.ID, &ps.BusinessID, &ps.Name, &ps.IsMain)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price system: %w", err)
	}
	return &ps, nil
}

// ProductRepo es el modelo de lectura del catálogo para el motor.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT id, business_id, name, average_cost, tracks_variations FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.BusinessID, &p.Name, &p.AverageCost, &p.TracksVariations)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListPrices devuelve los precios de catálogo de un producto en un sistema de
// precios.
func (r *ProductRepo) ListPrices(ctx context.Context, productID, priceSystemID string) ([]entity.ProductPrice, error) {
	query := `
		SELECT product_id, price_system_id, amount, currency_code
		FROM product_prices
		WHERE product_id = $1 AND price_system_id = $2
		ORDER BY currency_code`
	rows, err := r.q.Query(ctx, query, productID, priceSystemID)
	if err != nil {
		return nil, fmt.Errorf("list product prices: %w", err)
	}
	defer rows.Close()

	var list []entity.ProductPrice
	for rows.Next() {
		var pp entity.ProductPrice
		if err := rows.Scan(&pp.ProductID, &pp.PriceSystemID, &pp.Amount, &pp.CurrencyCode); err != nil {
			return nil, fmt.Errorf("scan product price: %w", err)
		}
		list = append(list, pp)
	}
	return list, rows.Err()
}
