package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo lee las órdenes producidas por el flujo de venta. Los montos
// multi-moneda (prices, payments, tips, shipping, cupones, modificadores) se
// guardan como columnas JSONB; aquí solo se deserializan.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, business_id, area_id, economic_cycle_id, status, house_costed,
	discount_percent, commission_percent, prices, total_cost, coupon_discounts,
	modifiers, payments, amount_returned, tips, shipping, created_at`

// ListByCycleAndArea devuelve las órdenes del área SALE para el ciclo,
// filtradas por estados, en orden de creación.
func (r *OrderRepo) ListByCycleAndArea(ctx context.Context, cycleID, areaID string, statuses []string) ([]*entity.OrderReceipt, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE economic_cycle_id = $1 AND area_id = $2 AND status = ANY($3)
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, cycleID, areaID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.OrderReceipt
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// CountOpenByCycle cuenta órdenes sin facturar del ciclo.
func (r *OrderRepo) CountOpenByCycle(ctx context.Context, cycleID string) (int, error) {
	query := `
		SELECT count(*) FROM orders
		WHERE economic_cycle_id = $1 AND status NOT IN ($2, $3)`
	var n int
	err := r.q.QueryRow(ctx, query, cycleID, entity.OrderStatusBilled, entity.OrderStatusCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open orders: %w", err)
	}
	return n, nil
}

// RetagPending mueve las órdenes PAYMENT_PENDING al ciclo siguiente, junto con
// sus líneas vendidas. Devuelve cuántas órdenes movió.
func (r *OrderRepo) RetagPending(ctx context.Context, fromCycleID, toCycleID string) (int, error) {
	lines := `
		UPDATE selled_products SET economic_cycle_id = $2
		WHERE order_id IN (
			SELECT id FROM orders WHERE economic_cycle_id = $1 AND status = $3
		)`
	if _, err := r.q.Exec(ctx, lines, fromCycleID, toCycleID, entity.OrderStatusPaymentPending); err != nil {
		return 0, fmt.Errorf("retag pending lines: %w", err)
	}
	orders := `
		UPDATE orders SET economic_cycle_id = $2
		WHERE economic_cycle_id = $1 AND status = $3`
	tag, err := r.q.Exec(ctx, orders, fromCycleID, toCycleID, entity.OrderStatusPaymentPending)
	if err != nil {
		return 0, fmt.Errorf("retag pending orders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const selledColumns = `id, order_id, product_id, variation_id, stock_area_id,
	economic_cycle_id, quantity, price_amount, price_currency_code, total_cost, is_online, created_at`

// ListSelledByStockArea devuelve las líneas vendidas descontadas de un área
// STOCK en la ventana del ciclo.
func (r *OrderRepo) ListSelledByStockArea(ctx context.Context, cycleID, stockAreaID string) ([]*entity.SelledProduct, error) {
	query := `
		SELECT ` + selledColumns + `
		FROM selled_products
		WHERE economic_cycle_id = $1 AND stock_area_id = $2
		ORDER BY created_at, id`
	return r.listSelled(ctx, query, cycleID, stockAreaID)
}

// ListSelledByCycleAndArea devuelve las líneas vendidas de las órdenes de un
// área SALE (facturadas), para la detección de sobreescritura de precios.
func (r *OrderRepo) ListSelledByCycleAndArea(ctx context.Context, cycleID, saleAreaID string) ([]*entity.SelledProduct, error) {
	query := `
		SELECT sp.id, sp.order_id, sp.product_id, sp.variation_id, sp.stock_area_id,
			sp.economic_cycle_id, sp.quantity, sp.price_amount, sp.price_currency_code, sp.total_cost, sp.is_online, sp.created_at
		FROM selled_products sp
		JOIN orders o ON o.id = sp.order_id
		WHERE sp.economic_cycle_id = $1 AND o.area_id = $2 AND o.status = $3
		ORDER BY sp.created_at, sp.id`
	return r.listSelled(ctx, query, cycleID, saleAreaID, entity.OrderStatusBilled)
}

func (r *OrderRepo) listSelled(ctx context.Context, query string, args ...any) ([]*entity.SelledProduct, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list selled products: %w", err)
	}
	defer rows.Close()

	var list []*entity.SelledProduct
	for rows.Next() {
		var sp entity.SelledProduct
		if err := rows.Scan(&sp.ID, &sp.OrderID, &sp.ProductID, &sp.VariationID, &sp.StockAreaID,
			&sp.EconomicCycleID, &sp.Quantity, &sp.PriceUnitary.Amount, &sp.PriceUnitary.Currency,
			&sp.TotalCost, &sp.IsOnline, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan selled product: %w", err)
		}
		list = append(list, &sp)
	}
	return list, rows.Err()
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*entity.OrderReceipt, error) {
	var o entity.OrderReceipt
	var prices, coupons, modifiers, payments, returned, tips, shipping []byte
	err := row.Scan(
		&o.ID, &o.BusinessID, &o.AreaID, &o.EconomicCycleID, &o.Status, &o.HouseCosted,
		&o.DiscountPercent, &o.CommissionPercent, &prices, &o.TotalCost, &coupons,
		&modifiers, &payments, &returned, &tips, &shipping, &o.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{prices, &o.Prices},
		{coupons, &o.CouponDiscounts},
		{modifiers, &o.Modifiers},
		{payments, &o.Payments},
		{tips, &o.Tips},
		{shipping, &o.Shipping},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("unmarshal order column: %w", err)
		}
	}
	if len(returned) > 0 {
		var m money.Money
		if err := json.Unmarshal(returned, &m); err != nil {
			return nil, fmt.Errorf("unmarshal amount returned: %w", err)
		}
		o.AmountReturned = &m
	}
	return &o, nil
}
