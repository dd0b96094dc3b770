package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
)

// Flags son las políticas del negocio que gobiernan el arqueo (leídas del
// almacén de configuración por negocio).
type Flags struct {
	// IncludePaymentPending suma las órdenes PAYMENT_PENDING al arqueo (cuando
	// el negocio NO arrastra órdenes pendientes al próximo ciclo).
	IncludePaymentPending bool
	// IncludeTipsInCash cuenta las propinas dentro de los ingresos (opt-in).
	IncludeTipsInCash bool
	// IncludeShippingInCash cuenta los envíos dentro de los ingresos (opt-out).
	IncludeShippingInCash bool
	// ExtractSalaryFromCash habilita la extracción de salario al cierre.
	ExtractSalaryFromCash bool
	// SalaryFromRevenue usa ventas−costo como base del salario en vez de ventas.
	SalaryFromRevenue bool
	// CostCurrency moneda en la que el catálogo expresa los costos.
	CostCurrency string
	// Precision dígitos decimales del negocio (truncamiento, no redondeo).
	Precision int32
}

// Sources agrupa los datos del período que el agregador pliega. El caller los
// obtiene de los repositorios (dentro o fuera de la transacción de cierre).
type Sources struct {
	Area          *entity.Area
	Orders        []*entity.OrderReceipt
	CashOps       []*entity.CashRegisterOperation
	Selled        []*entity.SelledProduct
	CatalogPrices map[string][]entity.ProductPrice // por productID, en el sistema de precios del ciclo
	Currencies    []entity.Currency
	Flags         Flags
}

// rateTable resuelve tasas de cambio hacia la moneda principal.
type rateTable struct {
	main  string
	rates map[string]decimal.Decimal
}

func newRateTable(currencies []entity.Currency) (*rateTable, error) {
	t := &rateTable{rates: map[string]decimal.Decimal{}}
	for _, c := range currencies {
		t.rates[c.Code] = c.ExchangeRate
		if c.IsMain {
			t.main = c.Code
		}
	}
	if t.main == "" {
		return nil, domain.ErrNoMainCurrency
	}
	return t, nil
}

// toMain convierte un monto a la moneda principal. Moneda desconocida es un
// fallo duro: el arqueo no puede inventar una tasa.
func (t *rateTable) toMain(amount decimal.Decimal, currency string, precision int32) (decimal.Decimal, error) {
	if currency == t.main {
		return amount, nil
	}
	rate, ok := t.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, currency)
	}
	return amount.Mul(rate).Truncate(precision), nil
}

// Compute pliega las órdenes, operaciones de caja y líneas vendidas de un área
// en su arqueo. Es determinista: no toca repositorios ni reloj.
func Compute(src Sources) (*Report, error) {
	rates, err := newRateTable(src.Currencies)
	if err != nil {
		return nil, err
	}
	prec := src.Flags.Precision

	sales, incomes, inCash, tips := bucket{}, bucket{}, bucket{}, bucket{}
	discounts, commissions, coupons, modifiers := bucket{}, bucket{}, bucket{}, bucket{}
	notInCash := map[[2]string]decimal.Decimal{}
	shipping := map[[2]string]decimal.Decimal{}
	cashOps := map[[2]string]decimal.Decimal{}

	salesMain, incomesMain, tipsMain := decimal.Zero, decimal.Zero, decimal.Zero
	totalCost, asumedCost, houseCosted := decimal.Zero, decimal.Zero, decimal.Zero
	orders := 0

	for _, o := range src.Orders {
		if !includeOrder(o, src.Flags) {
			continue
		}
		orders++

		// Pagos por (moneda, vía): CASH alimenta el efectivo, el resto el
		// bucket no-efectivo; todos suman a los ingresos.
		for _, p := range o.Payments {
			incomes.add(p.CurrencyCode, p.Amount)
			m, err := rates.toMain(p.Amount, p.CurrencyCode, prec)
			if err != nil {
				return nil, err
			}
			incomesMain = incomesMain.Add(m)
			if p.PaymentWay == entity.PaymentWayCash {
				inCash.add(p.CurrencyCode, p.Amount)
			} else {
				k := [2]string{p.CurrencyCode, p.PaymentWay}
				notInCash[k] = notInCash[k].Add(p.Amount)
			}
		}

		// El vuelto entregado sale del bucket de efectivo de su moneda.
		if o.AmountReturned != nil && !o.AmountReturned.IsZero() {
			incomes.sub(o.AmountReturned.Currency, o.AmountReturned.Amount)
			inCash.sub(o.AmountReturned.Currency, o.AmountReturned.Amount)
			m, err := rates.toMain(o.AmountReturned.Amount, o.AmountReturned.Currency, prec)
			if err != nil {
				return nil, err
			}
			incomesMain = incomesMain.Sub(m)
		}

		// Consumo de la casa: su costo va a asumido, no a ventas.
		if o.HouseCosted {
			asumedCost = asumedCost.Add(o.TotalCost)
			houseCosted = houseCosted.Add(o.TotalCost)
		} else {
			totalCost = totalCost.Add(o.TotalCost)
			for _, line := range o.Prices {
				sales.add(line.Currency, line.Amount)
				m, err := rates.toMain(line.Amount, line.Currency, prec)
				if err != nil {
					return nil, err
				}
				salesMain = salesMain.Add(m)

				if o.DiscountPercent.IsPositive() {
					discounts.add(line.Currency, percentOf(line.Amount, o.DiscountPercent, prec))
				}
				if o.CommissionPercent.IsPositive() {
					commissions.add(line.Currency, percentOf(line.Amount, o.CommissionPercent, prec))
				}
			}
		}

		// Cupones: bucket dedicado y además el bucket general de descuentos.
		for _, c := range o.CouponDiscounts {
			coupons.add(c.Currency, c.Amount)
			discounts.add(c.Currency, c.Amount)
		}
		for _, md := range o.Modifiers {
			modifiers.add(md.Currency, md.Amount)
		}

		// Propinas: rastreadas siempre; cuentan como ingreso solo con opt-in.
		for _, tp := range o.Tips {
			tips.add(tp.CurrencyCode, tp.Amount)
			m, err := rates.toMain(tp.Amount, tp.CurrencyCode, prec)
			if err != nil {
				return nil, err
			}
			tipsMain = tipsMain.Add(m)
			if !src.Flags.IncludeTipsInCash {
				subtractIncome(incomes, inCash, notInCash, tp)
				incomesMain = incomesMain.Sub(m)
			}
		}

		// Envíos: rastreados siempre; cuentan como ingreso salvo opt-out.
		for _, sh := range o.Shipping {
			k := [2]string{sh.CurrencyCode, sh.PaymentWay}
			shipping[k] = shipping[k].Add(sh.Amount)
			if !src.Flags.IncludeShippingInCash {
				subtractIncome(incomes, inCash, notInCash, sh)
				m, err := rates.toMain(sh.Amount, sh.CurrencyCode, prec)
				if err != nil {
					return nil, err
				}
				incomesMain = incomesMain.Sub(m)
			}
		}
	}

	// Sobreescrituras de precio: el delta entre el precio capturado al vender
	// y el de catálogo alimenta comisiones (subió) o descuentos (bajó).
	if err := foldPriceOverrides(src, rates, prec, commissions, discounts); err != nil {
		return nil, err
	}

	// Operaciones manuales de caja: sumadas aparte y siempre dentro del
	// efectivo disponible.
	for _, op := range src.CashOps {
		k := [2]string{op.Amount.Currency, op.Type}
		cashOps[k] = cashOps[k].Add(op.Amount.Amount)
		inCash.add(op.Amount.Currency, op.Amount.Amount)
	}

	grossRevenue := salesMain.Sub(totalCost)

	salary := computeSalary(src.Area, src.Flags, salesMain, totalCost, rates.main)

	afterOps := bucket{}
	for c, v := range inCash {
		afterOps[c] = v
	}
	if !salary.Amount.IsZero() {
		afterOps.add(salary.CurrencyCode, salary.Amount)
	}

	return &Report{
		TotalSales:               sales.toList(),
		TotalSalesInMainCurrency: money.New(salesMain, rates.main),
		TotalCost:                money.New(totalCost, src.Flags.CostCurrency),
		TotalAsumedCost:          money.New(asumedCost, src.Flags.CostCurrency),
		TotalGrossRevenue:        money.New(grossRevenue, rates.main),

		TotalIncomes:               incomes.toList(),
		TotalIncomesInMainCurrency: money.New(incomesMain, rates.main),
		TotalIncomesInCash:         inCash.toList(),
		TotalIncomesNotInCash:      pairsToPayments(notInCash),

		TotalTips:             tips.toList(),
		TotalTipsMainCurrency: money.New(tipsMain, rates.main),
		TotalDiscounts:        discounts.toList(),
		TotalCommissions:      commissions.toList(),
		TotalCouponsDiscounts: coupons.toList(),
		TotalShipping:         pairsToPayments(shipping),
		TotalHouseCosted:      money.New(houseCosted, src.Flags.CostCurrency),
		TotalOrderModifiers:   modifiers.toList(),

		TotalCashOperations:        pairsToCashOps(cashOps),
		TotalSalary:                salary,
		TotalInCashAfterOperations: afterOps.toList(),

		AmountOfOrders: orders,
	}, nil
}

func includeOrder(o *entity.OrderReceipt, f Flags) bool {
	switch o.Status {
	case entity.OrderStatusBilled:
		return true
	case entity.OrderStatusPaymentPending:
		return f.IncludePaymentPending
	default:
		return false
	}
}

// percentOf calcula amount × pct% truncado a la precisión del negocio.
func percentOf(amount, pct decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100)).Truncate(precision)
}

// subtractIncome resta una línea (moneda, vía) del bucket de ingreso que la
// contenía.
func subtractIncome(incomes, inCash bucket, notInCash map[[2]string]decimal.Decimal, line entity.PaymentLine) {
	incomes.sub(line.CurrencyCode, line.Amount)
	if line.PaymentWay == entity.PaymentWayCash {
		inCash.sub(line.CurrencyCode, line.Amount)
	} else {
		k := [2]string{line.CurrencyCode, line.PaymentWay}
		notInCash[k] = notInCash[k].Sub(line.Amount)
	}
}

// foldPriceOverrides compara el precio capturado de cada línea vendida contra
// el catálogo: primero busca precio de catálogo en la misma moneda; si no hay,
// convierte ambos lados a moneda principal.
func foldPriceOverrides(src Sources, rates *rateTable, prec int32, commissions, discounts bucket) error {
	for _, line := range src.Selled {
		catalog, ok := src.CatalogPrices[line.ProductID]
		if !ok || len(catalog) == 0 {
			continue
		}

		var delta decimal.Decimal
		var deltaCurrency string
		matched := false
		for _, cp := range catalog {
			if cp.CurrencyCode == line.PriceUnitary.Currency {
				delta = line.PriceUnitary.Amount.Sub(cp.Amount)
				deltaCurrency = cp.CurrencyCode
				matched = true
				break
			}
		}
		if !matched {
			capturedMain, err := rates.toMain(line.PriceUnitary.Amount, line.PriceUnitary.Currency, prec)
			if err != nil {
				return err
			}
			catalogMain, err := rates.toMain(catalog[0].Amount, catalog[0].CurrencyCode, prec)
			if err != nil {
				return err
			}
			delta = capturedMain.Sub(catalogMain)
			deltaCurrency = rates.main
		}

		if delta.IsZero() {
			continue
		}
		total := delta.Abs().Mul(line.Quantity).Truncate(prec)
		if delta.IsPositive() {
			commissions.add(deltaCurrency, total)
		} else {
			discounts.add(deltaCurrency, total)
		}
	}
	return nil
}

// computeSalary aplica la política de salario del área: porcentaje sobre la
// base cuando está habilitado y la base alcanza el umbral, monto fijo en caso
// contrario. Devuelve un egreso (negativo) en moneda principal.
func computeSalary(area *entity.Area, f Flags, salesMain, totalCost decimal.Decimal, mainCurrency string) Salary {
	salary := Salary{CurrencyCode: mainCurrency}
	if !f.ExtractSalaryFromCash || area == nil {
		return salary
	}
	base := salesMain
	if f.SalaryFromRevenue {
		base = base.Sub(totalCost)
	}
	var amount decimal.Decimal
	if area.EnablePercentSalary && base.GreaterThanOrEqual(area.SalaryThreshold) {
		amount = base.Mul(area.PercentSalary).Truncate(f.Precision)
	} else {
		amount = area.FixedSalary
	}
	if amount.IsZero() {
		return salary
	}
	salary.Amount = amount.Abs().Neg()
	return salary
}
