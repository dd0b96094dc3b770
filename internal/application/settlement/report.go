// Package settlement implementa el agregador de arqueo: pliega las órdenes,
// operaciones de caja y sobreescrituras de precio de un ciclo económico en
// totales por moneda, y memoiza el resultado como snapshot inmutable.
package settlement

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
)

// PaymentAmount es un total por (moneda, vía de pago).
type PaymentAmount struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"codeCurrency"`
	PaymentWay   string          `json:"paymentWay"`
}

// CashOperationAmount es un total de operaciones manuales de caja por
// (moneda, tipo).
type CashOperationAmount struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"codeCurrency"`
	Type         string          `json:"type"`
}

// Salary es la extracción de salario calculada (negativa: egreso).
type Salary struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"codeCurrency"`
}

// Report es el arqueo de un área (o del negocio entero) para un ciclo.
// Todos los buckets por moneda se mantienen ordenados por código de moneda;
// el formato JSON es el contrato del snapshot persistido (campos aditivos
// permitidos para lectores).
type Report struct {
	TotalSales               []money.Money `json:"totalSales"`
	TotalSalesInMainCurrency money.Money   `json:"totalSalesInMainCurrency"`

	TotalCost         money.Money `json:"totalCost"`
	TotalAsumedCost   money.Money `json:"totalAsumedCost"`
	TotalGrossRevenue money.Money `json:"totalGrossRevenue"`

	TotalIncomes               []money.Money   `json:"totalIncomes"`
	TotalIncomesInMainCurrency money.Money     `json:"totalIncomesInMainCurrency"`
	TotalIncomesInCash         []money.Money   `json:"totalIncomesInCash"`
	TotalIncomesNotInCash      []PaymentAmount `json:"totalIncomesNotInCash"`

	TotalTips             []money.Money   `json:"totalTips"`
	TotalTipsMainCurrency money.Money     `json:"totalTipsMainCurrency"`
	TotalDiscounts        []money.Money   `json:"totalDiscounts"`
	TotalCommissions      []money.Money   `json:"totalCommissions"`
	TotalCouponsDiscounts []money.Money   `json:"totalCouponsDiscounts"`
	TotalShipping         []PaymentAmount `json:"totalShipping"`
	TotalHouseCosted      money.Money     `json:"totalHouseCosted"`
	TotalOrderModifiers   []money.Money   `json:"totalOrderModifiers"`

	TotalCashOperations        []CashOperationAmount `json:"totalCashOperations"`
	TotalSalary                Salary                `json:"totalSalary"`
	TotalInCashAfterOperations []money.Money         `json:"totalInCashAfterOperations"`

	AmountOfOrders int `json:"amountOfOrders"`
}

// bucket acumula montos por moneda.
type bucket map[string]decimal.Decimal

func (b bucket) add(currency string, amount decimal.Decimal) {
	b[currency] = b[currency].Add(amount)
}

func (b bucket) sub(currency string, amount decimal.Decimal) {
	b[currency] = b[currency].Sub(amount)
}

// toList vuelca el bucket a una lista ordenada por moneda, omitiendo ceros.
func (b bucket) toList() []money.Money {
	currencies := make([]string, 0, len(b))
	for c := range b {
		if !b[c].IsZero() {
			currencies = append(currencies, c)
		}
	}
	sort.Strings(currencies)
	out := make([]money.Money, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, money.New(b[c], c))
	}
	return out
}

// Merge suma campo a campo (por moneda) varios arqueos de área en el arqueo
// general del negocio. Con un solo área es una copia directa.
func Merge(reports ...*Report) *Report {
	if len(reports) == 1 {
		copied := *reports[0]
		return &copied
	}

	out := &Report{}
	sales, incomes, inCash, tips := bucket{}, bucket{}, bucket{}, bucket{}
	discounts, commissions, coupons, modifiers, afterOps := bucket{}, bucket{}, bucket{}, bucket{}, bucket{}
	notInCash := map[[2]string]decimal.Decimal{}
	shipping := map[[2]string]decimal.Decimal{}
	cashOps := map[[2]string]decimal.Decimal{}

	for _, r := range reports {
		if r == nil {
			continue
		}
		for _, m := range r.TotalSales {
			sales.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalIncomes {
			incomes.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalIncomesInCash {
			inCash.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalTips {
			tips.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalDiscounts {
			discounts.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalCommissions {
			commissions.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalCouponsDiscounts {
			coupons.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalOrderModifiers {
			modifiers.add(m.Currency, m.Amount)
		}
		for _, m := range r.TotalInCashAfterOperations {
			afterOps.add(m.Currency, m.Amount)
		}
		for _, p := range r.TotalIncomesNotInCash {
			k := [2]string{p.CurrencyCode, p.PaymentWay}
			notInCash[k] = notInCash[k].Add(p.Amount)
		}
		for _, p := range r.TotalShipping {
			k := [2]string{p.CurrencyCode, p.PaymentWay}
			shipping[k] = shipping[k].Add(p.Amount)
		}
		for _, c := range r.TotalCashOperations {
			k := [2]string{c.CurrencyCode, c.Type}
			cashOps[k] = cashOps[k].Add(c.Amount)
		}

		out.TotalSalesInMainCurrency = addScalar(out.TotalSalesInMainCurrency, r.TotalSalesInMainCurrency)
		out.TotalIncomesInMainCurrency = addScalar(out.TotalIncomesInMainCurrency, r.TotalIncomesInMainCurrency)
		out.TotalTipsMainCurrency = addScalar(out.TotalTipsMainCurrency, r.TotalTipsMainCurrency)
		out.TotalCost = addScalar(out.TotalCost, r.TotalCost)
		out.TotalAsumedCost = addScalar(out.TotalAsumedCost, r.TotalAsumedCost)
		out.TotalGrossRevenue = addScalar(out.TotalGrossRevenue, r.TotalGrossRevenue)
		out.TotalHouseCosted = addScalar(out.TotalHouseCosted, r.TotalHouseCosted)
		out.TotalSalary.Amount = out.TotalSalary.Amount.Add(r.TotalSalary.Amount)
		if out.TotalSalary.CurrencyCode == "" {
			out.TotalSalary.CurrencyCode = r.TotalSalary.CurrencyCode
		}
		out.AmountOfOrders += r.AmountOfOrders
	}

	out.TotalSales = sales.toList()
	out.TotalIncomes = incomes.toList()
	out.TotalIncomesInCash = inCash.toList()
	out.TotalTips = tips.toList()
	out.TotalDiscounts = discounts.toList()
	out.TotalCommissions = commissions.toList()
	out.TotalCouponsDiscounts = coupons.toList()
	out.TotalOrderModifiers = modifiers.toList()
	out.TotalInCashAfterOperations = afterOps.toList()
	out.TotalIncomesNotInCash = pairsToPayments(notInCash)
	out.TotalShipping = pairsToPayments(shipping)
	out.TotalCashOperations = pairsToCashOps(cashOps)
	return out
}

func addScalar(a, b money.Money) money.Money {
	if a.Currency == "" {
		a.Currency = b.Currency
	}
	return money.New(a.Amount.Add(b.Amount), a.Currency)
}

func pairsToPayments(m map[[2]string]decimal.Decimal) []PaymentAmount {
	keys := make([][2]string, 0, len(m))
	for k := range m {
		if !m[k].IsZero() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]PaymentAmount, 0, len(keys))
	for _, k := range keys {
		out = append(out, PaymentAmount{Amount: m[k], CurrencyCode: k[0], PaymentWay: k[1]})
	}
	return out
}

func pairsToCashOps(m map[[2]string]decimal.Decimal) []CashOperationAmount {
	keys := make([][2]string, 0, len(m))
	for k := range m {
		if !m[k].IsZero() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]CashOperationAmount, 0, len(keys))
	for _, k := range keys {
		out = append(out, CashOperationAmount{Amount: m[k], CurrencyCode: k[0], Type: k[1]})
	}
	return out
}

// storeEnvelope es el sobre versionado persistido en Store.Data.
type storeEnvelope struct {
	Version int     `json:"version"`
	Payload *Report `json:"payload"`
}

// EncodeStore serializa un arqueo al formato del snapshot.
func EncodeStore(r *Report) ([]byte, error) {
	return json.Marshal(storeEnvelope{Version: entity.StoreDataVersion, Payload: r})
}

// DecodeStore deserializa un snapshot tolerando campos aditivos.
func DecodeStore(data []byte) (*Report, error) {
	var env storeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decodificar snapshot de arqueo: %w", err)
	}
	if env.Payload == nil {
		return nil, fmt.Errorf("snapshot de arqueo sin payload (version %d)", env.Version)
	}
	return env.Payload, nil
}
