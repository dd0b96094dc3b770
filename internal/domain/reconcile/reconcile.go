// Package reconcile implementa el motor de conciliación de inventario: dado el
// libro OPEN de un área y el log de movimientos registrado desde ese libro,
// produce el estado del libro CLOSED y las filas SALE sintéticas que hacen que
// la aritmética de stock registrada sea consistente con la cantidad real en
// mano. El motor es puro y determinista (mismas entradas, misma salida), lo
// que permite reintentar el cierre tras un fallo antes del commit.
package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
)

// SaleLine es una venta (directa u online) de un producto del área en la
// ventana del ciclo, tomada de las líneas vendidas.
type SaleLine struct {
	ProductID   string
	VariationID *string
	Quantity    decimal.Decimal // positiva: unidades vendidas
	PriceID     *string
}

// Input agrupa todo lo que el motor necesita para conciliar un área.
type Input struct {
	AreaID          string
	EconomicCycleID string
	Precision       int32
	OpeningState    []entity.ProductBookState // estado initial del libro OPEN
	Movements       []entity.StockMovement    // log desde el libro, solo esta área
	DirectSales     []SaleLine
	OnlineSales     []SaleLine
	OnHand          []entity.Stock // cantidad real en mano por producto/variación
	MadeBy          string
}

// Result es la salida del motor: el estado del libro CLOSED (ya con la
// convención de signos del ledger) y los movimientos SALE sintéticos a anexar
// al log, en orden determinista.
type Result struct {
	ClosedState []entity.ProductBookState
	Synthetic   []entity.StockMovement
}

// ledger de cantidades de un producto o variación mientras se concilia.
type tally struct {
	initial     decimal.Decimal
	onHand      decimal.Decimal
	entry       decimal.Decimal
	movements   decimal.Decimal
	outs        decimal.Decimal
	processed   decimal.Decimal
	waste       decimal.Decimal
	directSales decimal.Decimal
	onlineSales decimal.Decimal
}

// indirect calcula el residuo que balancea la ecuación de inventario:
// indirect = real − (initial + entry − outs − directas − processed − movements − waste − online).
func (t *tally) indirect() decimal.Decimal {
	expected := t.initial.
		Add(t.entry).
		Sub(t.outs).
		Sub(t.directSales).
		Sub(t.processed).
		Sub(t.movements).
		Sub(t.waste).
		Sub(t.onlineSales)
	return t.onHand.Sub(expected)
}

type productTally struct {
	tally
	variations map[string]*tally
}

// Run ejecuta la conciliación del área completa.
func Run(in Input) Result {
	products := map[string]*productTally{}

	get := func(productID string) *productTally {
		pt, ok := products[productID]
		if !ok {
			pt = &productTally{variations: map[string]*tally{}}
			products[productID] = pt
		}
		return pt
	}
	getVar := func(pt *productTally, variationID string) *tally {
		vt, ok := pt.variations[variationID]
		if !ok {
			vt = &tally{}
			pt.variations[variationID] = vt
		}
		return vt
	}

	// Estado inicial desde el libro OPEN. Productos que solo aparezcan en el
	// log se concilian contra initial = 0.
	for _, ps := range in.OpeningState {
		pt := get(ps.ProductID)
		pt.initial = ps.Initial
		for _, vs := range ps.Variations {
			getVar(pt, vs.VariationID).initial = vs.Initial
		}
	}

	// Cantidad real en mano.
	for _, s := range in.OnHand {
		pt := get(s.ProductID)
		if s.VariationID != nil {
			getVar(pt, *s.VariationID).onHand = s.Quantity
		} else {
			pt.onHand = s.Quantity
		}
	}

	// Suma del log de movimientos por tipo de operación.
	for _, m := range in.Movements {
		pt := get(m.ProductID)
		apply := func(t *tally) {
			switch m.Operation {
			case entity.MovementEntry:
				t.entry = t.entry.Add(m.Quantity)
			case entity.MovementMovement:
				t.movements = t.movements.Add(m.Quantity.Abs())
			case entity.MovementOut:
				t.outs = t.outs.Add(m.Quantity.Abs())
			case entity.MovementProcessed, entity.MovementTransformation:
				t.processed = t.processed.Add(m.Quantity.Abs())
			case entity.MovementWaste:
				t.waste = t.waste.Add(m.Quantity.Abs())
			case entity.MovementSale:
				t.directSales = t.directSales.Add(m.Quantity)
			}
		}
		apply(&pt.tally)
		if m.VariationID != nil {
			apply(getVar(pt, *m.VariationID))
		}
	}

	var synthetic []entity.StockMovement

	// Las ventas directas y online se vuelcan al log como movimientos SALE
	// sintéticos: el log queda como única fuente de verdad hacia adelante.
	foldSales := func(lines []SaleLine, online bool, description string) {
		for _, l := range lines {
			pt := get(l.ProductID)
			if online {
				pt.onlineSales = pt.onlineSales.Add(l.Quantity)
			} else {
				pt.directSales = pt.directSales.Add(l.Quantity)
			}
			if l.VariationID != nil {
				vt := getVar(pt, *l.VariationID)
				if online {
					vt.onlineSales = vt.onlineSales.Add(l.Quantity)
				} else {
					vt.directSales = vt.directSales.Add(l.Quantity)
				}
			}
			synthetic = append(synthetic, entity.StockMovement{
				ProductID:       l.ProductID,
				VariationID:     l.VariationID,
				AreaID:          in.AreaID,
				Quantity:        l.Quantity,
				Operation:       entity.MovementSale,
				EconomicCycleID: &in.EconomicCycleID,
				PriceID:         l.PriceID,
				Description:     description,
				MadeBy:          in.MadeBy,
			})
		}
	}
	foldSales(sortedLines(in.DirectSales), false, "venta directa")
	foldSales(sortedLines(in.OnlineSales), true, "venta online")

	// Residuo indirecto por producto y por variación, en orden determinista.
	productIDs := make([]string, 0, len(products))
	for id := range products {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	closed := make([]entity.ProductBookState, 0, len(products))
	for _, productID := range productIDs {
		pt := products[productID]

		indirect := settleIndirect(&pt.tally, in, productID, nil, &synthetic)

		ps := entity.ProductBookState{
			ProductID:   productID,
			Initial:     pt.initial,
			InStock:     pt.onHand,
			Entry:       pt.entry,
			Movements:   pt.movements.Neg(),
			Outs:        pt.outs.Neg(),
			Sales:       pt.directSales.Add(indirect.Neg()).Neg(),
			OnlineSales: pt.onlineSales.Neg(),
			Processed:   pt.processed.Neg(),
			Waste:       pt.waste.Neg(),
		}

		variationIDs := make([]string, 0, len(pt.variations))
		for id := range pt.variations {
			variationIDs = append(variationIDs, id)
		}
		sort.Strings(variationIDs)
		for _, variationID := range variationIDs {
			vt := pt.variations[variationID]
			vid := variationID
			vIndirect := settleIndirect(vt, in, productID, &vid, &synthetic)
			ps.Variations = append(ps.Variations, entity.VariationBookState{
				VariationID: variationID,
				Initial:     vt.initial,
				InStock:     vt.onHand,
				Entry:       vt.entry,
				Movements:   vt.movements.Neg(),
				Outs:        vt.outs.Neg(),
				Sales:       vt.directSales.Add(vIndirect.Neg()).Neg(),
				OnlineSales: vt.onlineSales.Neg(),
				Processed:   vt.processed.Neg(),
				Waste:       vt.waste.Neg(),
			})
		}

		closed = append(closed, ps)
	}

	return Result{ClosedState: closed, Synthetic: synthetic}
}

// settleIndirect calcula el residuo de un tally, aplica el umbral de descarte
// y, si queda un residuo real, anexa el SALE sintético de ajuste. Devuelve el
// indirect efectivo (cero cuando se descarta).
func settleIndirect(t *tally, in Input, productID string, variationID *string, synthetic *[]entity.StockMovement) decimal.Decimal {
	indirect := t.indirect()
	if money.Disregard(indirect, in.Precision) {
		return decimal.Zero
	}
	// indirect negativo = faltante no explicado => venta indirecta de −indirect.
	*synthetic = append(*synthetic, entity.StockMovement{
		ProductID:       productID,
		VariationID:     variationID,
		AreaID:          in.AreaID,
		Quantity:        indirect.Neg(),
		Operation:       entity.MovementSale,
		EconomicCycleID: &in.EconomicCycleID,
		Description:     "ajuste por venta indirecta",
		MadeBy:          in.MadeBy,
	})
	return indirect
}

// sortedLines ordena las líneas de venta por producto y variación para que la
// salida sea estable independientemente del orden de lectura.
func sortedLines(lines []SaleLine) []SaleLine {
	out := make([]SaleLine, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return deref(out[i].VariationID) < deref(out[j].VariationID)
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
