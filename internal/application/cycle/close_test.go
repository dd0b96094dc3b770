package cycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/pos-pro/internal/application/settlement"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/job"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

// closingEnv arma un negocio con ciclo activo, un área STOCK con faltante y un
// área SALE con fondos a transferir al cierre.
func closingEnv(t *testing.T) *env {
	t.Helper()
	e := newEnv()
	e.d.config[repository.ConfigModuleAccounts] = "true"

	e.d.cycles = append(e.d.cycles, &entity.EconomicCycle{
		ID: "ec-1", BusinessID: "biz-1", Name: "Ciclo 2026-08-27",
		OpenedBy: "user-7", OpenedAt: time.Now().Add(-24 * time.Hour),
		PriceSystemID: "ps-main", IsActive: true,
	})

	// Área STOCK: initial 10, entrada 5, salida 2, venta directa 3, en mano 3.
	// El residuo indirecto es 3 − (10 + 5 − 2 − 3) = −7.
	e.d.areas["stock-1"] = &entity.Area{
		ID: "stock-1", BusinessID: "biz-1", Name: "Almacén", Type: entity.AreaTypeStock, IsActive: true,
	}
	e.d.books = append(e.d.books, &entity.StockAreaBook{
		ID: "book-open", AreaID: "stock-1", EconomicCycleID: "ec-1",
		Operation: entity.BookOperationOpen,
		State:     []entity.ProductBookState{{ProductID: "p1", Initial: decimal.NewFromInt(10), InStock: decimal.NewFromInt(10)}},
	})
	cycleID := "ec-1"
	e.d.movements = append(e.d.movements,
		entity.StockMovement{ID: "m1", ProductID: "p1", AreaID: "stock-1", Operation: entity.MovementEntry, Quantity: decimal.NewFromInt(5), EconomicCycleID: &cycleID},
		entity.StockMovement{ID: "m2", ProductID: "p1", AreaID: "stock-1", Operation: entity.MovementOut, Quantity: decimal.NewFromInt(2), EconomicCycleID: &cycleID},
	)
	e.d.stocks["stock-1"] = []entity.Stock{
		{ProductID: "p1", AreaID: "stock-1", Quantity: decimal.NewFromInt(3)},
	}

	// Área SALE: 100 USD vendidos (80 CASH + 20 CARD), un depósito manual
	// contabilizable de 50 y una extracción no contabilizable de 10.
	e.d.areas["sale-1"] = &entity.Area{
		ID: "sale-1", BusinessID: "biz-1", Name: "Punto de venta", Type: entity.AreaTypeSale, IsActive: true,
		TransferFundsOnClose: true,
		DefaultAccountID:     "acc-main",
		FundDestinations: []entity.FundDestination{
			{AreaID: "sale-1", PaymentWay: entity.PaymentWayCard, CurrencyCode: "USD", AccountID: "acc-card"},
		},
	}
	e.d.orders = append(e.d.orders, &entity.OrderReceipt{
		ID: "o1", EconomicCycleID: "ec-1", AreaID: "sale-1", Status: entity.OrderStatusBilled,
		Prices: []money.Money{money.FromFloat(100, "USD")},
		Payments: []entity.CurrencyPayment{
			{Amount: decimal.NewFromInt(80), CurrencyCode: "USD", PaymentWay: entity.PaymentWayCash},
			{Amount: decimal.NewFromInt(20), CurrencyCode: "USD", PaymentWay: entity.PaymentWayCard},
		},
	})
	e.d.selled = append(e.d.selled, &entity.SelledProduct{
		ID: "sp1", OrderID: "o1", ProductID: "p1", StockAreaID: "stock-1",
		EconomicCycleID: "ec-1", Quantity: decimal.NewFromInt(3),
		PriceUnitary: money.FromFloat(0, "USD"),
	})
	e.d.cashOps = append(e.d.cashOps,
		&entity.CashRegisterOperation{
			ID: "c1", EconomicCycleID: "ec-1", AreaID: "sale-1",
			Type: entity.CashOpManualDeposit, Amount: money.FromFloat(50, "USD"),
			MadeBy: "user-7", Accountable: true,
		},
		&entity.CashRegisterOperation{
			ID: "c2", EconomicCycleID: "ec-1", AreaID: "sale-1",
			Type: entity.CashOpManualWithdraw, Amount: money.FromFloat(-10, "USD"),
		},
	)

	e.d.accounts["acc-main"] = &entity.Account{ID: "acc-main", BusinessID: "biz-1", Name: "Caja central"}
	e.d.accounts["acc-card"] = &entity.Account{ID: "acc-card", BusinessID: "biz-1", Name: "Banco tarjetas"}
	return e
}

func TestClose_SinCicloActivo(t *testing.T) {
	e := newEnv()

	_, _, err := e.svc.Close(context.Background(), "biz-1", "user-7", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoActiveCycle)
}

func TestClose_ConOrdenesAbiertas(t *testing.T) {
	e := closingEnv(t)
	e.d.openOrders = 2

	_, _, err := e.svc.Close(context.Background(), "biz-1", "user-7", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOpenOrdersExist)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Con carry-forward permitido el guard no aplica.
	e.d.config[repository.ConfigAllowPendingPayment] = "true"
	_, _, err = e.svc.Close(context.Background(), "biz-1", "user-7", true)
	assert.NoError(t, err)
}

func TestClose_CicloCompleto(t *testing.T) {
	e := closingEnv(t)

	closed, general, err := e.svc.Close(context.Background(), "biz-1", "user-7", false)
	require.NoError(t, err)
	require.NotNil(t, closed)

	// Estado del ciclo: apagado, estampado y con tasas congeladas.
	assert.False(t, closed.IsActive)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, "user-7", *closed.ClosedBy)
	require.NotNil(t, closed.Meta)
	assert.False(t, closed.Meta.ClosedManually)
	require.Len(t, closed.Meta.ExchangeRates, 2)
	assert.Equal(t, "USD", closed.Meta.ExchangeRates[0].Code)

	// Conciliación: venta directa 3 + ajuste indirecto 7 anexados al log.
	var synthetic []entity.StockMovement
	for _, m := range e.d.movements {
		if m.Operation == entity.MovementSale {
			synthetic = append(synthetic, m)
		}
	}
	require.Len(t, synthetic, 2)
	assert.True(t, synthetic[0].Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, synthetic[1].Quantity.Equal(decimal.NewFromInt(7)))
	assert.NotEmpty(t, synthetic[0].ID)

	// Libro CLOSED con la convención de signos: salidas negadas.
	book := e.d.bookFor("stock-1", "ec-1", entity.BookOperationClosed)
	require.NotNil(t, book)
	require.Len(t, book.State, 1)
	ps := book.State[0]
	assert.True(t, ps.Initial.Equal(decimal.NewFromInt(10)))
	assert.True(t, ps.InStock.Equal(decimal.NewFromInt(3)))
	assert.True(t, ps.Entry.Equal(decimal.NewFromInt(5)))
	assert.True(t, ps.Outs.Equal(decimal.NewFromInt(-2)))
	assert.True(t, ps.Sales.Equal(decimal.NewFromInt(-10)), "3 directas + 7 indirectas, negadas: got %s", ps.Sales)

	// Posteo de fondos: efectivo puro 80 (120 en caja − 40 de operaciones
	// manuales) + depósito contabilizable 50 a la cuenta por defecto; los 20
	// de tarjeta a su cuenta de destino. La extracción no contabilizable no
	// toca el ledger.
	assert.True(t, e.d.balance("acc-main", "USD").Equal(decimal.NewFromInt(130)),
		"got %s", e.d.balance("acc-main", "USD"))
	assert.True(t, e.d.balance("acc-card", "USD").Equal(decimal.NewFromInt(20)))

	mainOps := 0
	for _, op := range e.d.ops {
		if op.AccountID == "acc-main" {
			mainOps++
		}
	}
	assert.Equal(t, 2, mainOps, "una operación por el efectivo y una por el depósito manual")

	// Conservación: la suma del log iguala el saldo.
	sum, err := (fakeOps{e.d}).SumByAccountAndCurrency(context.Background(), "acc-main", "USD")
	require.NoError(t, err)
	assert.True(t, sum.Equal(e.d.balance("acc-main", "USD")))

	// Snapshots de arqueo persistidos: por área y general.
	areaID := "sale-1"
	require.NotNil(t, e.d.storeFor(entity.StoreTypeIncomeArea, "ec-1", &areaID))
	generalStore := e.d.storeFor(entity.StoreTypeIncomeGeneral, "ec-1", nil)
	require.NotNil(t, generalStore)
	decoded, err := settlement.DecodeStore(generalStore.Data)
	require.NoError(t, err)
	assert.True(t, decoded.TotalSalesInMainCurrency.Amount.Equal(general.TotalSalesInMainCurrency.Amount))
	assert.True(t, general.TotalSalesInMainCurrency.Amount.Equal(decimal.NewFromInt(100)))

	// Notificación y trabajo diferido del cierre programado.
	assert.Equal(t, []string{"ec-1"}, e.notifier.closed)
	require.Len(t, e.queue.jobs, 1)
	assert.Equal(t, job.CodeAfterClose, e.queue.jobs[0].code)
	params, ok := e.queue.jobs[0].params.(job.AfterCloseParams)
	require.True(t, ok)
	assert.Equal(t, []string{"acc-card", "acc-main"}, params.AccountIDs)

	// Re-ejecutar tras el commit: ya no hay ciclo activo.
	_, _, err = e.svc.Close(context.Background(), "biz-1", "user-7", false)
	assert.ErrorIs(t, err, domain.ErrNoActiveCycle)
}

func TestClose_ManualNoEncolaPostCierre(t *testing.T) {
	e := closingEnv(t)

	_, _, err := e.svc.Close(context.Background(), "biz-1", "user-7", true)
	require.NoError(t, err)
	assert.Empty(t, e.queue.jobs, "el cierre manual no dispara el rollup diario")
	require.NotNil(t, e.d.cycles[0].Meta)
	assert.True(t, e.d.cycles[0].Meta.ClosedManually)
}

// Dos áreas SALE que enrutan a la misma cuenta: los posteos se pliegan en un
// solo write de saldo por (cuenta, moneda), no uno por área.
func TestClose_FondosDeVariasAreasSePlieganPorCuenta(t *testing.T) {
	e := closingEnv(t)
	e.d.areas["sale-2"] = &entity.Area{
		ID: "sale-2", BusinessID: "biz-1", Name: "Terraza", Type: entity.AreaTypeSale, IsActive: true,
		TransferFundsOnClose: true,
		DefaultAccountID:     "acc-main",
	}
	e.d.orders = append(e.d.orders, &entity.OrderReceipt{
		ID: "o2", EconomicCycleID: "ec-1", AreaID: "sale-2", Status: entity.OrderStatusBilled,
		Prices: []money.Money{money.FromFloat(30, "USD")},
		Payments: []entity.CurrencyPayment{
			{Amount: decimal.NewFromInt(30), CurrencyCode: "USD", PaymentWay: entity.PaymentWayCash},
		},
	})

	_, _, err := e.svc.Close(context.Background(), "biz-1", "user-7", true)
	require.NoError(t, err)

	// 130 del área original + 30 de la terraza, acumulados antes de postear.
	assert.True(t, e.d.balance("acc-main", "USD").Equal(decimal.NewFromInt(160)),
		"got %s", e.d.balance("acc-main", "USD"))

	mainRecords := 0
	for _, rec := range e.d.records {
		if rec.AccountID == "acc-main" {
			mainRecords++
		}
	}
	assert.Equal(t, 1, mainRecords, "un solo write de saldo en USD aunque aporten dos áreas")
}

func TestClose_AreaSinTransferenciaNoPostea(t *testing.T) {
	e := closingEnv(t)
	e.d.areas["sale-1"].TransferFundsOnClose = false

	_, _, err := e.svc.Close(context.Background(), "biz-1", "user-7", true)
	require.NoError(t, err)
	assert.Empty(t, e.d.ops, "sin transferencia configurada el ledger no se toca")
}

func TestAfterClose_EncolaRollupPorCuenta(t *testing.T) {
	e := newEnv()
	params := job.AfterCloseParams{
		BusinessID:      "biz-1",
		EconomicCycleID: "ec-1",
		AccountIDs:      []string{"acc-a", "acc-b"},
		ClosedAt:        time.Now(),
	}

	require.NoError(t, e.svc.AfterClose(context.Background(), params))
	require.Len(t, e.queue.jobs, 2)
	assert.Equal(t, job.CodeDailyBalance, e.queue.jobs[0].code)
	p, ok := e.queue.jobs[0].params.(job.DailyBalanceParams)
	require.True(t, ok)
	assert.Equal(t, "acc-a", p.AccountID)
}
