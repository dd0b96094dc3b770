package cycle_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/application/cycle"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

type balKey struct{ accountID, currency string }

// fakeData es el estado en memoria compartido por todos los fakes de puerto.
type fakeData struct {
	cycles       []*entity.EconomicCycle
	areas        map[string]*entity.Area
	books        []*entity.StockAreaBook
	movements    []entity.StockMovement
	stocks       map[string][]entity.Stock
	orders       []*entity.OrderReceipt
	selled       []*entity.SelledProduct
	cashOps      []*entity.CashRegisterOperation
	stores       []*entity.Store
	prices       map[string][]entity.ProductPrice
	accounts     map[string]*entity.Account
	balances     map[balKey]*entity.AccountBalance
	ops          []*entity.AccountOperation
	records      []*entity.AccountRecord
	seq          int
	config       map[string]string
	currencies   []entity.Currency
	priceSystems []*entity.PriceSystem
	openOrders   int
}

func newFakeData() *fakeData {
	return &fakeData{
		areas:    map[string]*entity.Area{},
		stocks:   map[string][]entity.Stock{},
		prices:   map[string][]entity.ProductPrice{},
		accounts: map[string]*entity.Account{},
		balances: map[balKey]*entity.AccountBalance{},
		config:   map[string]string{},
	}
}

func (d *fakeData) balance(accountID, currency string) decimal.Decimal {
	if b, ok := d.balances[balKey{accountID, currency}]; ok {
		return b.Amount
	}
	return decimal.Zero
}

func (d *fakeData) bookFor(areaID, cycleID, operation string) *entity.StockAreaBook {
	for _, b := range d.books {
		if b.AreaID == areaID && b.EconomicCycleID == cycleID && b.Operation == operation {
			return b
		}
	}
	return nil
}

func (d *fakeData) storeFor(storeType, cycleID string, areaID *string) *entity.Store {
	for _, st := range d.stores {
		if st.Type != storeType || st.EconomicCycleID != cycleID {
			continue
		}
		if (st.AreaID == nil) != (areaID == nil) {
			continue
		}
		if areaID != nil && *st.AreaID != *areaID {
			continue
		}
		return st
	}
	return nil
}

// --- puertos del ciclo ---

type fakeCycles struct{ d *fakeData }

func (f fakeCycles) GetActive(_ context.Context, businessID string) (*entity.EconomicCycle, error) {
	for _, c := range f.d.cycles {
		if c.BusinessID == businessID && c.IsActive {
			return c, nil
		}
	}
	return nil, nil
}

func (f fakeCycles) GetLastClosed(_ context.Context, businessID string) (*entity.EconomicCycle, error) {
	var last *entity.EconomicCycle
	for _, c := range f.d.cycles {
		if c.BusinessID != businessID || c.IsActive || c.ClosedAt == nil {
			continue
		}
		if last == nil || c.ClosedAt.After(*last.ClosedAt) {
			last = c
		}
	}
	return last, nil
}

func (f fakeCycles) Create(_ context.Context, c *entity.EconomicCycle) error {
	for _, existing := range f.d.cycles {
		if existing.BusinessID == c.BusinessID && existing.IsActive {
			return domain.ErrCycleAlreadyActive
		}
	}
	f.d.cycles = append(f.d.cycles, c)
	return nil
}

func (f fakeCycles) Close(_ context.Context, c *entity.EconomicCycle) error {
	for i, existing := range f.d.cycles {
		if existing.ID == c.ID {
			f.d.cycles[i] = c
			return nil
		}
	}
	return domain.ErrNoActiveCycle
}

type fakeAreas struct{ d *fakeData }

func (f fakeAreas) ListActiveByType(_ context.Context, businessID, areaType string) ([]*entity.Area, error) {
	var out []*entity.Area
	for _, a := range f.d.areas {
		if a.BusinessID == businessID && a.Type == areaType && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeAreas) GetByID(_ context.Context, id string) (*entity.Area, error) {
	a, ok := f.d.areas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

type fakeBooks struct{ d *fakeData }

func (f fakeBooks) Create(_ context.Context, b *entity.StockAreaBook) error {
	f.d.books = append(f.d.books, b)
	return nil
}

func (f fakeBooks) Get(_ context.Context, areaID, cycleID, operation string) (*entity.StockAreaBook, error) {
	return f.d.bookFor(areaID, cycleID, operation), nil
}

type fakeMovements struct{ d *fakeData }

func (f fakeMovements) Create(_ context.Context, m *entity.StockMovement) error {
	f.d.movements = append(f.d.movements, *m)
	return nil
}

func (f fakeMovements) CreateBatch(_ context.Context, movs []entity.StockMovement) error {
	f.d.movements = append(f.d.movements, movs...)
	return nil
}

func (f fakeMovements) ListSinceBook(_ context.Context, areaID, cycleID string) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range f.d.movements {
		if m.AreaID == areaID && m.EconomicCycleID != nil && *m.EconomicCycleID == cycleID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeStock struct{ d *fakeData }

func (f fakeStock) ListByArea(_ context.Context, areaID string) ([]entity.Stock, error) {
	return f.d.stocks[areaID], nil
}

type fakeOrders struct{ d *fakeData }

func (f fakeOrders) ListByCycleAndArea(_ context.Context, cycleID, areaID string, statuses []string) ([]*entity.OrderReceipt, error) {
	allowed := map[string]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []*entity.OrderReceipt
	for _, o := range f.d.orders {
		if o.EconomicCycleID == cycleID && o.AreaID == areaID && allowed[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f fakeOrders) CountOpenByCycle(_ context.Context, _ string) (int, error) {
	return f.d.openOrders, nil
}

func (f fakeOrders) RetagPending(_ context.Context, fromCycleID, toCycleID string) (int, error) {
	moved := 0
	for _, o := range f.d.orders {
		if o.EconomicCycleID == fromCycleID && o.Status == entity.OrderStatusPaymentPending {
			o.EconomicCycleID = toCycleID
			moved++
		}
	}
	return moved, nil
}

func (f fakeOrders) ListSelledByStockArea(_ context.Context, cycleID, stockAreaID string) ([]*entity.SelledProduct, error) {
	var out []*entity.SelledProduct
	for _, sp := range f.d.selled {
		if sp.EconomicCycleID == cycleID && sp.StockAreaID == stockAreaID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (f fakeOrders) ListSelledByCycleAndArea(_ context.Context, cycleID, saleAreaID string) ([]*entity.SelledProduct, error) {
	byOrder := map[string]*entity.OrderReceipt{}
	for _, o := range f.d.orders {
		byOrder[o.ID] = o
	}
	var out []*entity.SelledProduct
	for _, sp := range f.d.selled {
		o, ok := byOrder[sp.OrderID]
		if ok && o.EconomicCycleID == cycleID && o.AreaID == saleAreaID {
			out = append(out, sp)
		}
	}
	return out, nil
}

type fakeCash struct{ d *fakeData }

func (f fakeCash) ListByCycleAndArea(_ context.Context, cycleID, areaID string) ([]*entity.CashRegisterOperation, error) {
	var out []*entity.CashRegisterOperation
	for _, op := range f.d.cashOps {
		if op.EconomicCycleID == cycleID && op.AreaID == areaID {
			out = append(out, op)
		}
	}
	return out, nil
}

type fakeStores struct{ d *fakeData }

func (f fakeStores) Get(_ context.Context, storeType, cycleID string, areaID *string) (*entity.Store, error) {
	return f.d.storeFor(storeType, cycleID, areaID), nil
}

func (f fakeStores) Create(_ context.Context, st *entity.Store) error {
	f.d.stores = append(f.d.stores, st)
	return nil
}

type fakeProducts struct{ d *fakeData }

func (f fakeProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return &entity.Product{ID: id}, nil
}

func (f fakeProducts) ListPrices(_ context.Context, productID, _ string) ([]entity.ProductPrice, error) {
	return f.d.prices[productID], nil
}

// --- puertos del ledger ---

type fakeAccounts struct{ d *fakeData }

func (f fakeAccounts) GetByID(_ context.Context, id string) (*entity.Account, error) {
	a, ok := f.d.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (f fakeAccounts) GetBalanceForUpdate(_ context.Context, accountID, currency string) (*entity.AccountBalance, error) {
	k := balKey{accountID, currency}
	if b, ok := f.d.balances[k]; ok {
		return b, nil
	}
	b := &entity.AccountBalance{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Amount:       decimal.Zero,
		CurrencyCode: currency,
	}
	f.d.balances[k] = b
	return b, nil
}

func (f fakeAccounts) UpdateBalance(_ context.Context, b *entity.AccountBalance) error {
	f.d.balances[balKey{b.AccountID, b.CurrencyCode}] = b
	return nil
}

func (f fakeAccounts) ListBalances(_ context.Context, accountID string) ([]*entity.AccountBalance, error) {
	var out []*entity.AccountBalance
	for _, b := range f.d.balances {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out, nil
}

type fakeOps struct{ d *fakeData }

func (f fakeOps) Create(_ context.Context, op *entity.AccountOperation) error {
	f.d.seq++
	op.NoTransaction = fmt.Sprintf("T-%d", f.d.seq)
	op.CreatedAt = time.Now()
	f.d.ops = append(f.d.ops, op)
	return nil
}

func (f fakeOps) GetByID(_ context.Context, id string) (*entity.AccountOperation, error) {
	for _, op := range f.d.ops {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f fakeOps) Delete(_ context.Context, id string) error {
	for i, op := range f.d.ops {
		if op.ID == id {
			f.d.ops = append(f.d.ops[:i], f.d.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f fakeOps) ListByAccount(_ context.Context, accountID string, from, to *time.Time, _, _ int) ([]*entity.AccountOperation, error) {
	var out []*entity.AccountOperation
	for _, op := range f.d.ops {
		if op.AccountID != accountID {
			continue
		}
		if from != nil && op.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !op.CreatedAt.Before(*to) {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func (f fakeOps) SumByAccountAndCurrency(_ context.Context, accountID, currency string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, op := range f.d.ops {
		if op.AccountID == accountID && op.Amount.Currency == currency {
			sum = sum.Add(op.Amount.Amount)
		}
	}
	return sum, nil
}

func (f fakeOps) CreateRecord(_ context.Context, rec *entity.AccountRecord) error {
	f.d.records = append(f.d.records, rec)
	return nil
}

// --- colaboradores de solo lectura ---

type fakeConfig struct{ d *fakeData }

func (f fakeConfig) GetBool(_ context.Context, _, key string, def bool) (bool, error) {
	if v, ok := f.d.config[key]; ok {
		return v == "true", nil
	}
	return def, nil
}

func (f fakeConfig) GetString(_ context.Context, _, key string, def string) (string, error) {
	if v, ok := f.d.config[key]; ok {
		return v, nil
	}
	return def, nil
}

func (f fakeConfig) GetInt(_ context.Context, _, key string, def int) (int, error) {
	if v, ok := f.d.config[key]; ok {
		return strconv.Atoi(v)
	}
	return def, nil
}

type fakeCurrencies struct{ d *fakeData }

func (f fakeCurrencies) ListByBusiness(_ context.Context, _ string) ([]entity.Currency, error) {
	return f.d.currencies, nil
}

type fakePriceSystems struct{ d *fakeData }

func (f fakePriceSystems) GetMain(_ context.Context, businessID string) (*entity.PriceSystem, error) {
	for _, ps := range f.d.priceSystems {
		if ps.BusinessID == businessID && ps.IsMain {
			return ps, nil
		}
	}
	return nil, nil
}

func (f fakePriceSystems) GetByID(_ context.Context, id string) (*entity.PriceSystem, error) {
	for _, ps := range f.d.priceSystems {
		if ps.ID == id {
			return ps, nil
		}
	}
	return nil, nil
}

// --- transacción, notificador y cola ---

type fakeTx struct{ d *fakeData }

func (t fakeTx) Run(_ context.Context, fn func(cycle.Repos) error) error {
	return fn(cycle.Repos{
		Cycles:    fakeCycles{t.d},
		Areas:     fakeAreas{t.d},
		Books:     fakeBooks{t.d},
		Movements: fakeMovements{t.d},
		Stock:     fakeStock{t.d},
		Orders:    fakeOrders{t.d},
		Cash:      fakeCash{t.d},
		Stores:    fakeStores{t.d},
		Products:  fakeProducts{t.d},
		Accounts:  fakeAccounts{t.d},
		Ops:       fakeOps{t.d},
	})
}

type fakeNotifier struct {
	opened []string
	closed []string
}

func (n *fakeNotifier) CycleOpened(_ context.Context, _, cycleID string) {
	n.opened = append(n.opened, cycleID)
}

func (n *fakeNotifier) CycleClosed(_ context.Context, _, cycleID string) {
	n.closed = append(n.closed, cycleID)
}

type enqueued struct {
	code   string
	params any
}

type fakeQueue struct{ jobs []enqueued }

func (q *fakeQueue) Enqueue(_ context.Context, code string, params any) error {
	q.jobs = append(q.jobs, enqueued{code: code, params: params})
	return nil
}

// ledgerTxStub satisface ledger.TxRunner; el orquestador solo usa la variante
// por lote dentro de su propia transacción.
type ledgerTxStub struct{ d *fakeData }

func (t ledgerTxStub) Run(_ context.Context, fn func(repository.AccountRepository, repository.OperationRepository) error) error {
	return fn(fakeAccounts{t.d}, fakeOps{t.d})
}

// env agrupa el servicio bajo prueba con sus colaboradores fake.
type env struct {
	d        *fakeData
	svc      *cycle.Service
	notifier *fakeNotifier
	queue    *fakeQueue
}

func newEnv() *env {
	d := newFakeData()
	d.currencies = []entity.Currency{
		{Code: "USD", IsMain: true, ExchangeRate: decimal.NewFromInt(1)},
		{Code: "CUP", ExchangeRate: decimal.NewFromFloat(0.004)},
	}
	d.priceSystems = []*entity.PriceSystem{
		{ID: "ps-main", BusinessID: "biz-1", Name: "Principal", IsMain: true},
	}

	notifier := &fakeNotifier{}
	queue := &fakeQueue{}
	log := logger.Nop()
	ledgerSvc := ledger.NewService(ledgerTxStub{d}, fakeAccounts{d}, log)
	svc := cycle.NewService(
		fakeTx{d},
		ledgerSvc,
		fakeConfig{d},
		fakeCurrencies{d},
		fakePriceSystems{d},
		notifier,
		queue,
		log,
		2,
	)
	return &env{d: d, svc: svc, notifier: notifier, queue: queue}
}
