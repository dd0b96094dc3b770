package ledger_test

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
)

type balKey struct{ accountID, currency string }

// fakeLedgerStore implementa AccountRepository y OperationRepository en
// memoria, con snapshot/restore para simular rollback transaccional.
type fakeLedgerStore struct {
	accounts map[string]*entity.Account
	balances map[balKey]*entity.AccountBalance
	ops      map[string]*entity.AccountOperation
	records  []*entity.AccountRecord
	seq      int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		accounts: map[string]*entity.Account{},
		balances: map[balKey]*entity.AccountBalance{},
		ops:      map[string]*entity.AccountOperation{},
	}
}

func (f *fakeLedgerStore) addAccount(a *entity.Account) { f.accounts[a.ID] = a }

func (f *fakeLedgerStore) setBalance(accountID string, amount float64, currency string) {
	k := balKey{accountID, currency}
	f.balances[k] = &entity.AccountBalance{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Amount:       decimal.NewFromFloat(amount),
		CurrencyCode: currency,
	}
}

func (f *fakeLedgerStore) balance(accountID, currency string) decimal.Decimal {
	if b, ok := f.balances[balKey{accountID, currency}]; ok {
		return b.Amount
	}
	return decimal.Zero
}

// --- repository.AccountRepository ---

func (f *fakeLedgerStore) GetByID(_ context.Context, id string) (*entity.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeLedgerStore) GetBalanceForUpdate(_ context.Context, accountID, currency string) (*entity.AccountBalance, error) {
	k := balKey{accountID, currency}
	if b, ok := f.balances[k]; ok {
		return b, nil
	}
	b := &entity.AccountBalance{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Amount:       decimal.Zero,
		CurrencyCode: currency,
	}
	f.balances[k] = b
	return b, nil
}

func (f *fakeLedgerStore) UpdateBalance(_ context.Context, b *entity.AccountBalance) error {
	f.balances[balKey{b.AccountID, b.CurrencyCode}] = b
	return nil
}

func (f *fakeLedgerStore) ListBalances(_ context.Context, accountID string) ([]*entity.AccountBalance, error) {
	var out []*entity.AccountBalance
	for _, b := range f.balances {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrencyCode < out[j].CurrencyCode })
	return out, nil
}

// --- repository.OperationRepository ---

func (f *fakeLedgerStore) Create(_ context.Context, op *entity.AccountOperation) error {
	f.seq++
	op.NoTransaction = fmt.Sprintf("T-%d", f.seq)
	op.CreatedAt = time.Now()
	f.ops[op.ID] = op
	return nil
}

func (f *fakeLedgerStore) GetOperation(_ context.Context, id string) (*entity.AccountOperation, error) {
	op, ok := f.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return op, nil
}

func (f *fakeLedgerStore) Delete(_ context.Context, id string) error {
	delete(f.ops, id)
	return nil
}

func (f *fakeLedgerStore) ListByAccount(_ context.Context, accountID string, from, to *time.Time, _, _ int) ([]*entity.AccountOperation, error) {
	var out []*entity.AccountOperation
	for _, op := range f.ops {
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
	sort.Slice(out, func(i, j int) bool { return out[i].NoTransaction < out[j].NoTransaction })
	return out, nil
}

func (f *fakeLedgerStore) SumByAccountAndCurrency(_ context.Context, accountID, currency string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, op := range f.ops {
		if op.AccountID == accountID && op.Amount.Currency == currency {
			sum = sum.Add(op.Amount.Amount)
		}
	}
	return sum, nil
}

func (f *fakeLedgerStore) CreateRecord(_ context.Context, rec *entity.AccountRecord) error {
	f.records = append(f.records, rec)
	return nil
}

// --- snapshot / restore para simular rollback ---

func (f *fakeLedgerStore) snapshot() *fakeLedgerStore {
	s := newFakeLedgerStore()
	s.seq = f.seq
	for k, v := range f.accounts {
		s.accounts[k] = v
	}
	for k, v := range f.balances {
		c := *v
		s.balances[k] = &c
	}
	for k, v := range f.ops {
		c := *v
		s.ops[k] = &c
	}
	s.records = append(s.records, f.records...)
	return s
}

func (f *fakeLedgerStore) restore(s *fakeLedgerStore) {
	f.accounts = s.accounts
	f.balances = s.balances
	f.ops = s.ops
	f.records = s.records
	f.seq = s.seq
}

// opRepoAdapter expone el fake como repository.OperationRepository (GetByID
// del puerto colisiona con el del AccountRepository en el mismo struct).
type opRepoAdapter struct{ *fakeLedgerStore }

func (a opRepoAdapter) GetByID(ctx context.Context, id string) (*entity.AccountOperation, error) {
	return a.GetOperation(ctx, id)
}

// fakeTxRunner simula la transacción: si fn falla restaura el estado previo.
type fakeTxRunner struct{ store *fakeLedgerStore }

func (r fakeTxRunner) Run(_ context.Context, fn func(repository.AccountRepository, repository.OperationRepository) error) error {
	snap := r.store.snapshot()
	if err := fn(r.store, opRepoAdapter{r.store}); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}
