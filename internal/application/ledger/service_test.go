package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

func newService(store *fakeLedgerStore) *ledger.Service {
	return ledger.NewService(fakeTxRunner{store}, store, logger.Nop())
}

func account(id string, definedCurrency string) *entity.Account {
	return &entity.Account{ID: id, BusinessID: "biz-1", Name: "Cuenta " + id, DefinedCurrency: definedCurrency}
}

func TestPostOperation_DebitaYAcredita(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	store.setBalance("acc-1", 100, "USD")
	svc := newService(store)

	// credit de 30: el monto ya viene firmado, saldo += monto.
	op, err := svc.PostOperation(context.Background(), "acc-1", money.FromFloat(-30, "USD"), ledger.OperationMeta{
		Description: "extracción manual", MadeByID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OperationCredit, op.Operation)
	assert.Equal(t, "T-1", op.NoTransaction, "el id visible se asigna post-insert")
	assert.True(t, store.balance("acc-1", "USD").Equal(decimal.NewFromInt(70)), "got %s", store.balance("acc-1", "USD"))

	require.Len(t, store.records, 1)
	assert.Contains(t, store.records[0].Details, "saldo anterior: 100 USD")
	assert.Contains(t, store.records[0].Details, "saldo posterior: 70 USD")
}

// postOperation NO verifica fondos: el saldo puede quedar negativo. La
// asimetría con Transfer/Exchange es una decisión de diseño explícita.
func TestPostOperation_PermiteSaldoNegativo(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	svc := newService(store)

	_, err := svc.PostOperation(context.Background(), "acc-1", money.FromFloat(-1, "USD"), ledger.OperationMeta{MadeByID: "user-1"})
	require.NoError(t, err, "postOperation permite ir a negativo (financiamiento externo)")
	assert.True(t, store.balance("acc-1", "USD").Equal(decimal.NewFromInt(-1)))
}

func TestPostOperation_Guards(t *testing.T) {
	store := newFakeLedgerStore()
	blocked := account("bloqueada", "")
	blocked.IsBlocked = true
	store.addAccount(blocked)
	store.addAccount(account("solo-usd", "USD"))
	store.addAccount(account("acc-1", ""))
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.PostOperation(ctx, "bloqueada", money.FromFloat(5, "USD"), ledger.OperationMeta{})
	assert.ErrorIs(t, err, domain.ErrAccountBlocked)

	_, err = svc.PostOperation(ctx, "solo-usd", money.FromFloat(5, "CUP"), ledger.OperationMeta{})
	assert.ErrorIs(t, err, domain.ErrCurrencyNotAllowed)

	_, err = svc.PostOperation(ctx, "acc-1", money.Zero("USD"), ledger.OperationMeta{})
	assert.ErrorIs(t, err, domain.ErrZeroAmount)
	assert.ErrorIs(t, err, domain.ErrValidation, "el kind debe sobrevivir el wrapping")
}

func TestTransfer_MueveAmbosSaldos(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("origen", ""))
	store.addAccount(account("destino", "USD"))
	store.setBalance("origen", 70, "USD")
	svc := newService(store)

	credit, debit, err := svc.Transfer(context.Background(), "origen", "destino", money.FromFloat(70, "USD"), ledger.OperationMeta{MadeByID: "user-1"})
	require.NoError(t, err)

	assert.True(t, store.balance("origen", "USD").IsZero())
	assert.True(t, store.balance("destino", "USD").Equal(decimal.NewFromInt(70)))
	assert.Equal(t, entity.OperationCredit, credit.Operation)
	assert.Equal(t, entity.OperationDebit, debit.Operation)
	require.NotNil(t, debit.ParentID, "las dos patas quedan enlazadas")
	assert.Equal(t, credit.ID, *debit.ParentID)
}

func TestTransfer_FondosInsuficientes(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("origen", ""))
	store.addAccount(account("destino", ""))
	store.setBalance("origen", 10, "USD")
	svc := newService(store)

	_, _, err := svc.Transfer(context.Background(), "origen", "destino", money.FromFloat(50, "USD"), ledger.OperationMeta{})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Atomicidad: nada se aplicó a medias.
	assert.True(t, store.balance("origen", "USD").Equal(decimal.NewFromInt(10)))
	assert.True(t, store.balance("destino", "USD").IsZero())
	assert.Empty(t, store.records)
}

func TestTransfer_MonedaNoAceptadaPorDestinoRevierteTodo(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("origen", ""))
	store.addAccount(account("destino", "CUP"))
	store.setBalance("origen", 100, "USD")
	svc := newService(store)

	_, _, err := svc.Transfer(context.Background(), "origen", "destino", money.FromFloat(40, "USD"), ledger.OperationMeta{})
	require.ErrorIs(t, err, domain.ErrCurrencyNotAllowed)

	// El credit del origen también debe revertirse: nunca medio-aplicado.
	assert.True(t, store.balance("origen", "USD").Equal(decimal.NewFromInt(100)),
		"rollback completo: got %s", store.balance("origen", "USD"))
	assert.Empty(t, store.ops)
}

func TestExchange_MismaCuenta(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	store.setBalance("acc-1", 250, "CUP")
	svc := newService(store)

	credit, debit, err := svc.Exchange(context.Background(), "acc-1",
		money.FromFloat(250, "CUP"), "USD", decimal.NewFromFloat(0.004), ledger.ExchangeModeSell, nil)
	require.NoError(t, err)

	assert.True(t, store.balance("acc-1", "CUP").IsZero())
	assert.True(t, store.balance("acc-1", "USD").Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "CUP", credit.Amount.Currency)
	assert.Equal(t, "USD", debit.Amount.Currency)
}

func TestExchange_ModoBuyDivide(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	store.addAccount(account("acc-2", ""))
	store.setBalance("acc-1", 100, "USD")
	svc := newService(store)

	dest := "acc-2"
	_, debit, err := svc.Exchange(context.Background(), "acc-1",
		money.FromFloat(100, "USD"), "EUR", decimal.NewFromFloat(1.25), ledger.ExchangeModeBuy, &dest)
	require.NoError(t, err)

	// 100 / 1.25 = 80, acreditado en la cuenta destino.
	assert.True(t, store.balance("acc-2", "EUR").Equal(decimal.NewFromInt(80)), "got %s", store.balance("acc-2", "EUR"))
	assert.Equal(t, "acc-2", debit.AccountID)
}

func TestExchange_SinFondosFalla(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	svc := newService(store)

	_, _, err := svc.Exchange(context.Background(), "acc-1",
		money.FromFloat(10, "USD"), "EUR", decimal.NewFromInt(1), ledger.ExchangeModeSell, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

// Conservación: la suma de los montos del log por (cuenta, moneda) siempre
// iguala el saldo vigente de ese bucket.
func TestConservacionDeSaldos(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("a", ""))
	store.addAccount(account("b", ""))
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.PostOperation(ctx, "a", money.FromFloat(100, "USD"), ledger.OperationMeta{})
	require.NoError(t, err)
	_, err = svc.PostOperation(ctx, "a", money.FromFloat(-12.5, "USD"), ledger.OperationMeta{})
	require.NoError(t, err)
	_, _, err = svc.Transfer(ctx, "a", "b", money.FromFloat(30, "USD"), ledger.OperationMeta{})
	require.NoError(t, err)

	for _, accID := range []string{"a", "b"} {
		sum, err := store.SumByAccountAndCurrency(ctx, accID, "USD")
		require.NoError(t, err)
		assert.True(t, sum.Equal(store.balance(accID, "USD")),
			"cuenta %s: suma del log %s != saldo %s", accID, sum, store.balance(accID, "USD"))
	}
}

func TestDeleteOperation_SoloMismoDiaYNoBloqueada(t *testing.T) {
	store := newFakeLedgerStore()
	store.addAccount(account("acc-1", ""))
	svc := newService(store)
	ctx := context.Background()

	op, err := svc.PostOperation(ctx, "acc-1", money.FromFloat(50, "USD"), ledger.OperationMeta{MadeByID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOperation(ctx, op.ID, "user-1"))
	assert.True(t, store.balance("acc-1", "USD").IsZero(), "el borrado revierte el delta")

	blocked, err := svc.PostOperation(ctx, "acc-1", money.FromFloat(5, "USD"), ledger.OperationMeta{Blocked: true})
	require.NoError(t, err)
	err = svc.DeleteOperation(ctx, blocked.ID, "user-1")
	assert.ErrorIs(t, err, domain.ErrUnmodifiable)
}

func TestPostBatchInTx_UnSoloUpdateDeSaldoPorMoneda(t *testing.T) {
	store := newFakeLedgerStore()
	acc := account("acc-1", "")
	store.addAccount(acc)
	store.setBalance("acc-1", 10, "USD")
	svc := newService(store)

	var ops []*entity.AccountOperation
	err := fakeTxRunner{store}.Run(context.Background(), func(accountRepo repository.AccountRepository, opRepo repository.OperationRepository) error {
		var err error
		ops, err = svc.PostBatchInTx(context.Background(), accountRepo, opRepo, acc, []ledger.PendingPosting{
			{Amount: money.FromFloat(20, "USD"), Meta: ledger.OperationMeta{Description: "efectivo CASH"}},
			{Amount: money.FromFloat(5, "USD"), Meta: ledger.OperationMeta{Description: "efectivo CARD"}},
			{Amount: money.FromFloat(-8, "USD"), Meta: ledger.OperationMeta{Description: "salario"}},
			{Amount: money.FromFloat(100, "CUP"), Meta: ledger.OperationMeta{Description: "efectivo CASH"}},
			{Amount: money.Zero("EUR"), Meta: ledger.OperationMeta{Description: "ignorada"}},
		})
		return err
	})
	require.NoError(t, err)

	assert.Len(t, ops, 4, "los montos cero se omiten")
	assert.True(t, store.balance("acc-1", "USD").Equal(decimal.NewFromInt(27)), "10+20+5-8: got %s", store.balance("acc-1", "USD"))
	assert.True(t, store.balance("acc-1", "CUP").Equal(decimal.NewFromInt(100)))
	// Un solo AccountRecord por moneda tocada: el saldo se escribió una vez por bucket.
	assert.Len(t, store.records, 2)
}
