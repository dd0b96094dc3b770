package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/money"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

// balancePrecision es la precisión fija de los buckets de saldo.
const balancePrecision = 2

// Service implementa el ledger: operaciones firmadas contra saldos por moneda
// con disciplina de lock de fila (toda fila de saldo que se vaya a mutar en la
// transacción se bloquea antes de mutar ninguna).
type Service struct {
	txRunner    TxRunner
	accountRepo repository.AccountRepository
	log         *logger.Logger
	now         func() time.Time
}

// NewService construye el servicio del ledger.
func NewService(txRunner TxRunner, accountRepo repository.AccountRepository, log *logger.Logger) *Service {
	return &Service{
		txRunner:    txRunner,
		accountRepo: accountRepo,
		log:         log.WithOrigin("ledger"),
		now:         time.Now,
	}
}

// OperationMeta son los metadatos de una operación del ledger.
type OperationMeta struct {
	Description  string
	MadeByID     string
	AccountTagID *string
	Blocked      bool
}

// PostOperation registra una operación firmada contra una cuenta. No verifica
// fondos: el saldo puede quedar negativo (las entradas manuales pueden
// representar financiamiento externo). Falla con ErrAccountBlocked,
// ErrCurrencyNotAllowed o ErrZeroAmount según corresponda.
func (s *Service) PostOperation(ctx context.Context, accountID string, amount money.Money, meta OperationMeta) (*entity.AccountOperation, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var op *entity.AccountOperation
	err = s.txRunner.Run(ctx, func(accountRepo repository.AccountRepository, opRepo repository.OperationRepository) error {
		op, err = s.postInTx(ctx, accountRepo, opRepo, account, amount, meta, nil)
		return err
	})
	if err != nil {
		s.logErr(err, account.BusinessID, meta.MadeByID)
		return nil, err
	}
	return op, nil
}

// postInTx valida y aplica una operación usando repos atados a la transacción
// del caller. parentID enlaza las dos patas de un transfer/exchange.
func (s *Service) postInTx(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	opRepo repository.OperationRepository,
	account *entity.Account,
	amount money.Money,
	meta OperationMeta,
	parentID *string,
) (*entity.AccountOperation, error) {
	if err := validateTarget(account, amount); err != nil {
		return nil, err
	}

	// Lock de la fila de saldo antes de mutar (busca-o-crea el bucket).
	balance, err := accountRepo.GetBalanceForUpdate(ctx, account.ID, amount.Currency)
	if err != nil {
		return nil, err
	}
	before := money.New(balance.Amount, amount.Currency)

	balance.Amount = balance.Amount.Add(amount.Amount).Truncate(balancePrecision)

	op := &entity.AccountOperation{
		ID:           uuid.New().String(),
		AccountID:    account.ID,
		Operation:    entity.OperationFor(amount.Amount),
		Amount:       amount,
		Description:  meta.Description,
		MadeByID:     meta.MadeByID,
		RegisteredAt: s.now(),
		Blocked:      meta.Blocked,
		AccountTagID: meta.AccountTagID,
		ParentID:     parentID,
	}
	if err := opRepo.Create(ctx, op); err != nil {
		return nil, err
	}
	if err := accountRepo.UpdateBalance(ctx, balance); err != nil {
		return nil, err
	}

	after := money.New(balance.Amount, amount.Currency)
	rec := &entity.AccountRecord{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Action:    entity.RecordOperationAdded,
		Title:     meta.Description,
		Details:   fmt.Sprintf("saldo anterior: %s | saldo posterior: %s", before, after),
		MadeByID:  meta.MadeByID,
		CreatedAt: s.now(),
	}
	if err := opRepo.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return op, nil
}

// Transfer mueve un monto entre dos cuentas como unidad atómica: credit en
// origen y debit en destino, enlazados. Verifica fondos del origen
// (ErrInsufficientFunds) y que el destino acepte la moneda. Los locks de ambas
// filas de saldo se toman antes de mutar ninguna, en orden determinista por
// (cuenta, moneda) para evitar deadlocks.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount money.Money, meta OperationMeta) (credit, debit *entity.AccountOperation, err error) {
	if amount.IsZero() {
		return nil, nil, domain.ErrZeroAmount
	}
	if amount.IsNegative() {
		return nil, nil, fmt.Errorf("%w: el monto a transferir debe ser positivo", domain.ErrValidation)
	}
	from, err := s.accountRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.accountRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, nil, err
	}

	err = s.txRunner.Run(ctx, func(accountRepo repository.AccountRepository, opRepo repository.OperationRepository) error {
		balances, lockErr := lockBalances(ctx, accountRepo,
			balanceKey{from.ID, amount.Currency},
			balanceKey{to.ID, amount.Currency},
		)
		if lockErr != nil {
			return lockErr
		}
		if balances[balanceKey{from.ID, amount.Currency}].Amount.LessThan(amount.Amount) {
			return domain.ErrInsufficientFunds
		}

		creditMeta := meta
		creditMeta.Description = fmt.Sprintf("Transferencia hacia %s: %s", to.Name, meta.Description)
		credit, err = s.postInTx(ctx, accountRepo, opRepo, from, amount.Neg(), creditMeta, nil)
		if err != nil {
			return err
		}
		debitMeta := meta
		debitMeta.Description = fmt.Sprintf("Transferencia desde %s: %s", from.Name, meta.Description)
		debit, err = s.postInTx(ctx, accountRepo, opRepo, to, amount, debitMeta, &credit.ID)
		return err
	})
	if err != nil {
		s.logErr(err, from.BusinessID, meta.MadeByID)
		return nil, nil, err
	}
	return credit, debit, nil
}

// Modos de cálculo del monto comprado en Exchange.
const (
	ExchangeModeSell = "sell" // compra = venta × tasa
	ExchangeModeBuy  = "buy"  // compra = venta ÷ tasa
)

// Exchange vende un monto en una moneda y acredita el equivalente en otra,
// en la misma cuenta o en una cuenta destino. Mismas validaciones de fondos y
// de aceptación de moneda que Transfer.
func (s *Service) Exchange(ctx context.Context, accountID string, sell money.Money, buyCurrency string, rate decimal.Decimal, mode string, destinationAccountID *string) (credit, debit *entity.AccountOperation, err error) {
	if sell.IsZero() {
		return nil, nil, domain.ErrZeroAmount
	}
	if sell.IsNegative() || !rate.IsPositive() {
		return nil, nil, fmt.Errorf("%w: monto y tasa de cambio deben ser positivos", domain.ErrValidation)
	}

	var buyAmount decimal.Decimal
	switch mode {
	case ExchangeModeSell:
		buyAmount = sell.Amount.Mul(rate).Truncate(balancePrecision)
	case ExchangeModeBuy:
		buyAmount = sell.Amount.Div(rate).Truncate(balancePrecision)
	default:
		return nil, nil, fmt.Errorf("%w: modo de cambio desconocido %q", domain.ErrValidation, mode)
	}
	buy := money.New(buyAmount, buyCurrency)

	source, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	destination := source
	if destinationAccountID != nil && *destinationAccountID != accountID {
		destination, err = s.accountRepo.GetByID(ctx, *destinationAccountID)
		if err != nil {
			return nil, nil, err
		}
	}

	err = s.txRunner.Run(ctx, func(accountRepo repository.AccountRepository, opRepo repository.OperationRepository) error {
		balances, lockErr := lockBalances(ctx, accountRepo,
			balanceKey{source.ID, sell.Currency},
			balanceKey{destination.ID, buy.Currency},
		)
		if lockErr != nil {
			return lockErr
		}
		if balances[balanceKey{source.ID, sell.Currency}].Amount.LessThan(sell.Amount) {
			return domain.ErrInsufficientFunds
		}

		creditMeta := OperationMeta{
			Description: fmt.Sprintf("Cambio de moneda %s -> %s (tasa %s)", sell.Currency, buyCurrency, rate),
			MadeByID:    entity.SystemActorID,
		}
		credit, err = s.postInTx(ctx, accountRepo, opRepo, source, sell.Neg(), creditMeta, nil)
		if err != nil {
			return err
		}
		debitMeta := creditMeta
		debit, err = s.postInTx(ctx, accountRepo, opRepo, destination, buy, debitMeta, &credit.ID)
		return err
	})
	if err != nil {
		s.logErr(err, source.BusinessID, entity.SystemActorID)
		return nil, nil, err
	}
	return credit, debit, nil
}

// DeleteOperation elimina una operación solo si fue registrada el mismo día y
// no está bloqueada (ErrUnmodifiable en caso contrario); revierte el delta de
// saldo bajo lock y deja registro de auditoría.
func (s *Service) DeleteOperation(ctx context.Context, operationID, actorID string) error {
	err := s.txRunner.Run(ctx, func(accountRepo repository.AccountRepository, opRepo repository.OperationRepository) error {
		op, err := opRepo.GetByID(ctx, operationID)
		if err != nil {
			return err
		}
		if op.Blocked || !sameDay(op.RegisteredAt, s.now()) {
			return domain.ErrUnmodifiable
		}

		balance, err := accountRepo.GetBalanceForUpdate(ctx, op.AccountID, op.Amount.Currency)
		if err != nil {
			return err
		}
		before := money.New(balance.Amount, op.Amount.Currency)
		balance.Amount = balance.Amount.Sub(op.Amount.Amount).Truncate(balancePrecision)

		if err := opRepo.Delete(ctx, op.ID); err != nil {
			return err
		}
		if err := accountRepo.UpdateBalance(ctx, balance); err != nil {
			return err
		}
		after := money.New(balance.Amount, op.Amount.Currency)
		return opRepo.CreateRecord(ctx, &entity.AccountRecord{
			ID:        uuid.New().String(),
			AccountID: op.AccountID,
			Action:    entity.RecordOperationDeleted,
			Title:     fmt.Sprintf("Operación %s eliminada", op.NoTransaction),
			Details:   fmt.Sprintf("saldo anterior: %s | saldo posterior: %s", before, after),
			MadeByID:  actorID,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		s.logErr(err, "", actorID)
	}
	return err
}

// PendingPosting es una operación acumulada para postear en lote dentro de la
// transacción de cierre del ciclo.
type PendingPosting struct {
	Amount money.Money
	Meta   OperationMeta
}

// PostBatchInTx postea varias operaciones contra una misma cuenta dentro de la
// transacción del caller, actualizando cada bucket (cuenta, moneda) exactamente
// una vez: un solo lock y un solo write de saldo por moneda, N inserciones en
// el log.
func (s *Service) PostBatchInTx(
	ctx context.Context,
	accountRepo repository.AccountRepository,
	opRepo repository.OperationRepository,
	account *entity.Account,
	postings []PendingPosting,
) ([]*entity.AccountOperation, error) {
	if account.IsBlocked {
		return nil, domain.ErrAccountBlocked
	}

	// Agrupar por moneda en orden determinista.
	byCurrency := map[string][]PendingPosting{}
	for _, p := range postings {
		if p.Amount.IsZero() {
			continue
		}
		if !account.AcceptsCurrency(p.Amount.Currency) {
			return nil, domain.ErrCurrencyNotAllowed
		}
		byCurrency[p.Amount.Currency] = append(byCurrency[p.Amount.Currency], p)
	}
	currencies := make([]string, 0, len(byCurrency))
	for c := range byCurrency {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	var ops []*entity.AccountOperation
	for _, currency := range currencies {
		balance, err := accountRepo.GetBalanceForUpdate(ctx, account.ID, currency)
		if err != nil {
			return nil, err
		}
		before := money.New(balance.Amount, currency)

		delta := decimal.Zero
		for _, p := range byCurrency[currency] {
			op := &entity.AccountOperation{
				ID:           uuid.New().String(),
				AccountID:    account.ID,
				Operation:    entity.OperationFor(p.Amount.Amount),
				Amount:       p.Amount,
				Description:  p.Meta.Description,
				MadeByID:     firstNonEmpty(p.Meta.MadeByID, entity.SystemActorID),
				RegisteredAt: s.now(),
				Blocked:      p.Meta.Blocked,
				AccountTagID: p.Meta.AccountTagID,
			}
			if err := opRepo.Create(ctx, op); err != nil {
				return nil, err
			}
			ops = append(ops, op)
			delta = delta.Add(p.Amount.Amount)
		}

		balance.Amount = balance.Amount.Add(delta).Truncate(balancePrecision)
		if err := accountRepo.UpdateBalance(ctx, balance); err != nil {
			return nil, err
		}
		after := money.New(balance.Amount, currency)
		rec := &entity.AccountRecord{
			ID:        uuid.New().String(),
			AccountID: account.ID,
			Action:    entity.RecordOperationAdded,
			Title:     fmt.Sprintf("Cierre de ciclo: %d operaciones en %s", len(byCurrency[currency]), currency),
			Details:   fmt.Sprintf("saldo anterior: %s | saldo posterior: %s", before, after),
			MadeByID:  entity.SystemActorID,
			CreatedAt: s.now(),
		}
		if err := opRepo.CreateRecord(ctx, rec); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func validateTarget(account *entity.Account, amount money.Money) error {
	if account.IsBlocked {
		return domain.ErrAccountBlocked
	}
	if !account.AcceptsCurrency(amount.Currency) {
		return domain.ErrCurrencyNotAllowed
	}
	if amount.IsZero() {
		return domain.ErrZeroAmount
	}
	return nil
}

// balanceKey identifica un bucket de saldo a bloquear.
type balanceKey struct {
	accountID string
	currency  string
}

// lockBalances toma el lock de todas las filas de saldo que la transacción va
// a tocar, en orden determinista por (cuenta, moneda).
func lockBalances(ctx context.Context, accountRepo repository.AccountRepository, keys ...balanceKey) (map[balanceKey]*entity.AccountBalance, error) {
	ordered := make([]balanceKey, 0, len(keys))
	seen := map[balanceKey]bool{}
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			ordered = append(ordered, k)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].accountID != ordered[j].accountID {
			return ordered[i].accountID < ordered[j].accountID
		}
		return ordered[i].currency < ordered[j].currency
	})

	out := make(map[balanceKey]*entity.AccountBalance, len(ordered))
	for _, k := range ordered {
		b, err := accountRepo.GetBalanceForUpdate(ctx, k.accountID, k.currency)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *Service) logErr(err error, businessID, userID string) {
	s.log.Error().Err(err).Str("business_id", businessID).Str("user_id", userID).Msg("operación de ledger fallida")
}
