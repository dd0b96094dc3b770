// Package cycle orquesta la máquina de estados del ciclo económico: apertura
// (foto de inventario por área), cierre (conciliación + arqueo + posteo al
// ledger + congelamiento de tasas) y los trabajos diferidos posteriores.
package cycle

import (
	"time"

	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain/entity"
	"github.com/tu-usuario/pos-pro/internal/domain/repository"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

// Service es el orquestador del ciclo económico.
type Service struct {
	tx           TxRunner
	ledger       *ledger.Service
	configRepo   repository.ConfigRepository
	currencyRepo repository.CurrencyRepository
	priceRepo    repository.PriceSystemRepository
	notifier     Notifier
	queue        Enqueuer
	log          *logger.Logger
	now          func() time.Time

	defaultPrecision int
}

// NewService construye el orquestador.
func NewService(
	tx TxRunner,
	ledgerSvc *ledger.Service,
	configRepo repository.ConfigRepository,
	currencyRepo repository.CurrencyRepository,
	priceRepo repository.PriceSystemRepository,
	notifier Notifier,
	queue Enqueuer,
	log *logger.Logger,
	defaultPrecision int,
) *Service {
	return &Service{
		tx:               tx,
		ledger:           ledgerSvc,
		configRepo:       configRepo,
		currencyRepo:     currencyRepo,
		priceRepo:        priceRepo,
		notifier:         notifier,
		queue:            queue,
		log:              log.WithOrigin("cycle"),
		now:              time.Now,
		defaultPrecision: defaultPrecision,
	}
}

// actor devuelve el identificador a estampar en auditoría: el usuario que
// disparó la acción o el centinela de sistema en cierres programados.
func actor(userID string) string {
	if userID == "" {
		return entity.SystemActorID
	}
	return userID
}

// frozenRates congela la tabla de tasas vigente para el meta del ciclo.
func frozenRates(currencies []entity.Currency) []entity.FrozenRate {
	rates := make([]entity.FrozenRate, 0, len(currencies))
	for _, c := range currencies {
		rates = append(rates, entity.FrozenRate{
			Code:         c.Code,
			IsMain:       c.IsMain,
			ExchangeRate: c.ExchangeRate,
		})
	}
	return rates
}
