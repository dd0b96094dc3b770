// Package notify publica los eventos del ciclo económico por Redis pub/sub
// para que otros procesos (frontends, integraciones) reaccionen al instante.
package notify

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/tu-usuario/pos-pro/pkg/logger"
)

const channelPrefix = "pos:events:"

// channelFor devuelve el canal de un negocio: cada negocio tiene su propio
// tópico, el consumidor se suscribe sin filtrar por payload.
func channelFor(businessID string) string {
	return channelPrefix + businessID
}

// Acciones publicadas en el canal.
const (
	ActionOpened = "open"
	ActionClosed = "close"
)

// Event es el mensaje publicado por cada transición del ciclo.
type Event struct {
	Action          string    `json:"action"`
	BusinessID      string    `json:"businessId"`
	EconomicCycleID string    `json:"economicCycleId"`
	At              time.Time `json:"at"`
}

// RedisNotifier implementa cycle.Notifier sobre pub/sub. Las fallas se loggean
// y se tragan: una notificación perdida nunca revierte un ciclo.
type RedisNotifier struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisNotifier construye el notificador sobre un cliente ya configurado.
func NewRedisNotifier(client *redis.Client, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, log: log.WithOrigin("notify")}
}

// CycleOpened publica la apertura de un ciclo.
func (n *RedisNotifier) CycleOpened(ctx context.Context, businessID, cycleID string) {
	n.publish(ctx, Event{Action: ActionOpened, BusinessID: businessID, EconomicCycleID: cycleID, At: time.Now().UTC()})
}

// CycleClosed publica el cierre de un ciclo.
func (n *RedisNotifier) CycleClosed(ctx context.Context, businessID, cycleID string) {
	n.publish(ctx, Event{Action: ActionClosed, BusinessID: businessID, EconomicCycleID: cycleID, At: time.Now().UTC()})
}

func (n *RedisNotifier) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Msg("no se pudo serializar el evento")
		return
	}
	if err := n.client.Publish(ctx, channelFor(ev.BusinessID), payload).Err(); err != nil {
		n.log.Error().Err(err).
			Str("action", ev.Action).
			Str("business_id", ev.BusinessID).
			Msg("no se pudo publicar el evento")
	}
}

// Noop es un Notifier que no hace nada (tests, despliegues sin Redis).
type Noop struct{}

func (Noop) CycleOpened(context.Context, string, string) {}
func (Noop) CycleClosed(context.Context, string, string) {}
