// Package queue implementa la cola de trabajos diferidos sobre listas de
// Redis: LPUSH para encolar y BLMOVE hacia una lista de procesamiento, de modo
// que un worker caído no pierda el job que tenía en mano.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/tu-usuario/pos-pro/internal/domain"
	"github.com/tu-usuario/pos-pro/internal/domain/job"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

const (
	pendingKey    = "jobs:pending"
	processingKey = "jobs:processing"

	popTimeout = 5 * time.Second
)

// Handler procesa un job ya deserializado.
type Handler func(ctx context.Context, j job.Job) error

// RedisQueue encola y despacha trabajos. Implementa cycle.Enqueuer.
type RedisQueue struct {
	client      *redis.Client
	log         *logger.Logger
	maxAttempts int
	concurrency int

	mu       sync.RWMutex
	handlers map[string]Handler
}

// Options parámetros de la cola.
type Options struct {
	MaxAttempts int // presupuesto de reintentos por job
	Concurrency int // goroutines consumidoras del worker
}

// NewRedisQueue construye la cola sobre un cliente Redis ya configurado.
func NewRedisQueue(client *redis.Client, log *logger.Logger, opts Options) *RedisQueue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &RedisQueue{
		client:      client,
		log:         log.WithOrigin("queue"),
		maxAttempts: opts.MaxAttempts,
		concurrency: opts.Concurrency,
		handlers:    make(map[string]Handler),
	}
}

// Register asocia un handler a un código de job. Los códigos sin handler se
// descartan con un warning (códigos reservados, versiones viejas).
func (q *RedisQueue) Register(code string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[code] = h
}

// Enqueue serializa los params y empuja el job a la lista de pendientes.
func (q *RedisQueue) Enqueue(ctx context.Context, code string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal job params: %w", err)
	}
	j := job.Job{ID: uuid.New().String(), Code: code, Params: raw}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, pendingKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", code, err)
	}
	q.log.Debug().Str("job_id", j.ID).Str("code", code).Msg("job encolado")
	return nil
}

// Run consume la cola hasta que ctx se cancele. Lanza Concurrency consumidores;
// cada uno procesa un job a la vez.
func (q *RedisQueue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			q.consume(ctx, slot)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (q *RedisQueue) consume(ctx context.Context, slot int) {
	log := q.log.With().Int("slot", slot).Logger()
	for {
		if ctx.Err() != nil {
			return
		}
		payload, err := q.client.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", popTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("error leyendo la cola")
			time.Sleep(time.Second)
			continue
		}
		q.process(ctx, payload)
	}
}

// process despacha el job y lo saca de la lista de procesamiento. Los errores
// reintentables vuelven a pendientes hasta agotar el presupuesto.
func (q *RedisQueue) process(ctx context.Context, payload string) {
	defer q.ack(ctx, payload)

	var j job.Job
	if err := json.Unmarshal([]byte(payload), &j); err != nil {
		q.log.Error().Err(err).Msg("job ilegible, se descarta")
		return
	}
	log := q.log.With().Str("job_id", j.ID).Str("code", j.Code).Int("attempt", j.Attempts+1).Logger()

	q.mu.RLock()
	h, ok := q.handlers[j.Code]
	q.mu.RUnlock()
	if !ok {
		log.Warn().Msg("sin handler para el código, se descarta")
		return
	}

	err := h(ctx, j)
	if err == nil {
		log.Info().Msg("job completado")
		return
	}
	if domain.IsRetryable(err) && j.Attempts+1 < q.maxAttempts {
		log.Warn().Err(err).Msg("error transitorio, se reintenta")
		q.requeue(ctx, j)
		return
	}
	log.Error().Err(err).Msg("job fallido")
}

func (q *RedisQueue) requeue(ctx context.Context, j job.Job) {
	j.Attempts++
	payload, err := json.Marshal(j)
	if err != nil {
		q.log.Error().Err(err).Str("job_id", j.ID).Msg("no se pudo reserializar el job")
		return
	}
	if err := q.client.LPush(ctx, pendingKey, payload).Err(); err != nil {
		q.log.Error().Err(err).Str("job_id", j.ID).Msg("no se pudo reencolar el job")
	}
}

func (q *RedisQueue) ack(ctx context.Context, payload string) {
	if err := q.client.LRem(ctx, processingKey, 1, payload).Err(); err != nil {
		q.log.Error().Err(err).Msg("no se pudo confirmar el job procesado")
	}
}
