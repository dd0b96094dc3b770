// El worker consume la cola de trabajos diferidos: cierres programados,
// post-cierre y rollups diarios. Corre como proceso aparte del API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"

	"github.com/tu-usuario/pos-pro/internal/application/cycle"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/domain/job"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/notify"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/postgres"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/queue"
	"github.com/tu-usuario/pos-pro/pkg/config"
	"github.com/tu-usuario/pos-pro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().Str("env", cfg.App.Env).Msg("iniciando worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	opRepo := postgres.NewOperationRepository(pool)
	dailyRepo := postgres.NewDailyBalanceRepository(pool)
	configRepo := postgres.NewConfigRepository(pool)
	currencyRepo := postgres.NewCurrencyRepository(pool)
	priceRepo := postgres.NewPriceSystemRepository(pool)

	jobQueue := queue.NewRedisQueue(redisClient, log, queue.Options{
		MaxAttempts: cfg.Engine.QueueAttempts,
		Concurrency: cfg.Engine.WorkerConcurrency,
	})

	ledgerSvc := ledger.NewService(postgres.NewLedgerTxRunner(pool), accountRepo, log)
	cycleSvc := cycle.NewService(
		postgres.NewCycleTxRunner(pool), ledgerSvc,
		configRepo, currencyRepo, priceRepo,
		notify.NewRedisNotifier(redisClient, log), jobQueue,
		log, cfg.Engine.DefaultPrecision,
	)
	dailySvc := ledger.NewDailyBalanceService(opRepo, dailyRepo, log)

	jobQueue.Register(job.CodeCloseCycle, func(ctx context.Context, j job.Job) error {
		var p job.CycleParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return fmt.Errorf("params de %s: %w", j.Code, err)
		}
		_, _, err := cycleSvc.Close(ctx, p.BusinessID, p.UserID, p.IsManual)
		return err
	})

	jobQueue.Register(job.CodeOpenCloseCycle, func(ctx context.Context, j job.Job) error {
		var p job.CycleParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return fmt.Errorf("params de %s: %w", j.Code, err)
		}
		return cycleSvc.Rollover(ctx, p.BusinessID)
	})

	jobQueue.Register(job.CodeAfterClose, func(ctx context.Context, j job.Job) error {
		var p job.AfterCloseParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return fmt.Errorf("params de %s: %w", j.Code, err)
		}
		return cycleSvc.AfterClose(ctx, p)
	})

	jobQueue.Register(job.CodeDailyBalance, func(ctx context.Context, j job.Job) error {
		var p job.DailyBalanceParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return fmt.Errorf("params de %s: %w", j.Code, err)
		}
		return dailySvc.SummarizeDay(ctx, p.AccountID, p.Date)
	})

	log.Info().Int("concurrency", cfg.Engine.WorkerConcurrency).Msg("worker escuchando la cola")
	if err := jobQueue.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("worker finalizado con error")
	}
	log.Info().Msg("worker detenido")
}
