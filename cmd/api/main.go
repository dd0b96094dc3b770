package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redis "github.com/redis/go-redis/v9"

	"github.com/tu-usuario/pos-pro/internal/application/cycle"
	"github.com/tu-usuario/pos-pro/internal/application/ledger"
	"github.com/tu-usuario/pos-pro/internal/application/settlement"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/notify"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/postgres"
	"github.com/tu-usuario/pos-pro/internal/infrastructure/queue"
	httpRouter "github.com/tu-usuario/pos-pro/internal/interfaces/http"
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
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()

	if err := postgres.RunMigrations(cfg.DB.ConnectionString(), log); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

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

	// Repositorios sobre el pool (las transacciones arman los suyos).
	accountRepo := postgres.NewAccountRepository(pool)
	opRepo := postgres.NewOperationRepository(pool)
	dailyRepo := postgres.NewDailyBalanceRepository(pool)
	cycleRepo := postgres.NewCycleRepository(pool)
	areaRepo := postgres.NewAreaRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	cashRepo := postgres.NewCashRegisterRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	configRepo := postgres.NewConfigRepository(pool)
	currencyRepo := postgres.NewCurrencyRepository(pool)
	priceRepo := postgres.NewPriceSystemRepository(pool)

	ledgerSvc := ledger.NewService(postgres.NewLedgerTxRunner(pool), accountRepo, log)
	settlementSvc := settlement.NewService(
		settlement.SourceRepos{Orders: orderRepo, Cash: cashRepo, Products: productRepo},
		storeRepo, configRepo, currencyRepo, areaRepo, log, cfg.Engine.DefaultPrecision,
	)

	jobQueue := queue.NewRedisQueue(redisClient, log, queue.Options{
		MaxAttempts: cfg.Engine.QueueAttempts,
		Concurrency: cfg.Engine.WorkerConcurrency,
	})
	notifier := notify.NewRedisNotifier(redisClient, log)

	cycleSvc := cycle.NewService(
		postgres.NewCycleTxRunner(pool), ledgerSvc,
		configRepo, currencyRepo, priceRepo,
		notifier, jobQueue, log, cfg.Engine.DefaultPrecision,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Cycle:      httpRouter.NewCycleHandler(cycleSvc, cycleRepo),
		Settlement: httpRouter.NewSettlementHandler(settlementSvc, cycleRepo, areaRepo),
		Ledger:     httpRouter.NewLedgerHandler(ledgerSvc, accountRepo, opRepo, dailyRepo),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
