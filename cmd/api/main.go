package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/application/usecase"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/inventory-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// stores puertos de persistencia según STORE_DRIVER.
type stores struct {
	txRunner   inventory.TxRunner
	balances   repository.BalanceRepository
	movements  repository.MovementRepository
	transfers  repository.TransferRequestRepository
	counts     repository.CountSessionRepository
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	counter    repository.ReferenceCounter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	appLog := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	appLog.Info().
		Str("env", cfg.App.Env).
		Str("store", cfg.App.StoreDriver).
		Str("reference_mode", cfg.Inventory.ReferenceMode).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		appLog.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()
	var st stores
	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore(cfg.Inventory.TxMaxRetries, appLog.Component("memory"))
		dir := store.Directory()
		st = stores{
			txRunner:   store,
			balances:   store.Balances(),
			movements:  store.Movements(),
			transfers:  store.Transfers(),
			counts:     store.Counts(),
			warehouses: dir,
			items:      dir.Items(),
			counter:    dir,
		}
		appLog.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			appLog.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		st = stores{
			txRunner:   postgres.NewTxRunner(pool, cfg.Inventory.TxMaxRetries, appLog.Component("tx")),
			balances:   postgres.NewBalanceRepository(pool),
			movements:  postgres.NewMovementRepository(pool),
			transfers:  postgres.NewTransferRequestRepository(pool),
			counts:     postgres.NewCountSessionRepository(pool),
			warehouses: postgres.NewWarehouseRepository(pool),
			items:      postgres.NewItemRepository(pool),
			counter:    postgres.NewReferenceCounter(pool),
		}
	}

	var refs inventory.ReferenceAllocator
	if cfg.Inventory.ReferenceMode == config.ReferenceModeScan {
		refs = inventory.NewScanAllocator(st.movements, cfg.Inventory.ScanWindow)
	} else {
		refs = inventory.NewSequenceAllocator(st.counter)
	}

	engineLog := appLog.Component("inventory")
	poster := inventory.NewMovementPoster(st.txRunner, st.warehouses, st.items, refs, engineLog, cfg.Inventory.ExemptWarehouses...)
	poster.AddListener(inventory.NewLogListener(engineLog))

	// Publicación de saldos para caches reactivas; opcional.
	if cfg.Redis.URL != "" {
		client, err := infraredis.NewClient(ctx, cfg.Redis.URL, appLog.Component("redis"))
		if err != nil {
			appLog.Warn().Err(err).Msg("Redis no disponible, se continúa sin publicar saldos")
		} else {
			defer client.Close()
			poster.AddListener(infraredis.NewBalancePublisher(client, cfg.Redis.Channel, appLog.Component("redis")))
		}
	}

	transferWorkflow := inventory.NewTransferWorkflow(st.txRunner, poster, st.transfers, st.warehouses, st.items, refs, engineLog)
	countReconciliation := inventory.NewCountReconciliation(st.txRunner, poster, st.counts, st.balances, st.warehouses, st.items, refs, engineLog)
	queries := inventory.NewQueryService(st.balances, st.movements)
	warehouseUC := usecase.NewWarehouseUseCase(st.warehouses, poster)
	itemUC := usecase.NewItemUseCase(st.items)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventory Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.App.StoreDriver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Poster:      poster,
		Queries:     queries,
		Transfers:   transferWorkflow,
		Counts:      countReconciliation,
		WarehouseUC: warehouseUC,
		ItemUC:      itemUC,
		JWTSecret:   cfg.JWT.Secret,
		Log:         appLog.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			appLog.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLog.Error().Err(err).Msg("apagado del servidor")
	}

	appLog.Info().Msg("aplicación detenida")
}
