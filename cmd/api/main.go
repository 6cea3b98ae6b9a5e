package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Bodegas-api/internal/application/catalog"
	"github.com/jhoicas/Bodegas-api/internal/application/history"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/application/usecase"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/catalogapi"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/eventbus"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/lock"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Bodegas-api/internal/interfaces/http"
	"github.com/jhoicas/Bodegas-api/pkg/config"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// stores adaptadores de persistencia elegidos por STORE_DRIVER.
type stores struct {
	warehouses repository.WarehouseRepository
	products   repository.ProductRepository
	histories  repository.HistoryRepository
	catalog    repository.CatalogRepository
	tx         inventory.TxRunner
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.StoreDriver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Trazas: sin exportador, solo para correlacionar trace_id/span_id en los logs y en Kafka.
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	m := metrics.New(prometheus.DefaultRegisterer)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.close()

	var locker inventory.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		locker = lock.NewRedisLocker(client, time.Duration(cfg.Redis.LockTTLMs)*time.Millisecond, log)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("lock distribuido por bodega en Redis")
	}

	bus := eventbus.New(log, m)

	catalogDeps := catalog.ServiceDeps{Repo: st.catalog, Logger: log}
	if cfg.Catalog.Enabled() {
		catalogDeps.Source = catalogapi.NewClient(cfg.Catalog.SourceURL, time.Duration(cfg.Catalog.TimeoutMs)*time.Millisecond)
	}
	catalogs := catalog.NewService(catalogDeps)
	if err := catalogs.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("siembra del catálogo pendiente")
	}

	engine := inventory.NewTransferUseCase(inventory.TransferDeps{
		TxRunner:   st.tx,
		Products:   st.products,
		Warehouses: st.warehouses,
		Catalog:    catalogs,
		Locker:     locker,
		Publisher:  bus,
		Metrics:    m,
		Logger:     log,
	})
	recorder := history.NewRecorder(history.RecorderDeps{
		Histories:  st.histories,
		Warehouses: st.warehouses,
		Engine:     engine,
		Metrics:    m,
		Logger:     log,

		BatchRetries:       cfg.App.ClosureRetries,
		BatchRetryInterval: time.Duration(cfg.App.ClosureRetryIntervalMs) * time.Millisecond,
	})
	if err := recorder.Subscribe(bus); err != nil {
		log.Fatal().Err(err).Msg("suscribir historial")
	}
	warehouseUC := usecase.NewWarehouseUseCase(usecase.WarehouseDeps{
		Repo:      st.warehouses,
		Engine:    engine,
		Oracle:    engine.Oracle(),
		Histories: recorder,
		Publisher: bus,
		Locker:    locker,
		Logger:    log,
	})

	var exporter *kafka.Exporter
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("productor Kafka")
		}
		exporter = kafka.NewExporter(producer, cfg.Kafka.Topic, log)
		if err := exporter.Subscribe(bus); err != nil {
			log.Fatal().Err(err).Msg("suscribir exportador Kafka")
		}
		log.Info().Str("topic", cfg.Kafka.Topic).Msg("exportando movimientos a Kafka")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Bodegas API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		WarehouseUC:    warehouseUC,
		Engine:         engine,
		Catalog:        catalogs,
		Histories:      recorder,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Primero el servidor (no entran más movimientos), luego el bus (se drenan los eventos pendientes).
		var errs []error
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := bus.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if exporter != nil {
			if err := exporter.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("apagado con errores")
	}
	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.App.StoreDriver == config.StoreDriverMemory {
		store := memory.NewStore()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &stores{
			warehouses: store.Warehouses(),
			products:   store.Products(),
			histories:  store.Histories(),
			catalog:    store.Catalog(),
			tx:         memory.NewTxRunner(store),
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	return &stores{
		warehouses: postgres.NewWarehouseRepository(pool),
		products:   postgres.NewProductRepository(pool),
		histories:  postgres.NewHistoryRepository(pool),
		catalog:    postgres.NewCatalogRepository(pool),
		tx:         postgres.NewTxRunner(pool),
		close:      pool.Close,
	}, nil
}
