package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flyttbas_backend/internal/adapters"
	"flyttbas_backend/internal/commission"
	"flyttbas_backend/internal/email"
	"flyttbas_backend/internal/events"
	apphttp "flyttbas_backend/internal/http"
	"flyttbas_backend/internal/http/router"
	"flyttbas_backend/internal/maps"
	"flyttbas_backend/internal/notification"
	"flyttbas_backend/internal/notification/outbox"
	"flyttbas_backend/internal/offers"
	"flyttbas_backend/internal/partners"
	"flyttbas_backend/internal/quotes"
	"flyttbas_backend/internal/scheduler"
	"flyttbas_backend/migrations"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/storage"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetMigrationsEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	transitions := metrics.NewTransitionMetrics(registry)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	txManager := db.NewTxManager(pool)

	// Shared validator instance for dependency injection
	val := validator.New()

	cache, closeCache := initDistanceCache(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module only queues here; the scheduler delivers.
	notificationModule := notification.New(outbox.New(pool), email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	quotesModule := quotes.NewModule(pool, txManager, eventBus, cfg, transitions, val, log)
	mapsModule := maps.NewModule(cfg, cache, val, log)

	commissionModule, err := commission.NewModule(pool, txManager, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize commission module", "error", err)
		panic("failed to initialize commission module: " + err.Error())
	}

	quoteReader := adapters.NewQuoteReader(quotesModule.Service())
	partnersModule := partners.NewModule(
		pool,
		quoteReader.PartnerView(),
		adapters.NewMoveDistance(mapsModule.Service()),
		commissionModule.Service(),
		eventBus,
		cfg,
		val,
		log,
	)
	commissionModule.Service().SetOverrideReader(partnersModule.Service())

	offersModule, err := offers.NewModule(pool, txManager, offers.Collaborators{
		Quotes:   quoteReader,
		Partners: adapters.NewOfferPartners(partnersModule.Service(), quoteReader.PartnerView()),
		Ledger:   adapters.NewCommissionLedger(commissionModule.Service()),
	}, eventBus, cfg, transitions, val, log)
	if err != nil {
		log.Error("failed to initialize offers module", "error", err)
		panic("failed to initialize offers module: " + err.Error())
	}

	// Break the partners -> offers cycle after both exist.
	partnersModule.Service().SetOfferIndex(offersModule.Repository())

	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		bucket := cfg.GetMinioBucketPartnerDocuments()
		if err := withRetry(ctx, log, "ensure partner documents bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		partnersModule.Service().SetDocumentStore(storageSvc, bucket)
		log.Info("storage service initialized", "partnerDocumentsBucket", bucket)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; partner document uploads disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		Metrics:  registry,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			quotesModule,
			offersModule,
			partnersModule,
			commissionModule,
			mapsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDistanceCache returns a nil cache when Redis is not configured.
func initDistanceCache(cfg config.SchedulerConfig, log *logger.Logger) (redis.Cmdable, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; distance cache disabled")
		return nil, nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize distance cache", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
