package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flyttbas_backend/internal/adapters"
	"flyttbas_backend/internal/commission"
	"flyttbas_backend/internal/email"
	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/notification"
	"flyttbas_backend/internal/notification/outbox"
	"flyttbas_backend/internal/offers"
	"flyttbas_backend/internal/partners"
	"flyttbas_backend/internal/quotes"
	"flyttbas_backend/internal/scheduler"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsAddrEnv = "SCHEDULER_METRICS_ADDR"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	registry := prometheus.NewRegistry()
	transitions := metrics.NewTransitionMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)
	serveMetrics(ctx, registry, log)

	eventBus := events.NewInMemoryBus(log)
	txManager := db.NewTxManager(pool)
	val := validator.New()

	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(outboxRepo, email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// Worker-side lifecycle wiring for the expiry sweep (no HTTP handlers required).
	quotesModule := quotes.NewModule(pool, txManager, eventBus, cfg, transitions, val, log)
	commissionModule, err := commission.NewModule(pool, txManager, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize commission module", "error", err)
		panic("failed to initialize commission module: " + err.Error())
	}
	quoteReader := adapters.NewQuoteReader(quotesModule.Service())
	partnersModule := partners.NewModule(pool, quoteReader.PartnerView(), nil, commissionModule.Service(), eventBus, cfg, val, log)
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

	sweeper := scheduler.NewExpirySweeper(quotesModule.Service(), offersModule.Service(), cfg.GetExpirySweepBatchSize(), jobMetrics, log)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	cron, err := scheduler.NewCron(cfg, client, log)
	if err != nil {
		log.Error("failed to initialize cron", "error", err)
		panic("failed to initialize cron: " + err.Error())
	}
	go cron.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, sweeper, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

// serveMetrics exposes /metrics when SCHEDULER_METRICS_ADDR is set.
func serveMetrics(ctx context.Context, reg *prometheus.Registry, log *logger.Logger) {
	addr := os.Getenv(metricsAddrEnv)
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
