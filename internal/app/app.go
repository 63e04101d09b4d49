package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/lucashmcosta/estoque/internal/domain"
	healthcheck "github.com/lucashmcosta/estoque/internal/health"
	"github.com/lucashmcosta/estoque/internal/messaging/kafka"
	"github.com/lucashmcosta/estoque/internal/metrics"
	"github.com/lucashmcosta/estoque/internal/service/checkout"
	"github.com/lucashmcosta/estoque/internal/service/idempotency"
	"github.com/lucashmcosta/estoque/internal/service/rest"
	syncsvc "github.com/lucashmcosta/estoque/internal/service/sync"
	"github.com/lucashmcosta/estoque/internal/storage/memory"
	"github.com/lucashmcosta/estoque/internal/storage/postgres"
	redisstore "github.com/lucashmcosta/estoque/internal/storage/redis"
	"github.com/lucashmcosta/estoque/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Config описывает настройки запуска сервиса. Postgres, Kafka и Redis
// опциональны: без них сервис работает полностью в памяти.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN   string
	KafkaBrokers  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig возвращает базовые адреса для REST API и HTTP-метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	checkoutMetrics := metrics.NewCheckoutMetrics()
	catalogRepo := memory.NewCatalogRepository()
	ledgerRepo := memory.NewLedgerRepository()
	outboxRepo := memory.NewOutboxRepository()
	idempotencyRepo := memory.NewIdempotencyRepository()

	cartRepo := memory.NewCartRepository()
	if cfg.RedisAddr != "" {
		redisCarts, err := redisstore.NewCartRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to redis, falling back to in-memory carts")
		} else {
			cartRepo = redisCarts
			logger.WithField("addr", cfg.RedisAddr).Info("redis cart storage initialized")
		}
	}

	ver, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(ver)
	if pinger, ok := cartRepo.(interface{ Ping(context.Context) error }); ok {
		healthHandler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pinger.Ping(pingCtx)
		}))
	}
	healthHandler.RegisterChecker("sync-backlog", healthcheck.NewBacklogChecker(outboxRepo, 0))

	// Инициализация Postgres-зеркала (опционально). Память остаётся
	// авторитетной: ошибки зеркала не останавливают запуск.
	var store *postgres.Store
	var mirrorPublisher *syncsvc.MirrorPublisher
	if cfg.PostgresDSN != "" {
		pgStore, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to postgres, continuing without document mirror")
		} else {
			store = pgStore
			if err := store.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Warn("failed to apply migrations, continuing without document mirror")
				_ = store.Close()
				store = nil
			}
		}
	}

	if store != nil {
		docStore := postgres.NewDocumentStore(store)
		hydrator := syncsvc.NewHydrator(docStore, catalogRepo, ledgerRepo, checkoutMetrics)
		report, err := hydrator.Hydrate(ctx)
		if err != nil {
			logger.WithError(err).Warn("hydration failed, starting with empty catalog")
		} else {
			logger.WithFields(log.Fields{
				"products_loaded":      report.ProductsLoaded,
				"products_quarantined": report.ProductsQuarantined,
				"orders_loaded":        report.OrdersLoaded,
				"orders_quarantined":   report.OrdersQuarantined,
			}).Info("memory hydrated from document mirror")
		}

		mirrorPublisher = syncsvc.NewMirrorPublisher(docStore)
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	// Инициализация Kafka producer (опционально).
	var kafkaProducer *kafka.Producer
	var workerOptions []syncsvc.Option
	if cfg.KafkaBrokers != "" {
		brokers := splitBrokers(cfg.KafkaBrokers)
		producer, err := kafka.NewProducer(brokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", brokers).Info("kafka producer initialized")
			workerOptions = append(workerOptions, syncsvc.WithDLQPublisher(kafka.NewDLQPublisher(producer)))
		}
	}

	var syncTargets []domain.EventPublisher
	if mirrorPublisher != nil {
		syncTargets = append(syncTargets, mirrorPublisher)
	}
	if kafkaProducer != nil {
		syncTargets = append(syncTargets, kafka.NewEventPublisher(kafkaProducer))
	}
	fanout := syncsvc.NewFanoutPublisher(syncTargets...)

	if !fanout.Empty() {
		worker := syncsvc.NewWorker(outboxRepo, fanout, workerOptions...)
		go worker.Run(ctx)
	} else {
		logger.Info("no sync targets configured, outbox worker disabled")
	}

	cleanupWorker := idempotency.NewCleanupWorker(idempotencyRepo)
	go cleanupWorker.Run(ctx)

	service := checkout.NewService(catalogRepo, ledgerRepo, cartRepo, outboxRepo, checkoutMetrics)
	server := rest.NewServer(service, idempotencyRepo)

	metricsSrv := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("REST API слушает %s", cfg.HTTPAddr)
		errCh <- server.Start(cfg.HTTPAddr)
	}()

	closeExternal := func() {
		if kafkaProducer != nil {
			if err := kafkaProducer.Close(); err != nil {
				logger.WithError(err).Warn("failed to close kafka producer")
			}
		}
		if store != nil {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close postgres store")
			}
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown failed")
		}
		shutdownHTTP(metricsSrv, logger)
		closeExternal()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeExternal()
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-пробами.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	return srv
}

func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown failed")
	}
}

func splitBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
