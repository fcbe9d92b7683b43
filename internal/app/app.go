// Package app собирает сервис заказов: хранилище, use-case сервисы, outbox,
// consumer событий каталога, gRPC health и HTTP метрики.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ordering/internal/health"
	"github.com/vladislavdragonenkov/ordering/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordering/internal/metrics"
	"github.com/vladislavdragonenkov/ordering/internal/service/catalog"
	"github.com/vladislavdragonenkov/ordering/internal/service/ordering"
	"github.com/vladislavdragonenkov/ordering/internal/service/outbox"
	"github.com/vladislavdragonenkov/ordering/internal/version"
)

const grpcServiceName = "ordering.v1.OrderingService"

// App — собранный сервис. Orders, Carts и Customers доступны встраивающему коду.
type App struct {
	Orders    *ordering.OrderService
	Carts     *ordering.CartService
	Customers *ordering.CustomerService
	Catalog   *catalog.Memory

	cfg      Config
	logger   *log.Entry
	registry *prometheus.Registry
	deps     *runtimeDependencies
	health   *healthcheck.Handler
	producer *kafka.Producer
	consumer *kafka.Consumer
	worker   *outbox.Worker
}

// New создаёт зависимости и сервисы. Ошибка Kafka не фатальна: сервис
// работает без публикации событий, а health отдаёт degraded.
func New(ctx context.Context, cfg Config, logger *log.Entry) (*App, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderingMetrics := metrics.NewOrderingMetricsWithRegisterer(registry)

	products := catalog.NewMemory()
	serviceDeps := ordering.Dependencies{
		Orders:    deps.orders,
		Carts:     deps.carts,
		Customers: deps.customers,
		Catalog:   products,
		Outbox:    deps.outbox,
		Timeline:  deps.timeline,
		Metrics:   orderingMetrics,
		Retry: ordering.RetryPolicy{
			MaxAttempts: cfg.ConflictRetries,
			BaseDelay:   ordering.DefaultRetryPolicy().BaseDelay,
		},
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		deps:     deps,
		Catalog:  products,
		health:   healthcheck.NewHandler(version.Version()),
	}
	a.Orders = ordering.NewOrderService(withLogger(serviceDeps, logger, "order-service"))
	a.Carts = ordering.NewCartService(withLogger(serviceDeps, logger, "cart-service"))
	a.Customers = ordering.NewCustomerService(withLogger(serviceDeps, logger, "customer-service"))
	a.health.RegisterChecker("storage", deps.storageChecker)

	producer, kafkaErr := initKafkaProducer(cfg, logger)
	a.producer = producer
	if cfg.KafkaEnabled() {
		a.health.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
			return kafkaErr
		}))
	}

	var publisher, dlq domain.OutboxPublisher
	if producer != nil {
		publisher = kafka.NewOutboxPublisher(producer, kafkaTopics(cfg))
		dlq = kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic)

		handler := kafka.NewProductEventHandler(a.Carts, products, orderingMetrics, logger.WithField("component", "catalog-events"))
		consumer, err := initCatalogConsumer(cfg, handler, producer)
		if err != nil {
			logger.WithError(err).Warn("failed to create catalog consumer, product updates are disabled")
		}
		a.consumer = consumer
	}

	options := []outbox.Option{
		outbox.WithConfig(outbox.Config{
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
		}),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(metrics.NewOutboxMetrics(registry)),
	}
	if dlq != nil {
		options = append(options, outbox.WithDLQPublisher(dlq))
	}
	a.worker = outbox.NewWorker(deps.outbox, publisher, options...)

	return a, nil
}

func withLogger(deps ordering.Dependencies, logger *log.Entry, component string) ordering.Dependencies {
	deps.Logger = logger.WithField("component", component)
	return deps
}

// Run поднимает gRPC и HTTP серверы, outbox worker и consumer каталога,
// и блокируется до отмены ctx или ошибки gRPC сервера.
func (a *App) Run(ctx context.Context) error {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := a.registry.Register(grpcMetrics); err != nil {
		a.logger.WithError(err).Warn("failed to register grpc metrics")
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", a.cfg.GRPCAddr, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		a.worker.Run(runCtx)
	}()
	go func() {
		defer background.Done()
		a.health.WatchGRPC(runCtx, healthServer, grpcServiceName, a.cfg.HealthCheckInterval)
	}()

	if a.consumer != nil {
		if err := a.consumer.Start(runCtx); err != nil {
			a.logger.WithError(err).Warn("failed to start catalog consumer")
		}
	}

	metricsSrv := startMetricsServer(runCtx, a.cfg.MetricsAddr, a.logger, a.metricsHandler(), a.health)

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithFields(version.Fields()).Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("получен сигнал остановки, останавливаем сервис")
		healthServer.Shutdown()
		a.stopGRPC(grpcServer)
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	cancel()
	stopConsumer(a.consumer, a.logger)
	shutdownHTTP(metricsSrv, a.logger, a.cfg.ShutdownTimeout)
	background.Wait()
	return runErr
}

// Close освобождает producer и хранилище.
func (a *App) Close() error {
	closeKafka(a.producer, a.logger)
	return a.deps.close()
}

func (a *App) stopGRPC(server *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(a.cfg.ShutdownTimeout):
		a.logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

func (a *App) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Run собирает приложение и запускает его до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close dependencies")
		}
	}()
	return a.Run(ctx)
}

// startMetricsServer запускает HTTP сервер с /metrics и health пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, metricsHandler http.Handler, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	healthHandler.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger, 0)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry, timeout time.Duration) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
