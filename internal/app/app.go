package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/printshop/internal/health"
	"github.com/vladislavdragonenkov/printshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/printshop/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/printshop/internal/service/outbox"
	"github.com/vladislavdragonenkov/printshop/internal/version"
)

// App — собранное приложение: хранилище, сервис жизненного цикла заказов,
// outbox worker и HTTP-сервер метрик/health.
type App struct {
	Service *fulfillment.Service
	Deps    *Dependencies

	cfg           Config
	worker        *outbox.Worker
	healthHandler *healthcheck.Handler
	kafkaProducer *kafka.Producer
	logger        *log.Entry
}

// New собирает приложение по конфигурации. Kafka опционален: без брокеров
// события остаются в outbox и публикуются в лог.
func New(cfg Config) (*App, error) {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		return nil, err
	}

	var kafkaProducer *kafka.Producer
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer, err := kafka.NewProducer(brokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", brokers).Info("kafka producer initialized")
		}
	}

	var svc *fulfillment.Service
	if kafkaProducer != nil {
		svc = fulfillment.NewServiceWithKafka(deps.Orders, deps.Inventory, deps.Products, deps.Outbox, deps.Audit, kafkaProducer, logger)
	} else {
		svc = fulfillment.NewService(deps.Orders, deps.Inventory, deps.Products, deps.Outbox, deps.Audit, logger)
	}

	var publisher domain.OutboxPublisher
	var dlqPublisher domain.OutboxPublisher
	if kafkaProducer != nil {
		publisher = kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher = kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
	} else {
		publisher = newLogPublisher(logger)
	}

	worker := outbox.NewWorker(
		deps.Outbox,
		publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.Outbox, cfg.OutboxMaxPending))
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	return &App{
		Service:       svc,
		Deps:          deps,
		cfg:           cfg,
		worker:        worker,
		healthHandler: healthHandler,
		kafkaProducer: kafkaProducer,
		logger:        logger,
	}, nil
}

// Run запускает фоновые компоненты и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	go a.worker.Run(ctx)

	metricsSrv := startMetricsServer(ctx, a.cfg.MetricsAddr, a.logger, a.healthHandler)

	<-ctx.Done()
	a.logger.Info("получен сигнал остановки")

	shutdownHTTP(metricsSrv, a.logger)
	a.Close()

	return ctx.Err()
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			a.logger.Info("kafka producer closed")
		}
		a.kafkaProducer = nil
	}
	if err := a.Deps.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close storage")
	}
}

// Run собирает приложение и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// startMetricsServer запускает HTTP-обработчики /metrics и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}

// logPublisher печатает события вместо отправки в брокер; используется при
// локальном запуске без Kafka.
type logPublisher struct {
	logger *log.Entry
}

func newLogPublisher(logger *log.Entry) *logPublisher {
	return &logPublisher{logger: logger.WithField("component", "log-publisher")}
}

func (p *logPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
	}).Info("outbox event published to log")
	return nil
}

var _ domain.OutboxPublisher = (*logPublisher)(nil)
