package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FlowTrack/internal/domain/models"
	"FlowTrack/internal/handler/api"
	icache "FlowTrack/internal/service/cache"
	"FlowTrack/internal/services/chainscan"
	"FlowTrack/internal/usecase"
	pkgch "FlowTrack/pkg/clickhouse"
	"FlowTrack/pkg/config"
	xhttp "FlowTrack/pkg/http"
	pkgkafka "FlowTrack/pkg/kafka"
	applogger "FlowTrack/pkg/logger"
	"FlowTrack/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	collector   *usecase.TradeCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	producer    *pkgkafka.Producer
	proc        *usecase.SignalProcessor
	queries     *usecase.FlowQueries
	scanner     *chainscan.Scanner
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler

	procSub    int
	dispatcher *usecase.AlertDispatcher
	alertQueue *queue.RedisQueue
	alertPub   *queue.RedisQueue
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	proc *usecase.SignalProcessor,
	queries *usecase.FlowQueries,
	scanner *chainscan.Scanner,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		producer:  producer,
		proc:      proc,
		queries:   queries,
		scanner:   scanner,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// logPublisher adapts the Kafka producer to the log collector.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l

	// Aggregate repeated error logs into Kafka when a producer is available
	if a.producer != nil && len(a.cfg.Kafka.Brokers) > 0 {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "flowtrack-logs",
			Publisher:      logPublisher{p: a.producer},
		})
	}

	det := a.collector.Detector()

	// Route emitted signals to the configured backend
	a.procSub = det.Subscribe(func(sig *models.FlowSignal) {
		if err := a.proc.Process(ctx, sig); err != nil {
			l.Error("signal backend error",
				applogger.String("signal_id", sig.ID),
				applogger.Error(err),
			)
		}
	})

	// Alert delivery over the Redis queue
	if a.cfg.Alerts.Enabled && a.cfg.Redis.Enabled {
		a.startAlerts(ctx, det, l)
	}

	// Setup the HTTP server using pkg/http and register routes via handler
	httpHandler := a.httpHandler
	if httpHandler == nil {
		if a.cfg.Server.CachedAPI {
			h := api.NewFlowsHandler(a.queries)
			if a.cfg.Redis.Enabled {
				h.SetCache(icache.NewRedisCache(icache.RedisConfig{
					Addr:     a.cfg.Redis.Addr,
					Password: a.cfg.Redis.Password,
					DB:       a.cfg.Redis.DB,
				}))
			} else {
				h.SetCache(icache.NewTTLCache())
			}
			h.SetLogger(l)
			httpHandler = h
		} else {
			httpHandler = api.NewFlowsEchoHandler(l, a.queries, a.collector)
		}
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))

	// Start consumer when the kafka backend feeds the store asynchronously
	if a.cfg.Backend.Type == "kafka" && a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start the periodic chain scan
	if a.scanner != nil {
		a.scanner.Start(ctx)
		l.Info("chain scanner started",
			applogger.String("interval", a.cfg.ChainScan.Interval.String()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) startAlerts(ctx context.Context, det *usecase.FlowDetector, l *applogger.Logger) {
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})

	a.alertPub = queue.NewRedisPublisher(l, client)
	a.dispatcher = usecase.NewAlertDispatcher(a.alertPub, l)
	a.dispatcher.Attach(ctx, det)

	job := usecase.NewWebhookAlertJob(
		xhttp.NewClient(xhttp.WithTimeout(a.cfg.Alerts.Timeout)),
		a.cfg.Alerts.WebhookURL,
		l,
	)
	a.alertQueue = queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    a.cfg.Alerts.Workers,
		RetryLimit: 3,
		RetryDelay: 10 * time.Second,
	}, client, []queue.Job{job})
	if err := a.alertQueue.Start(); err != nil {
		l.Error("alert queue start error", applogger.Error(err))
	}
	l.Info("alert delivery started", applogger.Int("workers", a.cfg.Alerts.Workers))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	l.Info("shutting down...")

	det := a.collector.Detector()
	if a.procSub != 0 {
		det.Unsubscribe(a.procSub)
	}
	if a.dispatcher != nil {
		a.dispatcher.Detach(det)
	}

	// Stop chain scanner before draining the detector
	if a.scanner != nil {
		a.scanner.Stop()
	}

	// Stop collector (pipeline + detector drain + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop alert queues
	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(shutdownCtx); err != nil {
			l.Warn("alert queue stop error", applogger.Error(err))
		}
	}
	if a.alertPub != nil {
		if err := a.alertPub.Stop(shutdownCtx); err != nil {
			l.Warn("alert publisher stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close backend resources (publisher/storage)
	if a.proc != nil {
		a.proc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
