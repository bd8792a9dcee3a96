package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FlowTrack/internal/domain/repository"
	mid "FlowTrack/internal/middleware"
	internalrepo "FlowTrack/internal/repository"
	"FlowTrack/internal/service/feed"
	"FlowTrack/internal/services/accumulation"
	"FlowTrack/internal/services/chainscan"
	"FlowTrack/internal/services/classify"
	"FlowTrack/internal/services/flow"
	"FlowTrack/internal/services/levels"
	"FlowTrack/internal/usecase"
	pkgcache "FlowTrack/pkg/cache"
	pkgch "FlowTrack/pkg/clickhouse"
	"FlowTrack/pkg/config"
	pkgkafka "FlowTrack/pkg/kafka"
	applogger "FlowTrack/pkg/logger"
	"FlowTrack/pkg/metrics"
	"FlowTrack/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.flow_signals (
            ts DateTime64(3),
            signal_id String,
            symbol String,
            signal_type String,
            direction String,
            conviction_level String,
            conviction_score Float64,
            premium Float64,
            is_sweep UInt8,
            payload String
        ) ENGINE=MergeTree ORDER BY (symbol, ts)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
            date Date,
            symbol String,
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            vol Float64
        ) ENGINE=ReplacingMergeTree ORDER BY (symbol, date)`, db),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSignalStore creates ClickHouse signal storage.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database+".flow_signals")
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideBarProvider creates the ClickHouse daily bar store.
func ProvideBarProvider(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.BarProvider {
	s := internalrepo.NewCHBarStore(chClient, cfg.ClickHouse.Database+".daily_bars")
	s.SetLogger(l)
	return s
}

// ProvideFeedStream creates the options trade WebSocket stream.
func ProvideFeedStream(cfg *config.Config) repository.TradeStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
}

// ProvideFlowDetector assembles the detection pipeline.
func ProvideFlowDetector(
	cfg *config.Config,
	bars repository.BarProvider,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.FlowDetector {
	det := cfg.Detection
	buf := flow.NewTradeBuffer()
	vol := flow.NewVolumeTracker(det.Technical.LookbackDays)
	sweeps := flow.NewSweepDetector(det, buf, l)
	cls := classify.New(det, l)
	lvl := levels.NewCalculator(det, bars, l)
	acc := accumulation.NewTracker(det, l)
	return usecase.NewFlowDetector(det, buf, vol, sweeps, cls, lvl, acc, m, l)
}

// ProvideSignalProcessor creates the backend routing use case.
func ProvideSignalProcessor(
	pub repository.SignalPublisher,
	store repository.SignalStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalProcessor {
	return usecase.NewSignalProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideKafkaSignalsHandler registers the handler for the signals topic.
func ProvideKafkaSignalsHandler(store repository.SignalStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideTradeCollector creates the trade collector use case.
func ProvideTradeCollector(
	stream repository.TradeStream,
	detector *usecase.FlowDetector,
	m repository.Metrics,
) *usecase.TradeCollector {
	// Middleware pipeline between the feed and the detector
	pipe := mid.NewRealtimePipeline(detector, m,
		mid.WithMaxRPS(50),
		mid.WithBurst(200),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTradeCollector(stream, detector, m, pipe)
}

// ProvideFlowQueries creates the query surface, with a layered cache in
// front of pattern analysis when Redis is configured.
func ProvideFlowQueries(detector *usecase.FlowDetector, store repository.SignalStore, cfg *config.Config, l *applogger.Logger) *usecase.FlowQueries {
	q := usecase.NewFlowQueries(detector, store)
	if !cfg.Redis.Enabled {
		return q
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		l.Warn("redis cache unavailable, pattern caching disabled", applogger.Error(err))
		return q
	}
	return q.WithCache(pkgcache.NewLayeredCache(rc), cfg.Cache.PatternTTL)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideChainScanner creates the periodic chain scanner; nil when disabled.
func ProvideChainScanner(cfg *config.Config, detector *usecase.FlowDetector, l *applogger.Logger) *chainscan.Scanner {
	if !cfg.ChainScan.Enabled || cfg.ChainScan.URL == "" {
		return nil
	}
	provider := chainscan.NewHTTPChainProvider(cfg)
	return chainscan.NewScanner(provider, detector, cfg.Feed.Symbols, cfg.ChainScan.Interval, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	proc *usecase.SignalProcessor,
	queries *usecase.FlowQueries,
	scanner *chainscan.Scanner,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, collector, consumer, kh, chClient, producer, proc, queries, scanner)
}
