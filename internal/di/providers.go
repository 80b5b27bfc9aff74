package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"FlipScan/internal/domain/repository"
	"FlipScan/internal/handler/api"
	mid "FlipScan/internal/middleware"
	internalrepo "FlipScan/internal/repository"
	icache "FlipScan/internal/service/cache"
	"FlipScan/internal/service/gedump"
	"FlipScan/internal/usecase"
	pkgcache "FlipScan/pkg/cache"
	pkgch "FlipScan/pkg/clickhouse"
	"FlipScan/pkg/config"
	pkgkafka "FlipScan/pkg/kafka"
	"FlipScan/pkg/logger"
	"FlipScan/pkg/metrics"
	pkgqueue "FlipScan/pkg/queue"
	"FlipScan/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return logger.New(&logger.Config{Level: level, Format: "console", Output: "stdout"})
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
		"CREATE DATABASE IF NOT EXISTS " + db,
		// ReplacingMergeTree on (item_id, day) mirrors the one-row-per-day
		// upsert behavior the collectors rely on.
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            item_id Int64,
            name String,
            ge_limit Int64,
            day Date,
            price Int64,
            volume Int64
        ) ENGINE=ReplacingMergeTree ORDER BY (item_id, day)`, snapshotsTable(cfg)),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func snapshotsTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "snapshots"
	}
	return cfg.ClickHouse.Database + "." + table
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSnapshotStorage creates ClickHouse storage repository.
func ProvideSnapshotStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), snapshotsTable(cfg))
}

// ProvideSnapshotPublisher creates Kafka publisher repository.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideHistoryStore creates the read-side ClickHouse repository.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config, l *logger.Logger) repository.HistoryStore {
	store := internalrepo.NewCHHistoryStore(chClient, snapshotsTable(cfg))
	store.SetLogger(l)
	return store
}

// ProvideSnapshotSource creates the exchange data HTTP client.
func ProvideSnapshotSource(cfg *config.Config) repository.SnapshotSource {
	timeout := cfg.Dump.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return gedump.New(cfg.Dump.URL, cfg.Dump.HistoryURL, cfg.Dump.UserAgent, timeout)
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

// ProvideKafkaSnapshotsHandler registers handler for the snapshots topic.
func ProvideKafkaSnapshotsHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideSnapshotProcessor creates the snapshot processor use case.
func ProvideSnapshotProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideSnapshotCollector creates the daily collector use case.
func ProvideSnapshotCollector(
	source repository.SnapshotSource,
	processor *usecase.SnapshotProcessor,
	metrics repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.SnapshotCollector {
	// Pipeline between collector and backend: validation, dedupe, buffering
	pipe := mid.NewIngestPipeline(processor, metrics,
		mid.WithBufferSize(20000),
	)
	return usecase.NewSnapshotCollector(source, processor, pipe, metrics, l, cfg.Dump.Cron)
}

// ProvideScanUseCase creates the market scan use case.
func ProvideScanUseCase(store repository.HistoryStore, metrics repository.Metrics, cfg *config.Config) *usecase.ScanUseCase {
	return usecase.NewScanUseCase(store, metrics, cfg.Scan.WindowDays)
}

// ProvideHistoryUseCase creates the item history use case. History series are
// cached in memory, layered over redis when redis is enabled.
func ProvideHistoryUseCase(store repository.HistoryStore, cfg *config.Config, l *logger.Logger) *usecase.HistoryUseCase {
	var c pkgcache.Service = pkgcache.NewMemoryCache()
	if cfg.Redis.Enabled {
		host, port := splitHostPort(cfg.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			l.Warn("redis cache unavailable, falling back to memory cache", logger.Error(err))
		} else {
			c = pkgcache.NewLayeredCache(rc)
		}
	}
	return usecase.NewHistoryUseCase(store, c, cfg.Scan.HistoryDays, cfg.Scan.CacheTTL)
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

// ProvideRedisClient creates the shared redis client (cache + job queue).
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideBackfillJob creates the per-item backfill job handler.
func ProvideBackfillJob(
	source repository.SnapshotSource,
	store repository.Storage,
	metrics repository.Metrics,
	l *logger.Logger,
) *usecase.BackfillJob {
	return usecase.NewBackfillJob(source, store, metrics, l)
}

// ProvideQueue creates the redis job queue with the backfill job registered.
func ProvideQueue(l *logger.Logger, rdb *redis.Client, job *usecase.BackfillJob, cfg *config.Config) *pkgqueue.RedisQueue {
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rdb, pkgqueue.ModeProducerConsumer)
	q.RegisterJob(job)
	return q
}

// ProvideBackfillUseCase creates the backfill enqueue use case.
func ProvideBackfillUseCase(q *pkgqueue.RedisQueue, store repository.HistoryStore, l *logger.Logger) *usecase.BackfillUseCase {
	return usecase.NewBackfillUseCase(q, store, l)
}

// ProvideFlipsHandler creates the HTTP handler with cache wiring.
func ProvideFlipsHandler(
	l *logger.Logger,
	scan *usecase.ScanUseCase,
	history *usecase.HistoryUseCase,
	backfill *usecase.BackfillUseCase,
	cfg *config.Config,
) *api.FlipsEchoHandler {
	h := api.NewFlipsEchoHandler(l, scan, history, backfill, cfg.Scan.TaxRate)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Scan.CacheTTL)
	} else {
		h.SetCache(icache.NewTTLCache(), cfg.Scan.CacheTTL)
	}
	return h
}

// kafkaLogSink feeds aggregated log entries into a Kafka topic.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	chClient *pkgch.Client,
	q *pkgqueue.RedisQueue,
	producer *pkgkafka.Producer,
	handler *api.FlipsEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if cfg.Backend.Type == "kafka" && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      kafkaLogSink{producer: producer},
		})
	}
	app := server.New(cfg, l, collector, consumer, kh, chClient, q)
	app.SetHTTPHandler(handler)
	if collector != nil {
		app.SnapProc = collector.Processor()
	}
	return app
}
