package di

import (
	"context"
	"fmt"
	"time"

	"QuantPredict/internal/domain/repository"
	"QuantPredict/internal/handler/api"
	internalrepo "QuantPredict/internal/repository"
	"QuantPredict/internal/service/ratelimit"
	"QuantPredict/internal/services/artifacts"
	"QuantPredict/internal/usecase"
	pkgcache "QuantPredict/pkg/cache"
	pkgch "QuantPredict/pkg/clickhouse"
	"QuantPredict/pkg/config"
	pkgkafka "QuantPredict/pkg/kafka"
	applogger "QuantPredict/pkg/logger"
	"QuantPredict/pkg/metrics"
	"QuantPredict/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema(client.Database())); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects to Redis when it backs the scaler registry.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if cfg.Scaler.Backend != "redis" {
		return nil, nil
	}
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ForecastTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the model-ready consumer, or nil when Kafka is
// disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ModelReadyTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.ConsumerGroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.ConsumerWorkers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.ConsumerRetryMax, 200*time.Millisecond, 5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	return consumer, nil
}

// ProvideHistoryStore reads daily bars from ClickHouse when it is configured.
func ProvideHistoryStore(ch *pkgch.Client, l *applogger.Logger) repository.HistoryStore {
	if ch == nil {
		return nil
	}
	s := internalrepo.NewCHHistoryStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideForecastSink stores forecasts in ClickHouse when it is configured.
func ProvideForecastSink(ch *pkgch.Client) repository.ForecastSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHForecastSink(ch)
}

// ProvideForecastPublisher publishes forecasts to Kafka when it is configured.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ForecastPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastTopic)
}

// ProvideScalerStore selects the scaler registry backend.
func ProvideScalerStore(cfg *config.Config, redis *pkgcache.RedisCache) (repository.ScalerStore, error) {
	switch cfg.Scaler.Backend {
	case "memory":
		return internalrepo.NewMemoryScalerStore(), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("scaler store: redis backend selected but not connected")
		}
		return internalrepo.NewCacheScalerStore(redis, cfg.Scaler.LockTTL), nil
	default:
		s, err := internalrepo.NewFileScalerStore(cfg.Scaler.Dir)
		if err != nil {
			return nil, fmt.Errorf("scaler store: %w", err)
		}
		return s, nil
	}
}

// ProvideModelStore loads model manifests from disk.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) repository.ModelStore {
	remote := artifacts.NewHTTPServiceBase(cfg.Models.ServiceURL, cfg.Models.Timeout)
	s := internalrepo.NewFileModelStore(cfg.Models.Dir, remote, cfg.Models.CacheTTL, cfg.Forecast.Window)
	s.SetLogger(l)
	return s
}

// ProvideForecastUseCase assembles the forecast pipeline.
func ProvideForecastUseCase(
	cfg *config.Config,
	history repository.HistoryStore,
	scalers repository.ScalerStore,
	models repository.ModelStore,
	publisher repository.ForecastPublisher,
	sink repository.ForecastSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	uc := usecase.NewForecastUseCase(history, scalers, models, usecase.ForecastOptions{
		MaxHorizon:   cfg.Forecast.MaxHorizon,
		HistoryLimit: cfg.Forecast.HistoryLimit,
		Timeout:      cfg.Forecast.RequestTimeout,
	})
	uc.SetLogger(l)
	uc.SetMetrics(m)
	uc.SetOutputs(publisher, sink)
	return uc
}

// ProvideModelReadyHandler invalidates cached models on training events.
func ProvideModelReadyHandler(cfg *config.Config, models repository.ModelStore, l *applogger.Logger) *usecase.ModelReadyHandler {
	return usecase.NewModelReadyHandler(cfg.Kafka.ModelReadyTopic, models, l)
}

// ProvideRefreshScheduler returns nil when no refresh schedule is configured.
func ProvideRefreshScheduler(cfg *config.Config, uc *usecase.ForecastUseCase, l *applogger.Logger) *usecase.RefreshScheduler {
	if cfg.Forecast.RefreshSchedule == "" {
		return nil
	}
	return usecase.NewRefreshScheduler(uc,
		cfg.Forecast.RefreshSchedule,
		cfg.Forecast.Symbols,
		cfg.Forecast.RefreshKinds,
		cfg.Forecast.RefreshHorizon,
		l,
	)
}

// ProvideRateLimiter limits predict calls per client address.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateRefill)
}

// ProvidePredictHandler creates the HTTP handler with dependency health checks.
func ProvidePredictHandler(
	l *applogger.Logger,
	uc *usecase.ForecastUseCase,
	limiter *ratelimit.Limiter,
	ch *pkgch.Client,
	redis *pkgcache.RedisCache,
) *api.PredictHandler {
	h := api.NewPredictHandler(l, uc, limiter)
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	if redis != nil {
		h.AddHealthCheck("redis", func(ctx context.Context) error {
			return redis.Client().Ping(ctx).Err()
		})
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.PredictHandler,
	consumer *pkgkafka.Consumer,
	modelReady *usecase.ModelReadyHandler,
	scheduler *usecase.RefreshScheduler,
	publisher repository.ForecastPublisher,
	ch *pkgch.Client,
	redis *pkgcache.RedisCache,
) *server.App {
	app := server.New(cfg, l, handler)
	if consumer != nil {
		consumer.RegisterHandler(modelReady)
		app.SetConsumer(consumer)
	}
	if scheduler != nil {
		app.SetScheduler(scheduler)
	}
	if publisher != nil {
		app.AddCloser("kafka producer", publisher.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if redis != nil {
		app.AddCloser("redis", redis.Close)
	}
	return app
}
