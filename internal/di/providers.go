package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/handler/api"
	internalrepo "TickAttrib/internal/repository"
	"TickAttrib/internal/service/attribcache"
	"TickAttrib/internal/services/attribution"
	"TickAttrib/internal/services/detector"
	"TickAttrib/internal/usecase"
	pkgcache "TickAttrib/pkg/cache"
	pkgch "TickAttrib/pkg/clickhouse"
	"TickAttrib/pkg/config"
	xhttp "TickAttrib/pkg/http"
	pkgkafka "TickAttrib/pkg/kafka"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/metrics"
	"TickAttrib/pkg/queue"
	"TickAttrib/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideEventLog creates the shared operational event ring.
func ProvideEventLog() *applogger.EventLog {
	return applogger.NewEventLog(0)
}

// ProvideLogger creates the application logger with error mirroring into the
// event feed.
func ProvideLogger(cfg *config.Config, events *applogger.EventLog) (*applogger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	l, err := applogger.New(&applogger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	l.AttachEvents(events)
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCaseLibrary loads the replay case index.
func ProvideCaseLibrary(cfg *config.Config, l *applogger.Logger) (*usecase.CaseLibrary, error) {
	return usecase.NewCaseLibrary(cfg.Cases.Dir, l)
}

// ProvideFailoverCache builds the attribution cache backend: Redis when
// configured, degrading to in-process memory otherwise.
func ProvideFailoverCache(cfg *config.Config, l *applogger.Logger) *pkgcache.FailoverCache {
	var primary *pkgcache.RedisCache
	if cfg.Redis.Enabled {
		host, port := splitAddr(cfg.Redis.Addr)
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if err != nil {
			l.Warn("redis unavailable, running on memory cache", applogger.Error(err))
		} else {
			primary = rc
		}
	}
	return pkgcache.NewFailoverCache(primary)
}

// ProvideAttribCache creates the attribution cache plus system counters.
func ProvideAttribCache(cfg *config.Config, backend *pkgcache.FailoverCache, l *applogger.Logger) *attribcache.Service {
	return attribcache.New(backend, cfg.Redis.CacheTTL, l)
}

// ProvideAttributor creates the LLM attribution client.
func ProvideAttributor(cfg *config.Config, l *applogger.Logger) domrepo.Attributor {
	return attribution.NewClient(attribution.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Timeout:       cfg.LLM.Timeout,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxInputChars: cfg.LLM.MaxInputChars,
	}, l)
}

// ProvideResolver builds the attribution fallback chain.
func ProvideResolver(
	cache *attribcache.Service,
	attributor domrepo.Attributor,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AttributionResolver {
	return usecase.NewAttributionResolver(cache, attributor, cache, m, l)
}

// ProvideReplayConfig maps the YAML replay section onto the orchestrator
// config. Zero values fall back to the pinned replay defaults.
func ProvideReplayConfig(cfg *config.Config) usecase.ReplayConfig {
	d := cfg.Replay.Detector
	return usecase.ReplayConfig{
		Detector: detector.Config{
			WindowSize:         d.WindowSize,
			ZThreshold:         d.ZThreshold,
			CUSUMDrift:         d.CUSUMDrift,
			CUSUMThreshold:     d.CUSUMThreshold,
			VolumeSurgeRatio:   d.VolumeSurgeRatio,
			AmihudSurgeRatio:   d.AmihudSurgeRatio,
			PosteriorThreshold: d.PosteriorThreshold,
			ScoreThreshold:     d.ScoreThreshold,
			CumulativeReturn:   d.CumulativeReturn,
		},
		TickLimit:    cfg.Replay.TickLimit,
		WarmupTicks:  cfg.Replay.WarmupTicks,
		WarmupDelay:  cfg.Replay.WarmupDelay,
		WindowBefore: cfg.Replay.WindowBefore,
		WindowAfter:  cfg.Replay.WindowAfter,
	}
}

// ProvideOrchestrator creates the replay stream producer.
func ProvideOrchestrator(
	lib *usecase.CaseLibrary,
	resolver *usecase.AttributionResolver,
	cache *attribcache.Service,
	m domrepo.Metrics,
	l *applogger.Logger,
	rcfg usecase.ReplayConfig,
) *usecase.ReplayOrchestrator {
	return usecase.NewReplayOrchestrator(lib, resolver, cache, m, l, rcfg)
}

// ProvideHTTPHandler bundles the REST and websocket surfaces.
func ProvideHTTPHandler(
	l *applogger.Logger,
	lib *usecase.CaseLibrary,
	orch *usecase.ReplayOrchestrator,
	cache *attribcache.Service,
	m domrepo.Metrics,
	events *applogger.EventLog,
) xhttp.Handler {
	return api.NewRouter(
		api.NewAlignmentHandler(l, lib, orch, cache, events),
		api.NewFeedHandler(l, orch, cache, m, events),
	)
}

// ProvideClickHouseClient creates the ClickHouse client with the alignment
// schema applied. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaConsumer creates the ingestion consumer with the tick and news
// handlers registered. Returns nil when Kafka or ClickHouse is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	chClient *pkgch.Client,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || chClient == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)

	open := usecase.StoreOpener(func(caseID string) domrepo.AlignmentStore {
		store := internalrepo.NewClickHouseStore(chClient, caseID)
		store.SetLogger(l)
		return store
	})
	consumer.RegisterHandler(usecase.NewTickIngestHandler(open, m, l))
	consumer.RegisterHandler(usecase.NewNewsIngestHandler(open, m, l))
	return consumer, nil
}

// ProvideRedisQueue creates the precompute work queue with its job
// registered. Returns nil when Redis is disabled.
func ProvideRedisQueue(
	cfg *config.Config,
	lib *usecase.CaseLibrary,
	attributor domrepo.Attributor,
	l *applogger.Logger,
) *queue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, true)
	q.RegisterJob(usecase.NewPrecomputeJob(lib, attributor, l))
	return q
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	lib *usecase.CaseLibrary,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, handler, lib, consumer, q, chClient)
}

func splitAddr(addr string) (string, int) {
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
