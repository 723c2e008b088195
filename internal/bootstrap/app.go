package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"edurag/internal/ai"
	"edurag/internal/app"
	"edurag/internal/cache"
	"edurag/internal/chunker"
	"edurag/internal/config"
	"edurag/internal/metrics"
	"edurag/internal/platform/database"
	rabbitmqClient "edurag/internal/platform/rabbitmq"
	redisClient "edurag/internal/platform/redis"
	"edurag/internal/repository"
	"edurag/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB        *gorm.DB
	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.JobPublisher
	Worker    *worker.DocumentProcessWorker

	// Provider embeds documents. Searches go through the query-cached wrapper
	// held by Search.
	Provider ai.Provider
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Documents *app.DocumentService
	Search    *app.SearchService
	Pipeline  *app.Pipeline

	StartedAt time.Time
}

type options struct {
	withoutWorker bool
}

type Option func(*options)

// WithoutWorker skips consuming the processing queue. Jobs are still published
// when async processing is enabled.
func WithoutWorker() Option {
	return func(o *options) { o.withoutWorker = true }
}

// Deps are the connected collaborators the services are built on.
type Deps struct {
	DB         *gorm.DB
	Provider   ai.Provider
	QueryCache ai.EmbeddingCache
	Publisher  app.JobPublisher
}

func New(ctx context.Context, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := NewLogger(cfg.Log)
	slog.SetDefault(logger)

	a := &App{Config: cfg, Logger: logger}
	if err := a.connect(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context, o options) error {
	cfg := a.Config
	dsn := cfg.MySQLDSN()
	if cfg.Database.Driver == database.DriverPostgres {
		dsn = cfg.PostgresDSN()
	}
	db, err := database.New(ctx, database.Options{Driver: cfg.Database.Driver, DSN: dsn}, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	if err := repository.Migrate(db); err != nil {
		return err
	}

	var queryCache ai.EmbeddingCache
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		a.Redis = redisCli
		queryCache = cache.NewEmbeddingCache(redisCli, cfg.QueryCacheTTL())
	}

	var publisher app.JobPublisher
	if cfg.RAG.AsyncProcessing {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		a.Publisher = rabbitmqClient.NewJobPublisher(mqConn, cfg.RabbitMQ.ProcessQueue)
		publisher = a.Publisher
	}

	provider, err := ai.NewProvider(EmbeddingConfig(cfg.Embedding), a.Logger)
	if err != nil {
		return fmt.Errorf("create embedding provider failed: %w", err)
	}

	a.assemble(Deps{DB: db, Provider: provider, QueryCache: queryCache, Publisher: publisher}, prometheus.NewRegistry())

	if a.MQConn != nil && !o.withoutWorker {
		a.Worker = worker.NewDocumentProcessWorker(a.MQConn, a.Documents, cfg.RabbitMQ.ProcessQueue, cfg.RabbitMQ.Prefetch, a.Logger)
		if err := a.Worker.Start(ctx); err != nil {
			return fmt.Errorf("start document worker failed: %w", err)
		}
	}
	a.Logger.Info("application ready",
		"database", cfg.Database.Driver,
		"embedding_provider", provider.Name(),
		"embedding_model", provider.Model(),
		"dimensions", provider.Dimensions(),
		"async_processing", publisher != nil,
	)
	return nil
}

// Assemble builds the services on already-connected dependencies.
func Assemble(cfg *config.Config, deps Deps, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, DB: deps.DB}
	a.assemble(deps, prometheus.NewRegistry())
	return a
}

func (a *App) assemble(deps Deps, registry *prometheus.Registry) {
	cfg := a.Config
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	chunks := repository.NewChunkRepository(deps.DB, deps.Provider.Dimensions())
	docs := repository.NewDocumentRepository(deps.DB)

	search := app.NewSearchService(ai.Cached(deps.Provider, deps.QueryCache, a.Logger), chunks, m, a.Logger)
	embedder := app.NewBatchEmbedder(deps.Provider, app.BatchConfig{
		BatchSize:   cfg.RAG.BatchSize,
		Delay:       cfg.BatchDelay(),
		CallTimeout: cfg.EmbedCallTimeout(),
	}, m, a.Logger)
	ch := chunker.New(chunker.WithChunkSize(cfg.RAG.ChunkSize), chunker.WithOverlap(cfg.RAG.ChunkOverlap))
	pipeline := app.NewPipeline(ch, embedder, chunks, search, m, a.Logger)

	docOpts := []app.DocumentServiceOption{app.WithMaxUploadBytes(cfg.RAG.MaxUploadBytes)}
	if deps.Publisher != nil {
		docOpts = append(docOpts, app.WithJobPublisher(deps.Publisher))
	}

	a.Provider = deps.Provider
	a.Registry = registry
	a.Metrics = m
	a.Search = search
	a.Pipeline = pipeline
	a.Documents = app.NewDocumentService(docs, chunks, pipeline, a.Logger, docOpts...)
	a.StartedAt = time.Now()
}

// EmbeddingConfig maps the embedding config section onto the provider config.
func EmbeddingConfig(c config.EmbeddingConfig) ai.Config {
	out := ai.Config{
		Provider:          c.Provider,
		Dimensions:        c.Dimensions,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Retry:             ai.RetryConfig{MaxRetries: c.MaxRetries},
	}
	if c.Provider == ai.ProviderOpenAI {
		out.BaseURL = c.OpenAIBaseURL
		out.Model = c.OpenAIModel
		out.APIKey = c.OpenAIAPIKey
	} else {
		out.BaseURL = c.OllamaBaseURL
		out.Model = c.OllamaModel
	}
	return out
}

func (a *App) Close() error {
	var errs []error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
