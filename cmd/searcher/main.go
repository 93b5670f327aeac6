package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/fetcher"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/synonym"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"languages", len(cfg.Languages),
		"storage", cfg.Storage.Driver,
		"cache", cfg.Cache.Backend,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		metricsServer, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err != nil {
			return err
		}
		defer metricsServer.Shutdown(context.Background())
	}

	tok, err := tokenizer.New(cfg.Languages)
	if err != nil {
		return fmt.Errorf("building tokenizer: %w", err)
	}
	synonyms, err := synonym.Compile(cfg.Synonyms, tok)
	if err != nil {
		return fmt.Errorf("compiling synonyms: %w", err)
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	engine := indexer.NewEngine(cfg.Indexer, tok, indexer.Options{
		Store:   store,
		Fetcher: fetcher.New(cfg.Fetcher, nil, m),
		Metrics: m,
	})

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", engine.DocCount(), engine.Index().Terms()),
		}
	})
	if store != nil {
		checker.Register("storage", health.PingCheck(store.Ping, health.StatusDown))
	}

	var backend cache.Backend = cache.NewMemoryBackend()
	if cfg.Cache.Backend == "redis" {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, falling back to in-process query cache", "error", err)
		} else {
			defer redisClient.Close()
			backend = cache.NewRedisBackend(redisClient)
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("redis query cache enabled", "addr", cfg.Redis.Addr)
		}
	}
	queryCache := cache.New(backend, cfg.Cache.KeyPrefix, m)
	exec := executor.New(tok, engine.Index(), engine.Stats(), synonyms, queryCache, m)

	g, gctx := errgroup.WithContext(ctx)

	var pub *publisher.Publisher
	if cfg.Kafka.Enabled {
		ingestProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer ingestProducer.Close()
		completeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer completeProducer.Close()

		pub = publisher.New(ingestProducer)
		ingestConsumer := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(engine, completeProducer),
		)
		g.Go(func() error { return ingestConsumer.Start(gctx) })
		slog.Info("consuming ingest events",
			"topic", cfg.Kafka.Topics.DocumentIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	searchH := searchhandler.New(exec, queryCache, cfg.Indexer.DefaultLanguage, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	ingestH := ingesthandler.New(engine, pub, cfg.Indexer.DefaultLanguage)

	var limiter *ratelimit.Limiter
	if rl := cfg.Server.RateLimit; rl.Requests > 0 {
		limiter = ratelimit.New(rl.Requests, rl.Window)
		g.Go(func() error {
			limiter.Run(gctx, rl.Window)
			return nil
		})
	}
	limited := middleware.RateLimit(limiter)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/clear", searchH.CacheClear)
	mux.Handle("POST /api/v1/documents", limited(http.HandlerFunc(ingestH.Ingest)))
	mux.Handle("POST /api/v1/statistics", limited(http.HandlerFunc(ingestH.ComputeStatistics)))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.AccessLog,
			middleware.Metrics(m),
			middleware.Timeout(cfg.Server.WriteTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
