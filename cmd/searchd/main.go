// Command searchd runs the kbsearch query service: it consumes document
// events from Kafka into the in-memory BM25 engine and serves ranked search
// over HTTP, with Redis result caching, Prometheus metrics, and query
// analytics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchcore/kbsearch/internal/cache"
	"github.com/searchcore/kbsearch/internal/engine"
	"github.com/searchcore/kbsearch/internal/ingest"
	"github.com/searchcore/kbsearch/internal/search"
	"github.com/searchcore/kbsearch/internal/stats"
	"github.com/searchcore/kbsearch/pkg/config"
	"github.com/searchcore/kbsearch/pkg/health"
	"github.com/searchcore/kbsearch/pkg/kafka"
	"github.com/searchcore/kbsearch/pkg/logger"
	"github.com/searchcore/kbsearch/pkg/metrics"
	"github.com/searchcore/kbsearch/pkg/middleware"
	pkgredis "github.com/searchcore/kbsearch/pkg/redis"
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
		"k1", cfg.Engine.K1,
		"b", cfg.Engine.B,
	)

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer statsProducer.Close()
	aggregator := stats.NewAggregator()
	collector := stats.NewCollector(aggregator, statsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	m := metrics.New()
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	var invalidator ingest.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	applyEvent := ingest.HandleDocumentEvent(eng, nil, invalidator)
	docConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentEvents,
		func(ctx context.Context, key, value []byte) error {
			before := eng.DocCount()
			if err := applyEvent(ctx, key, value); err != nil {
				return err
			}
			after := eng.DocCount()
			if after > before {
				m.DocsIndexedTotal.Inc()
				collector.Track(stats.IndexEvent{Type: stats.EventIndexDoc, Timestamp: time.Now().UTC()})
			} else if after < before {
				m.DocsRemovedTotal.Inc()
				collector.Track(stats.IndexEvent{Type: stats.EventRemoveDoc, Timestamp: time.Now().UTC()})
			}
			m.IndexDocCount.Set(float64(after))
			m.IndexTermCount.Set(float64(eng.TermCount()))
			return nil
		},
	)

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", eng.DocCount(), eng.TermCount()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := search.New(eng, queryCache, collector, m, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document(func(id string) (any, bool) {
		doc, ok := eng.Document(id)
		return doc, ok
	}))
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/stats", aggregator.StatsHandler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return docConsumer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("search service error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
