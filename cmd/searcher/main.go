// Command searcher serves the search API over HTTP and reloads the index
// whenever a build is announced on Kafka.
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

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/middleware"
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

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	docs, err := corpus.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening corpus store: %w", err)
	}
	defer docs.Close()

	store, err := cache.OpenStore(ctx, cfg, m)
	if err != nil {
		slog.Warn("cache backend unavailable, search caching disabled", "backend", cfg.Cache.Backend, "error", err)
		store = nil
	}
	qc := cache.New(store, m)
	defer qc.Close()
	slog.Info("query cache ready", "backend", cfg.Cache.Backend, "enabled", store != nil)

	svc, err := searcher.New(ctx, searcher.OptionsFromConfig(cfg), docs, qc, m)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	defer svc.Close()

	if cfg.Kafka.Enabled {
		listener := events.NewListener(cfg.Kafka, svc.OnIndexComplete)
		go func() {
			if err := listener.Run(ctx); err != nil {
				slog.Error("index event listener stopped", "error", err)
			}
		}()
		slog.Info("listening for index builds", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		man := svc.Manifest()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d shards", man.Generation, man.NumShards),
		}
	})
	checker.Register("corpus", health.Ping(true, func(ctx context.Context) error {
		_, err := docs.Count(ctx)
		return err
	}))
	checker.Register("cache", health.Ping(false, qc.Ping))

	mux := http.NewServeMux()
	handler.New(svc, qc).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

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

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
