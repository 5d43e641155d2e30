// Command indexer runs one complete index build from the config file:
// stop-word selection, document count, sharded build, document storage and
// the index-complete announcement. Metrics are served while it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("corpus", "", "corpus file (.tsv or .jsonl)")
	workDir := flag.String("work-dir", "data", "directory for stop-word and doccount outputs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *input == "" {
		slog.Error("missing -corpus")
		os.Exit(2)
	}

	if err := run(cfg, *input, *workDir); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, input, workDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	docs, err := corpus.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening corpus store: %w", err)
	}
	defer docs.Close()

	var announcer indexer.Announcer
	if cfg.Kafka.Enabled {
		p := events.NewPublisher(cfg.Kafka)
		defer p.Close()
		announcer = p
	}

	e := indexer.NewEngine(cfg.Indexer, docs, announcer, m)
	stopDir := filepath.Join(workDir, "stopwords")
	countDir := filepath.Join(workDir, "doccount")
	if _, _, err := e.SelectStopWords(ctx, input, stopDir, 0); err != nil {
		return err
	}
	if _, err := e.CountDocuments(ctx, input, countDir); err != nil {
		return err
	}
	man, err := e.Build(ctx, indexer.Job{
		Input:     input,
		StopWords: stopDir,
		DocCount:  countDir,
		IndexDir:  cfg.Indexer.DataDir,
	})
	if err != nil {
		return err
	}
	slog.Info("index ready",
		"index_dir", cfg.Indexer.DataDir,
		"generation", man.Generation,
		"docs", man.DocCount,
		"terms", man.TermCount,
		"num_shards", man.NumShards,
	)
	return nil
}
