// Package indexer runs complete index builds: stop-word selection, document
// counting, the sharded build itself, loading documents into the corpus store
// and announcing the new generation.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
)

// Announcer publishes finished builds.
type Announcer interface {
	Publish(ctx context.Context, ev events.IndexComplete) error
}

// Job names the inputs and outputs of one build.
type Job struct {
	Input string
	// StopWords is a stop-word file or a directory holding one. It is copied
	// into IndexDir, where searchers load it by default.
	StopWords string
	// DocCount is a doccount file or its directory. Without one the corpus
	// size is used.
	DocCount     string
	IndexDir     string
	BoundaryPath string
}

type Engine struct {
	cfg       config.IndexerConfig
	docs      corpus.Store
	announcer Announcer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine returns an engine. docs, announcer and m may each be nil to skip
// storing documents, announcing builds or recording metrics.
func NewEngine(cfg config.IndexerConfig, docs corpus.Store, announcer Announcer, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		docs:      docs,
		announcer: announcer,
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// SelectStopWords writes the k most frequent corpus words to
// outDir/stopwords.txt. k <= 0 uses the configured count.
func (e *Engine) SelectStopWords(ctx context.Context, input, outDir string, k int) (path string, words []string, err error) {
	if k <= 0 {
		k = e.cfg.StopWordCount
	}
	counts, err := corpus.WordCounts(ctx, input)
	if err != nil {
		return "", nil, err
	}
	words = stopwords.Select(counts, k)
	path, err = stopwords.Save(outDir, words)
	if err != nil {
		return "", nil, err
	}
	e.logger.Info("stop words selected", "input", input, "distinct_words", len(counts), "selected", len(words))
	return path, words, nil
}

// CountDocuments writes the corpus size to outDir/doccount.txt.
func (e *Engine) CountDocuments(ctx context.Context, input, outDir string) (int, error) {
	n, err := corpus.CountDocuments(ctx, input)
	if err != nil {
		return 0, err
	}
	if _, err := corpus.WriteDocCount(outDir, n); err != nil {
		return 0, err
	}
	e.logger.Info("documents counted", "input", input, "docs", n)
	return n, nil
}

// Build indexes job.Input. The documents reach the corpus store and the
// announcement goes out only after the index is complete on disk.
func (e *Engine) Build(ctx context.Context, job Job) (index.Manifest, error) {
	opts := builder.OptionsFromConfig(e.cfg)
	opts.IndexDir = job.IndexDir
	opts.BoundaryPath = job.BoundaryPath
	opts.Stop = stopwords.Load(job.StopWords)
	opts.Metrics = e.metrics

	if job.DocCount != "" {
		n, ok, err := corpus.ReadDocCount(job.DocCount)
		if err != nil {
			return index.Manifest{}, err
		}
		if ok {
			opts.DocCount = n
		}
	}

	docs, err := corpus.ReadAll(ctx, job.Input)
	if err != nil {
		return index.Manifest{}, err
	}
	m, err := builder.New(opts).Build(ctx, docs)
	if err != nil {
		return index.Manifest{}, err
	}
	if err := copyStopWords(job.StopWords, job.IndexDir); err != nil {
		return index.Manifest{}, err
	}
	if e.docs != nil {
		if err := e.docs.Put(ctx, docs); err != nil {
			return index.Manifest{}, fmt.Errorf("storing documents: %w", err)
		}
		e.logger.Info("documents stored", "docs", len(docs))
	}
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(m.DocCount))
		e.metrics.IndexTerms.Set(float64(m.TermCount))
		e.metrics.ActiveShards.Set(float64(m.NumShards))
	}
	if e.announcer != nil {
		if err := e.announcer.Publish(ctx, events.FromManifest(job.IndexDir, m)); err != nil {
			return m, fmt.Errorf("announcing build: %w", err)
		}
		e.logger.Info("build announced", "generation", m.Generation)
	}
	return m, nil
}

func copyStopWords(src, indexDir string) error {
	if src == "" {
		return nil
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		src = filepath.Join(src, stopwords.FileName)
	}
	dst := filepath.Join(indexDir, stopwords.FileName)
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stop words: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("copying stop words: %w", err)
	}
	return nil
}
