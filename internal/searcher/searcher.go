// Package searcher answers queries against a built index: cache lookup,
// parsing, evaluation over the shard segments, pagination and abstracts.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/result"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/tracing"
)

// docFetchTimeout bounds the document lookups for one page of abstracts.
const docFetchTimeout = 5 * time.Second

type Options struct {
	IndexDir string
	// BoundaryPath defaults to IndexDir/partition.txt.
	BoundaryPath string
	// StopWordsPath is a stop-word file or a directory holding one. Empty
	// means IndexDir.
	StopWordsPath    string
	PostingCacheSize int
	SnippetLength    int
	Marker           highlight.Marker
	Trace            bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IndexDir:         cfg.Search.IndexDir,
		StopWordsPath:    cfg.Search.StopWordsPath,
		PostingCacheSize: cfg.Search.PostingCacheSize,
		SnippetLength:    cfg.Search.SnippetLength,
		Marker:           highlight.DefaultMarker,
		Trace:            cfg.Tracing.Enabled,
	}
}

// Hit is one rendered document of a result page.
type Hit struct {
	DocID    index.DocID `json:"doc_id"`
	Title    string      `json:"title"`
	Abstract string      `json:"abstract"`
}

// Response is the answer to one query for one page.
type Response struct {
	Query      string `json:"query"`
	Count      int    `json:"count"`
	Page       int    `json:"page"`
	PageCount  int    `json:"page_count"`
	Hits       []Hit  `json:"hits"`
	CacheHit   bool   `json:"cache_hit"`
	Generation string `json:"generation"`

	// Result is the full ranking the page was cut from.
	Result result.SearchResult `json:"-"`
}

// generation is one loaded index. inflight counts searches still using it so
// a reload can close it once they finish.
type generation struct {
	manifest index.Manifest
	router   *shard.Router
	exec     *executor.Executor
	parser   *parser.Parser
	inflight sync.WaitGroup
}

// Service is safe for concurrent use.
type Service struct {
	opts        Options
	docs        corpus.Store
	cache       *cache.QueryCache
	metrics     *metrics.Metrics
	highlighter *highlight.Highlighter
	logger      *slog.Logger

	mu  sync.RWMutex
	gen *generation
}

// New loads the index at opts.IndexDir. qc and m may be nil.
func New(ctx context.Context, opts Options, docs corpus.Store, qc *cache.QueryCache, m *metrics.Metrics) (*Service, error) {
	if opts.Marker == (highlight.Marker{}) {
		opts.Marker = highlight.DefaultMarker
	}
	if qc == nil {
		qc = cache.New(nil, m)
	}
	s := &Service{
		opts:        opts,
		docs:        docs,
		cache:       qc,
		metrics:     m,
		highlighter: highlight.New(opts.Marker, opts.SnippetLength),
		logger:      slog.Default().With("component", "searcher"),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload opens the index currently in opts.IndexDir and switches new
// searches to it. The previous generation is closed after its last search.
func (s *Service) Reload(ctx context.Context) error {
	m, err := index.ReadManifest(s.opts.IndexDir)
	if err != nil {
		s.countReload("error")
		return err
	}
	router, err := shard.Open(s.opts.IndexDir, s.opts.BoundaryPath, s.opts.PostingCacheSize)
	if err != nil {
		s.countReload("error")
		return fmt.Errorf("opening index: %w", err)
	}
	router.SetMetrics(s.metrics)
	stopPath := s.opts.StopWordsPath
	if stopPath == "" {
		stopPath = filepath.Join(s.opts.IndexDir, stopwords.FileName)
	}
	next := &generation{
		manifest: m,
		router:   router,
		exec:     executor.New(router),
		parser:   parser.New(stopwords.Load(stopPath)),
	}

	s.mu.Lock()
	prev := s.gen
	s.gen = next
	s.mu.Unlock()

	if prev != nil {
		go func() {
			prev.inflight.Wait()
			if err := prev.router.Close(); err != nil {
				s.logger.Warn("closing previous index failed", "generation", prev.manifest.Generation, "error", err)
			}
		}()
	}
	if s.metrics != nil {
		s.metrics.IndexDocuments.Set(float64(m.DocCount))
		s.metrics.IndexTerms.Set(float64(m.TermCount))
		s.metrics.ActiveShards.Set(float64(router.NumShards()))
	}
	s.countReload("success")
	logger.FromContext(ctx).Info("index loaded",
		"index_dir", s.opts.IndexDir,
		"generation", m.Generation,
		"docs", m.DocCount,
		"terms", m.TermCount,
		"num_shards", router.NumShards(),
	)
	return nil
}

func (s *Service) countReload(status string) {
	if s.metrics != nil {
		s.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}

// OnIndexComplete reloads when a build for this service's index directory
// is announced. Events for other directories are ignored.
func (s *Service) OnIndexComplete(ctx context.Context, ev events.IndexComplete) error {
	if filepath.Clean(ev.IndexDir) != filepath.Clean(s.opts.IndexDir) {
		s.logger.Debug("ignoring build of another index", "index_dir", ev.IndexDir)
		return nil
	}
	if ev.Generation == s.Manifest().Generation {
		return nil
	}
	return s.Reload(ctx)
}

// Manifest describes the loaded index.
func (s *Service) Manifest() index.Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen.manifest
}

func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

func (s *Service) acquire() *generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.gen
	g.inflight.Add(1)
	return g
}

// Search returns the ranked result of query, from the cache when possible.
// hit reports whether it came from the cache.
func (s *Service) Search(ctx context.Context, query string) (res result.SearchResult, hit bool, err error) {
	res, hit, _, err = s.search(ctx, query)
	return res, hit, err
}

// search also returns the generation key the result belongs to.
func (s *Service) search(ctx context.Context, query string) (result.SearchResult, bool, string, error) {
	if strings.TrimSpace(query) == "" {
		return result.SearchResult{}, false, "", fmt.Errorf("%w: empty query", apperrors.ErrInvalidQuery)
	}
	g := s.acquire()
	defer g.inflight.Done()

	gen := g.manifest.GenerationKey()
	res, hit, err := s.cache.GetOrCompute(ctx, gen, query, func(ctx context.Context) (result.SearchResult, error) {
		return s.evaluate(ctx, g, query)
	})
	return res, hit, gen, err
}

func (s *Service) evaluate(ctx context.Context, g *generation, query string) (result.SearchResult, error) {
	pctx, span := tracing.Child(ctx, "parse")
	root, err := g.parser.Parse(query)
	span.End()
	if err != nil {
		return result.SearchResult{}, err
	}
	span.Set("tree", root.String())

	ectx, span := tracing.Child(pctx, "execute")
	rs, err := g.exec.Execute(ectx, root)
	span.End()
	if err != nil {
		return result.SearchResult{}, err
	}
	span.Set("kind", rs.Kind.String())

	if rs.Kind != executor.Include {
		logger.FromContext(ctx).Debug("query has no rankable result", "query", query, "kind", rs.Kind.String())
		return result.Empty(), nil
	}
	_, span = tracing.Child(ectx, "paginate")
	res := result.FromPostings(rs.List)
	span.End()
	return res, nil
}

// Render fetches the documents of a page and builds their abstracts.
// Documents missing from the store are skipped.
func (s *Service) Render(ctx context.Context, query string, ids []index.DocID) ([]Hit, error) {
	words := highlight.Words(query)
	hits := make([]Hit, 0, len(ids))
	err := resilience.WithTimeout(ctx, docFetchTimeout, "fetch-documents", func(ctx context.Context) error {
		for _, id := range ids {
			doc, err := s.docs.Get(ctx, id)
			if errors.Is(err, apperrors.ErrDocumentNotFound) {
				logger.FromContext(ctx).Debug("document missing from store, skipped", "doc_id", id)
				continue
			}
			if err != nil {
				return err
			}
			_, body, ok := strings.Cut(doc.Text, "\n")
			if !ok {
				body = doc.Text
			}
			hits = append(hits, Hit{
				DocID:    id,
				Title:    doc.Title(),
				Abstract: s.highlighter.Abstract(body, words),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rendering results: %w", err)
	}
	return hits, nil
}

// Query runs the whole pipeline for one page. Page numbers past the end are
// clamped to the last page.
func (s *Service) Query(ctx context.Context, query string, page int) (Response, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "query", logger.RequestIDFrom(ctx))
	defer func() {
		span.End()
		if s.opts.Trace {
			span.Log(logger.FromContext(ctx))
		}
	}()
	span.Set("query", query)

	res, hit, gen, err := s.search(ctx, query)
	if err != nil {
		s.observe("error", hit, start)
		return Response{}, err
	}
	page = max(1, min(page, res.PageCount()))

	rctx, rspan := tracing.Child(ctx, "render")
	hits, err := s.Render(rctx, query, res.Page(page))
	rspan.End()
	if err != nil {
		s.observe("error", hit, start)
		return Response{}, err
	}

	outcome := "miss"
	switch {
	case res.Count == 0:
		outcome = "zero_result"
	case hit:
		outcome = "hit"
	}
	s.observe(outcome, hit, start)
	if s.metrics != nil {
		s.metrics.SearchResultsCount.Observe(float64(res.Count))
	}
	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"count", res.Count,
		"page", page,
		"cache_hit", hit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return Response{
		Query:      query,
		Count:      res.Count,
		Page:       page,
		PageCount:  res.PageCount(),
		Hits:       hits,
		CacheHit:   hit,
		Generation: gen,
		Result:     res,
	}, nil
}

func (s *Service) observe(outcome string, hit bool, start time.Time) {
	if s.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if hit {
		cacheStatus = "hit"
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
}

// Close releases the loaded index. Searches must have finished.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == nil {
		return nil
	}
	err := s.gen.router.Close()
	s.gen = nil
	return err
}
