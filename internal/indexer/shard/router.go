package shard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
)

// DefaultCacheSize is the number of decoded posting lists kept when the
// configured size is not positive.
const DefaultCacheSize = 4096

// Router maps terms to shard segment files. Segment readers are opened on
// first use, so a query touches only the shards that own its terms.
type Router struct {
	indexDir string
	bounds   Boundaries
	readers  map[int]*segment.Reader
	mu       sync.Mutex
	cache    *lru.Cache[string, index.PostingList]
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Open prepares a Router over indexDir. boundaryPath may be empty, in which
// case indexDir/partition.txt is used.
func Open(indexDir, boundaryPath string, cacheSize int) (*Router, error) {
	if boundaryPath == "" {
		boundaryPath = filepath.Join(indexDir, DefaultBoundaryFile)
	}
	bounds, err := LoadBoundaries(boundaryPath)
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, index.PostingList](cacheSize)
	r := &Router{
		indexDir: indexDir,
		bounds:   bounds,
		readers:  make(map[int]*segment.Reader),
		cache:    cache,
		logger:   slog.Default().With("component", "shard-router"),
	}
	r.logger.Info("shard router ready",
		"index_dir", indexDir,
		"num_shards", bounds.NumShards(),
	)
	return r, nil
}

// SetMetrics enables lookup counters. It must be called before the first
// lookup.
func (r *Router) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// NumShards returns the number of shards described by the boundary file.
func (r *Router) NumShards() int {
	return r.bounds.NumShards()
}

// Lookup returns the posting list for term; absent terms yield an empty list.
func (r *Router) Lookup(ctx context.Context, term string) (index.PostingList, error) {
	if list, ok := r.cache.Get(term); ok {
		r.count("lru")
		return list, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shardID := r.bounds.ShardFor(term)
	reader, err := r.reader(shardID)
	if err != nil {
		return nil, err
	}
	list, err := reader.Search(term)
	if err != nil {
		return nil, fmt.Errorf("shard %d: %w", shardID, err)
	}
	if list == nil {
		list = index.PostingList{}
	}
	r.cache.Add(term, list)
	r.count("segment")
	return list, nil
}

func (r *Router) count(source string) {
	if r.metrics != nil {
		r.metrics.PostingLookupsTotal.WithLabelValues(source).Inc()
	}
}

// LookupAll loads several terms, reading different shards concurrently.
func (r *Router) LookupAll(ctx context.Context, terms []string) (map[string]index.PostingList, error) {
	byShard := make(map[int][]string)
	for _, t := range terms {
		id := r.bounds.ShardFor(t)
		byShard[id] = append(byShard[id], t)
	}
	out := make(map[string]index.PostingList, len(terms))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for shardID, shardTerms := range byShard {
		g.Go(func() error {
			for _, t := range shardTerms {
				list, err := r.Lookup(gctx, t)
				if err != nil {
					return err
				}
				mu.Lock()
				out[t] = list
				mu.Unlock()
			}
			r.logger.Debug("shard lookup done", "shard_id", shardID, "terms", len(shardTerms))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Router) reader(shardID int) (*segment.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rd, ok := r.readers[shardID]; ok {
		return rd, nil
	}
	path := filepath.Join(r.indexDir, segment.FileName(shardID))
	rd, err := segment.OpenReader(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: shard %d has no segment at %s", apperrors.ErrShardUnavailable, shardID, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening shard %d: %w", shardID, err)
	}
	r.readers[shardID] = rd
	r.logger.Debug("segment opened", "shard_id", shardID, "terms", rd.Terms())
	return rd, nil
}

// Close closes every opened segment reader.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for id, rd := range r.readers {
		if err := rd.Close(); err != nil {
			r.logger.Error("close failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	r.readers = make(map[int]*segment.Reader)
	r.cache.Purge()
	return firstErr
}
