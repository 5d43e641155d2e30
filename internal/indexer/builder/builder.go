// Package builder turns a corpus into a sharded inverted index. The build runs
// three stages separated by hash-partitioned shuffles: positions per document,
// term frequency per (term, document), and scored posting lists per term.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
)

const lockFile = ".build.lock"

// Options controls one build.
type Options struct {
	IndexDir string
	// BoundaryPath is where the shard boundary file is written. A copy is
	// always kept in IndexDir so the index directory is self-contained.
	BoundaryPath    string
	NumShards       int
	Workers         int
	Partitions      int
	DocCount        int
	Stop            stopwords.Set
	FilterStopWords bool
	SampleRate      float64
	MaxSamples      int
	SampleSeed      int64
	// Metrics, if set, receives build counters.
	Metrics *metrics.Metrics
}

// OptionsFromConfig fills Options from the indexer config section.
func OptionsFromConfig(cfg config.IndexerConfig) Options {
	return Options{
		IndexDir:        cfg.DataDir,
		NumShards:       cfg.NumShards,
		Workers:         cfg.Workers,
		Partitions:      cfg.Partitions,
		FilterStopWords: cfg.FilterStopWords,
		SampleRate:      cfg.SampleRate,
		MaxSamples:      cfg.MaxSamples,
		SampleSeed:      cfg.SampleSeed,
	}
}

type Builder struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) *Builder {
	if opts.NumShards < 1 {
		opts.NumShards = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Partitions < 1 {
		opts.Partitions = 1
	}
	if opts.BoundaryPath == "" {
		opts.BoundaryPath = filepath.Join(opts.IndexDir, shard.DefaultBoundaryFile)
	}
	return &Builder{
		opts:   opts,
		logger: slog.Default().With("component", "index-builder"),
		now:    time.Now,
	}
}

// BuildFile reads the corpus at path and builds the index from it.
func (b *Builder) BuildFile(ctx context.Context, path string) (index.Manifest, error) {
	docs, err := corpus.ReadAll(ctx, path)
	if err != nil {
		return index.Manifest{}, err
	}
	return b.Build(ctx, docs)
}

// Build writes the shard segments, the boundary file and the manifest for
// docs into the index directory. Only one build may hold the directory.
func (b *Builder) Build(ctx context.Context, docs []corpus.Document) (index.Manifest, error) {
	start := b.now()
	m, err := b.build(ctx, docs)
	if b.opts.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		b.opts.Metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
		b.opts.Metrics.IndexBuildDuration.Observe(b.now().Sub(start).Seconds())
	}
	return m, err
}

func (b *Builder) build(ctx context.Context, docs []corpus.Document) (index.Manifest, error) {
	if err := os.MkdirAll(b.opts.IndexDir, 0755); err != nil {
		return index.Manifest{}, fmt.Errorf("creating index directory: %w", err)
	}
	lock := flock.New(filepath.Join(b.opts.IndexDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return index.Manifest{}, fmt.Errorf("locking index directory: %w", err)
	}
	if !locked {
		return index.Manifest{}, fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, b.opts.IndexDir)
	}
	defer lock.Unlock()

	start := b.now()
	n := b.opts.DocCount
	if n <= 0 {
		n = len(docs)
	} else if n < len(docs) {
		b.logger.Warn("document count smaller than corpus, idf may be negative",
			"doc_count", n,
			"corpus_docs", len(docs),
		)
	}

	occurrences, err := b.mapStage(ctx, docs)
	if err != nil {
		return index.Manifest{}, fmt.Errorf("mapping positions: %w", err)
	}
	termDocs, err := b.termFreqStage(ctx, occurrences)
	if err != nil {
		return index.Manifest{}, fmt.Errorf("reducing term frequencies: %w", err)
	}
	entries, err := b.postingStage(ctx, termDocs, n)
	if err != nil {
		return index.Manifest{}, fmt.Errorf("reducing postings: %w", err)
	}
	b.logger.Info("postings computed",
		"docs", len(docs),
		"terms", len(entries),
		"elapsed", b.now().Sub(start),
	)

	bounds, err := b.writeShards(ctx, entries)
	if err != nil {
		return index.Manifest{}, err
	}
	builtAt := b.now()
	m := index.Manifest{
		Generation: builtAt.UnixNano(),
		DocCount:   n,
		TermCount:  len(entries),
		NumShards:  bounds.NumShards(),
		BuiltAt:    builtAt.UTC(),
	}
	if err := index.WriteManifest(b.opts.IndexDir, m); err != nil {
		return index.Manifest{}, err
	}
	b.logger.Info("index build complete",
		"index_dir", b.opts.IndexDir,
		"generation", m.Generation,
		"num_shards", m.NumShards,
		"elapsed", builtAt.Sub(start),
	)
	return m, nil
}

func (b *Builder) termTokenizer() tokenizer.Tokenizer {
	if !b.opts.FilterStopWords || b.opts.Stop.Len() == 0 {
		return tokenizer.Tokenizer{}
	}
	stop := b.opts.Stop
	return tokenizer.Tokenizer{Skip: stop.Contains}
}

// mapStage tokenizes documents in parallel and routes each occurrence to its
// (term, doc) partition.
func (b *Builder) mapStage(ctx context.Context, docs []corpus.Document) ([][]Occurrence, error) {
	parts := b.opts.Partitions
	tok := b.termTokenizer()
	chunks := split(len(docs), b.opts.Workers)
	local := make([][][]Occurrence, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for w, c := range chunks {
		g.Go(func() error {
			buckets := make([][]Occurrence, parts)
			for i := c[0]; i < c[1]; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				for _, occ := range MapPositions(tok, docs[i]) {
					p := termDocPartition(occ.Term, occ.DocID, parts)
					buckets[p] = append(buckets[p], occ)
				}
			}
			local[w] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([][]Occurrence, parts)
	for _, buckets := range local {
		for p, occs := range buckets {
			out[p] = append(out[p], occs...)
		}
	}
	return out, nil
}

type termDocKey struct {
	term  string
	docID index.DocID
}

// termFreqStage reduces each partition to TermDocs and reshuffles them by term.
func (b *Builder) termFreqStage(ctx context.Context, partitions [][]Occurrence) ([][]TermDoc, error) {
	parts := b.opts.Partitions
	local := make([][][]TermDoc, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for p, occs := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grouped := make(map[termDocKey][]int)
			for _, o := range occs {
				k := termDocKey{o.Term, o.DocID}
				grouped[k] = append(grouped[k], o.Position)
			}
			buckets := make([][]TermDoc, parts)
			for k, positions := range grouped {
				td := ReduceTermFreq(k.term, k.docID, positions)
				q := termPartition(td.Term, parts)
				buckets[q] = append(buckets[q], td)
			}
			local[p] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([][]TermDoc, parts)
	for _, buckets := range local {
		for q, tds := range buckets {
			out[q] = append(out[q], tds...)
		}
	}
	return out, nil
}

// postingStage scores every term and returns the entries sorted by term.
func (b *Builder) postingStage(ctx context.Context, partitions [][]TermDoc, n int) ([]index.TermEntry, error) {
	local := make([][]index.TermEntry, len(partitions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for p, tds := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grouped := make(map[string][]TermDoc)
			for _, td := range tds {
				grouped[td.Term] = append(grouped[td.Term], td)
			}
			entries := make([]index.TermEntry, 0, len(grouped))
			for term, docs := range grouped {
				entries = append(entries, ReducePostings(term, docs, n))
			}
			local[p] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []index.TermEntry
	for _, entries := range local {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Term < all[j].Term })
	return all, nil
}

// writeShards samples terms for the shard boundaries and writes one segment
// per shard, including empty ones.
func (b *Builder) writeShards(ctx context.Context, entries []index.TermEntry) (shard.Boundaries, error) {
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = e.Term
	}
	samples := shard.Sample(terms, b.opts.SampleRate, b.opts.MaxSamples, b.opts.SampleSeed)
	bounds := shard.ComputeBoundaries(samples, b.opts.NumShards)

	perShard := make([][]index.TermEntry, bounds.NumShards())
	for _, e := range entries {
		id := bounds.ShardFor(e.Term)
		perShard[id] = append(perShard[id], e)
	}

	if err := b.removeStaleSegments(); err != nil {
		return nil, err
	}
	w := segment.NewWriter(b.opts.IndexDir)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for id, es := range perShard {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := w.Write(segment.FileName(id), es); err != nil {
				return fmt.Errorf("writing shard %d: %w", id, err)
			}
			b.logger.Debug("shard written", "shard_id", id, "terms", len(es))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := bounds.Save(b.opts.BoundaryPath); err != nil {
		return nil, err
	}
	local := filepath.Join(b.opts.IndexDir, shard.DefaultBoundaryFile)
	if filepath.Clean(local) != filepath.Clean(b.opts.BoundaryPath) {
		if err := bounds.Save(local); err != nil {
			return nil, err
		}
	}
	return bounds, nil
}

func (b *Builder) removeStaleSegments() error {
	stale, err := filepath.Glob(filepath.Join(b.opts.IndexDir, "part-*"+segment.Extension))
	if err != nil {
		return fmt.Errorf("listing old segments: %w", err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing old segment: %w", err)
		}
	}
	return nil
}

// split divides n items into at most k contiguous [start, end) ranges.
func split(n, k int) [][2]int {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	out := make([][2]int, 0, k)
	size := (n + k - 1) / k
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
