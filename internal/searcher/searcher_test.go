package searcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/highlight"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

func bakery() []corpus.Document {
	return []corpus.Document{
		{ID: 1, Text: "Vanilla cake\nA vanilla cake with cream and more cake"},
		{ID: 2, Text: "Strawberry pie\nfresh strawberry and vanilla"},
		{ID: 3, Text: "Apple pie\napple apple pie"},
		{ID: 4, Text: "Chocolate cake\nchocolate"},
	}
}

func buildIndex(t *testing.T, dir string, docs []corpus.Document) index.Manifest {
	t.Helper()
	m, err := builder.New(builder.Options{
		IndexDir:   dir,
		NumShards:  2,
		SampleRate: 1,
		MaxSamples: 100,
	}).Build(context.Background(), docs)
	require.NoError(t, err)
	return m
}

func newService(t *testing.T, docs corpus.Store) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	buildIndex(t, dir, bakery())
	s, err := New(context.Background(), Options{IndexDir: dir, PostingCacheSize: 8},
		docs, cache.New(cache.NewMemoryStore(), nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestQuery_RanksAndRenders(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore(bakery()...))

	resp, err := s.Query(context.Background(), "cake", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.PageCount)
	assert.False(t, resp.CacheHit)
	require.Len(t, resp.Hits, 2)

	first := resp.Hits[0]
	assert.Equal(t, index.DocID(1), first.DocID)
	assert.Equal(t, "Vanilla cake", first.Title)
	assert.Contains(t, first.Abstract, highlight.DefaultMarker.Open+"cake"+highlight.DefaultMarker.Close)
	assert.NotContains(t, first.Abstract, "Vanilla cake\n")
	assert.Equal(t, index.DocID(4), resp.Hits[1].DocID)
	assert.Equal(t, s.Manifest().GenerationKey(), resp.Generation)
}

func TestQuery_SecondCallHitsCache(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore(bakery()...))
	ctx := context.Background()

	_, err := s.Query(ctx, "pie or cake", 1)
	require.NoError(t, err)
	resp, err := s.Query(ctx, "  PIE or cake", 1)
	require.NoError(t, err)
	assert.True(t, resp.CacheHit)
	assert.Equal(t, 4, resp.Count)

	hits, misses := s.Cache().Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestQuery_PageIsClamped(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore(bakery()...))
	resp, err := s.Query(context.Background(), "pie", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)

	resp, err = s.Query(context.Background(), "pie", -3)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
}

func TestQuery_NoMatches(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore(bakery()...))
	for _, q := range []string{"marzipan", "not cake", "cake and marzipan"} {
		t.Run(q, func(t *testing.T) {
			resp, err := s.Query(context.Background(), q, 1)
			require.NoError(t, err)
			assert.Zero(t, resp.Count)
			assert.Empty(t, resp.Hits)
		})
	}
}

func TestQuery_MissingDocumentIsSkipped(t *testing.T) {
	docs := bakery()
	s, _ := newService(t, corpus.NewMemoryStore(docs[:3]...))

	resp, err := s.Query(context.Background(), "cake", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, index.DocID(1), resp.Hits[0].DocID)
}

type failingDocs struct{ corpus.MemoryStore }

func (*failingDocs) Get(context.Context, index.DocID) (corpus.Document, error) {
	return corpus.Document{}, errors.New("database is gone")
}

func TestQuery_DocumentStoreFailure(t *testing.T) {
	s, _ := newService(t, &failingDocs{})
	_, err := s.Query(context.Background(), "cake", 1)
	assert.Error(t, err)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore())
	_, _, err := s.Search(context.Background(), "   ")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
}

func TestNew_MissingIndex(t *testing.T) {
	_, err := New(context.Background(), Options{IndexDir: t.TempDir()}, corpus.NewMemoryStore(), nil, nil)
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotFound))
}

func TestReload_SwitchesGeneration(t *testing.T) {
	s, dir := newService(t, corpus.NewMemoryStore(bakery()...))
	ctx := context.Background()
	before := s.Manifest()

	res, _, err := s.Search(ctx, "cake")
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)

	more := append(bakery(), corpus.Document{ID: 5, Text: "Carrot cake\ncarrot cake"})
	m := buildIndex(t, dir, more)
	require.NotEqual(t, before.Generation, m.Generation)

	require.NoError(t, s.OnIndexComplete(ctx, events.FromManifest(dir, m)))
	assert.Equal(t, m.Generation, s.Manifest().Generation)

	res, hit, err := s.Search(ctx, "cake")
	require.NoError(t, err)
	assert.False(t, hit, "results of the previous build are not reused")
	assert.Equal(t, 3, res.Count)
}

func TestOnIndexComplete_IgnoresOtherDirectories(t *testing.T) {
	s, _ := newService(t, corpus.NewMemoryStore(bakery()...))
	before := s.Manifest()
	err := s.OnIndexComplete(context.Background(), events.IndexComplete{
		Generation: before.Generation + 1,
		IndexDir:   t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, before, s.Manifest())
}

func TestQuery_Pagination(t *testing.T) {
	var docs []corpus.Document
	for i := 1; i <= 23; i++ {
		docs = append(docs, corpus.Document{ID: index.DocID(i), Text: fmt.Sprintf("Doc %d\nshared words here", i)})
	}
	dir := t.TempDir()
	buildIndex(t, dir, docs)
	s, err := New(context.Background(), Options{IndexDir: dir}, corpus.NewMemoryStore(docs...), nil, nil)
	require.NoError(t, err)
	defer s.Close()

	resp, err := s.Query(context.Background(), "shared", 3)
	require.NoError(t, err)
	assert.Equal(t, 23, resp.Count)
	assert.Equal(t, 3, resp.PageCount)
	assert.Len(t, resp.Hits, 3)
	assert.Equal(t, index.DocID(21), resp.Hits[0].DocID)
}
