package shard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

func TestBoundaries_ShardFor(t *testing.T) {
	b := Boundaries{"d", "m", "t"}
	cases := map[string]int{
		"a": 0, "czz": 0,
		"d": 1, "kiwi": 1,
		"m": 2, "s": 2,
		"t": 3, "zebra": 3,
	}
	for term, want := range cases {
		assert.Equal(t, want, b.ShardFor(term), term)
	}
	assert.Equal(t, 4, b.NumShards())
	assert.Equal(t, 0, Boundaries{}.ShardFor("anything"))
}

func TestComputeBoundaries(t *testing.T) {
	samples := []string{"h", "b", "f", "d", "j", "b", "a", "c", "e", "g", "i"}
	b := ComputeBoundaries(samples, 3)
	require.Len(t, b, 2)
	assert.True(t, b[0] < b[1])

	assert.Empty(t, ComputeBoundaries(samples, 1))
	assert.Empty(t, ComputeBoundaries(nil, 4))

	few := ComputeBoundaries([]string{"x", "x", "y"}, 10)
	assert.Equal(t, Boundaries{"x", "y"}, few)
}

func TestSample_Deterministic(t *testing.T) {
	terms := make([]string, 1000)
	for i := range terms {
		terms[i] = string(rune('a'+i%26)) + string(rune('a'+i/26%26))
	}
	a := Sample(terms, 0.1, 50, 30)
	b := Sample(terms, 0.1, 50, 30)
	assert.Equal(t, a, b)
	assert.LessOrEqual(t, len(a), 50)
	assert.NotEmpty(t, a)
	assert.Len(t, Sample(terms, 1, 20, 1), 20)
	assert.Empty(t, Sample(terms, 0, 20, 1))
}

func TestLoadBoundaries_Missing(t *testing.T) {
	b, err := LoadBoundaries(filepath.Join(t.TempDir(), "none.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.NumShards())
}

func TestBoundaries_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", DefaultBoundaryFile)
	require.NoError(t, Boundaries{"cake", "pie"}.Save(path))

	got, err := LoadBoundaries(path)
	require.NoError(t, err)
	assert.Equal(t, Boundaries{"cake", "pie"}, got)
}

func writeShards(t *testing.T, dir string, b Boundaries, entries []index.TermEntry) {
	t.Helper()
	perShard := make([][]index.TermEntry, b.NumShards())
	for _, e := range entries {
		id := b.ShardFor(e.Term)
		perShard[id] = append(perShard[id], e)
	}
	w := segment.NewWriter(dir)
	for id, es := range perShard {
		require.NoError(t, w.Write(segment.FileName(id), es))
	}
}

func TestRouter_Lookup(t *testing.T) {
	dir := t.TempDir()
	bounds := Boundaries{"m"}
	require.NoError(t, bounds.Save(filepath.Join(dir, DefaultBoundaryFile)))
	entries := []index.TermEntry{
		{Term: "cake", Postings: index.MustParsePostingList("1:1.4:3,1|4:2:1,1")},
		{Term: "vanilla", Postings: index.MustParsePostingList("1:2:1,4|2:2:4,6")},
	}
	writeShards(t, dir, bounds, entries)

	r, err := Open(dir, "", 16)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, r.NumShards())

	ctx := context.Background()
	got, err := r.Lookup(ctx, "vanilla")
	require.NoError(t, err)
	assert.Equal(t, entries[1].Postings, got)

	missing, err := r.Lookup(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, missing)

	all, err := r.LookupAll(ctx, []string{"cake", "vanilla", "absent"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, []index.DocID{1, 4}, all["cake"].DocIDs())
	assert.Empty(t, all["absent"])
}

func TestRouter_NoBoundaryFile(t *testing.T) {
	dir := t.TempDir()
	writeShards(t, dir, Boundaries{}, []index.TermEntry{
		{Term: "cake", Postings: index.PostingList{{DocID: 3, Score: 1}}},
	})

	r, err := Open(dir, "", 0)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Lookup(context.Background(), "cake")
	require.NoError(t, err)
	assert.Equal(t, []index.DocID{3}, got.DocIDs())
}

func TestRouter_MissingSegment(t *testing.T) {
	r, err := Open(t.TempDir(), "", 0)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Lookup(context.Background(), "cake")
	assert.True(t, errors.Is(err, apperrors.ErrShardUnavailable))
}
