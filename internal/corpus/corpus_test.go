package corpus

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

func TestTSVRoundTrip(t *testing.T) {
	docs := []Document{
		{ID: 1, Text: "Vanilla cake\nwith a\ttab and a back\\slash"},
		{ID: 42, Text: "one line"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, docs))

	var got []Document
	err := Read(context.Background(), &buf, FormatTSV, func(d Document) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, docs, got)
	assert.Equal(t, "Vanilla cake", got[0].Title())
}

func TestReadJSONL(t *testing.T) {
	in := `{"id": 3, "text": "Chocolate\nbody"}` + "\n\n" + `{"id": 4, "text": "x"}` + "\n"
	var got []Document
	err := Read(context.Background(), strings.NewReader(in), FormatJSONL, func(d Document) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Chocolate", got[0].Title())
}

func TestRead_Malformed(t *testing.T) {
	err := Read(context.Background(), strings.NewReader("no tab here\n"), FormatTSV, func(Document) error { return nil })
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	err = Read(context.Background(), strings.NewReader("x\ttext\n"), FormatTSV, func(Document) error { return nil })
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSONL, FormatFor("wiki.jsonl"))
	assert.Equal(t, FormatTSV, FormatFor("wiki.tsv"))
	assert.Equal(t, FormatTSV, FormatFor("wiki"))
}

func writeCorpus(t *testing.T, docs []Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteTSV(f, docs))
	require.NoError(t, f.Close())
	return path
}

func TestCounts(t *testing.T) {
	path := writeCorpus(t, []Document{
		{ID: 1, Text: "The cake, the pie"},
		{ID: 2, Text: "the 1999 cake"},
	})
	ctx := context.Background()

	n, err := CountDocuments(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := WordCounts(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["the"])
	assert.Equal(t, 2, counts["cake"])
	_, hasDigits := counts["1999"]
	assert.False(t, hasDigits)
}

func TestDocCountFile(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := ReadDocCount(dir)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = WriteDocCount(dir, 1234)
	require.NoError(t, err)
	n, ok, err := ReadDocCount(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1234, n)
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, []Document{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}))
	require.NoError(t, s.Put(ctx, []Document{{ID: 2, Text: "b2"}}))

	d, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "b2", d.Text)

	_, err = s.Get(ctx, 99)
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docs", "corpus.db"))
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}
