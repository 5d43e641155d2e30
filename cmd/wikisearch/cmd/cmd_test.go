package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// pipeline runs wordcount, doccount and build over a four-document corpus
// and returns the working directory.
func pipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WS_CORPUS_SQLITE_PATH", filepath.Join(dir, "corpus.db"))
	t.Setenv("WS_CACHE_BACKEND", "none")
	t.Setenv("WS_KAFKA_ENABLED", "false")

	var buf bytes.Buffer
	require.NoError(t, corpus.WriteTSV(&buf, []corpus.Document{
		{ID: 1, Text: "Vanilla cake\nthe vanilla cake with the cream"},
		{ID: 2, Text: "Strawberry pie\nthe fresh strawberry"},
		{ID: 3, Text: "Apple pie\nthe apple pie"},
		{ID: 4, Text: "Chocolate cake\nthe chocolate"},
	}))
	input := filepath.Join(dir, "corpus.tsv")
	require.NoError(t, os.WriteFile(input, buf.Bytes(), 0644))

	stopDir := filepath.Join(dir, "stopwords")
	out, err := run(t, "wordcount", "--input", input, "--output", stopDir, "--k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 stop words")

	countDir := filepath.Join(dir, "doccount")
	out, err = run(t, "doccount", "--input", input, "--output", countDir)
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = run(t, "build", stopDir, countDir, input, filepath.Join(dir, "index"), filepath.Join(dir, "partition.txt"))
	require.NoError(t, err)
	assert.Contains(t, out, "4 docs")
	return dir
}

func TestPipeline_Query(t *testing.T) {
	dir := pipeline(t)
	index := filepath.Join(dir, "index")

	stop, err := os.ReadFile(filepath.Join(index, stopwords.FileName))
	require.NoError(t, err)
	assert.Equal(t, "the\n", string(stop))

	out, err := run(t, "query", "cake", "1", "-i", index, "-o", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2/1\n1\nVanilla cake\n"), out)
	assert.Equal(t, 2, strings.Count(out, recordDelimiter))
	assert.Contains(t, out, recordDelimiter+"4\nChocolate cake\n")
	assert.True(t, strings.HasSuffix(out, recordDelimiter))

	res, err := os.ReadFile(filepath.Join(dir, "out", ResultFile))
	require.NoError(t, err)
	assert.Equal(t, "2;1,4\n", string(res))
}

func TestPipeline_QueryWithoutMatches(t *testing.T) {
	dir := pipeline(t)
	out, err := run(t, "query", "the", "-i", filepath.Join(dir, "index"))
	require.NoError(t, err)
	assert.Equal(t, "0/0\n", out)
}

func TestPipeline_Doc(t *testing.T) {
	pipeline(t)
	out, err := run(t, "doc", "3")
	require.NoError(t, err)
	assert.Equal(t, "Apple pie\nthe apple pie\n", out)

	_, err = run(t, "doc", "99")
	assert.Error(t, err)
}

func TestQuery_BadArguments(t *testing.T) {
	t.Setenv("WS_CORPUS_SQLITE_PATH", filepath.Join(t.TempDir(), "corpus.db"))
	t.Setenv("WS_CACHE_BACKEND", "none")

	_, err := run(t, "query", "cake", "first")
	assert.Error(t, err)

	_, err = run(t, "query", "cake", "-i", t.TempDir())
	assert.Error(t, err, "no index in directory")
}
