package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
)

func referenceTerms() Terms {
	return Terms{
		tokenizer.Stem("vanilla"):    index.MustParsePostingList("1:2.0:1,5|2:2.0:4,10"),
		tokenizer.Stem("chocolate"):  index.MustParsePostingList("1:2.0:2,6|2:2.0:6,12|4:4.0:1,2"),
		tokenizer.Stem("strawberry"): index.MustParsePostingList("1:1.4:3,4|2:1.4:8,14|4:2.0:1,2"),
		tokenizer.Stem("cake"):       index.MustParsePostingList("1:1.4:3,4|2:1.4:8,14|4:2.0:1,2"),
	}
}

func eval(t *testing.T, q string, stop stopwords.Set) ResultSet {
	t.Helper()
	n, err := parser.New(stop).Parse(q)
	require.NoError(t, err)
	return Evaluate(n, referenceTerms())
}

func TestEvaluate_ReferenceQuery(t *testing.T) {
	rs := eval(t, "(vanilla or not chocolate cake) and (strawberry)", stopwords.Set{})
	require.Equal(t, Include, rs.Kind)
	assert.Equal(t, index.PostingList{{DocID: 1, Score: 1.4}, {DocID: 2, Score: 1.4}}, rs.List)
}

func TestEvaluate_Phrase(t *testing.T) {
	rs := eval(t, "vanilla cake", stopwords.Set{})
	require.Equal(t, Include, rs.Kind)
	require.Equal(t, []index.DocID{1, 2}, rs.List.DocIDs())
	// doc 1: vanilla at 1,6 and cake at 3,7 are one apart.
	assert.InDelta(t, 2.8*2.8, rs.List[0].Score, 1e-9)
	// doc 2: vanilla at 4,14 and cake at 8,22 are four apart.
	assert.Greater(t, rs.List[1].Score, 2.8)
	assert.Less(t, rs.List[1].Score, rs.List[0].Score)
}

func TestEvaluate_NotClause(t *testing.T) {
	rs := eval(t, "cake and not (vanilla or chocolate)", stopwords.Set{})
	require.Equal(t, Include, rs.Kind)
	assert.Empty(t, rs.List)

	rs = eval(t, "cake and not vanilla", stopwords.Set{})
	require.Equal(t, Include, rs.Kind)
	assert.Equal(t, []index.DocID{4}, rs.List.DocIDs())

	rs = eval(t, "not vanilla", stopwords.Set{})
	assert.Equal(t, Exclude, rs.Kind)
}

func TestEvaluate_StopWordsAreNeutral(t *testing.T) {
	stop := stopwords.NewSet([]string{"the"})
	with := eval(t, "the and cake", stop)
	without := eval(t, "cake", stop)
	assert.Equal(t, without, with)

	only := eval(t, "the", stop)
	assert.Equal(t, Ignore, only.Kind)
}

func TestEvaluate_MissingTerm(t *testing.T) {
	rs := eval(t, "cake and unknownword", stopwords.Set{})
	require.Equal(t, Include, rs.Kind)
	assert.Empty(t, rs.List)

	rs = eval(t, "cake or unknownword", stopwords.Set{})
	assert.Equal(t, []index.DocID{1, 2, 4}, rs.List.DocIDs())
}

func TestIdentityLaws(t *testing.T) {
	a := index.MustParsePostingList("1:1|3:2")
	for _, x := range []ResultSet{IncludeOf(a), ExcludeOf(a)} {
		assert.Equal(t, x, And(IgnoreSet(), x))
		assert.Equal(t, x, And(x, IgnoreSet()))
		assert.Equal(t, x, Or(IgnoreSet(), x))
		assert.Equal(t, x, Or(x, IgnoreSet()))
	}
	assert.Equal(t, Ignore, And(IgnoreSet(), IgnoreSet()).Kind)
}

func TestCombinationTables(t *testing.T) {
	a := index.MustParsePostingList("1:1|2:1|3:1")
	b := index.MustParsePostingList("2:1|3:1|4:1")

	cases := []struct {
		name string
		got  ResultSet
		kind Kind
		ids  []index.DocID
	}{
		{"and inc inc", And(IncludeOf(a), IncludeOf(b)), Include, []index.DocID{2, 3}},
		{"and inc exc", And(IncludeOf(a), ExcludeOf(b)), Include, []index.DocID{1}},
		{"and exc inc", And(ExcludeOf(a), IncludeOf(b)), Include, []index.DocID{4}},
		{"and exc exc", And(ExcludeOf(a), ExcludeOf(b)), Exclude, []index.DocID{1, 2, 3, 4}},
		{"or inc inc", Or(IncludeOf(a), IncludeOf(b)), Include, []index.DocID{1, 2, 3, 4}},
		{"or inc exc", Or(IncludeOf(a), ExcludeOf(b)), Exclude, []index.DocID{4}},
		{"or exc inc", Or(ExcludeOf(a), IncludeOf(b)), Exclude, []index.DocID{1}},
		{"or exc exc", Or(ExcludeOf(a), ExcludeOf(b)), Exclude, []index.DocID{2, 3}},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.got.Kind, c.name)
		assert.Equal(t, c.ids, c.got.List.DocIDs(), c.name)
	}
}

type mapLookup map[string]index.PostingList

func (m mapLookup) Lookup(_ context.Context, term string) (index.PostingList, error) {
	return m[term], nil
}

type failingLookup struct{}

func (failingLookup) Lookup(context.Context, string) (index.PostingList, error) {
	return nil, errors.New("disk on fire")
}

func TestExecutor_Execute(t *testing.T) {
	e := New(mapLookup(referenceTerms()))
	root, err := parser.New(stopwords.Set{}).Parse("vanilla or strawberry")
	require.NoError(t, err)

	rs, err := e.Execute(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Include, rs.Kind)
	assert.Equal(t, []index.DocID{1, 2, 4}, rs.List.DocIDs())

	_, err = New(failingLookup{}).Execute(context.Background(), root)
	assert.Error(t, err)
}

func TestExecutor_UsesMemoryIndex(t *testing.T) {
	mem := index.NewMemoryIndexFrom([]index.TermEntry{
		{Term: "cake", Postings: index.MustParsePostingList("4:2")},
	})
	root, err := parser.New(stopwords.Set{}).Parse("cake")
	require.NoError(t, err)
	rs, err := New(mem).Execute(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{{DocID: 4, Score: 2}}, rs.List)
}
