package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

func parse(t *testing.T, p *Parser, q string) *Node {
	t.Helper()
	n, err := p.Parse(q)
	require.NoError(t, err)
	return n
}

func TestParse_ReferenceQuery(t *testing.T) {
	n := parse(t, New(stopwords.Set{}), "(vanilla or not chocolate cake) and (strawberry)")
	want := "AND(OR(WORD(vanilla), EXCEPT_WORD(" + tokenizer.Stem("chocolate") + ")), OR(WORD(" + tokenizer.Stem("strawberry") + ")))"
	assert.Equal(t, want, n.String())
}

func TestParse_Shapes(t *testing.T) {
	p := New(stopwords.Set{})
	cases := map[string]string{
		"cake":              "AND(OR(WORD(cake)))",
		"Cake AND Pie":      "AND(OR(WORD(cake)), OR(WORD(pie)))",
		"vanilla cake":      "AND(OR(AND(WORD(vanilla), WORD(cake))))",
		"not (cake or pie)": "AND(NOT_OR(WORD(cake), WORD(pie)))",
		"pie and not(cake)": "AND(OR(WORD(pie)), NOT_OR(WORD(cake)))",
		"a or b and c":      "AND(OR(WORD(a), WORD(b)), OR(WORD(c)))",
		"normal or pie":     "AND(OR(WORD(normal), WORD(pie)))",
		"pie or not cake":   "AND(OR(WORD(pie), EXCEPT_WORD(cake)))",
		"ice-cream":         "AND(OR(AND(WORD(ice), WORD(cream))))",
		"notable":           "AND(OR(WORD(" + tokenizer.Stem("notable") + ")))",
		"pie and 1999":      "AND(OR(WORD(pie)), OR(STOP_WORD))",
	}
	for q, want := range cases {
		assert.Equal(t, want, parse(t, p, q).String(), q)
	}
}

func TestParse_StopWords(t *testing.T) {
	p := New(stopwords.NewSet([]string{"the", "running"}))
	n := parse(t, p, "the cake or not the and runs")
	assert.Equal(t, "AND(OR(AND(STOP_WORD, WORD(cake)), STOP_WORD), OR(STOP_WORD))", n.String())
}

func TestParse_Empty(t *testing.T) {
	_, err := New(stopwords.Set{}).Parse("   ")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
}

func TestTerms(t *testing.T) {
	n := parse(t, New(stopwords.Set{}), "cake or pie and not cake and vanilla cake")
	assert.Equal(t, []string{"cake", "pie", "vanilla"}, Terms(n))
}

func TestIsPhrase(t *testing.T) {
	n := parse(t, New(stopwords.Set{}), "vanilla cake and pie")
	assert.False(t, n.IsPhrase())
	assert.True(t, n.Children[0].Children[0].IsPhrase())
	assert.False(t, n.Children[1].IsPhrase())
}
