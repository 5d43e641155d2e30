// Package executor evaluates parsed query trees against posting lists.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/algebra"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/parser"
)

// Kind tags a ResultSet.
type Kind int

const (
	// Ignore is the identity of both And and Or.
	Ignore Kind = iota
	// Include holds the documents of the result.
	Include
	// Exclude holds documents to remove from whatever the result would be.
	Exclude
)

func (k Kind) String() string {
	switch k {
	case Ignore:
		return "IGNORE"
	case Include:
		return "INCLUDE"
	case Exclude:
		return "EXCLUDE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ResultSet is an intermediate evaluation value. List is sorted by DocID.
type ResultSet struct {
	Kind Kind
	List index.PostingList
}

func IncludeOf(l index.PostingList) ResultSet { return ResultSet{Kind: Include, List: l} }
func ExcludeOf(l index.PostingList) ResultSet { return ResultSet{Kind: Exclude, List: l} }
func IgnoreSet() ResultSet                    { return ResultSet{Kind: Ignore, List: index.PostingList{}} }

// Terms maps stemmed words to their posting lists. Missing words have no
// documents.
type Terms map[string]index.PostingList

// Evaluate walks the tree bottom-up.
func Evaluate(n *parser.Node, terms Terms) ResultSet {
	switch n.Kind {
	case parser.Word:
		return IncludeOf(list(terms, n.Word))
	case parser.ExceptWord:
		return ExcludeOf(list(terms, n.Word))
	case parser.StopWord:
		return IgnoreSet()
	case parser.And:
		children := evaluateAll(n.Children, terms)
		intersect := algebra.Intersect
		if n.IsPhrase() {
			intersect = algebra.IntersectPhrase
		}
		return andAll(children, intersect)
	case parser.Or, parser.NotOr:
		children := evaluateAll(n.Children, terms)
		if len(children) == 0 {
			return IncludeOf(index.PostingList{})
		}
		rs := orRange(children)
		if n.Kind == parser.NotOr {
			rs = flip(rs)
		}
		return rs
	default:
		panic(fmt.Sprintf("executor: unknown node kind %v", n.Kind))
	}
}

func list(terms Terms, word string) index.PostingList {
	if l, ok := terms[word]; ok {
		return l
	}
	return index.PostingList{}
}

func evaluateAll(nodes []*parser.Node, terms Terms) []ResultSet {
	out := make([]ResultSet, len(nodes))
	for i, c := range nodes {
		out[i] = Evaluate(c, terms)
	}
	return out
}

// andAll folds children shortest-first so repeated intersections stay small.
func andAll(children []ResultSet, intersect func(a, b index.PostingList) index.PostingList) ResultSet {
	switch len(children) {
	case 0:
		return IncludeOf(index.PostingList{})
	case 1:
		return copyOf(children[0])
	}
	sorted := make([]ResultSet, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].List) < len(sorted[j].List) })
	acc := sorted[0]
	for _, rs := range sorted[1:] {
		acc = and(acc, rs, intersect)
	}
	return acc
}

// orRange combines by splitting at the midpoint.
func orRange(children []ResultSet) ResultSet {
	if len(children) == 1 {
		return copyOf(children[0])
	}
	mid := (len(children) - 1) / 2
	return Or(orRange(children[:mid+1]), orRange(children[mid+1:]))
}

// And combines two result sets conjunctively.
func And(x, y ResultSet) ResultSet {
	return and(x, y, algebra.Intersect)
}

func and(x, y ResultSet, intersect func(a, b index.PostingList) index.PostingList) ResultSet {
	switch {
	case x.Kind == Ignore:
		return y
	case y.Kind == Ignore:
		return x
	case x.Kind == Include && y.Kind == Include:
		return IncludeOf(intersect(x.List, y.List))
	case x.Kind == Include && y.Kind == Exclude:
		return IncludeOf(algebra.Difference(x.List, y.List))
	case x.Kind == Exclude && y.Kind == Include:
		return IncludeOf(algebra.Difference(y.List, x.List))
	default:
		return ExcludeOf(algebra.Merge(x.List, y.List))
	}
}

// Or combines two result sets disjunctively.
func Or(x, y ResultSet) ResultSet {
	switch {
	case x.Kind == Ignore:
		return y
	case y.Kind == Ignore:
		return x
	case x.Kind == Include && y.Kind == Include:
		return IncludeOf(algebra.Merge(x.List, y.List))
	case x.Kind == Include && y.Kind == Exclude:
		return ExcludeOf(algebra.Difference(y.List, x.List))
	case x.Kind == Exclude && y.Kind == Include:
		return ExcludeOf(algebra.Difference(x.List, y.List))
	default:
		return ExcludeOf(algebra.Intersect(x.List, y.List))
	}
}

func flip(rs ResultSet) ResultSet {
	switch rs.Kind {
	case Include:
		rs.Kind = Exclude
	case Exclude:
		rs.Kind = Include
	}
	return rs
}

func copyOf(rs ResultSet) ResultSet {
	return ResultSet{Kind: rs.Kind, List: algebra.Copy(rs.List)}
}

// TermLookup fetches the posting list of one term.
type TermLookup interface {
	Lookup(ctx context.Context, term string) (index.PostingList, error)
}

// batchLookup is implemented by lookups that can fetch several terms at once,
// such as the shard router.
type batchLookup interface {
	LookupAll(ctx context.Context, terms []string) (map[string]index.PostingList, error)
}

// Executor loads the terms a query references and evaluates it.
type Executor struct {
	lookup TermLookup
	logger *slog.Logger
}

func New(lookup TermLookup) *Executor {
	return &Executor{
		lookup: lookup,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute evaluates root, loading only the terms it names.
func (e *Executor) Execute(ctx context.Context, root *parser.Node) (ResultSet, error) {
	terms, err := e.Load(ctx, parser.Terms(root))
	if err != nil {
		return ResultSet{}, err
	}
	rs := Evaluate(root, terms)
	e.logger.Debug("query evaluated",
		"tree", root.String(),
		"terms", len(terms),
		"kind", rs.Kind.String(),
		"hits", len(rs.List),
	)
	return rs, nil
}

// Load fetches the posting lists of words.
func (e *Executor) Load(ctx context.Context, words []string) (Terms, error) {
	if b, ok := e.lookup.(batchLookup); ok {
		m, err := b.LookupAll(ctx, words)
		if err != nil {
			return nil, fmt.Errorf("loading terms: %w", err)
		}
		return Terms(m), nil
	}
	terms := make(Terms, len(words))
	for _, w := range words {
		l, err := e.lookup.Lookup(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("loading term %q: %w", w, err)
		}
		terms[w] = l
	}
	return terms, nil
}
