// Package parser turns a boolean query into a two-level expression tree.
//
// The grammar is flat: the query is split on the word "and" into clauses,
// each clause on the word "or" into branches. Parentheses are decoration and
// are stripped, so "(a or b) and c" and "a or b and c" parse alike. A clause
// starting with "not" negates its whole or-body; a branch starting with "not"
// excludes a single word. A branch of several words is a phrase.
package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

type Kind int

const (
	And Kind = iota
	Or
	NotOr
	Word
	ExceptWord
	StopWord
)

func (k Kind) String() string {
	switch k {
	case And:
		return "AND"
	case Or:
		return "OR"
	case NotOr:
		return "NOT_OR"
	case Word:
		return "WORD"
	case ExceptWord:
		return "EXCEPT_WORD"
	case StopWord:
		return "STOP_WORD"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one vertex of the expression tree. Word is set on Word and
// ExceptWord leaves; Children on And, Or and NotOr.
type Node struct {
	Kind     Kind
	Word     string
	Children []*Node
}

// IsLeaf reports whether n has no children by kind.
func (n *Node) IsLeaf() bool {
	return n.Kind == Word || n.Kind == ExceptWord || n.Kind == StopWord
}

// IsPhrase reports whether n is an And over leaves, i.e. a multi-word branch.
func (n *Node) IsPhrase() bool {
	if n.Kind != And || len(n.Children) == 0 {
		return false
	}
	for _, c := range n.Children {
		if !c.IsLeaf() {
			return false
		}
	}
	return true
}

// String renders the tree as KIND(children) for logs and tests.
func (n *Node) String() string {
	switch n.Kind {
	case Word, ExceptWord:
		return n.Kind.String() + "(" + n.Word + ")"
	case StopWord:
		return n.Kind.String()
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return n.Kind.String() + "(" + strings.Join(parts, ", ") + ")"
}

// Terms lists the distinct words of Word and ExceptWord leaves in the order
// they first appear.
func Terms(n *Node) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == Word || n.Kind == ExceptWord {
			if _, ok := seen[n.Word]; !ok {
				seen[n.Word] = struct{}{}
				out = append(out, n.Word)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

var (
	andSep = regexp.MustCompile(`\band\b`)
	orSep  = regexp.MustCompile(`\bor\b`)
)

// Parser builds trees against one stop-word set.
type Parser struct {
	stop   stopwords.Set
	logger *slog.Logger
}

func New(stop stopwords.Set) *Parser {
	return &Parser{
		stop:   stop,
		logger: slog.Default().With("component", "query-parser"),
	}
}

// Parse returns an And root whose children are Or or NotOr clauses.
func (p *Parser) Parse(query string) (*Node, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", apperrors.ErrInvalidQuery)
	}
	root := &Node{Kind: And}
	for _, clause := range andSep.Split(q, -1) {
		root.Children = append(root.Children, p.parseClause(strings.TrimSpace(clause)))
	}
	p.logger.Debug("query parsed", "query", q, "tree", root.String())
	return root, nil
}

func (p *Parser) parseClause(clause string) *Node {
	kind := Or
	if rest, ok := cutNot(clause); ok {
		kind = NotOr
		clause = rest
	}
	clause = strings.NewReplacer("(", " ", ")", " ").Replace(clause)
	node := &Node{Kind: kind}
	for _, branch := range orSep.Split(clause, -1) {
		node.Children = append(node.Children, p.parseBranch(strings.TrimSpace(branch)))
	}
	return node
}

// cutNot strips a leading "not" followed by a space or "(".
func cutNot(s string) (string, bool) {
	if strings.HasPrefix(s, "not ") || strings.HasPrefix(s, "not(") {
		return s[len("not"):], true
	}
	return s, false
}

func (p *Parser) parseBranch(branch string) *Node {
	if rest, ok := cutNot(branch); ok {
		words := p.words(rest)
		if len(words) == 0 {
			return &Node{Kind: StopWord}
		}
		if len(words) > 1 {
			p.logger.Debug("only the first word after not is excluded",
				"branch", branch,
				"ignored", words[1:],
			)
		}
		return p.leaf(ExceptWord, words[0])
	}
	words := p.words(branch)
	switch len(words) {
	case 0:
		return &Node{Kind: StopWord}
	case 1:
		return p.leaf(Word, words[0])
	}
	phrase := &Node{Kind: And}
	for _, w := range words {
		phrase.Children = append(phrase.Children, p.leaf(Word, w))
	}
	return phrase
}

// words splits a branch the way documents are tokenized and keeps the
// normalized, unstemmed tokens. Tokens the index never holds are dropped.
func (p *Parser) words(s string) []string {
	var out []string
	for _, raw := range tokenizer.Split(s) {
		if w, ok := tokenizer.Normalize(raw); ok {
			out = append(out, w)
		}
	}
	return out
}

func (p *Parser) leaf(kind Kind, word string) *Node {
	stem := tokenizer.Stem(word)
	if p.stop.Contains(word) || p.stop.Contains(stem) {
		return &Node{Kind: StopWord}
	}
	return &Node{Kind: kind, Word: stem}
}
