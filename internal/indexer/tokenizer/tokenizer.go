// Package tokenizer provides text tokenisation for the search engine.
// It splits on whitespace and punctuation, lower-cases input, drops numeric
// and non-alphanumeric tokens, and stems the rest with the Snowball English
// (Porter2) stemmer.
package tokenizer

import (
	"iter"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Delimiters is the set of characters that separate tokens.
const Delimiters = " \t\r\n,.:;'\"()[]{}/<>!?|-—–#$&=_*+"

// Token represents a single normalised term and its 1-based ordinal among all
// raw tokens of the document.
type Token struct {
	Term     string
	Position int
}

// Tokenizer turns text into stemmed terms. Skip, when set, drops raw
// (lower-cased, unstemmed) tokens such as stop words; dropped tokens still
// consume a position so that ordinals agree across build stages.
type Tokenizer struct {
	Skip func(raw string) bool
}

// Terms returns a lazy sequence of (term, position) pairs. The sequence can be
// ranged over any number of times.
func (t Tokenizer) Terms(text string) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		pos := 0
		for _, raw := range Split(text) {
			pos++
			word, ok := Normalize(raw)
			if !ok {
				continue
			}
			if t.Skip != nil && t.Skip(word) {
				continue
			}
			if !yield(Stem(word), pos) {
				return
			}
		}
	}
}

// Tokenize collects Terms into a slice.
func (t Tokenizer) Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/6)
	for term, pos := range t.Terms(text) {
		tokens = append(tokens, Token{Term: term, Position: pos})
	}
	return tokens
}

// Tokenize breaks text into stemmed, lower-cased Tokens without stop-word
// filtering.
func Tokenize(text string) []Token {
	return Tokenizer{}.Tokenize(text)
}

// Split breaks text on Delimiters without any normalisation.
func Split(text string) []string {
	return strings.FieldsFunc(text, isDelimiter)
}

// Normalize lower-cases a raw token and reports whether it is indexable:
// ASCII letters and digits only, and not purely numeric.
func Normalize(raw string) (string, bool) {
	word := strings.ToLower(raw)
	if word == "" {
		return "", false
	}
	digits := true
	for i := 0; i < len(word); i++ {
		c := word[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
			digits = false
		default:
			return "", false
		}
	}
	if digits {
		return "", false
	}
	return word, true
}

// Stem reduces a lower-case word to its stem.
func Stem(word string) string {
	return english.Stem(word, true)
}

func isDelimiter(r rune) bool {
	return strings.ContainsRune(Delimiters, r)
}
