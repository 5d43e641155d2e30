// Package stopwords selects the most frequent corpus words as stop words and
// loads/saves stop-word lists. The resulting Set is passed explicitly to the
// query parser and, optionally, to the tokenizer.
package stopwords

import (
	"bufio"
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
)

// DefaultCount is the number of stop words kept by a Selector.
const DefaultCount = 100

// FileName is the stop-word file written inside a stop-word directory.
const FileName = "stopwords.txt"

// WordCount is a word and its total number of occurrences in the corpus.
type WordCount struct {
	Word  string
	Count int
}

// Selector keeps the K words with the highest counts seen so far.
type Selector struct {
	k int
	h countHeap
}

func NewSelector(k int) *Selector {
	if k <= 0 {
		k = DefaultCount
	}
	return &Selector{k: k, h: make(countHeap, 0, k)}
}

// Offer considers one word. While the selector is under capacity every word is
// kept; once full, the current minimum is replaced only when count is
// strictly greater.
func (s *Selector) Offer(word string, count int) {
	if s.h.Len() < s.k {
		heap.Push(&s.h, WordCount{Word: word, Count: count})
		return
	}
	if count > s.h[0].Count {
		s.h[0] = WordCount{Word: word, Count: count}
		heap.Fix(&s.h, 0)
	}
}

// Len returns the number of words currently held.
func (s *Selector) Len() int { return s.h.Len() }

// Words drains the selector by repeatedly extracting the minimum, so the
// result is in ascending count order. Callers must not treat the order as a
// ranking.
func (s *Selector) Words() []WordCount {
	out := make([]WordCount, 0, s.h.Len())
	for s.h.Len() > 0 {
		out = append(out, heap.Pop(&s.h).(WordCount))
	}
	return out
}

// Select runs a Selector of size k over counts and returns the chosen words.
func Select(counts map[string]int, k int) []string {
	s := NewSelector(k)
	for word, count := range counts {
		s.Offer(word, count)
	}
	selected := s.Words()
	words := make([]string, len(selected))
	for i, wc := range selected {
		words[i] = wc.Word
	}
	return words
}

type countHeap []WordCount

func (h countHeap) Len() int { return len(h) }

func (h countHeap) Less(i, j int) bool {
	if h[i].Count != h[j].Count {
		return h[i].Count < h[j].Count
	}
	return h[i].Word > h[j].Word
}

func (h countHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *countHeap) Push(x any) {
	*h = append(*h, x.(WordCount))
}

func (h *countHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Set is an immutable stop-word set. It answers for both the raw word and its
// stem, so it can filter tokens before stemming and query leaves after.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a Set from raw words.
func NewSet(words []string) Set {
	m := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		m[w] = struct{}{}
		m[tokenizer.Stem(w)] = struct{}{}
	}
	return Set{words: m}
}

// Contains reports whether word, raw or stemmed, is a stop word. The zero Set
// contains nothing.
func (s Set) Contains(word string) bool {
	if s.words == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

// Len returns the number of distinct entries, raw and stemmed forms included.
func (s Set) Len() int { return len(s.words) }

// Load reads one stop word per line. path may name a file or a directory
// containing FileName. A missing or unreadable source yields an empty Set.
func Load(path string) Set {
	logger := slog.Default().With("component", "stopwords")
	if path == "" {
		return Set{}
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("stop words unavailable, continuing without", "path", path, "error", err)
		return Set{}
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading stop words failed, continuing without", "path", path, "error", err)
		return Set{}
	}
	set := NewSet(words)
	logger.Info("stop words loaded", "path", path, "count", len(words))
	return set
}

// Save writes words one per line to dir/FileName and returns the file path.
func Save(dir string, words []string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating stop-word directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	data := strings.Join(words, "\n")
	if len(words) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return "", fmt.Errorf("writing stop words: %w", err)
	}
	return path, nil
}
