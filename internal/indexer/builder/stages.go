package builder

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
)

// Occurrence is one appearance of a term in a document.
type Occurrence struct {
	Term     string
	DocID    index.DocID
	Position int
}

// TermDoc aggregates a term's occurrences within one document.
type TermDoc struct {
	Term   string
	DocID  index.DocID
	TF     int
	Deltas []int
}

// MapPositions emits every (term, doc, position) of a document.
func MapPositions(tok tokenizer.Tokenizer, doc corpus.Document) []Occurrence {
	var out []Occurrence
	for term, pos := range tok.Terms(doc.Text) {
		out = append(out, Occurrence{Term: term, DocID: doc.ID, Position: pos})
	}
	return out
}

// ReduceTermFreq folds the positions of one (term, doc) pair into a TermDoc
// with sorted, delta-encoded positions.
func ReduceTermFreq(term string, docID index.DocID, positions []int) TermDoc {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	return TermDoc{
		Term:   term,
		DocID:  docID,
		TF:     len(sorted),
		Deltas: index.EncodeDeltas(sorted),
	}
}

// ReducePostings scores every document of one term against a corpus of n
// documents and returns the postings ordered by DocID.
func ReducePostings(term string, docs []TermDoc, n int) index.TermEntry {
	df := len(docs)
	postings := make(index.PostingList, 0, df)
	for _, d := range docs {
		postings = append(postings, index.Posting{
			DocID:     d.DocID,
			Score:     TFIDF(d.TF, df, n),
			Positions: d.Deltas,
		})
	}
	sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })
	return index.TermEntry{Term: term, Postings: postings}
}

// TFIDF is (1 + log10(tf)) * ln(n/df). Degenerate inputs score 0.
func TFIDF(tf, df, n int) float64 {
	if tf <= 0 || df <= 0 || n <= 0 {
		return 0
	}
	return (1 + math.Log10(float64(tf))) * math.Log(float64(n)/float64(df))
}

func termPartition(term string, partitions int) int {
	h := fnv.New32a()
	h.Write([]byte(term))
	return int(h.Sum32() % uint32(partitions))
}

func termDocPartition(term string, docID index.DocID, partitions int) int {
	h := fnv.New32a()
	h.Write([]byte(term))
	h.Write([]byte{0, byte(docID), byte(docID >> 8), byte(docID >> 16), byte(docID >> 24)})
	return int(h.Sum32() % uint32(partitions))
}
