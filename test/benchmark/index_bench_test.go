// Package benchmark measures the build pipeline, posting-list algebra and the
// query path end to end.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/searcher/algebra"
)

var vocabulary = strings.Fields(`apple pie cake chocolate vanilla strawberry cream
butter sugar flour oven bake crust filling sweet fresh fruit berry lemon honey
almond walnut cinnamon ginger nutmeg caramel custard tart pastry dough yeast`)

// syntheticCorpus builds n documents of 80 words drawn from vocabulary with a
// fixed seed.
func syntheticCorpus(n int) []corpus.Document {
	rng := rand.New(rand.NewSource(42))
	docs := make([]corpus.Document, n)
	for i := range docs {
		words := make([]string, 80)
		for j := range words {
			words[j] = vocabulary[rng.Intn(len(vocabulary))]
		}
		docs[i] = corpus.Document{
			ID:   index.DocID(i + 1),
			Text: fmt.Sprintf("Recipe %d\n%s", i+1, strings.Join(words, " ")),
		}
	}
	return docs
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000} {
		docs := syntheticCorpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				bld := builder.New(builder.Options{
					IndexDir:   b.TempDir(),
					NumShards:  4,
					Workers:    4,
					Partitions: 8,
					SampleRate: 1,
					MaxSamples: 200,
				})
				if _, err := bld.Build(context.Background(), docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// postings returns a list over every step-th document id up to n.
func postings(n, step int) index.PostingList {
	var out index.PostingList
	for id := step; id <= n; id += step {
		out = append(out, index.Posting{DocID: index.DocID(id), Score: 1, Positions: []int{id%7 + 1, 3, 5}})
	}
	return out
}

func BenchmarkAlgebra(b *testing.B) {
	a, c := postings(100000, 2), postings(100000, 3)
	b.Run("merge", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = algebra.Merge(a, c)
		}
	})
	b.Run("intersect", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = algebra.Intersect(a, c)
		}
	})
	b.Run("intersect_phrase", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = algebra.IntersectPhrase(a, c)
		}
	})
	b.Run("difference", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = algebra.Difference(a, c)
		}
	})
}

func BenchmarkPostingListCodec(b *testing.B) {
	list := postings(10000, 1)
	encoded := list.String()
	b.Run("encode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = list.String()
		}
	})
	b.Run("decode", func(b *testing.B) {
		b.ReportAllocs()
		b.SetBytes(int64(len(encoded)))
		for i := 0; i < b.N; i++ {
			if _, err := index.ParsePostingList(encoded); err != nil {
				b.Fatal(err)
			}
		}
	})
}
