// Package algebra combines posting lists sorted by ascending DocID. Every
// operation is a single linear merge and returns a new list, also sorted by
// ascending DocID, whose postings carry no positions.
package algebra

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
)

// PhraseFactor is the base exponent of the proximity boost applied by
// IntersectPhrase. Lower values let distance matter more.
const PhraseFactor = 1.0

// Merge is the union of a and b. Documents present in both get the sum of
// their scores.
func Merge(a, b index.PostingList) index.PostingList {
	out := make(index.PostingList, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].DocID < b[j].DocID):
			out = append(out, strip(a[i]))
			i++
		case i == len(a) || b[j].DocID < a[i].DocID:
			out = append(out, strip(b[j]))
			j++
		default:
			out = append(out, index.Posting{DocID: a[i].DocID, Score: a[i].Score + b[j].Score})
			i++
			j++
		}
	}
	return out
}

// Intersect keeps documents present in both lists with the product of their
// scores.
func Intersect(a, b index.PostingList) index.PostingList {
	return intersect(a, b, func(pa, pb index.Posting) float64 {
		return pa.Score * pb.Score
	})
}

// IntersectPhrase is Intersect with a proximity boost: when both postings
// carry positions at minimum distance d > 0, the score is
// (sa*sb)^(PhraseFactor + 1/d).
func IntersectPhrase(a, b index.PostingList) index.PostingList {
	return intersect(a, b, func(pa, pb index.Posting) float64 {
		product := pa.Score * pb.Score
		d, ok := MinDistance(pa.Positions, pb.Positions)
		if !ok || d == 0 {
			return product
		}
		return math.Pow(product, PhraseFactor+1/float64(d))
	})
}

// Difference keeps the postings of a whose document is not in b.
func Difference(a, b index.PostingList) index.PostingList {
	out := make(index.PostingList, 0, len(a))
	j := 0
	for _, p := range a {
		for j < len(b) && b[j].DocID < p.DocID {
			j++
		}
		if j < len(b) && b[j].DocID == p.DocID {
			continue
		}
		out = append(out, strip(p))
	}
	return out
}

// Copy returns the list without positions.
func Copy(a index.PostingList) index.PostingList {
	out := make(index.PostingList, len(a))
	for i, p := range a {
		out[i] = strip(p)
	}
	return out
}

// MinDistance returns the smallest absolute gap between a position of a and
// a position of b. Both arguments are delta-encoded ascending streams. ok is
// false when either is empty.
func MinDistance(a, b []int) (d int, ok bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	i, j := 0, 0
	pa, pb := a[0], b[0]
	best := abs(pa - pb)
	for best > 0 {
		// Advance whichever stream lags; only its next value can get closer.
		if pa < pb {
			if i+1 == len(a) {
				break
			}
			i++
			pa += a[i]
		} else {
			if j+1 == len(b) {
				break
			}
			j++
			pb += b[j]
		}
		best = min(best, abs(pa-pb))
	}
	return best, true
}

func intersect(a, b index.PostingList, score func(pa, pb index.Posting) float64) index.PostingList {
	out := make(index.PostingList, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID < b[j].DocID:
			i++
		case a[i].DocID > b[j].DocID:
			j++
		default:
			out = append(out, index.Posting{DocID: a[i].DocID, Score: score(a[i], b[j])})
			i++
			j++
		}
	}
	return out
}

func strip(p index.Posting) index.Posting {
	return index.Posting{DocID: p.DocID, Score: p.Score}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
