package algebra

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
)

func randomList(rng *rand.Rand, maxLen int) index.PostingList {
	seen := make(map[index.DocID]bool)
	n := rng.Intn(maxLen + 1)
	list := make(index.PostingList, 0, n)
	for len(list) < n {
		id := index.DocID(rng.Intn(60))
		if seen[id] {
			continue
		}
		seen[id] = true
		list = append(list, index.Posting{DocID: id, Score: float64(1+rng.Intn(9)) / 2})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
	return list
}

func idSet(l index.PostingList) map[index.DocID]bool {
	s := make(map[index.DocID]bool, len(l))
	for _, p := range l {
		s[p.DocID] = true
	}
	return s
}

func TestMerge_Commutative(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 300; n++ {
		a, b := randomList(rng, 20), randomList(rng, 20)
		ab, ba := Merge(a, b), Merge(b, a)
		require.Equal(t, ab, ba)
		require.True(t, ab.IsSorted())

		want := idSet(a)
		for id := range idSet(b) {
			want[id] = true
		}
		require.Equal(t, want, idSet(ab))
	}
}

func TestIntersectDifference_SetSemantics(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for n := 0; n < 300; n++ {
		a, b := randomList(rng, 25), randomList(rng, 25)
		sa, sb := idSet(a), idSet(b)

		inter := Intersect(a, b)
		require.True(t, inter.IsSorted())
		wantInter := map[index.DocID]bool{}
		for id := range sa {
			if sb[id] {
				wantInter[id] = true
			}
		}
		require.Equal(t, wantInter, idSet(inter))

		diff := Difference(a, b)
		require.True(t, diff.IsSorted())
		wantDiff := map[index.DocID]bool{}
		for id := range sa {
			if !sb[id] {
				wantDiff[id] = true
			}
		}
		require.Equal(t, wantDiff, idSet(diff))
	}
}

func TestScores(t *testing.T) {
	a := index.PostingList{{DocID: 1, Score: 2, Positions: []int{1}}, {DocID: 3, Score: 4}}
	b := index.PostingList{{DocID: 1, Score: 3}, {DocID: 5, Score: 1}}

	assert.Equal(t, index.PostingList{{DocID: 1, Score: 5}, {DocID: 3, Score: 4}, {DocID: 5, Score: 1}}, Merge(a, b))
	assert.Equal(t, index.PostingList{{DocID: 1, Score: 6}}, Intersect(a, b))
	assert.Equal(t, index.PostingList{{DocID: 3, Score: 4}}, Difference(a, b))
	assert.Equal(t, index.PostingList{{DocID: 1, Score: 2}, {DocID: 3, Score: 4}}, Copy(a))
}

func TestMinDistance(t *testing.T) {
	cases := []struct {
		a, b []int
		want int
	}{
		// word1 at 1 3 4 5 10 11, word2 at 7 12
		{index.EncodeDeltas([]int{1, 3, 4, 5, 10, 11}), index.EncodeDeltas([]int{7, 12}), 1},
		{index.EncodeDeltas([]int{5}), index.EncodeDeltas([]int{7}), 2},
		{index.EncodeDeltas([]int{2, 40}), index.EncodeDeltas([]int{30}), 10},
		{index.EncodeDeltas([]int{4}), index.EncodeDeltas([]int{4}), 0},
	}
	for _, c := range cases {
		d, ok := MinDistance(c.a, c.b)
		require.True(t, ok)
		assert.Equal(t, c.want, d)
	}
	_, ok := MinDistance(nil, []int{3})
	assert.False(t, ok)
}

func TestMinDistance_BruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 200; n++ {
		positions := func(k int) []int {
			m := map[int]bool{}
			for len(m) < k {
				m[1+rng.Intn(100)] = true
			}
			out := make([]int, 0, k)
			for p := range m {
				out = append(out, p)
			}
			sort.Ints(out)
			return out
		}
		pa, pb := positions(1+rng.Intn(6)), positions(1+rng.Intn(6))
		want := math.MaxInt
		for _, x := range pa {
			for _, y := range pb {
				want = min(want, max(x-y, y-x))
			}
		}
		got, ok := MinDistance(index.EncodeDeltas(pa), index.EncodeDeltas(pb))
		require.True(t, ok)
		require.Equal(t, want, got, "a=%v b=%v", pa, pb)
	}
}

func TestIntersectPhrase(t *testing.T) {
	a := index.PostingList{
		{DocID: 1, Score: 2, Positions: index.EncodeDeltas([]int{1, 6})},
		{DocID: 2, Score: 2},
		{DocID: 3, Score: 2, Positions: []int{4}},
	}
	b := index.PostingList{
		{DocID: 1, Score: 1.5, Positions: index.EncodeDeltas([]int{3, 7})},
		{DocID: 2, Score: 1.5, Positions: []int{9}},
		{DocID: 3, Score: 1.5, Positions: []int{4}},
	}
	got := IntersectPhrase(a, b)
	require.Len(t, got, 3)
	// doc 1: nearest positions 6 and 7.
	assert.InDelta(t, math.Pow(3, PhraseFactor+1), got[0].Score, 1e-12)
	// doc 2: no positions on one side.
	assert.InDelta(t, 3.0, got[1].Score, 1e-12)
	// doc 3: same position, no finite boost.
	assert.InDelta(t, 3.0, got[2].Score, 1e-12)
	for _, p := range got {
		assert.Empty(t, p.Positions)
	}
}

func TestEmptyInputs(t *testing.T) {
	l := index.PostingList{{DocID: 4, Score: 1}}
	assert.Equal(t, l, Merge(nil, l))
	assert.Empty(t, Intersect(l, nil))
	assert.Equal(t, l, Difference(l, nil))
	assert.Empty(t, Difference(nil, l))
}
