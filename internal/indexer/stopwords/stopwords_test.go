package stopwords

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_KeepsHighestCounts(t *testing.T) {
	s := NewSelector(3)
	s.Offer("a", 5)
	s.Offer("b", 1)
	s.Offer("c", 9)
	s.Offer("d", 7)
	s.Offer("e", 2)

	got := s.Words()
	require.Len(t, got, 3)
	assert.Equal(t, []WordCount{{"a", 5}, {"d", 7}, {"c", 9}}, got)
	assert.Equal(t, 0, s.Len())
}

func TestSelector_EqualCountDoesNotReplaceMinimum(t *testing.T) {
	s := NewSelector(2)
	s.Offer("first", 4)
	s.Offer("second", 6)
	s.Offer("tie", 4)

	got := s.Words()
	assert.Equal(t, []WordCount{{"first", 4}, {"second", 6}}, got)
}

func TestSelector_UnderCapacityKeepsAll(t *testing.T) {
	s := NewSelector(10)
	for i := 0; i < 4; i++ {
		s.Offer(fmt.Sprintf("w%d", i), i)
	}
	assert.Len(t, s.Words(), 4)
}

func TestSelect_DefaultCount(t *testing.T) {
	counts := make(map[string]int)
	for i := 0; i < 250; i++ {
		counts[fmt.Sprintf("word%03d", i)] = i
	}
	words := Select(counts, 0)
	require.Len(t, words, DefaultCount)
	assert.Equal(t, "word150", words[0])
	assert.Equal(t, "word249", words[len(words)-1])
}

func TestSet_ContainsRawAndStem(t *testing.T) {
	set := NewSet([]string{"Running", " the "})
	assert.True(t, set.Contains("running"))
	assert.True(t, set.Contains("run"))
	assert.True(t, set.Contains("the"))
	assert.False(t, set.Contains("walk"))
	assert.False(t, Set{}.Contains("the"))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	set := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 0, Load("").Len())
}

func TestSaveLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, []string{"the", "of", "and"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "the\nof\nand\n", string(data))

	set := Load(dir)
	assert.True(t, set.Contains("of"))
	assert.True(t, set.Contains("and"))
}
