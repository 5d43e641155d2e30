// Package shard splits the term space into contiguous ranges so that each
// range is stored in its own segment file, and routes term lookups to the
// segment that owns them.
package shard

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultBoundaryFile is the name used when the partition file path is not
// given explicitly.
const DefaultBoundaryFile = "partition.txt"

// Boundaries holds numShards-1 sorted split terms. A term belongs to shard i
// where i is the number of boundaries less than or equal to it.
type Boundaries []string

// ShardFor returns the shard index for term.
func (b Boundaries) ShardFor(term string) int {
	return sort.Search(len(b), func(i int) bool { return b[i] > term })
}

// NumShards is len(b)+1.
func (b Boundaries) NumShards() int {
	return len(b) + 1
}

// ComputeBoundaries picks numShards-1 evenly spaced split terms from the
// samples. Duplicate samples are collapsed first, so fewer boundaries are
// returned when there are not enough distinct samples.
func ComputeBoundaries(samples []string, numShards int) Boundaries {
	if numShards <= 1 || len(samples) == 0 {
		return Boundaries{}
	}
	uniq := make([]string, len(samples))
	copy(uniq, samples)
	sort.Strings(uniq)
	n := 0
	for i, s := range uniq {
		if i == 0 || s != uniq[n-1] {
			uniq[n] = s
			n++
		}
	}
	uniq = uniq[:n]

	step := float64(len(uniq)) / float64(numShards)
	out := make(Boundaries, 0, numShards-1)
	last := -1
	for i := 1; i < numShards; i++ {
		k := int(step*float64(i) + 0.5)
		if k <= last {
			k = last + 1
		}
		if k >= len(uniq) {
			break
		}
		out = append(out, uniq[k])
		last = k
	}
	return out
}

// Sample keeps each term with probability rate, stopping after maxSamples.
// The same seed over the same input always yields the same sample.
func Sample(terms []string, rate float64, maxSamples int, seed int64) []string {
	if rate <= 0 || maxSamples <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]string, 0, min(maxSamples, len(terms)))
	for _, t := range terms {
		if len(out) >= maxSamples {
			break
		}
		if rate >= 1 || rng.Float64() < rate {
			out = append(out, t)
		}
	}
	return out
}

// LoadBoundaries reads one boundary term per line. A missing file means the
// index has a single shard.
func LoadBoundaries(path string) (Boundaries, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().With("component", "shard").Warn("boundary file missing, using a single shard",
			"path", path,
		)
		return Boundaries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening boundary file: %w", err)
	}
	defer f.Close()

	var b Boundaries
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		b = append(b, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading boundary file: %w", err)
	}
	if !sort.StringsAreSorted(b) {
		return nil, fmt.Errorf("boundary file %s is not sorted", path)
	}
	return b, nil
}

// Save writes the boundaries to path, one per line.
func (b Boundaries) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating boundary directory: %w", err)
	}
	var sb strings.Builder
	for _, t := range b {
		sb.WriteString(t)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing boundary file: %w", err)
	}
	return nil
}
