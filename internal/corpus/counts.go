package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/tokenizer"
)

// DocCountFile is the file written by WriteDocCount inside its directory.
const DocCountFile = "doccount.txt"

// CountDocuments returns the number of documents in the corpus at path.
func CountDocuments(ctx context.Context, path string) (int, error) {
	n := 0
	err := ReadFile(ctx, path, func(Document) error {
		n++
		return nil
	})
	return n, err
}

// WriteDocCount stores n in dir/doccount.txt and returns the file path.
func WriteDocCount(dir string, n int) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating doccount directory: %w", err)
	}
	path := filepath.Join(dir, DocCountFile)
	if err := os.WriteFile(path, []byte(strconv.Itoa(n)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("writing doccount: %w", err)
	}
	return path, nil
}

// ReadDocCount reads a count written by WriteDocCount. path may be the file
// or its directory. ok is false when no count file exists.
func ReadDocCount(path string) (n int, ok bool, err error) {
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = filepath.Join(path, DocCountFile)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading doccount: %w", err)
	}
	n, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("doccount %s: invalid value %q", path, strings.TrimSpace(string(data)))
	}
	return n, true, nil
}

// WordCounts counts every lowercased raw token of the corpus, skipping
// all-digit tokens. The counts feed stop-word selection.
func WordCounts(ctx context.Context, path string) (map[string]int, error) {
	counts := make(map[string]int)
	err := ReadFile(ctx, path, func(d Document) error {
		CountWords(counts, d.Text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// CountWords adds the tokens of text to counts.
func CountWords(counts map[string]int, text string) {
	for _, raw := range tokenizer.Split(text) {
		if isDigits(raw) {
			continue
		}
		counts[strings.ToLower(raw)]++
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
