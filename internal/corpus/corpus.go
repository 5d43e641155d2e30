// Package corpus reads the (docId, text) input of an index build, produces
// the document and word counts that precede it, and stores documents for
// snippet rendering at query time.
package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Document is one corpus record.
type Document struct {
	ID   index.DocID `json:"id"`
	Text string      `json:"text"`
}

// Title is the first line of the text.
func (d Document) Title() string {
	title, _, _ := strings.Cut(d.Text, "\n")
	return strings.TrimSpace(title)
}

// Format of a corpus file.
type Format int

const (
	// FormatTSV is "id<TAB>text" per line, with \n, \t and \\ escaped in text.
	FormatTSV Format = iota
	// FormatJSONL is one {"id":..,"text":..} object per line.
	FormatJSONL
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL
	default:
		return FormatTSV
	}
}

const maxLineSize = 64 << 20

// ReadFile streams the documents of path to fn in file order. fn's error
// stops the scan and is returned.
func ReadFile(ctx context.Context, path string, fn func(Document) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()
	return Read(ctx, f, FormatFor(path), fn)
}

// Read streams documents from r.
func Read(ctx context.Context, r io.Reader, format Format, fn func(Document) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc, err := parseLine(line, format)
		if err != nil {
			return fmt.Errorf("corpus line %d: %w", lineNo, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	return nil
}

// ReadAll collects every document of path.
func ReadAll(ctx context.Context, path string) ([]Document, error) {
	var docs []Document
	err := ReadFile(ctx, path, func(d Document) error {
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func parseLine(line string, format Format) (Document, error) {
	if format == FormatJSONL {
		var d Document
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return d, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		return d, nil
	}
	idField, text, ok := strings.Cut(line, "\t")
	if !ok {
		return Document{}, fmt.Errorf("%w: missing tab separator", apperrors.ErrInvalidInput)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idField), 10, 32)
	if err != nil {
		return Document{}, fmt.Errorf("%w: doc id %q", apperrors.ErrInvalidInput, idField)
	}
	return Document{ID: index.DocID(id), Text: unescape(text)}, nil
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "\r")
)

func escape(s string) string   { return escaper.Replace(s) }
func unescape(s string) string { return unescaper.Replace(s) }

// WriteTSV writes docs in the TSV corpus format.
func WriteTSV(w io.Writer, docs []Document) error {
	bw := bufio.NewWriter(w)
	for _, d := range docs {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", d.ID, escape(d.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
