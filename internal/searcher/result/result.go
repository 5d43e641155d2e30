// Package result paginates ranked posting lists into a SearchResult and
// serializes it for the query cache.
package result

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

const (
	// PageSize is the number of documents on a full page.
	PageSize = 10

	pageSep = ";"
	docSep  = ","
)

// SearchResult is the ranked outcome of one query split into pages.
type SearchResult struct {
	Count int             `json:"count"`
	Pages [][]index.DocID `json:"pages"`
}

// Empty is the result of a query with no rankable documents.
func Empty() SearchResult {
	return SearchResult{Pages: [][]index.DocID{}}
}

// FromPostings ranks list by descending score, ties by ascending DocID, and
// slices it into pages. list itself is not reordered.
func FromPostings(list index.PostingList) SearchResult {
	ranked := make(index.PostingList, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DocID < ranked[j].DocID
	})

	res := SearchResult{Count: len(ranked), Pages: make([][]index.DocID, 0, (len(ranked)+PageSize-1)/PageSize)}
	for start := 0; start < len(ranked); start += PageSize {
		end := min(start+PageSize, len(ranked))
		page := make([]index.DocID, 0, end-start)
		for _, p := range ranked[start:end] {
			page = append(page, p.DocID)
		}
		res.Pages = append(res.Pages, page)
	}
	return res
}

// PageCount returns the number of pages.
func (r SearchResult) PageCount() int {
	return len(r.Pages)
}

// Page returns the 1-based page n. Pages past the end clamp to the last one
// and n < 1 yields the first; a result without pages yields nil.
func (r SearchResult) Page(n int) []index.DocID {
	if len(r.Pages) == 0 {
		return nil
	}
	n = max(1, min(n, len(r.Pages)))
	return r.Pages[n-1]
}

// String renders count;doc,doc;doc,...
func (r SearchResult) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.Count))
	for _, page := range r.Pages {
		sb.WriteString(pageSep)
		for i, id := range page {
			if i > 0 {
				sb.WriteString(docSep)
			}
			sb.WriteString(strconv.FormatUint(uint64(id), 10))
		}
	}
	return sb.String()
}

// Parse is the inverse of SearchResult.String.
func Parse(s string) (SearchResult, error) {
	fields := strings.Split(strings.TrimSpace(s), pageSep)
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return SearchResult{}, fmt.Errorf("%w: count %q", apperrors.ErrMalformedResult, fields[0])
	}
	res := SearchResult{Count: count, Pages: make([][]index.DocID, 0, len(fields)-1)}
	total := 0
	for i, field := range fields[1:] {
		raw := strings.Split(field, docSep)
		if len(raw) > PageSize {
			return SearchResult{}, fmt.Errorf("%w: page %d holds %d documents", apperrors.ErrMalformedResult, i+1, len(raw))
		}
		if len(raw) < PageSize && i < len(fields)-2 {
			return SearchResult{}, fmt.Errorf("%w: short page %d is not the last", apperrors.ErrMalformedResult, i+1)
		}
		page := make([]index.DocID, len(raw))
		for j, r := range raw {
			id, err := strconv.ParseUint(r, 10, 32)
			if err != nil {
				return SearchResult{}, fmt.Errorf("%w: page %d doc %q", apperrors.ErrMalformedResult, i+1, r)
			}
			page[j] = index.DocID(id)
		}
		total += len(page)
		res.Pages = append(res.Pages, page)
	}
	if total != count {
		return SearchResult{}, fmt.Errorf("%w: count %d but %d documents", apperrors.ErrMalformedResult, count, total)
	}
	return res, nil
}
