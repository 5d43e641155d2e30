// Package highlight builds result abstracts: windows of a document's text
// around the query words with every match wrapped in a marker.
package highlight

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultRange is the abstract length budget in characters.
	DefaultRange = 300
	// maxOccurrence selects which occurrence of a word anchors its window.
	maxOccurrence = 3
	ellipsis      = "..."
)

// Marker is the pair of strings placed around every highlighted match.
type Marker struct {
	Open  string
	Close string
}

// DefaultMarker paints matches with a yellow background.
var DefaultMarker = Marker{
	Open:  `<span style="background-color: #FFFF00">`,
	Close: `</span>`,
}

var (
	andSep = regexp.MustCompile(`\band\b`)
	orSep  = regexp.MustCompile(`\bor\b`)
)

// Words derives the words to highlight from a raw query. Words of plain
// clauses are kept; inside a negated clause only the words of a negated
// branch are kept, since they are what the clause asks for.
func Words(query string) []string {
	var out []string
	q := strings.NewReplacer("(", " ", ")", " ", `"`, " ").Replace(strings.ToLower(query))
	for _, clause := range andSep.Split(q, -1) {
		clause = strings.TrimSpace(clause)
		negated := false
		if rest, ok := strings.CutPrefix(clause, "not "); ok {
			negated = true
			clause = rest
		}
		for _, branch := range orSep.Split(clause, -1) {
			branch = strings.TrimSpace(branch)
			rest, except := strings.CutPrefix(branch, "not ")
			if except != negated {
				continue
			}
			for _, w := range strings.Fields(rest) {
				if !slices.Contains(out, w) {
					out = append(out, w)
				}
			}
		}
	}
	return out
}

// Highlighter renders abstracts.
type Highlighter struct {
	marker Marker
	rng    int
}

// New returns a Highlighter; a non-positive rng selects DefaultRange.
func New(marker Marker, rng int) *Highlighter {
	if rng <= 0 {
		rng = DefaultRange
	}
	return &Highlighter{marker: marker, rng: rng}
}

// Abstract selects the windows of text around words and marks every
// whole-word match. Without any match the leading part of text is returned.
// Newlines never appear in the output.
func (h *Highlighter) Abstract(text string, words []string) string {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	var anchors []int
	for _, w := range words {
		if at := nthIndex(lower, []rune(w), maxOccurrence); at >= 0 {
			anchors = append(anchors, at)
		}
	}
	if len(anchors) == 0 {
		if len(runes) < h.rng {
			return stripNewlines(text)
		}
		return stripNewlines(string(runes[:h.rng])) + ellipsis
	}

	var sb strings.Builder
	for _, iv := range h.windows(anchors, len(runes)) {
		if iv.start != 0 {
			sb.WriteString(ellipsis)
		}
		sb.WriteString(string(runes[iv.start : iv.end+1]))
		if iv.end != len(runes)-1 {
			sb.WriteString(ellipsis)
		}
	}
	return stripNewlines(h.mark(sb.String(), words))
}

type interval struct{ start, end int }

// windows shifts each anchor window to lie inside [0, n) and then merges
// windows that overlap or touch.
func (h *Highlighter) windows(anchors []int, n int) []interval {
	sort.Ints(anchors)
	half := h.rng / len(anchors) / 2

	var out []interval
	for _, a := range anchors {
		iv := interval{a - half, a + half}
		if iv.start < 0 {
			iv.end -= iv.start
			iv.start = 0
		}
		if iv.end > n-1 {
			iv.start = max(0, iv.start-(iv.end-(n-1)))
			iv.end = n - 1
		}
		if last := len(out) - 1; last >= 0 && iv.start <= out[last].end+1 {
			out[last].end = max(out[last].end, iv.end)
			continue
		}
		out = append(out, iv)
	}
	return out
}

func (h *Highlighter) mark(s string, words []string) string {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			alts = append(alts, regexp.QuoteMeta(w))
		}
	}
	if len(alts) == 0 {
		return s
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	return re.ReplaceAllStringFunc(s, func(m string) string {
		return h.marker.Open + m + h.marker.Close
	})
}

// nthIndex returns the index of the n-th occurrence of sub in s, or of the
// last occurrence when there are fewer, or -1.
func nthIndex(s, sub []rune, n int) int {
	if len(sub) == 0 {
		return -1
	}
	last := -1
	for i := 0; i+len(sub) <= len(s) && n > 0; i++ {
		if slices.Equal(s[i:i+len(sub)], sub) {
			last = i
			n--
		}
	}
	return last
}

func stripNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}
