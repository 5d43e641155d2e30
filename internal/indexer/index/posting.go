package index

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

const (
	fieldSep   = ":"
	posSep     = ","
	postingSep = "|"
)

// DocID identifies a document for the lifetime of one index build.
type DocID uint32

// Posting is one document's entry in a term's posting list. Positions are
// delta-encoded: Positions[0] is absolute and every later value is the gap to
// its predecessor. Synthetic postings built during evaluation have none.
type Posting struct {
	DocID     DocID
	Score     float64
	Positions []int
}

// PostingList is ordered by strictly increasing DocID unless it has been
// sorted for presentation.
type PostingList []Posting

// TermEntry is one row of the inverted index.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// String renders the posting as docId:score:pos1,delta2,...
func (p Posting) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(p.DocID), 10))
	sb.WriteString(fieldSep)
	sb.WriteString(strconv.FormatFloat(p.Score, 'f', -1, 64))
	if len(p.Positions) > 0 {
		sb.WriteString(fieldSep)
		for i, pos := range p.Positions {
			if i > 0 {
				sb.WriteString(posSep)
			}
			sb.WriteString(strconv.Itoa(pos))
		}
	}
	return sb.String()
}

// AbsolutePositions decodes the delta-encoded positions.
func (p Posting) AbsolutePositions() []int {
	return DecodeDeltas(p.Positions)
}

// ParsePosting is the inverse of Posting.String. The position field may be
// omitted or empty.
func ParsePosting(s string) (Posting, error) {
	fields := strings.Split(s, fieldSep)
	if len(fields) < 2 || len(fields) > 3 {
		return Posting{}, fmt.Errorf("%w: %q has %d fields", apperrors.ErrMalformedPosting, s, len(fields))
	}
	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Posting{}, fmt.Errorf("%w: doc id %q: %v", apperrors.ErrMalformedPosting, fields[0], err)
	}
	score, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || score < 0 || math.IsNaN(score) || math.IsInf(score, 0) {
		return Posting{}, fmt.Errorf("%w: score %q", apperrors.ErrMalformedPosting, fields[1])
	}
	p := Posting{DocID: DocID(id), Score: score}
	if len(fields) == 3 && fields[2] != "" {
		raw := strings.Split(fields[2], posSep)
		p.Positions = make([]int, len(raw))
		for i, r := range raw {
			v, err := strconv.Atoi(r)
			if err != nil || v < 0 {
				return Posting{}, fmt.Errorf("%w: position %q", apperrors.ErrMalformedPosting, r)
			}
			p.Positions[i] = v
		}
	}
	return p, nil
}

// String renders the list as postings joined by "|".
func (l PostingList) String() string {
	parts := make([]string, len(l))
	for i, p := range l {
		parts[i] = p.String()
	}
	return strings.Join(parts, postingSep)
}

// ParsePostingList is the inverse of PostingList.String. The empty string is
// the empty list.
func ParsePostingList(s string) (PostingList, error) {
	if s == "" {
		return PostingList{}, nil
	}
	parts := strings.Split(s, postingSep)
	list := make(PostingList, len(parts))
	for i, part := range parts {
		p, err := ParsePosting(part)
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		list[i] = p
	}
	return list, nil
}

// MustParsePostingList panics on malformed input. It exists for fixtures.
func MustParsePostingList(s string) PostingList {
	l, err := ParsePostingList(s)
	if err != nil {
		panic(err)
	}
	return l
}

// DocIDs returns the document ids in list order.
func (l PostingList) DocIDs() []DocID {
	ids := make([]DocID, len(l))
	for i, p := range l {
		ids[i] = p.DocID
	}
	return ids
}

// IsSorted reports whether DocIDs are strictly increasing.
func (l PostingList) IsSorted() bool {
	for i := 1; i < len(l); i++ {
		if l[i-1].DocID >= l[i].DocID {
			return false
		}
	}
	return true
}

// EncodeDeltas converts ascending absolute positions to gaps.
func EncodeDeltas(positions []int) []int {
	if len(positions) == 0 {
		return nil
	}
	out := make([]int, len(positions))
	prev := 0
	for i, p := range positions {
		out[i] = p - prev
		prev = p
	}
	return out
}

// DecodeDeltas converts gaps back to absolute positions.
func DecodeDeltas(deltas []int) []int {
	if len(deltas) == 0 {
		return nil
	}
	out := make([]int, len(deltas))
	sum := 0
	for i, d := range deltas {
		sum += d
		out[i] = sum
	}
	return out
}
