package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	postBase int64
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading header of %s: %v", apperrors.ErrMalformedSegment, path, err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrMalformedSegment, magic)
	}
	header := SegmentHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		CreatedAt:  int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported version %d", apperrors.ErrMalformedSegment, header.Version)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading dictionary: %v", apperrors.ErrMalformedSegment, err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading footer: %v", apperrors.ErrMalformedSegment, err)
	}
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc32.ChecksumIEEE(dictBytes) != want {
		f.Close()
		return nil, fmt.Errorf("%w: dictionary checksum mismatch in %s", apperrors.ErrMalformedSegment, path)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: parsing dictionary: %v", apperrors.ErrMalformedSegment, err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		postBase: header.PostOffset,
	}, nil
}

// Search returns the posting list for term, or nil when the segment does not
// hold it.
func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	entry := r.dict[idx]
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	postings, err := index.ParsePostingList(string(postingsBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing postings for %q: %w", term, err)
	}
	return postings, nil
}

// Entries reads every term of the segment in dictionary order.
func (r *Reader) Entries() ([]index.TermEntry, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		postings, err := r.Search(d.Term)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	return entries, nil
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
