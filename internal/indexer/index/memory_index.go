package index

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex holds a complete term→PostingList mapping in memory. It is
// filled once and read concurrently afterwards.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]PostingList
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]PostingList),
	}
}

// NewMemoryIndexFrom builds an index from term entries.
func NewMemoryIndexFrom(entries []TermEntry) *MemoryIndex {
	m := NewMemoryIndex()
	for _, e := range entries {
		m.Put(e.Term, e.Postings)
	}
	return m
}

// Put stores the posting list for term, replacing any previous list.
func (m *MemoryIndex) Put(term string, postings PostingList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, exists := m.index[term]; exists {
		m.size -= entrySize(term, old)
	}
	m.index[term] = postings
	m.size += entrySize(term, postings)
}

// Lookup returns the posting list for term, or an empty list.
func (m *MemoryIndex) Lookup(_ context.Context, term string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	postings, exists := m.index[term]
	if !exists {
		return PostingList{}, nil
	}
	return postings, nil
}

// Snapshot returns all entries sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, postings := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func entrySize(term string, postings PostingList) int64 {
	size := int64(len(term))
	for _, p := range postings {
		size += int64(len(p.Positions)*8 + 16)
	}
	return size
}
