package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store intended for tests and examples. It uses
// Ref.Identifier() as its deterministic key.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	ref    Ref
	record map[string]any
	meta   Meta
	seq    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, record map[string]any) (Meta, error) {
	ref = ref.WithGeneratedID()
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	meta := Meta{ID: ref.ID, CreatedAt: s.now()}
	seq := len(s.records)
	if existing, ok := s.records[key]; ok {
		meta.CreatedAt = existing.meta.CreatedAt
		seq = existing.seq
	}
	s.records[key] = memoryRecord{ref: ref, record: CloneRecord(record), meta: meta, seq: seq}
	return CloneMeta(meta), nil
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return CloneRecord(record.record), CloneMeta(record.meta), true, nil
}

// List returns the refs saved for factory in insertion order.
func (s *MemoryStore) List(_ context.Context, factory string) ([]Ref, error) {
	s.mu.RLock()
	matches := make([]memoryRecord, 0, len(s.records))
	for _, record := range s.records {
		if record.ref.Factory == factory {
			matches = append(matches, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })
	refs := make([]Ref, len(matches))
	for i, record := range matches {
		refs[i] = record.ref
	}
	return refs, nil
}

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
