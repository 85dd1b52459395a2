package store

import (
	"context"
	"sort"
	"sync"

	"veristay/internal/audit"
)

// InMemory keeps entries in an append-only slice, guarded by a RWMutex.
type InMemory struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemory) Query(_ context.Context, filters audit.Filters) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if matches(e, filters) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccessedAt.Before(out[j].AccessedAt) })

	offset, limit := filters.Window()
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func matches(e audit.Entry, f audit.Filters) bool {
	if f.AdminID != "" && e.AdminID != f.AdminID {
		return false
	}
	if f.TargetUserID != "" && e.TargetUserID != f.TargetUserID {
		return false
	}
	if f.Type != "" && e.AccessType != f.Type {
		return false
	}
	if f.From != nil && e.AccessedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.AccessedAt.After(*f.To) {
		return false
	}
	return true
}
