package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"veristay/internal/verification/models"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// InMemory implements RecordStore with a RWMutex map. Used by unit tests and
// dev mode; production uses the postgres store.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*models.VerificationRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*models.VerificationRecord)}
}

func (s *InMemory) Find(_ context.Context, userID string) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) Execute(
	ctx context.Context,
	userID string,
	validate func(rec *models.VerificationRecord) error,
	mutate func(rec *models.VerificationRecord),
) (*models.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	rec, ok := s.records[userID]
	if !ok {
		rec = models.NewRecord(userID, now)
	}

	if validate != nil {
		if err := validate(rec); err != nil {
			if errors.Is(err, ErrNoChange) {
				return rec.Clone(), nil
			}
			return nil, err
		}
	}
	mutate(rec)
	rec.UpdatedAt = now
	s.records[userID] = rec

	return rec.Clone(), nil
}

func (s *InMemory) ListOpen(_ context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VerificationRecord
	for _, rec := range s.records {
		if matchesOpen(rec, filters) {
			out = append(out, rec.Clone())
		}
	}
	// Oldest submissions first so the review queue is fair.
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })

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

func matchesOpen(rec *models.VerificationRecord, f models.ReviewFilters) bool {
	if f.From != nil && rec.UpdatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.UpdatedAt.After(*f.To) {
		return false
	}

	channels := models.Channels
	if f.Channel != nil {
		channels = []models.Channel{*f.Channel}
	}
	for _, ch := range channels {
		status := rec.Channel(ch).Status
		if f.Status != nil {
			if status == *f.Status {
				return true
			}
			continue
		}
		if status.Open() {
			return true
		}
	}
	return false
}
