package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veristay/internal/verification/models"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) seed(ctx context.Context, userID string, mutate func(*models.VerificationRecord)) *models.VerificationRecord {
	rec, err := s.store.Execute(ctx, userID, nil, func(r *models.VerificationRecord) {
		if mutate != nil {
			mutate(r)
		}
	})
	s.Require().NoError(err)
	return rec
}

func (s *InMemorySuite) TestFindUnknownUser() {
	_, err := s.store.Find(s.ctx, "nobody")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *InMemorySuite) TestExecuteLazilyCreates() {
	rec := s.seed(s.ctx, "u1", nil)
	s.Equal("u1", rec.UserID)
	s.Equal(models.StatusNotSubmitted, rec.ONECI.Status)

	found, err := s.store.Find(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("u1", found.UserID)
}

func (s *InMemorySuite) TestExecuteStampsUpdatedAtFromContext() {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := s.seed(requestcontext.WithTime(s.ctx, at), "u1", nil)
	s.True(rec.UpdatedAt.Equal(at))
	s.True(rec.CreatedAt.Equal(at))
}

func (s *InMemorySuite) TestExecuteValidateRejectsWithoutSaving() {
	s.seed(s.ctx, "u1", func(r *models.VerificationRecord) {
		r.ONECI.Status = models.StatusPendingReview
	})

	boom := errors.New("boom")
	_, err := s.store.Execute(s.ctx, "u1",
		func(r *models.VerificationRecord) error { return boom },
		func(r *models.VerificationRecord) {
			r.ONECI.Status = models.StatusVerified
		})
	s.True(errors.Is(err, boom))

	found, err := s.store.Find(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusPendingReview, found.ONECI.Status, "failed validate must not mutate")
}

func (s *InMemorySuite) TestExecuteNoChangeSkipsPersist() {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.seed(requestcontext.WithTime(s.ctx, t0), "u1", func(r *models.VerificationRecord) {
		r.ONECI.Status = models.StatusVerified
	})

	mutated := false
	rec, err := s.store.Execute(requestcontext.WithTime(s.ctx, t0.Add(time.Hour)), "u1",
		func(r *models.VerificationRecord) error { return ErrNoChange },
		func(r *models.VerificationRecord) { mutated = true })
	s.Require().NoError(err)
	s.False(mutated, "mutate must not run on a declared no-op")
	s.Equal(models.StatusVerified, rec.ONECI.Status)
	s.True(rec.UpdatedAt.Equal(t0), "no-op must not restamp updated_at")
}

func (s *InMemorySuite) TestReturnedRecordIsACopy() {
	rec := s.seed(s.ctx, "u1", nil)
	rec.ONECI.Status = models.StatusVerified
	rec.TrustScore = 99

	found, err := s.store.Find(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusNotSubmitted, found.ONECI.Status)
	s.Equal(0, found.TrustScore)
}

func (s *InMemorySuite) TestConcurrentExecutesAllApply() {
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, "u1", nil, func(r *models.VerificationRecord) {
				r.TrustScore++
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.Find(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(n, found.TrustScore)
}

func (s *InMemorySuite) TestListOpenFiltersAndOrders() {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.seed(requestcontext.WithTime(s.ctx, base.Add(2*time.Hour)), "newer", func(r *models.VerificationRecord) {
		r.ONECI.Status = models.StatusPendingReview
	})
	s.seed(requestcontext.WithTime(s.ctx, base), "older", func(r *models.VerificationRecord) {
		r.CNAM.Status = models.StatusPendingReview
	})
	s.seed(requestcontext.WithTime(s.ctx, base.Add(time.Hour)), "settled", func(r *models.VerificationRecord) {
		r.ONECI.Status = models.StatusVerified
	})
	s.seed(requestcontext.WithTime(s.ctx, base.Add(30*time.Minute)), "waiting-capture", func(r *models.VerificationRecord) {
		r.Face.Status = models.StatusPending
	})

	s.Run("open records oldest first", func() {
		recs, err := s.store.ListOpen(s.ctx, models.ReviewFilters{})
		s.Require().NoError(err)
		s.Require().Len(recs, 3)
		s.Equal("older", recs[0].UserID)
		s.Equal("waiting-capture", recs[1].UserID)
		s.Equal("newer", recs[2].UserID)
	})

	s.Run("channel filter", func() {
		ch := models.ChannelCNAM
		recs, err := s.store.ListOpen(s.ctx, models.ReviewFilters{Channel: &ch})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("older", recs[0].UserID)
	})

	s.Run("status filter", func() {
		st := models.StatusPending
		recs, err := s.store.ListOpen(s.ctx, models.ReviewFilters{Status: &st})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("waiting-capture", recs[0].UserID)
	})

	s.Run("time window", func() {
		from := base.Add(45 * time.Minute)
		recs, err := s.store.ListOpen(s.ctx, models.ReviewFilters{From: &from})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("newer", recs[0].UserID)
	})

	s.Run("pagination", func() {
		recs, err := s.store.ListOpen(s.ctx, models.ReviewFilters{Page: 2, PerPage: 2})
		s.Require().NoError(err)
		s.Require().Len(recs, 1)
		s.Equal("newer", recs[0].UserID)
	})
}
