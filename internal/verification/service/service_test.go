package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veristay/internal/scoring"
	"veristay/internal/verification/models"
	"veristay/internal/verification/store"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/locks"
	"veristay/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.service = New(s.store, locks.NewKeyed(), logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) submit(userID string, ch models.Channel) *models.VerificationRecord {
	sub := models.Submission{UserID: userID, Channel: ch}
	if ch == models.ChannelFace {
		sub.BiometricCaptureRef = "capture-1"
	} else {
		sub.DocumentRefs = []string{"doc-1"}
	}
	rec, err := s.service.Submit(s.ctx, sub)
	s.Require().NoError(err)
	return rec
}

func (s *ServiceSuite) decide(userID string, ch models.Channel, outcome models.DecisionOutcome) *models.VerificationRecord {
	rec, applied, err := s.service.ApplyDecision(s.ctx, models.Decision{
		UserID: userID, Channel: ch, Outcome: outcome, ActorID: "admin-1",
	})
	s.Require().NoError(err)
	s.Require().True(applied)
	return rec
}

// assertScoreConsistent checks the core invariant: after any mutation, the
// stored trust score equals a fresh recompute.
func (s *ServiceSuite) assertScoreConsistent(rec *models.VerificationRecord) {
	expected, _ := scoring.Compute(rec, rec.Signals())
	s.Equal(expected, rec.TrustScore, "stored score must match recompute")
}

func (s *ServiceSuite) TestRecordForUnknownUserReadsAsNotSubmitted() {
	rec, err := s.service.Record(s.ctx, "ghost")
	s.Require().NoError(err)
	s.Equal(models.StatusNotSubmitted, rec.ONECI.Status)
	s.Equal(models.StatusNotSubmitted, rec.CNAM.Status)
	s.Equal(models.StatusNotSubmitted, rec.Face.Status)
	s.Equal(0, rec.TrustScore)
}

func (s *ServiceSuite) TestSubmitRoutesChannels() {
	s.Run("oneci lands in pending_review", func() {
		rec := s.submit("u1", models.ChannelONECI)
		s.Equal(models.StatusPendingReview, rec.ONECI.Status)
		s.True(rec.DocsOnFile)
		s.assertScoreConsistent(rec)
	})

	s.Run("cnam lands in pending_review", func() {
		rec := s.submit("u2", models.ChannelCNAM)
		s.Equal(models.StatusPendingReview, rec.CNAM.Status)
	})

	s.Run("face lands in pending", func() {
		rec := s.submit("u3", models.ChannelFace)
		s.Equal(models.StatusPending, rec.Face.Status)
		s.False(rec.DocsOnFile, "biometric capture is not a supporting document")
	})
}

func (s *ServiceSuite) TestSubmitValidation() {
	_, err := s.service.Submit(s.ctx, models.Submission{UserID: "u1", Channel: "retina"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.Submit(s.ctx, models.Submission{UserID: "u1", Channel: models.ChannelFace})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.Submit(s.ctx, models.Submission{UserID: "u1", Channel: models.ChannelONECI})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestDuplicateSubmitIsNoOp() {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), t0)
	s.submit("u1", models.ChannelONECI)

	s.ctx = requestcontext.WithTime(context.Background(), t0.Add(time.Hour))
	rec := s.submit("u1", models.ChannelONECI)
	s.Equal(models.StatusPendingReview, rec.ONECI.Status)
	s.Equal(t0, rec.UpdatedAt, "duplicate submit must not rewrite the record")
}

func (s *ServiceSuite) TestDecisionLifecycle() {
	s.submit("u1", models.ChannelONECI)
	rec := s.decide("u1", models.ChannelONECI, models.DecisionApprove)

	s.Equal(models.StatusVerified, rec.ONECI.Status)
	s.Require().NotNil(rec.ONECI.VerifiedAt)
	s.Equal("admin-1", rec.ReviewedBy)
	s.assertScoreConsistent(rec)
	s.Equal(scoring.WeightONECIVerified+scoring.WeightDocuments, rec.TrustScore)
}

func (s *ServiceSuite) TestDecisionIdempotentRetry() {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), t0)
	s.submit("u1", models.ChannelONECI)
	first := s.decide("u1", models.ChannelONECI, models.DecisionApprove)

	s.ctx = requestcontext.WithTime(context.Background(), t0.Add(time.Hour))
	second, applied, err := s.service.ApplyDecision(s.ctx, models.Decision{
		UserID: "u1", Channel: models.ChannelONECI, Outcome: models.DecisionApprove, ActorID: "admin-1",
	})
	s.Require().NoError(err)
	s.False(applied, "retry of the same terminal decision is a no-op")
	s.Equal(first.ONECI.Status, second.ONECI.Status)
	s.Equal(first.TrustScore, second.TrustScore)
	s.Equal(first.ONECI.VerifiedAt.Unix(), second.ONECI.VerifiedAt.Unix(),
		"verified_at is set exactly once")
	s.Equal(first.UpdatedAt, second.UpdatedAt,
		"retry must not rewrite the record or reshuffle the review queue")
}

func (s *ServiceSuite) TestConflictingDecisionAlreadyFinalized() {
	s.submit("u1", models.ChannelONECI)
	s.decide("u1", models.ChannelONECI, models.DecisionApprove)

	_, _, err := s.service.ApplyDecision(s.ctx, models.Decision{
		UserID: "u1", Channel: models.ChannelONECI, Outcome: models.DecisionReject, ActorID: "admin-2",
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, models.ErrAlreadyFinalized))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestDecisionWithoutSubmissionIsInvalid() {
	_, _, err := s.service.ApplyDecision(s.ctx, models.Decision{
		UserID: "u1", Channel: models.ChannelONECI, Outcome: models.DecisionApprove, ActorID: "admin-1",
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, models.ErrInvalidTransition))
}

func (s *ServiceSuite) TestRejectedResubmissionReentersReview() {
	s.submit("u1", models.ChannelONECI)
	rec := s.decide("u1", models.ChannelONECI, models.DecisionReject)
	s.Equal(models.StatusRejected, rec.ONECI.Status)
	s.assertScoreConsistent(rec)

	rec = s.submit("u1", models.ChannelONECI)
	s.Equal(models.StatusPendingReview, rec.ONECI.Status,
		"resubmission re-enters review, never jumps to verified")

	// A rejected channel that re-entered review can be approved afresh.
	rec = s.decide("u1", models.ChannelONECI, models.DecisionApprove)
	s.Equal(models.StatusVerified, rec.ONECI.Status)
}

func (s *ServiceSuite) TestFaceSimilarityScoreRecordedOnDecision() {
	s.submit("u1", models.ChannelFace)
	score := 87
	rec, applied, err := s.service.ApplyDecision(s.ctx, models.Decision{
		UserID: "u1", Channel: models.ChannelFace, Outcome: models.DecisionApprove,
		ActorID: "system:biometric", SimilarityScore: &score,
	})
	s.Require().NoError(err)
	s.True(applied)
	s.Require().NotNil(rec.Face.SimilarityScore)
	s.Equal(87, *rec.Face.SimilarityScore)
	s.Equal(scoring.WeightFaceVerified, rec.TrustScore)
}

func (s *ServiceSuite) TestScenarioVerifiedIdentityAndFaceWithDocuments() {
	s.submit("u1", models.ChannelONECI)
	s.submit("u1", models.ChannelFace)
	s.decide("u1", models.ChannelONECI, models.DecisionApprove)
	rec := s.decide("u1", models.ChannelFace, models.DecisionApprove)

	s.Equal(90, rec.TrustScore)

	score, _, recommendation, err := s.service.Score(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(90, score)
	s.Equal(scoring.Recommended, recommendation)
}

func (s *ServiceSuite) TestConcurrentDecisionsOnDifferentChannels() {
	s.submit("u1", models.ChannelONECI)
	s.submit("u1", models.ChannelFace)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, err := s.service.ApplyDecision(s.ctx, models.Decision{
			UserID: "u1", Channel: models.ChannelONECI, Outcome: models.DecisionApprove, ActorID: "admin-1",
		})
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, _, err := s.service.ApplyDecision(s.ctx, models.Decision{
			UserID: "u1", Channel: models.ChannelFace, Outcome: models.DecisionReject, ActorID: "system:biometric",
		})
		s.NoError(err)
	}()
	wg.Wait()

	rec, err := s.service.Record(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, rec.ONECI.Status, "neither update may be lost")
	s.Equal(models.StatusRejected, rec.Face.Status, "neither update may be lost")
	s.assertScoreConsistent(rec)
	s.Equal(scoring.WeightONECIVerified+scoring.WeightDocuments, rec.TrustScore)
}

func (s *ServiceSuite) TestUpdateSignalsRecomputes() {
	s.submit("u1", models.ChannelONECI)
	s.decide("u1", models.ChannelONECI, models.DecisionApprove)

	rec, err := s.service.UpdateSignals(s.ctx, "u1", models.ProfileSignals{
		DocumentsOnFile: true,
		HistoryAttested: true,
	})
	s.Require().NoError(err)
	s.Equal(scoring.WeightONECIVerified+scoring.WeightDocuments+scoring.WeightHistory, rec.TrustScore)
	s.assertScoreConsistent(rec)
}

func (s *ServiceSuite) TestSubmissionPayloadNotRetained() {
	rec := s.submit("u1", models.ChannelONECI)
	s.decide("u1", models.ChannelONECI, models.DecisionApprove)

	// Only the decision metadata and the docs-on-file signal survive; the
	// record type has no field that could carry raw document references.
	found, err := s.service.Record(s.ctx, "u1")
	s.Require().NoError(err)
	s.True(found.DocsOnFile)
	s.NotNil(rec)
}
