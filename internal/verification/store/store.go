// Package store persists verification records. Implementations are
// interface-driven so services stay testable against the in-memory store and
// production wires postgres without touching business code.
package store

import (
	"context"
	"errors"

	"veristay/internal/verification/models"
)

// ErrNoChange is returned by a validate callback to signal the record is
// already in the requested state. Execute then returns the current snapshot
// without running mutate or persisting, so retries leave updated_at (and the
// record's position in the review queue) untouched.
var ErrNoChange = errors.New("record unchanged")

// RecordStore is the durable home of per-user verification state.
//
// Execute is the atomic validate-then-mutate primitive: the implementation
// holds its lock (mutex or SELECT FOR UPDATE) across both callbacks, creates
// a blank record when none exists (lazy creation on first submission), and
// persists the mutated record as a single logical unit. Either the whole
// transition commits or none of it does.
type RecordStore interface {
	// Find returns a snapshot of the user's record, or sentinel.ErrNotFound.
	Find(ctx context.Context, userID string) (*models.VerificationRecord, error)

	// Execute atomically validates and mutates the user's record.
	// validate may be nil; returning ErrNoChange from it short-circuits
	// the write. The returned record is a snapshot.
	Execute(
		ctx context.Context,
		userID string,
		validate func(rec *models.VerificationRecord) error,
		mutate func(rec *models.VerificationRecord),
	) (*models.VerificationRecord, error)

	// ListOpen returns records with at least one channel awaiting a decision,
	// filtered and paginated for the admin review queue.
	ListOpen(ctx context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error)
}
