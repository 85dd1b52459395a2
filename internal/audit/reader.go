package audit

import (
	"context"
	"errors"

	"veristay/internal/verification/models"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/platform/sentinel"
)

// RecordFinder is the slice of the verification store the reader needs.
type RecordFinder interface {
	Find(ctx context.Context, userID string) (*models.VerificationRecord, error)
}

// SensitiveReader is the only path that hands raw verification data to a
// privileged caller. Wrapping the store accessor makes the access log
// structurally unavoidable: there is no way to reach the record through this
// type without a persisted entry ordered before the data is released.
type SensitiveReader struct {
	records  RecordFinder
	recorder *Recorder
}

func NewSensitiveReader(records RecordFinder, recorder *Recorder) *SensitiveReader {
	return &SensitiveReader{records: records, recorder: recorder}
}

// FullView logs a full_view access and then returns the user's complete
// record. The append happens before the find so a failed log never exposes
// data.
func (r *SensitiveReader) FullView(ctx context.Context, adminID, userID string) (*models.VerificationRecord, error) {
	if err := r.recorder.Record(ctx, Access{
		AdminID:      adminID,
		TargetUserID: userID,
		Type:         AccessFullView,
	}); err != nil {
		return nil, err
	}

	rec, err := r.records.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no verification record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification record")
	}
	return rec, nil
}

// ChannelData logs a channel-scoped access and returns that channel's state,
// including the raw similarity score for the face channel.
func (r *SensitiveReader) ChannelData(ctx context.Context, actorID, userID string, channel models.Channel) (*models.ChannelState, error) {
	if !channel.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown verification channel")
	}
	if err := r.recorder.Record(ctx, Access{
		AdminID:      actorID,
		TargetUserID: userID,
		Type:         ForChannel(string(channel)),
	}); err != nil {
		return nil, err
	}

	rec, err := r.records.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no verification record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load verification record")
	}
	state := rec.Channel(channel)
	return state, nil
}
