package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"veristay/internal/verification/models"
	"veristay/pkg/platform/sentinel"
	"veristay/pkg/requestcontext"
)

// Postgres implements RecordStore on a verification_records table, one row
// per user. Execute runs inside a transaction with SELECT ... FOR UPDATE so
// validate-then-mutate is atomic under concurrent writers.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const recordColumns = `
	user_id,
	oneci_status, oneci_verified_at,
	cnam_status, cnam_verified_at,
	face_status, face_verified_at, face_similarity_score,
	docs_on_file, history_attested, alt_document_accepted, profile_complete, phone_on_file,
	trust_score, score_updated_at,
	admin_review_notes, admin_reviewed_by, admin_reviewed_at,
	created_at, updated_at`

func (s *Postgres) Find(ctx context.Context, userID string) (*models.VerificationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM verification_records WHERE user_id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) Execute(
	ctx context.Context,
	userID string,
	validate func(rec *models.VerificationRecord) error,
	mutate func(rec *models.VerificationRecord),
) (*models.VerificationRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lazy creation keeps first submissions race-safe: the no-op conflict
	// clause still leaves the row in place for the locking read below.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO verification_records (user_id, created_at, updated_at, score_updated_at)
		VALUES ($1, NOW(), NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("ensure verification record: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM verification_records WHERE user_id = $1 FOR UPDATE`
	rec, err := scanRecord(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("lock verification record: %w", err)
	}

	if validate != nil {
		if err := validate(rec); err != nil {
			// A declared no-op keeps the committed row as is: the deferred
			// rollback releases the lock without touching updated_at.
			if errors.Is(err, ErrNoChange) {
				return rec, nil
			}
			return nil, err
		}
	}
	mutate(rec)
	rec.UpdatedAt = requestcontext.Now(ctx)

	_, err = tx.ExecContext(ctx, `
		UPDATE verification_records SET
			oneci_status = $2, oneci_verified_at = $3,
			cnam_status = $4, cnam_verified_at = $5,
			face_status = $6, face_verified_at = $7, face_similarity_score = $8,
			docs_on_file = $9, history_attested = $10, alt_document_accepted = $11,
			profile_complete = $12, phone_on_file = $13,
			trust_score = $14, score_updated_at = $15,
			admin_review_notes = $16, admin_reviewed_by = $17, admin_reviewed_at = $18,
			updated_at = $19
		WHERE user_id = $1`,
		rec.UserID,
		string(rec.ONECI.Status), rec.ONECI.VerifiedAt,
		string(rec.CNAM.Status), rec.CNAM.VerifiedAt,
		string(rec.Face.Status), rec.Face.VerifiedAt, rec.Face.SimilarityScore,
		rec.DocsOnFile, rec.HistoryAttested, rec.AltDocumentAccepted,
		rec.ProfileComplete, rec.PhoneOnFile,
		rec.TrustScore, rec.ScoreUpdatedAt,
		nullIfEmpty(rec.ReviewNotes), nullIfEmpty(rec.ReviewedBy), rec.ReviewedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update verification record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit verification record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ListOpen(ctx context.Context, filters models.ReviewFilters) ([]*models.VerificationRecord, error) {
	var conds []string
	var args []any

	channels := models.Channels
	if filters.Channel != nil {
		channels = []models.Channel{*filters.Channel}
	}
	var statusConds []string
	for _, ch := range channels {
		col := string(ch) + "_status"
		if filters.Status != nil {
			args = append(args, string(*filters.Status))
			statusConds = append(statusConds, fmt.Sprintf("%s = $%d", col, len(args)))
		} else {
			args = append(args, pq.Array([]string{string(models.StatusPending), string(models.StatusPendingReview)}))
			statusConds = append(statusConds, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
		}
	}
	conds = append(conds, "("+strings.Join(statusConds, " OR ")+")")

	if filters.From != nil {
		args = append(args, *filters.From)
		conds = append(conds, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		conds = append(conds, fmt.Sprintf("updated_at <= $%d", len(args)))
	}

	offset, limit := filters.Window()
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT %s FROM verification_records WHERE %s ORDER BY updated_at ASC LIMIT $%d OFFSET $%d`,
		recordColumns, strings.Join(conds, " AND "), len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open verifications: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	var oneciStatus, cnamStatus, faceStatus string
	var notes, reviewedBy sql.NullString

	err := row.Scan(
		&rec.UserID,
		&oneciStatus, &rec.ONECI.VerifiedAt,
		&cnamStatus, &rec.CNAM.VerifiedAt,
		&faceStatus, &rec.Face.VerifiedAt, &rec.Face.SimilarityScore,
		&rec.DocsOnFile, &rec.HistoryAttested, &rec.AltDocumentAccepted,
		&rec.ProfileComplete, &rec.PhoneOnFile,
		&rec.TrustScore, &rec.ScoreUpdatedAt,
		&notes, &reviewedBy, &rec.ReviewedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ONECI.Status = models.ChannelStatus(oneciStatus)
	rec.CNAM.Status = models.ChannelStatus(cnamStatus)
	rec.Face.Status = models.ChannelStatus(faceStatus)
	rec.ReviewNotes = notes.String
	rec.ReviewedBy = reviewedBy.String
	return &rec, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
