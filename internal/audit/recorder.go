package audit

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditmetrics "veristay/internal/audit/metrics"
	dErrors "veristay/pkg/domain-errors"
	"veristay/pkg/requestcontext"
)

// Filters narrows compliance queries. Zero values mean "no filter".
type Filters struct {
	AdminID      string
	TargetUserID string
	Type         AccessType
	From         *time.Time
	To           *time.Time
	Page         int
	PerPage      int
}

// Window returns offset/limit pagination bounds with sane defaults.
func (f Filters) Window() (offset, limit int) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	per := f.PerPage
	if per < 1 || per > 500 {
		per = 100
	}
	return (page - 1) * per, per
}

// EntryStore is the append-only persistence boundary. Append and Query are
// the entire surface: no update or delete operation exists by design.
type EntryStore interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filters Filters) ([]Entry, error)
}

// Recorder emits access log entries with synchronous, fail-closed semantics:
// the caller blocks until the append succeeds, and if it fails the sensitive
// read it would have authorized must fail too. Log-before-release is a hard
// invariant, not best-effort.
type Recorder struct {
	store   EntryStore
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithMetrics sets the metrics collector.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(store EntryStore, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists one access log entry, enriched with request metadata from
// context. Returns ErrWriteFailed (wrapped, retryable) when the append fails;
// the caller must not release the sensitive data it was about to return.
func (r *Recorder) Record(ctx context.Context, access Access) error {
	if access.AdminID == "" || access.TargetUserID == "" {
		return dErrors.New(dErrors.CodeValidation, "audit access requires admin and target user")
	}
	if !access.Type.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown access type")
	}

	entry := Entry{
		ID:           uuid.New(),
		AdminID:      access.AdminID,
		TargetUserID: access.TargetUserID,
		AccessType:   access.Type,
		AccessedAt:   requestcontext.Now(ctx),
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	}

	start := time.Now()
	if err := r.store.Append(ctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.PersistFailures.Inc()
		}
		r.logger.ErrorContext(ctx, "access log append failed, read fails closed",
			"admin_id", access.AdminID,
			"target_user_id", access.TargetUserID,
			"access_type", access.Type,
			"error", err,
		)
		return dErrors.Wrap(ErrWriteFailed, dErrors.CodeInternal, "access log append failed")
	}

	if r.metrics != nil {
		r.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		r.metrics.EntriesRecorded.Inc()
	}
	return nil
}

// Query returns entries for compliance review, paginated, read-only.
func (r *Recorder) Query(ctx context.Context, filters Filters) ([]Entry, error) {
	entries, err := r.store.Query(ctx, filters)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query access log")
	}
	return entries, nil
}

// ExportCSV streams matching entries as a delimited compliance report.
func (r *Recorder) ExportCSV(ctx context.Context, filters Filters, w io.Writer) error {
	entries, err := r.Query(ctx, filters)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "admin_id", "target_user_id", "access_type", "accessed_at", "ip_address", "user_agent", "request_id"}
	if err := cw.Write(header); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write export header")
	}
	for _, e := range entries {
		row := []string{
			e.ID.String(),
			e.AdminID,
			e.TargetUserID,
			string(e.AccessType),
			e.AccessedAt.UTC().Format(time.RFC3339),
			e.IPAddress,
			e.UserAgent,
			e.RequestID,
		}
		if err := cw.Write(row); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "write export row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush export")
	}
	return nil
}
