package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"veristay/internal/audit"
)

// Postgres appends entries to the access_log_entries table. The database role
// used in production is granted INSERT and SELECT only, matching the
// append-only contract.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_log_entries
			(id, admin_id, target_user_id, access_type, accessed_at, ip_address, user_agent, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.AdminID, entry.TargetUserID, string(entry.AccessType),
		entry.AccessedAt, entry.IPAddress, entry.UserAgent, entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert access log entry: %w", err)
	}
	return nil
}

func (s *Postgres) Query(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	conds := []string{"TRUE"}
	var args []any

	if filters.AdminID != "" {
		args = append(args, filters.AdminID)
		conds = append(conds, fmt.Sprintf("admin_id = $%d", len(args)))
	}
	if filters.TargetUserID != "" {
		args = append(args, filters.TargetUserID)
		conds = append(conds, fmt.Sprintf("target_user_id = $%d", len(args)))
	}
	if filters.Type != "" {
		args = append(args, string(filters.Type))
		conds = append(conds, fmt.Sprintf("access_type = $%d", len(args)))
	}
	if filters.From != nil {
		args = append(args, *filters.From)
		conds = append(conds, fmt.Sprintf("accessed_at >= $%d", len(args)))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		conds = append(conds, fmt.Sprintf("accessed_at <= $%d", len(args)))
	}

	offset, limit := filters.Window()
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT id, admin_id, target_user_id, access_type, accessed_at,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(request_id, '')
		FROM access_log_entries
		WHERE %s
		ORDER BY accessed_at ASC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conds, " AND "), len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var accessType string
		if err := rows.Scan(
			&e.ID, &e.AdminID, &e.TargetUserID, &accessType, &e.AccessedAt,
			&e.IPAddress, &e.UserAgent, &e.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan access log entry: %w", err)
		}
		e.AccessType = audit.AccessType(accessType)
		out = append(out, e)
	}
	return out, rows.Err()
}
