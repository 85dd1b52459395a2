// Package audit is the append-only access log for privileged reads of
// sensitive verification data. Entries are immutable once written; the store
// interface deliberately has no update or delete operation.
package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AccessType classifies which sensitive surface was read.
type AccessType string

const (
	// AccessFullView covers an admin examining a user's complete record.
	AccessFullView AccessType = "full_view"
	// AccessONECIData, AccessCNAMData and AccessFaceData cover raw channel
	// payload reads, including external verifier callbacks.
	AccessONECIData AccessType = "oneci_data"
	AccessCNAMData  AccessType = "cnam_data"
	AccessFaceData  AccessType = "face_data"
)

// Valid reports whether t names a known access type.
func (t AccessType) Valid() bool {
	switch t {
	case AccessFullView, AccessONECIData, AccessCNAMData, AccessFaceData:
		return true
	}
	return false
}

// ForChannel maps a verification channel name onto its raw-data access type.
func ForChannel(channel string) AccessType {
	switch channel {
	case "oneci":
		return AccessONECIData
	case "cnam":
		return AccessCNAMData
	default:
		return AccessFaceData
	}
}

// Entry is one privileged read, enriched with request metadata for forensics.
type Entry struct {
	ID           uuid.UUID  `json:"id"`
	AdminID      string     `json:"admin_id"`
	TargetUserID string     `json:"target_user_id"`
	AccessType   AccessType `json:"access_type"`
	AccessedAt   time.Time  `json:"accessed_at"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
}

// Access is the caller-supplied part of an Entry; the recorder fills in
// identity, timestamps and request metadata.
type Access struct {
	AdminID      string
	TargetUserID string
	Type         AccessType
}

// ErrWriteFailed marks a failed audit append. Reads gated on the entry must
// fail closed: the error is retryable, never silently ignored.
var ErrWriteFailed = errors.New("audit write failed")
