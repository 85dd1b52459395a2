// Package store persists access log entries. Append and Query are the entire
// surface: the log is append-only by construction.
package store

import (
	"veristay/internal/audit"
)

// compile-time interface checks
var (
	_ audit.EntryStore = (*InMemory)(nil)
	_ audit.EntryStore = (*Postgres)(nil)
)
