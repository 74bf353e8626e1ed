package store

import (
	"context"
)

// RawResult is one appended match outcome. The log of raw results is
// authoritative: the in-memory rating state can always be rebuilt by
// replaying it oldest-first.
type RawResult struct {
	Timestamp float64 // unix seconds
	EventID   string  // opaque, unique; used for dedup and as resume point
	Winner    string
	Loser     string
}

// Store persists the raw-results log and the claimed-alias snapshot.
type Store interface {
	// AppendResult appends one result. Appending an event ID that is
	// already logged is a no-op.
	AppendResult(ctx context.Context, r *RawResult) error

	// AppendResults appends a batch in order and reports how many records
	// were actually new.
	AppendResults(ctx context.Context, rs []RawResult) (int, error)

	// ListResults returns every logged result, oldest first.
	ListResults(ctx context.Context) ([]RawResult, error)

	// LastEventID returns the event ID of the most recently appended
	// result, or "" if the log is empty. Collaborators use it as the
	// resume point for backfills.
	LastEventID(ctx context.Context) (string, error)

	// SaveAliases replaces the whole claimed-alias table.
	SaveAliases(ctx context.Context, idToAliases map[int64][]string) error

	// LoadAliases reads the claimed-alias table. A store that has never
	// been written yields an empty map.
	LoadAliases(ctx context.Context) (map[int64][]string, error)

	Close() error
}
