package ranking

import (
	"errors"
	"fmt"

	"github.com/dzonimn/Kaml/internal/player"
)

// MatchEvent is a raw match result supplied by a collaborator, either as a
// historical backfill batch (oldest first) or one at a time as games happen.
type MatchEvent struct {
	Timestamp   float64 // unix seconds
	EventID     string  // opaque, unique per event
	WinnerAlias string
	LoserAlias  string
}

// RatingChange describes the effect of one accepted game on both beliefs.
// It is derived for notification only, never stored.
type RatingChange struct {
	Winner *player.Player
	Loser  *player.Player

	DeltaMuWinner    float64
	DeltaSigmaWinner float64
	DeltaMuLoser     float64
	DeltaSigmaLoser  float64
}

func (c *RatingChange) String() string {
	return fmt.Sprintf("%s defeats %s (mu %+.3f / %+.3f)",
		c.Winner.Mention, c.Loser.Mention, c.DeltaMuWinner, c.DeltaMuLoser)
}

// ErrNotReady is returned for operations attempted before the engine has
// finished replaying the durable log. Callers retry after initialization.
var ErrNotReady = errors.New("ranking engine not ready")

// ErrDuplicateEvent is returned when an event ID has already been
// registered. Backfills treat it as an ordinary skip.
var ErrDuplicateEvent = errors.New("event already registered")

// MalformedEventError reports an event that cannot be applied. During batch
// ingestion it is logged and skipped, never fatal.
type MalformedEventError struct {
	EventID string
	Reason  string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %q: %s", e.EventID, e.Reason)
}
