package player

import (
	"fmt"
	"sort"

	"github.com/dzonimn/Kaml/internal/rating"
)

// Snapshot is one point of a player's rating history, recorded after each
// accepted game. Rank is the player's rank before that game (0 if they were
// unranked), so consumers can compare before/after standings.
type Snapshot struct {
	Timestamp float64
	Rank      int
	Mu        float64
	Sigma     float64
	Score     float64
}

// Player is a stable competitor record. ID is unique and immutable; every
// alias maps to at most one player. A player is claimed once bound to a
// durable external identity, unclaimed while it only stands for a free-text
// name seen in results.
type Player struct {
	ID      int64
	Aliases map[string]struct{}
	Claimed bool
	Mention string

	Rating rating.Rating
	Wins   int
	Losses int

	// Rank is the 1-based position in the current ranking, 0 while the
	// player has no recorded games or the ranking has not been computed.
	Rank int

	// History holds snapshots in chronological order, one per accepted
	// game.
	History []Snapshot
}

func (p *Player) String() string {
	return fmt.Sprintf("Player %s (mu = %.3f, sigma = %.3f)", p.Mention, p.Rating.Mu, p.Rating.Sigma)
}

// Score is the conservative estimate used for ranking.
func (p *Player) Score() float64 {
	return p.Rating.Score()
}

// TotalGames is the number of recorded games.
func (p *Player) TotalGames() int {
	return p.Wins + p.Losses
}

// WinRatio is the fraction of recorded games won, 0 with no games.
func (p *Player) WinRatio() float64 {
	if p.TotalGames() == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.TotalGames())
}

// SaveState appends a history snapshot of the current belief at the given
// timestamp, recording the supplied pre-game rank. A snapshot at the same
// timestamp as the latest one replaces it, so duplicate timestamps coalesce
// deterministically and insertion order stays chronological.
func (p *Player) SaveState(timestamp float64, rank int) {
	s := Snapshot{
		Timestamp: timestamp,
		Rank:      rank,
		Mu:        p.Rating.Mu,
		Sigma:     p.Rating.Sigma,
		Score:     p.Score(),
	}
	if n := len(p.History); n > 0 && p.History[n-1].Timestamp == timestamp {
		p.History[n-1] = s
		return
	}
	p.History = append(p.History, s)
}

// SortedAliases returns the player's aliases in a stable order.
func (p *Player) SortedAliases() []string {
	out := make([]string, 0, len(p.Aliases))
	for a := range p.Aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
