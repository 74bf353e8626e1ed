// Package ranking owns the total ordering of players and the single
// serialized entry point for state mutation. Every accepted game updates
// both skill beliefs, appends to the durable log, and rebuilds the ranking
// wholesale; queries read an atomically swapped snapshot and never block a
// writer.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/locks"
	"github.com/dzonimn/Kaml/internal/player"
	"github.com/dzonimn/Kaml/internal/rating"
	"github.com/dzonimn/Kaml/internal/signal"
	"github.com/dzonimn/Kaml/internal/store"
)

// rankingSection is the named lock guarding all rating/ranking mutation.
const rankingSection = "ranking"

// State is the engine lifecycle: Uninitialized until Load starts, Loading
// while the durable log replays, Ready afterwards.
type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// table is one immutable ranking computation: both inverse maps, replaced
// wholesale after every accepted game.
type table struct {
	rankToPlayer []*player.Player // index 0 holds rank 1
	playerToRank map[int64]int
}

// Engine glues the identity registry, the rating model, the durable store
// and the notification hub together.
type Engine struct {
	registry *player.Registry
	store    store.Store
	hub      *signal.Hub
	locks    *locks.KeyedMutex
	log      *logrus.Logger

	state atomic.Int32
	table atomic.Pointer[table]

	// seen holds every registered event ID; guarded by the ranking
	// section.
	seen map[string]struct{}
}

// New creates an engine in the Uninitialized state.
func New(reg *player.Registry, st store.Store, hub *signal.Hub, km *locks.KeyedMutex, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		registry: reg,
		store:    st,
		hub:      hub,
		locks:    km,
		log:      log,
		seen:     make(map[string]struct{}),
	}
	e.table.Store(&table{playerToRank: make(map[int64]int)})
	return e
}

// State reports the engine lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Load replays the durable log from the beginning, rebuilding the exact
// in-memory state the engine had when the log was written, then flips to
// Ready. Queries and registrations are rejected with ErrNotReady until it
// returns.
func (e *Engine) Load(ctx context.Context) error {
	e.state.Store(int32(Loading))
	e.log.Info("replaying durable log")

	if err := e.registry.Load(ctx); err != nil {
		return err
	}

	results, err := e.store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("failed to read raw results: %w", err)
	}

	unlock := e.locks.Lock(rankingSection)
	replayed, skipped := 0, 0
	for _, r := range results {
		ev := MatchEvent{
			Timestamp:   r.Timestamp,
			EventID:     r.EventID,
			WinnerAlias: r.Winner,
			LoserAlias:  r.Loser,
		}
		if _, err := e.registerLocked(ctx, ev, false); err != nil {
			e.log.WithFields(logrus.Fields{
				"event": r.EventID,
				"error": err,
			}).Warn("skipping unusable logged result")
			skipped++
			continue
		}
		replayed++
	}
	unlock()

	e.state.Store(int32(Ready))
	e.log.WithFields(logrus.Fields{
		"replayed": replayed,
		"skipped":  skipped,
	}).Info("ranking engine ready")
	e.hub.Emit(signal.RankingUpdated, nil)
	return nil
}

// RegisterGame applies one match event: resolve identities, append the raw
// result to the durable log, update both beliefs, record history, recompute
// the ranking, then notify. It is the only path that mutates ratings or
// ranks.
func (e *Engine) RegisterGame(ctx context.Context, ev MatchEvent) (*RatingChange, error) {
	if e.State() != Ready {
		return nil, ErrNotReady
	}

	unlock := e.locks.Lock(rankingSection)
	change, err := e.registerLocked(ctx, ev, true)
	unlock()
	if err != nil {
		return nil, err
	}

	e.hub.Emit(signal.GameRegistered, change)
	e.hub.Emit(signal.RankingUpdated, nil)
	return change, nil
}

// Backfill ingests a historical batch, oldest first. Malformed and
// duplicate events are skipped with a warning; they never halt the batch.
func (e *Engine) Backfill(ctx context.Context, events []MatchEvent) (accepted int, err error) {
	if e.State() != Ready {
		return 0, ErrNotReady
	}

	unlock := e.locks.Lock(rankingSection)
	for _, ev := range events {
		if _, err := e.registerLocked(ctx, ev, true); err != nil {
			switch {
			case isSkippable(err):
				e.log.WithFields(logrus.Fields{
					"event": ev.EventID,
					"error": err,
				}).Warn("skipping backfill event")
				continue
			default:
				unlock()
				return accepted, err
			}
		}
		accepted++
	}
	unlock()

	if accepted > 0 {
		e.hub.Emit(signal.RankingUpdated, nil)
	}
	e.log.WithField("accepted", accepted).Info("backfill complete")
	return accepted, nil
}

// isSkippable reports whether a registration failure should not halt batch
// ingestion.
func isSkippable(err error) bool {
	if err == ErrDuplicateEvent {
		return true
	}
	_, malformed := err.(*MalformedEventError)
	return malformed
}

// registerLocked performs the actual update. Must hold the ranking section.
// The log append happens before the in-memory mutation: the log is
// authoritative, and a crash in between is healed by replay.
func (e *Engine) registerLocked(ctx context.Context, ev MatchEvent, persist bool) (*RatingChange, error) {
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	if _, dup := e.seen[ev.EventID]; dup {
		return nil, ErrDuplicateEvent
	}

	winner, err := e.registry.Resolve(ctx, ev.WinnerAlias, true)
	if err != nil {
		return nil, err
	}
	loser, err := e.registry.Resolve(ctx, ev.LoserAlias, true)
	if err != nil {
		return nil, err
	}
	if winner.ID == loser.ID {
		return nil, &MalformedEventError{
			EventID: ev.EventID,
			Reason:  "winner and loser are the same player",
		}
	}

	if persist {
		if err := e.store.AppendResult(ctx, &store.RawResult{
			Timestamp: ev.Timestamp,
			EventID:   ev.EventID,
			Winner:    ev.WinnerAlias,
			Loser:     ev.LoserAlias,
		}); err != nil {
			return nil, err
		}
	}

	oldWinner, oldLoser := winner.Rating, loser.Rating
	newWinner, newLoser := rating.Update(oldWinner, oldLoser)

	preWinnerRank, preLoserRank := winner.Rank, loser.Rank

	winner.Rating = newWinner
	loser.Rating = newLoser
	winner.Wins++
	loser.Losses++
	winner.SaveState(ev.Timestamp, preWinnerRank)
	loser.SaveState(ev.Timestamp, preLoserRank)
	e.seen[ev.EventID] = struct{}{}

	if err := e.computeRankingLocked(); err != nil {
		return nil, err
	}

	return &RatingChange{
		Winner:           winner,
		Loser:            loser,
		DeltaMuWinner:    newWinner.Mu - oldWinner.Mu,
		DeltaSigmaWinner: newWinner.Sigma - oldWinner.Sigma,
		DeltaMuLoser:     newLoser.Mu - oldLoser.Mu,
		DeltaSigmaLoser:  newLoser.Sigma - oldLoser.Sigma,
	}, nil
}

func validateEvent(ev MatchEvent) error {
	switch {
	case ev.EventID == "":
		return &MalformedEventError{EventID: ev.EventID, Reason: "missing event id"}
	case ev.WinnerAlias == "":
		return &MalformedEventError{EventID: ev.EventID, Reason: "missing winner"}
	case ev.LoserAlias == "":
		return &MalformedEventError{EventID: ev.EventID, Reason: "missing loser"}
	case ev.Timestamp <= 0:
		return &MalformedEventError{EventID: ev.EventID, Reason: "missing timestamp"}
	}
	return nil
}

// computeRankingLocked rebuilds both inverse maps from scratch: players with
// at least one game, descending conservative score, ties broken by
// ascending ID, dense 1-based ranks. The maps are swapped atomically so
// readers always observe a complete ranking.
func (e *Engine) computeRankingLocked() error {
	players := e.registry.Players()
	ranked := players[:0]
	for _, p := range players {
		if p.TotalGames() > 0 {
			ranked = append(ranked, p)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score(), ranked[j].Score()
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	t := &table{
		rankToPlayer: append([]*player.Player(nil), ranked...),
		playerToRank: make(map[int64]int, len(ranked)),
	}
	for i, p := range ranked {
		t.playerToRank[p.ID] = i + 1
		p.Rank = i + 1
	}

	if err := t.check(); err != nil {
		return err
	}

	e.table.Store(t)
	return nil
}

// check verifies the ranking invariants; a violation means internal state
// is corrupt and the operation must abort rather than serve inconsistent
// results.
func (t *table) check() error {
	if len(t.playerToRank) != len(t.rankToPlayer) {
		return fmt.Errorf("ranking corrupt: %d ranks for %d players",
			len(t.rankToPlayer), len(t.playerToRank))
	}
	for i, p := range t.rankToPlayer {
		if r, ok := t.playerToRank[p.ID]; !ok || r != i+1 {
			return fmt.Errorf("ranking corrupt: player %d at rank %d maps to %d", p.ID, i+1, r)
		}
		if i > 0 && t.rankToPlayer[i-1].Score() < p.Score() {
			return fmt.Errorf("ranking corrupt: rank %d outscores rank %d", i+1, i)
		}
	}
	return nil
}

// Slice returns the players ranked in [start, stop), 1-based inclusive
// start. Out-of-range bounds truncate; the result may be empty but never an
// error once the engine is ready.
func (e *Engine) Slice(start, stop int) ([]*player.Player, error) {
	if e.State() != Ready {
		return nil, ErrNotReady
	}
	t := e.table.Load()

	if start < 1 {
		start = 1
	}
	if stop > len(t.rankToPlayer)+1 {
		stop = len(t.rankToPlayer) + 1
	}
	if start >= stop {
		return nil, nil
	}
	return t.rankToPlayer[start-1 : stop-1], nil
}

// RankedCount is the number of players with at least one recorded game.
func (e *Engine) RankedCount() int {
	return len(e.table.Load().rankToPlayer)
}

// Rank returns a player's current 1-based rank, or 0 if unranked.
func (e *Engine) Rank(p *player.Player) int {
	return e.table.Load().playerToRank[p.ID]
}

// Comparison returns the confident win probability of a over b when both
// have at least one recorded game, and nil otherwise, signaling the caller
// to fall back to the blind estimate.
func (e *Engine) Comparison(a, b *player.Player) (*float64, error) {
	if e.State() != Ready {
		return nil, ErrNotReady
	}
	if a.TotalGames() == 0 || b.TotalGames() == 0 {
		return nil, nil
	}
	p := rating.WinProbability(a.Rating, b.Rating)
	return &p, nil
}

// WinEstimate is the blind estimate of a beating b, computed purely from
// the current beliefs. It is defined even for players with no games.
func (e *Engine) WinEstimate(a, b *player.Player) float64 {
	return rating.WinProbability(a.Rating, b.Rating)
}

// ResolvePlayer is the read-side alias lookup: strict, never creates, and
// gated on readiness like every other query.
func (e *Engine) ResolvePlayer(ctx context.Context, alias string) (*player.Player, error) {
	if e.State() != Ready {
		return nil, ErrNotReady
	}
	return e.registry.Resolve(ctx, alias, false)
}

// Claim binds aliases to a stable identity once the engine is ready.
func (e *Engine) Claim(ctx context.Context, id int64, aliases []string) (player.ClaimResult, error) {
	if e.State() != Ready {
		return player.ClaimResult{}, ErrNotReady
	}
	return e.registry.Claim(ctx, id, aliases)
}

// ResumePoint returns the event ID of the last persisted result, the point
// from which a collaborator should resume fetching history.
func (e *Engine) ResumePoint(ctx context.Context) (string, error) {
	return e.store.LastEventID(ctx)
}
