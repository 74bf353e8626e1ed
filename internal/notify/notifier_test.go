package notify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dzonimn/Kaml/internal/locks"
	"github.com/dzonimn/Kaml/internal/player"
	"github.com/dzonimn/Kaml/internal/ranking"
	"github.com/dzonimn/Kaml/internal/signal"
	"github.com/dzonimn/Kaml/internal/store"
)

type captureSink struct {
	leaderboards []string
	results      []*ranking.RatingChange
}

func (s *captureSink) PublishLeaderboard(text string) {
	s.leaderboards = append(s.leaderboards, text)
}

func (s *captureSink) PublishResult(c *ranking.RatingChange) {
	s.results = append(s.results, c)
}

func newTestEngine(t *testing.T) (*ranking.Engine, *signal.Hub) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "kaml.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	km := locks.NewKeyedMutex()
	hub := signal.NewHub(log)
	reg := player.NewRegistry(st, km, nil, log)
	return ranking.New(reg, st, hub, km, log), hub
}

func TestNotifierPublishesOnSignals(t *testing.T) {
	e, hub := newTestEngine(t)
	sink := &captureSink{}
	NewNotifier(e, sink, 10).Connect(hub)

	ctx := context.Background()
	require.NoError(t, e.Load(ctx))
	require.Len(t, sink.leaderboards, 1, "load publishes the initial leaderboard")

	_, err := e.RegisterGame(ctx, ranking.MatchEvent{
		Timestamp: 1000, EventID: "e1", WinnerAlias: "alice", LoserAlias: "bob",
	})
	require.NoError(t, err)

	require.Len(t, sink.results, 1)
	require.Equal(t, "alice", sink.results[0].Winner.Mention)
	require.Len(t, sink.leaderboards, 2)

	board := sink.leaderboards[1]
	require.Contains(t, board, "alice")
	require.Contains(t, board, "bob")
	require.True(t, strings.Index(board, "alice") < strings.Index(board, "bob"),
		"winner ranks above loser")
}

func TestFormatLine(t *testing.T) {
	p := &player.Player{Mention: "alice", Rank: 3, Wins: 4, Losses: 2}
	p.Rating.Mu = 27.5
	p.Rating.Sigma = 2.5

	line := FormatLine(p)
	require.Contains(t, line, "  3. ")
	require.Contains(t, line, "alice")
	require.Contains(t, line, "20.00", "conservative score mu-3sigma")
	require.Contains(t, line, "4W/2L")
}

func TestLeaderboardTextRespectsRange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	for i, g := range []struct{ w, l string }{
		{"p1", "p2"}, {"p1", "p3"}, {"p2", "p3"},
	} {
		_, err := e.RegisterGame(ctx, ranking.MatchEvent{
			Timestamp:   float64(1000 + i),
			EventID:     string(rune('a' + i)),
			WinnerAlias: g.w,
			LoserAlias:  g.l,
		})
		require.NoError(t, err)
	}

	text, err := LeaderboardText(e, 1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(text, "\n"), "two lines for ranks 1 and 2")
}
