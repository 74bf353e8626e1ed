// Package notify turns engine signals into rendered output for a
// collaborator sink: a leaderboard text block whenever the ranking changes,
// and a structured result line for every registered game. The chat gateway
// is expected to provide its own Sink; LogSink is the built-in default.
package notify

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/player"
	"github.com/dzonimn/Kaml/internal/ranking"
	"github.com/dzonimn/Kaml/internal/signal"
)

// Sink receives rendered leaderboard text and rating-change notifications.
// Implementations must be safe to call from the engine's goroutine.
type Sink interface {
	PublishLeaderboard(text string)
	PublishResult(change *ranking.RatingChange)
}

// Notifier subscribes to the engine's signals and feeds the sink.
type Notifier struct {
	engine *ranking.Engine
	sink   Sink
	topN   int
}

// NewNotifier wires a notifier publishing the top topN ranks on every
// ranking update.
func NewNotifier(e *ranking.Engine, sink Sink, topN int) *Notifier {
	if topN <= 0 {
		topN = 20
	}
	return &Notifier{engine: e, sink: sink, topN: topN}
}

// Connect attaches the notifier to the hub. Subscribers run synchronously
// after the engine releases its lock section.
func (n *Notifier) Connect(hub *signal.Hub) {
	hub.Connect(signal.RankingUpdated, func(any) {
		text, err := LeaderboardText(n.engine, 1, n.topN+1)
		if err != nil {
			return
		}
		n.sink.PublishLeaderboard(text)
	})
	hub.Connect(signal.GameRegistered, func(v any) {
		change, ok := v.(*ranking.RatingChange)
		if !ok {
			return
		}
		n.sink.PublishResult(change)
	})
}

// LeaderboardText renders the ranks in [start, stop) as a fixed-width text
// block, one line per player.
func LeaderboardText(e *ranking.Engine, start, stop int) (string, error) {
	players, err := e.Slice(start, stop)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range players {
		b.WriteString(FormatLine(p))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// FormatLine renders one leaderboard line for a ranked player.
func FormatLine(p *player.Player) string {
	return fmt.Sprintf("%3d. %-24s %7.2f  (mu=%.2f sigma=%.2f)  %dW/%dL",
		p.Rank, p.Mention, p.Score(), p.Rating.Mu, p.Rating.Sigma, p.Wins, p.Losses)
}

// LogSink writes notifications to the log. It stands in for the chat
// gateway when none is attached.
type LogSink struct {
	log *logrus.Logger
}

// NewLogSink creates a sink logging through the given logger.
func NewLogSink(log *logrus.Logger) *LogSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSink{log: log}
}

func (s *LogSink) PublishLeaderboard(text string) {
	s.log.WithField("lines", strings.Count(text, "\n")).Debug("leaderboard updated")
}

func (s *LogSink) PublishResult(change *ranking.RatingChange) {
	s.log.WithFields(logrus.Fields{
		"winner": change.Winner.Mention,
		"loser":  change.Loser.Mention,
		"dmu_w":  fmt.Sprintf("%+.3f", change.DeltaMuWinner),
		"dmu_l":  fmt.Sprintf("%+.3f", change.DeltaMuLoser),
	}).Info("game registered")
}
