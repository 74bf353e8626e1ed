package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dzonimn/Kaml/internal/notify"
	"github.com/dzonimn/Kaml/internal/player"
	"github.com/dzonimn/Kaml/internal/ranking"
)

// playerView is the JSON shape of a player in query responses.
type playerView struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	Claimed    bool     `json:"claimed"`
	Rank       int      `json:"rank,omitempty"`
	Mu         float64  `json:"mu"`
	Sigma      float64  `json:"sigma"`
	Score      float64  `json:"score"`
	Wins       int      `json:"wins"`
	Losses     int      `json:"losses"`
	TotalGames int      `json:"total_games"`
}

func viewOf(p *player.Player) playerView {
	return playerView{
		ID:         p.ID,
		Name:       p.Mention,
		Aliases:    p.SortedAliases(),
		Claimed:    p.Claimed,
		Rank:       p.Rank,
		Mu:         p.Rating.Mu,
		Sigma:      p.Rating.Sigma,
		Score:      p.Score(),
		Wins:       p.Wins,
		Losses:     p.Losses,
		TotalGames: p.TotalGames(),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithField("error", err).Error("failed to encode response")
	}
}

// writeError maps domain error kinds onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var notFound *player.NotFoundError
	var malformed *ranking.MalformedEventError

	switch {
	case errors.Is(err, ranking.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ranking.ErrDuplicateEvent):
		status = http.StatusConflict
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &malformed):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		s.log.WithField("error", err).Error("request failed")
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()
	status := http.StatusOK
	if state != ranking.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]string{"state": state.String()})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	start := queryInt(r, "start", 1)
	stop := queryInt(r, "stop", start+s.maxSliceLines)
	if stop-start > s.maxSliceLines {
		stop = start + s.maxSliceLines
	}

	players, err := s.engine.Slice(start, stop)
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries := make([]playerView, 0, len(players))
	for _, p := range players {
		entries = append(entries, viewOf(p))
	}

	text, err := notify.LeaderboardText(s.engine, start, stop)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"text":    text,
		"total":   s.engine.RankedCount(),
	})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := s.engine.ResolvePlayer(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, viewOf(p))
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	name1 := r.URL.Query().Get("p1")
	name2 := r.URL.Query().Get("p2")
	if name1 == "" || name2 == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "p1 and p2 are required"})
		return
	}

	p1, err := s.engine.ResolvePlayer(r.Context(), name1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	p2, err := s.engine.ResolvePlayer(r.Context(), name2)
	if err != nil {
		s.writeError(w, err)
		return
	}

	comparison, err := s.engine.Comparison(p1, p2)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{
		"p1":        viewOf(p1),
		"p2":        viewOf(p2),
		"confident": comparison != nil,
	}
	if comparison != nil {
		resp["win_probability"] = *comparison
	} else {
		resp["blind_estimate"] = s.engine.WinEstimate(p1, p2)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type claimRequest struct {
	Aliases []string `json:"aliases"`
}

type claimResponse struct {
	Merged    []string               `json:"merged"`
	NotFound  []string               `json:"not_found"`
	Conflicts []player.AliasConflict `json:"conflicts"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid identity id"})
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Aliases) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one alias is required"})
		return
	}

	result, err := s.engine.Claim(r.Context(), id, req.Aliases)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, claimResponse{
		Merged:    result.Merged,
		NotFound:  result.NotFound,
		Conflicts: result.Conflicts,
	})
}

type registerGameRequest struct {
	Timestamp float64 `json:"timestamp"`
	EventID   string  `json:"event_id"`
	Winner    string  `json:"winner"`
	Loser     string  `json:"loser"`
}

func (s *Server) handleRegisterGame(w http.ResponseWriter, r *http.Request) {
	var req registerGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.EventID == "" {
		req.EventID = uuid.New().String()
	}
	if req.Timestamp == 0 {
		req.Timestamp = float64(time.Now().Unix())
	}

	change, err := s.engine.RegisterGame(r.Context(), ranking.MatchEvent{
		Timestamp:   req.Timestamp,
		EventID:     req.EventID,
		WinnerAlias: req.Winner,
		LoserAlias:  req.Loser,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"event_id":           req.EventID,
		"winner":             viewOf(change.Winner),
		"loser":              viewOf(change.Loser),
		"delta_mu_winner":    change.DeltaMuWinner,
		"delta_sigma_winner": change.DeltaSigmaWinner,
		"delta_mu_loser":     change.DeltaMuLoser,
		"delta_sigma_loser":  change.DeltaSigmaLoser,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
