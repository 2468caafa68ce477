package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

// TeamRequest is the request body for creating a team.
type TeamRequest struct {
	ID    string             `json:"id,omitempty"`
	Name  string             `json:"name"`
	Sport matchday.SportType `json:"sport"`
}

// PlayerRequest is the request body for adding a roster member.
type PlayerRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	SquadNumber int    `json:"squadNumber"`
	Position    string `json:"position"`
	Active      *bool  `json:"active,omitempty"`
}

// PlayerUpdateRequest toggles availability.
type PlayerUpdateRequest struct {
	Active bool `json:"active"`
}

// MatchRequest is the request body for scheduling a match. The sport is the
// one both teams play.
type MatchRequest struct {
	ID            string    `json:"id,omitempty"`
	LocalTeamID   string    `json:"localTeamId"`
	VisitorTeamID string    `json:"visitorTeamId"`
	KickoffAt     time.Time `json:"kickoffAt"`
}

func handleListFormations(catalog *formation.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sport := matchday.SportType(r.URL.Query().Get("sport"))
		if sport != "" && !sport.Valid() {
			writeError(w, http.StatusBadRequest, "sport must be eleven or indoor")
			return
		}

		out := []matchday.FormationTemplate{}
		for _, s := range []matchday.SportType{matchday.SportEleven, matchday.SportIndoor} {
			if sport == "" || sport == s {
				out = append(out, catalog.TemplatesFor(s)...)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleListTeams(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := dir.Teams(r.Context())
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handleCreateTeam(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || !req.Sport.Valid() {
			writeError(w, http.StatusBadRequest, "name and a valid sport are required")
			return
		}

		t := matchday.Team{ID: req.ID, Name: req.Name, Sport: req.Sport}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if err := dir.CreateTeam(r.Context(), t); err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleListPlayers(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := dir.Players(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func handleCreatePlayer(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || strings.TrimSpace(req.Position) == "" {
			writeError(w, http.StatusBadRequest, "name and position are required")
			return
		}

		teamID := chi.URLParam(r, "teamID")
		if _, err := dir.Team(r.Context(), teamID); err != nil {
			if errors.Is(err, matchday.ErrNotFound) {
				writeError(w, http.StatusNotFound, "team not found")
				return
			}
			writeFailure(w, logger, err)
			return
		}

		p := matchday.Player{
			ID:          req.ID,
			TeamID:      teamID,
			Name:        req.Name,
			SquadNumber: req.SquadNumber,
			Position:    req.Position,
			Active:      req.Active == nil || *req.Active,
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if err := dir.CreatePlayer(r.Context(), p); err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleUpdatePlayer(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayerUpdateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := dir.SetPlayerActive(r.Context(), chi.URLParam(r, "playerID"), req.Active); err != nil {
			writeFailure(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListMatches(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := dir.ListMatches(r.Context())
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		out := make([]match.MatchRecord, 0, len(recs))
		for _, rec := range recs {
			rec.Clock = nil
			out = append(out, rec)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleCreateMatch(logger *slog.Logger, dir Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MatchRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.LocalTeamID == "" || req.VisitorTeamID == "" || req.KickoffAt.IsZero() {
			writeError(w, http.StatusBadRequest, "localTeamId, visitorTeamId and kickoffAt are required")
			return
		}
		if req.LocalTeamID == req.VisitorTeamID {
			writeError(w, http.StatusBadRequest, "a team cannot play itself")
			return
		}

		var sports [2]matchday.SportType
		for i, id := range []string{req.LocalTeamID, req.VisitorTeamID} {
			t, err := dir.Team(r.Context(), id)
			if errors.Is(err, matchday.ErrNotFound) {
				writeError(w, http.StatusNotFound, "team "+id+" not found")
				return
			}
			if err != nil {
				writeFailure(w, logger, err)
				return
			}
			sports[i] = t.Sport
		}
		if sports[0] != sports[1] {
			writeError(w, http.StatusBadRequest, "both teams must play the same sport")
			return
		}

		m := matchday.Match{
			ID:            req.ID,
			LocalTeamID:   req.LocalTeamID,
			VisitorTeamID: req.VisitorTeamID,
			Sport:         sports[0],
			KickoffAt:     req.KickoffAt.UTC(),
			Status:        matchday.MatchScheduled,
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if err := dir.CreateMatch(r.Context(), m); err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}
