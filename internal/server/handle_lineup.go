package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/matchday/internal/lineup"
	"github.com/playperu/matchday/internal/matchday"
)

// AssignRequest places a player on a formation slot or on the bench.
type AssignRequest struct {
	PlayerID string `json:"playerId"`
	Slot     *int   `json:"slot,omitempty"`
	Bench    bool   `json:"bench,omitempty"`
}

type UnassignRequest struct {
	PlayerID string `json:"playerId"`
}

// FormationRequest switches the draft formation. Confirm must be set when
// starters are already placed, since they are cleared.
type FormationRequest struct {
	Code    string `json:"code"`
	Confirm bool   `json:"confirm"`
}

// CommitResponse is returned when a lineup is accepted.
type CommitResponse struct {
	Lineup         matchday.Lineup `json:"lineup"`
	PenaltyMinutes int             `json:"penaltyMinutes"`
}

// compose runs fn against the team's draft and writes the resulting view.
func compose(logger *slog.Logger, w http.ResponseWriter, r *http.Request, fn func(*lineup.Composer) error) {
	snap, err := controller(r).Compose(r.Context(), chi.URLParam(r, "teamID"), fn)
	if err != nil {
		writeFailure(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func handleGetDraft(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		compose(logger, w, r, func(*lineup.Composer) error { return nil })
	}
}

func handleAssign(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssignRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" || (req.Slot == nil && !req.Bench) {
			writeError(w, http.StatusBadRequest, "playerId and either slot or bench are required")
			return
		}
		target := lineup.ToBench()
		if !req.Bench {
			target = lineup.ToSlot(*req.Slot)
		}
		compose(logger, w, r, func(c *lineup.Composer) error {
			return c.Assign(req.PlayerID, target)
		})
	}
}

func handleUnassign(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UnassignRequest
		if err := readJSON(r, &req); err != nil || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerId is required")
			return
		}
		compose(logger, w, r, func(c *lineup.Composer) error {
			return c.Unassign(req.PlayerID)
		})
	}
}

func handleChangeFormation(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FormationRequest
		if err := readJSON(r, &req); err != nil || req.Code == "" {
			writeError(w, http.StatusBadRequest, "code is required")
			return
		}
		compose(logger, w, r, func(c *lineup.Composer) error {
			return c.ChangeFormation(req.Code, req.Confirm)
		})
	}
}

func handleCommitLineup(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, penalty, err := controller(r).CommitLineup(r.Context(), chi.URLParam(r, "teamID"))
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CommitResponse{Lineup: l, PenaltyMinutes: penalty})
	}
}

// handleSubmitLineup accepts a complete lineup built elsewhere.
func handleSubmitLineup(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var l matchday.Lineup
		if err := readJSON(r, &l); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c := controller(r)
		l.TeamID = chi.URLParam(r, "teamID")
		penalty, err := c.SubmitLineup(r.Context(), l)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		stored, err := c.Lineup(l.TeamID)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CommitResponse{Lineup: stored, PenaltyMinutes: penalty})
	}
}

func handleCommittedLineup(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := controller(r).Lineup(chi.URLParam(r, "teamID"))
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}
