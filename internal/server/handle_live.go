package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

type GoalRequest struct {
	TeamID   string `json:"teamId"`
	PlayerID string `json:"playerId"`
	AssistID string `json:"assistId,omitempty"`
}

type CardRequest struct {
	TeamID   string             `json:"teamId"`
	PlayerID string             `json:"playerId"`
	Card     matchday.EventType `json:"card"`
}

type SubstitutionRequest struct {
	TeamID string `json:"teamId"`
	OutID  string `json:"outId"`
	InID   string `json:"inId"`
}

type StoppageRequest struct {
	Minutes int `json:"minutes"`
}

type SpeedRequest struct {
	Speed int `json:"speed"`
}

func handleGoal(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GoalRequest
		if err := readJSON(r, &req); err != nil || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerId is required")
			return
		}
		rec, err := controller(r).RegisterGoal(r.Context(), req.TeamID, req.PlayerID, req.AssistID)
		writeRecorded(w, logger, rec, err)
	}
}

func handleCard(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CardRequest
		if err := readJSON(r, &req); err != nil || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "playerId and card are required")
			return
		}
		rec, err := controller(r).RegisterCard(r.Context(), req.TeamID, req.PlayerID, req.Card)
		writeRecorded(w, logger, rec, err)
	}
}

func handleSubstitution(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubstitutionRequest
		if err := readJSON(r, &req); err != nil || req.OutID == "" {
			writeError(w, http.StatusBadRequest, "outId is required")
			return
		}
		rec, err := controller(r).RegisterSubstitution(r.Context(), req.TeamID, req.OutID, req.InID)
		writeRecorded(w, logger, rec, err)
	}
}

func writeRecorded(w http.ResponseWriter, logger *slog.Logger, rec match.Recorded, err error) {
	if err != nil {
		writeFailure(w, logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func writeClock(w http.ResponseWriter, logger *slog.Logger, snap clock.Snapshot, err error) {
	if err != nil {
		writeFailure(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func handleClockPause(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := controller(r).PauseClock(r.Context())
		writeClock(w, logger, snap, err)
	}
}

func handleClockResume(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := controller(r).ResumeClock(r.Context())
		writeClock(w, logger, snap, err)
	}
}

func handleClockSecondHalf(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := controller(r).StartSecondHalf(r.Context())
		writeClock(w, logger, snap, err)
	}
}

func handleClockStoppage(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StoppageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		snap, err := controller(r).AddStoppageTime(r.Context(), req.Minutes)
		writeClock(w, logger, snap, err)
	}
}

func handleClockSpeed(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SpeedRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		snap, err := controller(r).SetClockSpeed(r.Context(), req.Speed)
		writeClock(w, logger, snap, err)
	}
}
