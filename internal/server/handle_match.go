package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/matchday/internal/matchday"
)

// FinalizeRequest optionally corrects the ledger score.
type FinalizeRequest struct {
	Override *matchday.Score `json:"override,omitempty"`
}

func handleMatchView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller(r).Snapshot())
	}
}

func handleStartMatch(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := controller(r)
		if err := c.StartMatch(r.Context()); err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func handleCancelMatch(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := controller(r)
		if err := c.Cancel(r.Context()); err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func handleFinalize(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FinalizeRequest
		// An empty body finalizes with the ledger score.
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := controller(r).Finalize(r.Context(), req.Override)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleResult(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := controller(r).Result()
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleListEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller(r).Events())
	}
}

func handlePlayerStatus(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := controller(r).PlayerStatus(chi.URLParam(r, "playerID"))
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
