package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/matchday/internal/matchday"
)

// ErrorResponse is returned for all error responses. Code and Metadata are
// set for domain rejections.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps a rejection code to its HTTP status. Broken rules are 422,
// operations the current state forbids are 409.
func statusFor(code matchday.Code) int {
	switch code {
	case matchday.CodeSlotOccupied,
		matchday.CodeIncompatiblePosition,
		matchday.CodeRosterFull,
		matchday.CodeIncompleteLineup,
		matchday.CodeUnknownPlayer,
		matchday.CodeUnknownSlot,
		matchday.CodeUnknownFormation,
		matchday.CodeInvalidFormation,
		matchday.CodeUnsupportedSpeed,
		matchday.CodePlayerExpelled,
		matchday.CodeDuplicateSubstitution,
		matchday.CodeInvalidAssist,
		matchday.CodeNotInLineup,
		matchday.CodeInvalidEvent:
		return http.StatusUnprocessableEntity
	case matchday.CodeConfirmationRequired,
		matchday.CodeInvalidClockTransition,
		matchday.CodeLineupsIncomplete,
		matchday.CodeMatchNotInPlay,
		matchday.CodeLineupLocked,
		matchday.CodeInvalidMatchTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeFailure renders err: rejections with their code and metadata,
// storage misses as 404, anything else as a logged 500.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rej *matchday.Error
	switch {
	case errors.As(err, &rej):
		writeJSON(w, statusFor(rej.Code), ErrorResponse{
			Error:    rej.Message,
			Code:     string(rej.Code),
			Metadata: rej.Metadata,
		})
	case errors.Is(err, matchday.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
