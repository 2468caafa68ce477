package matchday

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Code is a machine-readable rejection kind.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Lineup composition
	CodeSlotOccupied         Code = "SLOT_OCCUPIED"
	CodeIncompatiblePosition Code = "INCOMPATIBLE_POSITION"
	CodeRosterFull           Code = "ROSTER_FULL"
	CodeIncompleteLineup     Code = "INCOMPLETE_LINEUP"
	CodeUnknownPlayer        Code = "UNKNOWN_PLAYER"
	CodeUnknownSlot          Code = "UNKNOWN_SLOT"
	CodeUnknownFormation     Code = "UNKNOWN_FORMATION"
	CodeInvalidFormation     Code = "INVALID_FORMATION"
	CodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"

	// Clock
	CodeInvalidClockTransition Code = "INVALID_CLOCK_TRANSITION"
	CodeUnsupportedSpeed       Code = "UNSUPPORTED_SPEED"

	// Ledger
	CodePlayerExpelled        Code = "PLAYER_EXPELLED"
	CodeDuplicateSubstitution Code = "DUPLICATE_SUBSTITUTION"
	CodeInvalidAssist         Code = "INVALID_ASSIST"
	CodeNotInLineup           Code = "NOT_IN_LINEUP"
	CodeInvalidEvent          Code = "INVALID_EVENT"

	// Match lifecycle
	CodeLineupsIncomplete      Code = "LINEUPS_INCOMPLETE"
	CodeMatchNotInPlay         Code = "MATCH_NOT_IN_PLAY"
	CodeLineupLocked           Code = "LINEUP_LOCKED"
	CodeInvalidMatchTransition Code = "INVALID_MATCH_TRANSITION"
)

// Error is an expected, caller-facing rejection. Metadata carries the values
// a UI needs to render a specific message (limits, slot index, player).
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Reject creates a rejection with a formatted message.
func Reject(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of e carrying an extra metadata entry.
func (e *Error) With(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	return &Error{Code: e.Code, Message: e.Message, Metadata: md}
}

// CodeOf extracts the rejection code from any error.
// Returns CodeUnknown if err is not a rejection.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if err is a rejection with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// MetadataOf returns the rejection metadata, or nil.
func MetadataOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
