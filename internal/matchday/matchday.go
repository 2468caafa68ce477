// Package matchday defines the core domain types shared by the lineup and
// live-match packages. It has zero external dependencies.
package matchday

import (
	"slices"
	"time"
)

type SportType string

const (
	SportEleven SportType = "eleven"
	SportIndoor SportType = "indoor"
)

// Valid reports whether s is a known sport type.
func (s SportType) Valid() bool {
	return s == SportEleven || s == SportIndoor
}

// Starters is the exact number of starters a committed lineup must have.
func (s SportType) Starters() int {
	if s == SportIndoor {
		return 6
	}
	return 11
}

// MaxSubstitutes is the bench capacity.
func (s SportType) MaxSubstitutes() int {
	if s == SportIndoor {
		return 6
	}
	return 7
}

// HalfDuration is the regulation length of one half.
func (s SportType) HalfDuration() time.Duration {
	if s == SportIndoor {
		return 20 * time.Minute
	}
	return 45 * time.Minute
}

func (s SportType) DefaultFormation() string {
	if s == SportIndoor {
		return "1-2-2"
	}
	return "4-4-2"
}

type Player struct {
	ID          string `json:"id"`
	TeamID      string `json:"teamId"`
	Name        string `json:"name"`
	SquadNumber int    `json:"squadNumber"`
	Position    string `json:"position"`
	Active      bool   `json:"active"`
}

type Team struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Sport SportType `json:"sport"`
}

// Slot is one pitch position of a formation. X and Y are on a 0..100 grid.
type Slot struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Position string  `json:"position"`
}

type FormationTemplate struct {
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Sport  SportType `json:"sport"`
	Slots  []Slot    `json:"slots"`
	Custom bool      `json:"custom"`
}

type StarterAssignment struct {
	PlayerID string  `json:"playerId"`
	Slot     int     `json:"slot"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type BenchAssignment struct {
	PlayerID string `json:"playerId"`
}

// SubstitutedAssignment marks a starter taken off during play. Slot is the
// index the player vacated; the player no longer holds a position.
type SubstitutedAssignment struct {
	PlayerID string `json:"playerId"`
	Slot     int    `json:"slot"`
	Minute   int    `json:"minute"`
}

// Lineup is the committed sheet of one team for one match.
type Lineup struct {
	MatchID     string                  `json:"matchId"`
	TeamID      string                  `json:"teamId"`
	Formation   string                  `json:"formation"`
	Sport       SportType               `json:"sport"`
	Starters    []StarterAssignment     `json:"starters"`
	Bench       []BenchAssignment       `json:"bench"`
	Substituted []SubstitutedAssignment `json:"substituted,omitempty"`
	SubmittedAt time.Time               `json:"submittedAt"`
}

// Clone returns a deep copy so callers never alias a controller's lineup.
func (l Lineup) Clone() Lineup {
	l.Starters = slices.Clone(l.Starters)
	l.Bench = slices.Clone(l.Bench)
	l.Substituted = slices.Clone(l.Substituted)
	return l
}

// StarterIDs returns the players currently holding a slot, in slot order of
// assignment.
func (l Lineup) StarterIDs() []string {
	ids := make([]string, 0, len(l.Starters))
	for _, s := range l.Starters {
		ids = append(ids, s.PlayerID)
	}
	return ids
}

func (l Lineup) BenchIDs() []string {
	ids := make([]string, 0, len(l.Bench))
	for _, b := range l.Bench {
		ids = append(ids, b.PlayerID)
	}
	return ids
}

type EventType string

const (
	EventGoal         EventType = "goal"
	EventYellowCard   EventType = "yellow_card"
	EventRedCard      EventType = "red_card"
	EventSubstitution EventType = "substitution"
)

func (t EventType) Valid() bool {
	switch t {
	case EventGoal, EventYellowCard, EventRedCard, EventSubstitution:
		return true
	}
	return false
}

// MatchEvent is one ledger entry. SecondaryID is the assisting player for a
// goal and the incoming player for a substitution.
type MatchEvent struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"matchId"`
	Seq             int       `json:"seq"`
	Type            EventType `json:"type"`
	Minute          int       `json:"minute"`
	TeamID          string    `json:"teamId"`
	PlayerID        string    `json:"playerId"`
	SecondaryID     string    `json:"secondaryId,omitempty"`
	SystemGenerated bool      `json:"systemGenerated,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// PlayerMatchStatus is derived from the ledger and never stored.
type PlayerMatchStatus struct {
	PlayerID  string `json:"playerId"`
	TeamID    string `json:"teamId"`
	Goals     int    `json:"goals"`
	Assists   int    `json:"assists"`
	Yellows   int    `json:"yellows"`
	Reds      int    `json:"reds"`
	Expelled  bool   `json:"expelled"`
	OnPitch   bool   `json:"onPitch"`
	EnteredAt *int   `json:"enteredAt,omitempty"`
	LeftAt    *int   `json:"leftAt,omitempty"`
}

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchInPlay    MatchStatus = "in_play"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

type Match struct {
	ID            string      `json:"id"`
	LocalTeamID   string      `json:"localTeamId"`
	VisitorTeamID string      `json:"visitorTeamId"`
	Sport         SportType   `json:"sport"`
	KickoffAt     time.Time   `json:"kickoffAt"`
	Status        MatchStatus `json:"status"`
}

// HasTeam reports whether teamID plays in m.
func (m Match) HasTeam(teamID string) bool {
	return teamID != "" && (teamID == m.LocalTeamID || teamID == m.VisitorTeamID)
}

type Score struct {
	Local   int `json:"local"`
	Visitor int `json:"visitor"`
}
