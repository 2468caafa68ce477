package match

import (
	"context"
	"time"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/matchday"
)

// MatchRecord is the persisted state of a match beyond its lineups and
// events.
type MatchRecord struct {
	matchday.Match
	Score          matchday.Score  `json:"score"`
	PenaltyMinutes int             `json:"penaltyMinutes"`
	ScoreOverride  bool            `json:"scoreOverride"`
	Clock          *clock.Snapshot `json:"clock,omitempty"`
	FinalizedAt    *time.Time      `json:"finalizedAt,omitempty"`
}

type RosterStore interface {
	Players(ctx context.Context, teamID string) ([]matchday.Player, error)
}

// LineupStore returns matchday.ErrNotFound from LoadLineup when a team has
// not committed a lineup yet.
type LineupStore interface {
	SaveLineup(ctx context.Context, l matchday.Lineup) error
	LoadLineup(ctx context.Context, matchID, teamID string) (matchday.Lineup, error)
}

type EventStore interface {
	AppendEvents(ctx context.Context, matchID string, events ...matchday.MatchEvent) error
	EventsFor(ctx context.Context, matchID string) ([]matchday.MatchEvent, error)
}

type MatchStore interface {
	Match(ctx context.Context, matchID string) (MatchRecord, error)
	UpdateMatch(ctx context.Context, rec MatchRecord) error
}

// Result is what a finalized match reports to the outside world.
type Result struct {
	MatchID        string         `json:"matchId"`
	LocalTeamID    string         `json:"localTeamId"`
	VisitorTeamID  string         `json:"visitorTeamId"`
	Score          matchday.Score `json:"score"`
	Overridden     bool           `json:"overridden"`
	PenaltyMinutes int            `json:"penaltyMinutes"`
	FinalizedAt    time.Time      `json:"finalizedAt"`
}

// Notifier is told about finalized matches. Delivery is best effort.
type Notifier interface {
	MatchFinalized(ctx context.Context, res Result) error
}
