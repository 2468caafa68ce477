// Package ledger is the append-only record of a match's events and the
// per-player status derived from it.
package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/matchday/internal/matchday"
)

// Side is one team's match sheet: who started and who may come on.
type Side struct {
	TeamID   string
	Starters []string
	Bench    []string
}

// SideOf builds a Side from a committed lineup.
func SideOf(l matchday.Lineup) Side {
	return Side{TeamID: l.TeamID, Starters: l.StarterIDs(), Bench: l.BenchIDs()}
}

type Option func(*Ledger)

func WithNow(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDs(next func() string) Option {
	return func(l *Ledger) { l.newID = next }
}

// Ledger is not safe for concurrent use; the match controller serializes
// access.
type Ledger struct {
	matchID string
	teams   []string
	sheet   []string
	teamOf  map[string]string
	players map[string]*playerState
	events  []matchday.MatchEvent
	now     func() time.Time
	newID   func() string
}

// New creates an empty ledger for a match. The first side is the local team.
func New(matchID string, sides []Side, opts ...Option) *Ledger {
	l := &Ledger{
		matchID: matchID,
		teamOf:  make(map[string]string),
		players: make(map[string]*playerState),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, s := range sides {
		l.teams = append(l.teams, s.TeamID)
		for _, id := range s.Starters {
			l.addPlayer(s.TeamID, id, true)
		}
		for _, id := range s.Bench {
			l.addPlayer(s.TeamID, id, false)
		}
	}
	return l
}

func (l *Ledger) addPlayer(teamID, playerID string, starter bool) {
	if _, ok := l.players[playerID]; ok {
		return
	}
	l.teamOf[playerID] = teamID
	l.sheet = append(l.sheet, playerID)
	l.players[playerID] = &playerState{status: matchday.PlayerMatchStatus{
		PlayerID: playerID,
		TeamID:   teamID,
		OnPitch:  starter,
	}}
}

// Replay rebuilds a ledger from persisted events without re-validating them.
// System-generated reds are expected to be among the stored events.
func Replay(matchID string, sides []Side, events []matchday.MatchEvent, opts ...Option) *Ledger {
	l := New(matchID, sides, opts...)
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b matchday.MatchEvent) int { return a.Seq - b.Seq })
	l.Append(sorted...)
	return l
}

// Plan validates e against the current state and returns the events that
// recording it would append. It does not modify the ledger.
func (l *Ledger) Plan(e matchday.MatchEvent) ([]matchday.MatchEvent, error) {
	if !e.Type.Valid() {
		return nil, matchday.Reject(matchday.CodeInvalidEvent, "unknown event type %q", e.Type).
			With("type", string(e.Type))
	}
	if e.Minute < 0 {
		return nil, matchday.Reject(matchday.CodeInvalidEvent, "minute must not be negative, got %d", e.Minute)
	}

	team, ok := l.teamOf[e.PlayerID]
	if !ok {
		return nil, matchday.Reject(matchday.CodeNotInLineup, "player %s is not on either match sheet", e.PlayerID).
			With("playerId", e.PlayerID)
	}
	if e.TeamID == "" {
		e.TeamID = team
	}
	if e.TeamID != team {
		return nil, matchday.Reject(matchday.CodeNotInLineup, "player %s is not on the sheet of team %s", e.PlayerID, e.TeamID).
			With("playerId", e.PlayerID).
			With("teamId", e.TeamID)
	}

	primary := l.players[e.PlayerID]
	if primary.status.Expelled {
		return nil, expelled(e.PlayerID)
	}

	out := []matchday.MatchEvent{e}
	switch e.Type {
	case matchday.EventGoal:
		if err := l.checkAssist(e); err != nil {
			return nil, err
		}
	case matchday.EventYellowCard:
		e.SecondaryID = ""
		out[0] = e
		if primary.status.Yellows+1 >= 2 {
			red := e
			red.Type = matchday.EventRedCard
			red.SystemGenerated = true
			out = append(out, red)
		}
	case matchday.EventRedCard:
		e.SecondaryID = ""
		out[0] = e
	case matchday.EventSubstitution:
		if err := l.checkSubstitution(e, primary); err != nil {
			return nil, err
		}
	}

	now := l.now().UTC()
	for i := range out {
		out[i].ID = l.newID()
		out[i].MatchID = l.matchID
		out[i].Seq = len(l.events) + i + 1
		out[i].RecordedAt = now
	}
	return out, nil
}

func expelled(playerID string) error {
	return matchday.Reject(matchday.CodePlayerExpelled, "player %s has been sent off", playerID).
		With("playerId", playerID)
}

func (l *Ledger) checkAssist(e matchday.MatchEvent) error {
	if e.SecondaryID == "" {
		return nil
	}
	if e.SecondaryID == e.PlayerID {
		return matchday.Reject(matchday.CodeInvalidAssist, "a player cannot assist their own goal").
			With("playerId", e.PlayerID)
	}
	team, ok := l.teamOf[e.SecondaryID]
	if !ok {
		return matchday.Reject(matchday.CodeNotInLineup, "assisting player %s is not on either match sheet", e.SecondaryID).
			With("playerId", e.SecondaryID)
	}
	if team != e.TeamID {
		return matchday.Reject(matchday.CodeInvalidAssist, "assist by %s must come from team %s", e.SecondaryID, e.TeamID).
			With("playerId", e.SecondaryID).
			With("teamId", team)
	}
	if l.players[e.SecondaryID].status.Expelled {
		return expelled(e.SecondaryID)
	}
	return nil
}

func (l *Ledger) checkSubstitution(e matchday.MatchEvent, out *playerState) error {
	if e.SecondaryID == "" {
		return matchday.Reject(matchday.CodeInvalidEvent, "substitution needs an incoming player")
	}
	if team, ok := l.teamOf[e.SecondaryID]; !ok || team != e.TeamID {
		return matchday.Reject(matchday.CodeNotInLineup, "incoming player %s is not on the sheet of team %s", e.SecondaryID, e.TeamID).
			With("playerId", e.SecondaryID)
	}
	in := l.players[e.SecondaryID]
	if in.status.Expelled {
		return expelled(e.SecondaryID)
	}
	dup := func(msg, playerID string) error {
		return matchday.Reject(matchday.CodeDuplicateSubstitution, msg, playerID).
			With("playerId", playerID)
	}
	switch {
	case out.subbedOff:
		return dup("player %s was already substituted", e.PlayerID)
	case !out.status.OnPitch:
		return dup("player %s is not on the pitch", e.PlayerID)
	case in.status.OnPitch:
		return dup("player %s is already on the pitch", e.SecondaryID)
	case in.cameOn:
		return dup("player %s has already been used", e.SecondaryID)
	case in.subbedOff:
		return dup("player %s was already substituted and cannot return", e.SecondaryID)
	}
	return nil
}

// Append adds planned events and folds them into player state.
func (l *Ledger) Append(events ...matchday.MatchEvent) {
	for _, e := range events {
		fold(l.players, e)
		l.events = append(l.events, e)
	}
}

// Record validates and appends e in one step.
func (l *Ledger) Record(e matchday.MatchEvent) ([]matchday.MatchEvent, error) {
	planned, err := l.Plan(e)
	if err != nil {
		return nil, err
	}
	l.Append(planned...)
	return planned, nil
}

func (l *Ledger) StatusOf(playerID string) (matchday.PlayerMatchStatus, bool) {
	p, ok := l.players[playerID]
	if !ok {
		return matchday.PlayerMatchStatus{}, false
	}
	return copyStatus(p.status), true
}

// Statuses lists every player on either sheet, local team first.
func (l *Ledger) Statuses() []matchday.PlayerMatchStatus {
	out := make([]matchday.PlayerMatchStatus, 0, len(l.sheet))
	for _, id := range l.sheet {
		out = append(out, copyStatus(l.players[id].status))
	}
	return out
}

func copyStatus(s matchday.PlayerMatchStatus) matchday.PlayerMatchStatus {
	if s.EnteredAt != nil {
		s.EnteredAt = intp(*s.EnteredAt)
	}
	if s.LeftAt != nil {
		s.LeftAt = intp(*s.LeftAt)
	}
	return s
}

func (l *Ledger) Events() []matchday.MatchEvent {
	return slices.Clone(l.events)
}

func (l *Ledger) Len() int { return len(l.events) }

// Score tallies goals per side. The first side passed to New is local.
func (l *Ledger) Score() matchday.Score {
	var s matchday.Score
	for _, e := range l.events {
		if e.Type != matchday.EventGoal {
			continue
		}
		switch {
		case len(l.teams) > 0 && e.TeamID == l.teams[0]:
			s.Local++
		case len(l.teams) > 1 && e.TeamID == l.teams[1]:
			s.Visitor++
		}
	}
	return s
}

// TeamOf returns the team whose sheet lists playerID.
func (l *Ledger) TeamOf(playerID string) (string, bool) {
	t, ok := l.teamOf[playerID]
	return t, ok
}
