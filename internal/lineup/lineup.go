// Package lineup composes and validates the starting sheet of one team for
// one match.
package lineup

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/matchday"
)

const (
	// MinSeparation is the minimum distance between two starters on the
	// 0..100 pitch grid (8% of the pitch).
	MinSeparation = 8.0

	// SubmissionLead is how long before kickoff a lineup is due.
	SubmissionLead = 10 * time.Minute
)

// Target is where Assign places a player: a slot index or the bench.
type Target struct {
	Slot  int
	Bench bool
}

func ToSlot(i int) Target { return Target{Slot: i} }

func ToBench() Target { return Target{Bench: true} }

// Params identifies the match and team a composer works for.
type Params struct {
	MatchID string
	TeamID  string
	Sport   matchday.SportType
	Kickoff time.Time
}

type Option func(*Composer)

// WithNow replaces the wall clock used for SubmittedAt and TimeRemaining.
func WithNow(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// Composer holds an in-progress lineup. It performs no I/O and is not safe for
// concurrent use; the owner serializes calls.
type Composer struct {
	catalog   *formation.Catalog
	params    Params
	now       func() time.Time
	roster    map[string]matchday.Player
	order     []string
	formation matchday.FormationTemplate
	starters  map[string]int
	bench     []string
}

// New starts an empty composition on the sport's default formation. Only
// active players from roster can be assigned.
func New(catalog *formation.Catalog, p Params, roster []matchday.Player, opts ...Option) (*Composer, error) {
	if !p.Sport.Valid() {
		return nil, fmt.Errorf("unknown sport type %q", p.Sport)
	}
	tpl, ok := catalog.Lookup(p.Sport.DefaultFormation())
	if !ok {
		return nil, fmt.Errorf("default formation %q missing from catalog", p.Sport.DefaultFormation())
	}
	c := &Composer{
		catalog:   catalog,
		params:    p,
		now:       time.Now,
		roster:    make(map[string]matchday.Player, len(roster)),
		formation: tpl,
		starters:  make(map[string]int),
	}
	for _, pl := range roster {
		if !pl.Active {
			continue
		}
		if _, dup := c.roster[pl.ID]; dup {
			continue
		}
		c.roster[pl.ID] = pl
		c.order = append(c.order, pl.ID)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Composer) Formation() matchday.FormationTemplate {
	t := c.formation
	t.Slots = slices.Clone(t.Slots)
	return t
}

// Assign places playerID at target. A player already placed elsewhere is
// moved. On rejection nothing changes.
func (c *Composer) Assign(playerID string, target Target) error {
	pl, ok := c.roster[playerID]
	if !ok {
		return matchday.Reject(matchday.CodeUnknownPlayer, "player %s is not an active member of the roster", playerID).
			With("playerId", playerID)
	}

	if target.Bench {
		return c.assignBench(playerID)
	}

	if target.Slot < 0 || target.Slot >= len(c.formation.Slots) {
		return matchday.Reject(matchday.CodeUnknownSlot, "formation %s has no slot %d", c.formation.Code, target.Slot).
			With("slot", strconv.Itoa(target.Slot))
	}

	current, isStarter := c.starters[playerID]
	if isStarter && current == target.Slot {
		return nil
	}

	required := c.params.Sport.Starters()
	if !isStarter && len(c.starters) >= required {
		return matchday.Reject(matchday.CodeRosterFull, "exceeds roster size of %d", required).
			With("limit", strconv.Itoa(required))
	}

	slot := c.formation.Slots[target.Slot]
	if !formation.Compatible(slot.Position, pl.Position) {
		return matchday.Reject(matchday.CodeIncompatiblePosition,
			"position mismatch: %s (%s) cannot play as %s", pl.Name, pl.Position, slot.Position).
			With("slot", strconv.Itoa(target.Slot)).
			With("playerPosition", pl.Position).
			With("slotPosition", slot.Position)
	}

	for other, idx := range c.starters {
		if other == playerID {
			continue
		}
		if idx == target.Slot {
			return matchday.Reject(matchday.CodeSlotOccupied, "slot %d is already occupied", target.Slot).
				With("slot", strconv.Itoa(target.Slot)).
				With("occupant", other)
		}
		if tooClose(slot, c.formation.Slots[idx]) {
			return matchday.Reject(matchday.CodeSlotOccupied,
				"slot %d is within %.0f%% of slot %d", target.Slot, MinSeparation, idx).
				With("slot", strconv.Itoa(target.Slot)).
				With("occupant", other)
		}
	}

	c.removeFromBench(playerID)
	c.starters[playerID] = target.Slot
	return nil
}

func (c *Composer) assignBench(playerID string) error {
	if slices.Contains(c.bench, playerID) {
		return nil
	}
	limit := c.params.Sport.MaxSubstitutes()
	if len(c.bench) >= limit {
		return matchday.Reject(matchday.CodeRosterFull, "exceeds bench size of %d", limit).
			With("limit", strconv.Itoa(limit))
	}
	delete(c.starters, playerID)
	c.bench = append(c.bench, playerID)
	return nil
}

func tooClose(a, b matchday.Slot) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) < MinSeparation
}

// Unassign returns a player to the unassigned pool.
func (c *Composer) Unassign(playerID string) error {
	if _, ok := c.roster[playerID]; !ok {
		return matchday.Reject(matchday.CodeUnknownPlayer, "player %s is not an active member of the roster", playerID).
			With("playerId", playerID)
	}
	delete(c.starters, playerID)
	c.removeFromBench(playerID)
	return nil
}

func (c *Composer) removeFromBench(playerID string) {
	c.bench = slices.DeleteFunc(c.bench, func(id string) bool { return id == playerID })
}

// ChangeFormation switches template. With starters placed the caller must
// confirm, and every starter goes back to the pool; the bench is kept.
func (c *Composer) ChangeFormation(code string, confirm bool) error {
	tpl, ok := c.catalog.Lookup(code)
	if !ok || tpl.Sport != c.params.Sport {
		return matchday.Reject(matchday.CodeUnknownFormation, "formation %q is not available for %s", code, c.params.Sport).
			With("formation", code)
	}
	if tpl.Code == c.formation.Code {
		return nil
	}
	if len(c.starters) > 0 && !confirm {
		return matchday.Reject(matchday.CodeConfirmationRequired,
			"changing formation clears %d placed starters", len(c.starters)).
			With("starters", strconv.Itoa(len(c.starters)))
	}
	clear(c.starters)
	c.formation = tpl
	return nil
}

// Commit returns the lineup once exactly the required number of starters is
// placed.
func (c *Composer) Commit() (matchday.Lineup, error) {
	required := c.params.Sport.Starters()
	if n := len(c.starters); n != required {
		return matchday.Lineup{}, matchday.Reject(matchday.CodeIncompleteLineup,
			"lineup needs %d starters, %d missing", required, required-n).
			With("required", strconv.Itoa(required)).
			With("missing", strconv.Itoa(required-n))
	}
	l := c.lineup()
	l.SubmittedAt = c.now().UTC()
	return l, nil
}

func (c *Composer) lineup() matchday.Lineup {
	l := matchday.Lineup{
		MatchID:   c.params.MatchID,
		TeamID:    c.params.TeamID,
		Formation: c.formation.Code,
		Sport:     c.params.Sport,
		Starters:  make([]matchday.StarterAssignment, 0, len(c.starters)),
		Bench:     make([]matchday.BenchAssignment, 0, len(c.bench)),
	}
	for id, idx := range c.starters {
		s := c.formation.Slots[idx]
		l.Starters = append(l.Starters, matchday.StarterAssignment{PlayerID: id, Slot: idx, X: s.X, Y: s.Y})
	}
	slices.SortFunc(l.Starters, func(a, b matchday.StarterAssignment) int { return a.Slot - b.Slot })
	for _, id := range c.bench {
		l.Bench = append(l.Bench, matchday.BenchAssignment{PlayerID: id})
	}
	return l
}

// Restore reloads a previously saved lineup into the composer. Entries whose
// player left the active roster, or that no longer fit, go back to the pool.
func (c *Composer) Restore(l matchday.Lineup) error {
	if l.Formation != "" && l.Formation != c.formation.Code {
		if err := c.ChangeFormation(l.Formation, true); err != nil {
			return err
		}
	}
	clear(c.starters)
	c.bench = nil
	for _, s := range l.Starters {
		_ = c.Assign(s.PlayerID, ToSlot(s.Slot))
	}
	for _, b := range l.Bench {
		_ = c.Assign(b.PlayerID, ToBench())
	}
	return nil
}

// TimeRemaining is the time left before the submission deadline; negative
// once the deadline has passed.
func (c *Composer) TimeRemaining() time.Duration {
	return c.params.Kickoff.Add(-SubmissionLead).Sub(c.now())
}

// Snapshot is a read-only view of the composition.
type Snapshot struct {
	MatchID    string                       `json:"matchId"`
	TeamID     string                       `json:"teamId"`
	Formation  matchday.FormationTemplate   `json:"formation"`
	Starters   []matchday.StarterAssignment `json:"starters"`
	Bench      []matchday.BenchAssignment   `json:"bench"`
	Unassigned []matchday.Player            `json:"unassigned"`
	Required   int                          `json:"required"`
	MaxBench   int                          `json:"maxBench"`
	Remaining  time.Duration                `json:"remainingNanos"`
}

func (c *Composer) Snapshot() Snapshot {
	l := c.lineup()
	snap := Snapshot{
		MatchID:    c.params.MatchID,
		TeamID:     c.params.TeamID,
		Formation:  c.Formation(),
		Starters:   l.Starters,
		Bench:      l.Bench,
		Unassigned: []matchday.Player{},
		Required:   c.params.Sport.Starters(),
		MaxBench:   c.params.Sport.MaxSubstitutes(),
		Remaining:  c.TimeRemaining(),
	}
	for _, id := range c.order {
		if _, ok := c.starters[id]; ok {
			continue
		}
		if slices.Contains(c.bench, id) {
			continue
		}
		snap.Unassigned = append(snap.Unassigned, c.roster[id])
	}
	return snap
}
