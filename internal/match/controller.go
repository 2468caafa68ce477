// Package match drives a single match from lineup submission to the final
// whistle. A Controller is the only writer of its match's state.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/ledger"
	"github.com/playperu/matchday/internal/lineup"
	"github.com/playperu/matchday/internal/matchday"
)

const notifyTimeout = 10 * time.Second

// Deps are the collaborators a controller needs. Notifier and Logger are
// optional.
type Deps struct {
	Catalog  *formation.Catalog
	Rosters  RosterStore
	Lineups  LineupStore
	Events   EventStore
	Matches  MatchStore
	Notifier Notifier
	Logger   *slog.Logger
}

type UpdateKind string

const (
	UpdateClock  UpdateKind = "clock"
	UpdateEvent  UpdateKind = "event"
	UpdateStatus UpdateKind = "status"
	UpdateLineup UpdateKind = "lineup"
)

// Update is pushed to the OnUpdate callback whenever something a live view
// shows has changed.
type Update struct {
	Kind    UpdateKind            `json:"kind"`
	MatchID string                `json:"matchId"`
	Status  matchday.MatchStatus  `json:"status,omitempty"`
	TeamID  string                `json:"teamId,omitempty"`
	Score   *matchday.Score       `json:"score,omitempty"`
	Clock   *clock.Snapshot       `json:"clock,omitempty"`
	Events  []matchday.MatchEvent `json:"events,omitempty"`
}

type Option func(*Controller)

// WithClockOptions is applied to every clock the controller creates.
func WithClockOptions(opts ...clock.Option) Option {
	return func(c *Controller) { c.clockOpts = append(c.clockOpts, opts...) }
}

// WithOnUpdate registers a callback for live updates. It may run on the
// clock goroutine and must not call back into the controller.
func WithOnUpdate(fn func(Update)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

type Controller struct {
	mu        sync.Mutex
	id        string
	deps      Deps
	log       *slog.Logger
	rec       MatchRecord
	lineups   map[string]matchday.Lineup
	drafts    map[string]*lineup.Composer
	ledger    *ledger.Ledger
	clock     *clock.Clock
	clockOpts []clock.Option
	lastPhase atomic.Value
	onUpdate  func(Update)
	now       func() time.Time
}

func newController(rec MatchRecord, deps Deps, opts ...Option) *Controller {
	c := &Controller{
		id:      rec.ID,
		deps:    deps,
		rec:     rec,
		lineups: make(map[string]matchday.Lineup, 2),
		drafts:  make(map[string]*lineup.Composer, 2),
		now:     time.Now,
	}
	c.log = deps.Logger
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("match_id", rec.ID)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) emit(u Update) {
	if c.onUpdate == nil {
		return
	}
	u.MatchID = c.id
	c.onUpdate(u)
}

func (c *Controller) requireInPlay() error {
	if c.rec.Status != matchday.MatchInPlay {
		return matchday.Reject(matchday.CodeMatchNotInPlay, "match is %s, not in play", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	return nil
}

func (c *Controller) requireTeam(teamID string) error {
	if !c.rec.HasTeam(teamID) {
		return matchday.Reject(matchday.CodeNotInLineup, "team %s does not play this match", teamID).
			With("teamId", teamID)
	}
	return nil
}

// SubmitLineup validates and stores a committed lineup and returns the
// kickoff delay it causes, in minutes.
// The submission time is always taken from the controller's clock; a
// caller-supplied SubmittedAt is ignored.
func (c *Controller) SubmitLineup(ctx context.Context, l matchday.Lineup) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.SubmittedAt = c.now().UTC()
	return c.submitLocked(ctx, l)
}

func (c *Controller) submitLocked(ctx context.Context, l matchday.Lineup) (int, error) {
	if c.rec.Status != matchday.MatchScheduled {
		return 0, matchday.Reject(matchday.CodeLineupLocked, "lineups are locked once the match is %s", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	if err := c.requireTeam(l.TeamID); err != nil {
		return 0, err
	}
	l = l.Clone()
	l.MatchID = c.rec.ID
	if l.Sport == "" {
		l.Sport = c.rec.Sport
	}
	if l.Sport != c.rec.Sport {
		return 0, matchday.Reject(matchday.CodeUnknownFormation, "match is %s, lineup is %s", c.rec.Sport, l.Sport)
	}
	l.Substituted = nil
	if err := lineup.Validate(c.deps.Catalog, l); err != nil {
		return 0, err
	}
	roster, err := c.deps.Rosters.Players(ctx, l.TeamID)
	if err != nil {
		return 0, fmt.Errorf("loading roster of %s: %w", l.TeamID, err)
	}
	if err := lineup.ValidatePositions(c.deps.Catalog, l, roster); err != nil {
		return 0, err
	}
	slots, _ := c.deps.Catalog.SlotsFor(l.Formation)
	for i, s := range l.Starters {
		l.Starters[i].X, l.Starters[i].Y = slots[s.Slot].X, slots[s.Slot].Y
	}
	penalty := lineup.Penalty(c.rec.KickoffAt, l.SubmittedAt)
	if err := c.deps.Lineups.SaveLineup(ctx, l); err != nil {
		return 0, fmt.Errorf("saving lineup: %w", err)
	}
	if penalty > c.rec.PenaltyMinutes {
		next := c.rec
		next.PenaltyMinutes = penalty
		if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
			return 0, fmt.Errorf("recording kickoff penalty: %w", err)
		}
		c.rec = next
	}
	c.lineups[l.TeamID] = l
	c.log.Info("lineup submitted", "team_id", l.TeamID, "formation", l.Formation, "penalty_minutes", penalty)
	c.emit(Update{Kind: UpdateLineup, TeamID: l.TeamID, Status: c.rec.Status})
	return penalty, nil
}

// StartMatch kicks off once both teams have committed a lineup.
func (c *Controller) StartMatch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec.Status != matchday.MatchScheduled {
		return matchday.Reject(matchday.CodeInvalidMatchTransition, "cannot start a match that is %s", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	for _, team := range []string{c.rec.LocalTeamID, c.rec.VisitorTeamID} {
		if _, ok := c.lineups[team]; !ok {
			return matchday.Reject(matchday.CodeLineupsIncomplete, "team %s has not committed a lineup", team).
				With("teamId", team)
		}
	}

	led := ledger.New(c.rec.ID, []ledger.Side{
		ledger.SideOf(c.lineups[c.rec.LocalTeamID]),
		ledger.SideOf(c.lineups[c.rec.VisitorTeamID]),
	})
	clk := c.newClock()
	if err := clk.Start(); err != nil {
		return err
	}
	snap := clk.Snapshot()

	next := c.rec
	next.Status = matchday.MatchInPlay
	next.Clock = &snap
	if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
		clk.Stop()
		return fmt.Errorf("starting match: %w", err)
	}
	c.rec = next
	c.ledger = led
	c.clock = clk
	clear(c.drafts)
	c.log.Info("match started", "penalty_minutes", c.rec.PenaltyMinutes)
	c.emit(Update{Kind: UpdateStatus, Status: c.rec.Status, Clock: &snap})
	return nil
}

func (c *Controller) newClock() *clock.Clock {
	opts := append([]clock.Option{}, c.clockOpts...)
	opts = append(opts, clock.WithOnChange(c.clockChanged))
	return clock.New(c.rec.Sport.HalfDuration(), opts...)
}

// clockChanged runs on whichever goroutine moved the clock, possibly while
// c.mu is held. It must not take c.mu itself.
func (c *Controller) clockChanged(s clock.Snapshot) {
	c.emit(Update{Kind: UpdateClock, Clock: &s})
	prev, _ := c.lastPhase.Swap(s.Phase).(clock.Phase)
	if prev != s.Phase && (s.Phase == clock.HalfTime || s.Phase == clock.Finished) {
		go c.persistClock()
	}
}

func (c *Controller) persistClock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock == nil || c.rec.Status != matchday.MatchInPlay {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	c.saveClockLocked(ctx)
}

// saveClockLocked stores the current clock snapshot. Failures are logged:
// the in-memory clock stays authoritative until the next save.
func (c *Controller) saveClockLocked(ctx context.Context) {
	snap := c.clock.Snapshot()
	next := c.rec
	next.Clock = &snap
	if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
		c.log.Warn("saving clock", "error", err)
		return
	}
	c.rec = next
}

// Cancel calls off a match that has not started.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec.Status != matchday.MatchScheduled {
		return matchday.Reject(matchday.CodeInvalidMatchTransition, "cannot cancel a match that is %s", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	next := c.rec
	next.Status = matchday.MatchCancelled
	if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
		return fmt.Errorf("cancelling match: %w", err)
	}
	c.rec = next
	clear(c.drafts)
	c.log.Info("match cancelled")
	c.emit(Update{Kind: UpdateStatus, Status: c.rec.Status})
	return nil
}

// Recorded is the outcome of a registered event.
type Recorded struct {
	Events []matchday.MatchEvent `json:"events"`
	Score  matchday.Score        `json:"score"`
	Minute int                   `json:"minute"`
}

func (c *Controller) RegisterGoal(ctx context.Context, teamID, scorerID, assistID string) (Recorded, error) {
	return c.record(ctx, matchday.MatchEvent{
		Type:        matchday.EventGoal,
		TeamID:      teamID,
		PlayerID:    scorerID,
		SecondaryID: assistID,
	})
}

// RegisterCard records a yellow or red card.
func (c *Controller) RegisterCard(ctx context.Context, teamID, playerID string, card matchday.EventType) (Recorded, error) {
	if card != matchday.EventYellowCard && card != matchday.EventRedCard {
		return Recorded{}, matchday.Reject(matchday.CodeInvalidEvent, "%q is not a card", card).
			With("type", string(card))
	}
	return c.record(ctx, matchday.MatchEvent{Type: card, TeamID: teamID, PlayerID: playerID})
}

func (c *Controller) RegisterSubstitution(ctx context.Context, teamID, outID, inID string) (Recorded, error) {
	return c.record(ctx, matchday.MatchEvent{
		Type:        matchday.EventSubstitution,
		TeamID:      teamID,
		PlayerID:    outID,
		SecondaryID: inID,
	})
}

func (c *Controller) record(ctx context.Context, e matchday.MatchEvent) (Recorded, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInPlay(); err != nil {
		return Recorded{}, err
	}
	if e.TeamID != "" {
		if err := c.requireTeam(e.TeamID); err != nil {
			return Recorded{}, err
		}
	}
	e.Minute = c.clock.CurrentMinute()
	planned, err := c.ledger.Plan(e)
	if err != nil {
		return Recorded{}, err
	}
	if err := c.deps.Events.AppendEvents(ctx, c.rec.ID, planned...); err != nil {
		return Recorded{}, fmt.Errorf("appending events: %w", err)
	}
	c.ledger.Append(planned...)

	team := planned[0].TeamID
	if e.Type == matchday.EventSubstitution {
		l := c.lineups[team].Clone()
		if applySubstitution(&l, e.PlayerID, e.SecondaryID, e.Minute) {
			c.lineups[team] = l
		}
	}

	score := c.ledger.Score()
	next := c.rec
	next.Score = score
	snap := c.clock.Snapshot()
	next.Clock = &snap
	if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
		c.log.Warn("saving live score", "error", err)
	} else {
		c.rec = next
	}
	c.rec.Score = score

	for _, ev := range planned {
		c.log.Info("match event", "type", ev.Type, "minute", ev.Minute, "player_id", ev.PlayerID,
			"team_id", ev.TeamID, "system_generated", ev.SystemGenerated)
	}
	c.emit(Update{Kind: UpdateEvent, TeamID: team, Score: &score, Events: planned})
	return Recorded{Events: planned, Score: score, Minute: e.Minute}, nil
}

// applySubstitution moves the outgoing starter to the substituted list and
// puts the incoming player in the vacated slot. The stored lineup keeps the
// sheet as committed; these moves are rebuilt from the ledger on load.
func applySubstitution(l *matchday.Lineup, outID, inID string, minute int) bool {
	idx := -1
	for i, s := range l.Starters {
		if s.PlayerID == outID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	vacated := l.Starters[idx]
	l.Starters[idx] = matchday.StarterAssignment{PlayerID: inID, Slot: vacated.Slot, X: vacated.X, Y: vacated.Y}
	l.Substituted = append(l.Substituted, matchday.SubstitutedAssignment{PlayerID: outID, Slot: vacated.Slot, Minute: minute})
	for i, b := range l.Bench {
		if b.PlayerID == inID {
			l.Bench = append(l.Bench[:i], l.Bench[i+1:]...)
			break
		}
	}
	return true
}

func (c *Controller) clockOp(ctx context.Context, op func(*clock.Clock) error) (clock.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireInPlay(); err != nil {
		return clock.Snapshot{}, err
	}
	if err := op(c.clock); err != nil {
		return clock.Snapshot{}, err
	}
	c.saveClockLocked(ctx)
	return c.clock.Snapshot(), nil
}

func (c *Controller) PauseClock(ctx context.Context) (clock.Snapshot, error) {
	return c.clockOp(ctx, (*clock.Clock).Pause)
}

func (c *Controller) ResumeClock(ctx context.Context) (clock.Snapshot, error) {
	return c.clockOp(ctx, (*clock.Clock).Resume)
}

func (c *Controller) StartSecondHalf(ctx context.Context) (clock.Snapshot, error) {
	return c.clockOp(ctx, (*clock.Clock).StartSecondHalf)
}

func (c *Controller) AddStoppageTime(ctx context.Context, minutes int) (clock.Snapshot, error) {
	return c.clockOp(ctx, func(clk *clock.Clock) error { return clk.AddStoppageTime(minutes) })
}

func (c *Controller) SetClockSpeed(ctx context.Context, mult int) (clock.Snapshot, error) {
	return c.clockOp(ctx, func(clk *clock.Clock) error { return clk.SetSpeed(mult) })
}

// Finalize stops the clock and freezes the score, either the ledger tally
// or override when the organizer corrects the result.
func (c *Controller) Finalize(ctx context.Context, override *matchday.Score) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireInPlay(); err != nil {
		return Result{}, err
	}
	score := c.ledger.Score()
	if override != nil {
		if override.Local < 0 || override.Visitor < 0 {
			return Result{}, matchday.Reject(matchday.CodeInvalidEvent, "final score must not be negative").
				With("local", strconv.Itoa(override.Local)).
				With("visitor", strconv.Itoa(override.Visitor))
		}
		score = *override
	}

	now := c.now().UTC()
	snap := c.clock.Snapshot()
	snap.Phase = clock.Finished
	snap.Running = false
	next := c.rec
	next.Status = matchday.MatchFinished
	next.Score = score
	next.ScoreOverride = override != nil
	next.Clock = &snap
	next.FinalizedAt = &now
	if err := c.deps.Matches.UpdateMatch(ctx, next); err != nil {
		return Result{}, fmt.Errorf("finalizing match: %w", err)
	}
	c.clock.Stop()
	c.rec = next

	res := c.resultLocked()
	c.log.Info("match finalized", "local", score.Local, "visitor", score.Visitor,
		"overridden", res.Overridden, "penalty_minutes", res.PenaltyMinutes)
	c.emit(Update{Kind: UpdateStatus, Status: c.rec.Status, Score: &score})

	if n := c.deps.Notifier; n != nil {
		go func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()
			if err := n.MatchFinalized(ctx, res); err != nil {
				c.log.Error("match finalized notification failed", "error", err)
			}
		}(context.WithoutCancel(ctx))
	}
	return res, nil
}

func (c *Controller) resultLocked() Result {
	r := Result{
		MatchID:        c.rec.ID,
		LocalTeamID:    c.rec.LocalTeamID,
		VisitorTeamID:  c.rec.VisitorTeamID,
		Score:          c.rec.Score,
		Overridden:     c.rec.ScoreOverride,
		PenaltyMinutes: c.rec.PenaltyMinutes,
	}
	if c.rec.FinalizedAt != nil {
		r.FinalizedAt = *c.rec.FinalizedAt
	}
	return r
}

// Suspend pauses a running clock and saves it, so a restarted process can
// pick the match up where it stopped.
func (c *Controller) Suspend(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock == nil || c.rec.Status != matchday.MatchInPlay {
		return
	}
	_ = c.clock.Pause()
	c.saveClockLocked(ctx)
}

// View is a read-only snapshot of the whole match.
type View struct {
	Match          matchday.Match               `json:"match"`
	Score          matchday.Score               `json:"score"`
	ScoreOverride  bool                         `json:"scoreOverride"`
	PenaltyMinutes int                          `json:"penaltyMinutes"`
	Clock          *clock.Snapshot              `json:"clock,omitempty"`
	Lineups        []matchday.Lineup            `json:"lineups"`
	Players        []matchday.PlayerMatchStatus `json:"players"`
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Match:          c.rec.Match,
		Score:          c.rec.Score,
		ScoreOverride:  c.rec.ScoreOverride,
		PenaltyMinutes: c.rec.PenaltyMinutes,
		Lineups:        []matchday.Lineup{},
		Players:        []matchday.PlayerMatchStatus{},
	}
	switch {
	case c.clock != nil:
		s := c.clock.Snapshot()
		v.Clock = &s
	case c.rec.Clock != nil:
		s := *c.rec.Clock
		v.Clock = &s
	}
	for _, team := range []string{c.rec.LocalTeamID, c.rec.VisitorTeamID} {
		if l, ok := c.lineups[team]; ok {
			v.Lineups = append(v.Lineups, l.Clone())
		}
	}
	if c.ledger != nil {
		v.Players = c.ledger.Statuses()
	}
	return v
}

// Status returns the match status.
func (c *Controller) Status() matchday.MatchStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Status
}

// Lineup returns the committed lineup of teamID, reflecting substitutions.
func (c *Controller) Lineup(teamID string) (matchday.Lineup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lineups[teamID]
	if !ok {
		return matchday.Lineup{}, fmt.Errorf("lineup of team %s: %w", teamID, matchday.ErrNotFound)
	}
	return l.Clone(), nil
}

// PlayerStatus is the ledger-derived status of one player.
func (c *Controller) PlayerStatus(playerID string) (matchday.PlayerMatchStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledger == nil {
		return matchday.PlayerMatchStatus{}, matchday.Reject(matchday.CodeMatchNotInPlay, "match has not started")
	}
	st, ok := c.ledger.StatusOf(playerID)
	if !ok {
		return st, matchday.Reject(matchday.CodeNotInLineup, "player %s is not on either match sheet", playerID).
			With("playerId", playerID)
	}
	return st, nil
}

func (c *Controller) Events() []matchday.MatchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledger == nil {
		return []matchday.MatchEvent{}
	}
	return c.ledger.Events()
}

// Result reports the frozen result of a finished match.
func (c *Controller) Result() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec.Status != matchday.MatchFinished {
		return Result{}, matchday.Reject(matchday.CodeInvalidMatchTransition, "match is %s, not finished", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	return c.resultLocked(), nil
}
