package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/playperu/matchday/internal/lineup"
	"github.com/playperu/matchday/internal/matchday"
)

// Compose runs fn against the team's in-progress lineup. The draft is built
// on first use from the active roster and, when present, the lineup the team
// last committed. Drafts live in memory until CommitLineup.
func (c *Controller) Compose(ctx context.Context, teamID string, fn func(*lineup.Composer) error) (lineup.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft, err := c.draftLocked(ctx, teamID)
	if err != nil {
		return lineup.Snapshot{}, err
	}
	if fn != nil {
		if err := fn(draft); err != nil {
			return lineup.Snapshot{}, err
		}
	}
	return draft.Snapshot(), nil
}

// CommitLineup commits the team's draft and submits it. The returned penalty
// is the kickoff delay in minutes.
func (c *Controller) CommitLineup(ctx context.Context, teamID string) (matchday.Lineup, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft, err := c.draftLocked(ctx, teamID)
	if err != nil {
		return matchday.Lineup{}, 0, err
	}
	l, err := draft.Commit()
	if err != nil {
		return matchday.Lineup{}, 0, err
	}
	penalty, err := c.submitLocked(ctx, l)
	if err != nil {
		return matchday.Lineup{}, 0, err
	}
	return c.lineups[teamID].Clone(), penalty, nil
}

func (c *Controller) draftLocked(ctx context.Context, teamID string) (*lineup.Composer, error) {
	if c.rec.Status != matchday.MatchScheduled {
		return nil, matchday.Reject(matchday.CodeLineupLocked, "lineups are locked once the match is %s", c.rec.Status).
			With("status", string(c.rec.Status))
	}
	if err := c.requireTeam(teamID); err != nil {
		return nil, err
	}
	if d, ok := c.drafts[teamID]; ok {
		return d, nil
	}

	roster, err := c.deps.Rosters.Players(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading roster of %s: %w", teamID, err)
	}
	d, err := lineup.New(c.deps.Catalog, lineup.Params{
		MatchID: c.rec.ID,
		TeamID:  teamID,
		Sport:   c.rec.Sport,
		Kickoff: c.rec.KickoffAt,
	}, roster, lineup.WithNow(c.now))
	if err != nil {
		return nil, err
	}

	saved, ok := c.lineups[teamID]
	if !ok {
		loaded, err := c.deps.Lineups.LoadLineup(ctx, c.rec.ID, teamID)
		if err != nil && !errors.Is(err, matchday.ErrNotFound) {
			return nil, fmt.Errorf("loading lineup of %s: %w", teamID, err)
		}
		saved, ok = loaded, err == nil
	}
	if ok {
		if err := d.Restore(saved); err != nil {
			c.log.Warn("restoring saved lineup", "team_id", teamID, "error", err)
		}
	}
	c.drafts[teamID] = d
	return d, nil
}
