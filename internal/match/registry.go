package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/playperu/matchday/internal/ledger"
	"github.com/playperu/matchday/internal/matchday"
)

// Registry owns one Controller per match, built on first use from the
// stores. Controllers of different matches share nothing, and loading one
// match never waits on another.
type Registry struct {
	deps    Deps
	opts    []Option
	mu      sync.RWMutex
	entries map[string]*entry
}

// entry is a controller being loaded or ready. ready is closed once c or
// err is set.
type entry struct {
	ready chan struct{}
	c     *Controller
	err   error
}

func NewRegistry(deps Deps, opts ...Option) *Registry {
	return &Registry{
		deps:    deps,
		opts:    opts,
		entries: make(map[string]*entry),
	}
}

// Get returns the controller of matchID, loading it on first use. The first
// caller loads it outside the registry lock; concurrent callers for the same
// match wait for that load. A failed load is not cached.
func (r *Registry) Get(ctx context.Context, matchID string) (*Controller, error) {
	r.mu.RLock()
	e, ok := r.entries[matchID]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		// Double-check after acquiring write lock.
		e, ok = r.entries[matchID]
		if !ok {
			e = &entry{ready: make(chan struct{})}
			r.entries[matchID] = e
		}
		r.mu.Unlock()

		if !ok {
			e.c, e.err = r.load(ctx, matchID)
			if e.err != nil {
				r.mu.Lock()
				delete(r.entries, matchID)
				r.mu.Unlock()
			}
			close(e.ready)
		}
	}

	select {
	case <-e.ready:
		return e.c, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) load(ctx context.Context, matchID string) (*Controller, error) {
	rec, err := r.deps.Matches.Match(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("loading match %q: %w", matchID, err)
	}
	c := newController(rec, r.deps, r.opts...)

	for _, team := range []string{rec.LocalTeamID, rec.VisitorTeamID} {
		l, err := r.deps.Lineups.LoadLineup(ctx, matchID, team)
		if errors.Is(err, matchday.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading lineup of %s: %w", team, err)
		}
		c.lineups[team] = l
	}

	if rec.Status != matchday.MatchInPlay && rec.Status != matchday.MatchFinished {
		return c, nil
	}

	local, okLocal := c.lineups[rec.LocalTeamID]
	visitor, okVisitor := c.lineups[rec.VisitorTeamID]
	if !okLocal || !okVisitor {
		return nil, fmt.Errorf("match %q is %s without both lineups", matchID, rec.Status)
	}
	events, err := r.deps.Events.EventsFor(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("loading events of %q: %w", matchID, err)
	}

	// Stored lineups are the sheets as committed; substitutions are replayed
	// from the ledger.
	sides := []ledger.Side{ledger.SideOf(local), ledger.SideOf(visitor)}
	c.ledger = ledger.Replay(matchID, sides, events)
	for _, e := range events {
		if e.Type != matchday.EventSubstitution {
			continue
		}
		l := c.lineups[e.TeamID]
		if applySubstitution(&l, e.PlayerID, e.SecondaryID, e.Minute) {
			c.lineups[e.TeamID] = l
		}
	}

	clk := c.newClock()
	if rec.Clock != nil {
		clk.Restore(*rec.Clock)
		c.lastPhase.Store(rec.Clock.Phase)
	}
	c.clock = clk
	return c, nil
}

// loaded returns the controllers whose load has finished.
func (r *Registry) loaded() []*Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Controller, 0, len(r.entries))
	for _, e := range r.entries {
		select {
		case <-e.ready:
			if e.c != nil {
				out = append(out, e.c)
			}
		default:
		}
	}
	return out
}

// Suspend pauses and saves every running clock. Used on shutdown.
func (r *Registry) Suspend(ctx context.Context) {
	for _, c := range r.loaded() {
		c.Suspend(ctx)
	}
}

// Forget drops a cached controller so the next Get reloads it from storage.
// Its clock is saved first. A match still loading is left alone.
func (r *Registry) Forget(matchID string) {
	r.mu.RLock()
	e, ok := r.entries[matchID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case <-e.ready:
	default:
		return
	}
	if e.c != nil {
		e.c.Suspend(context.Background())
	}

	r.mu.Lock()
	if r.entries[matchID] == e {
		delete(r.entries, matchID)
	}
	r.mu.Unlock()
}
