package lineup

import (
	"strconv"
	"time"

	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/matchday"
)

// Penalty returns the kickoff delay in whole minutes caused by a lineup
// submitted at submittedAt, rounded up. Zero when on time.
func Penalty(kickoff, submittedAt time.Time) int {
	late := submittedAt.Sub(kickoff.Add(-SubmissionLead))
	if late <= 0 {
		return 0
	}
	minutes := int(late / time.Minute)
	if late%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// Validate re-checks a lineup value against the catalog. Positions are not
// re-checked because a lineup carries player ids only; roster membership is
// the composer's concern.
func Validate(catalog *formation.Catalog, l matchday.Lineup) error {
	if !l.Sport.Valid() {
		return matchday.Reject(matchday.CodeUnknownFormation, "lineup has unknown sport %q", l.Sport)
	}
	tpl, ok := catalog.Lookup(l.Formation)
	if !ok || tpl.Sport != l.Sport {
		return matchday.Reject(matchday.CodeUnknownFormation, "formation %q is not available for %s", l.Formation, l.Sport).
			With("formation", l.Formation)
	}

	required := l.Sport.Starters()
	if len(l.Starters) != required {
		return matchday.Reject(matchday.CodeIncompleteLineup,
			"lineup needs %d starters, has %d", required, len(l.Starters)).
			With("required", strconv.Itoa(required)).
			With("missing", strconv.Itoa(required-len(l.Starters)))
	}
	if limit := l.Sport.MaxSubstitutes(); len(l.Bench) > limit {
		return matchday.Reject(matchday.CodeRosterFull, "exceeds bench size of %d", limit).
			With("limit", strconv.Itoa(limit))
	}

	seen := make(map[string]bool, len(l.Starters)+len(l.Bench))
	slotTaken := make(map[int]string, len(l.Starters))
	for _, s := range l.Starters {
		if seen[s.PlayerID] {
			return matchday.Reject(matchday.CodeSlotOccupied, "player %s is listed twice", s.PlayerID).
				With("playerId", s.PlayerID)
		}
		seen[s.PlayerID] = true
		if s.Slot < 0 || s.Slot >= len(tpl.Slots) {
			return matchday.Reject(matchday.CodeUnknownSlot, "formation %s has no slot %d", tpl.Code, s.Slot).
				With("slot", strconv.Itoa(s.Slot))
		}
		if other, ok := slotTaken[s.Slot]; ok {
			return matchday.Reject(matchday.CodeSlotOccupied, "slot %d is already occupied", s.Slot).
				With("slot", strconv.Itoa(s.Slot)).
				With("occupant", other)
		}
		for idx := range slotTaken {
			if tooClose(tpl.Slots[s.Slot], tpl.Slots[idx]) {
				return matchday.Reject(matchday.CodeSlotOccupied,
					"slot %d is within %.0f%% of slot %d", s.Slot, MinSeparation, idx).
					With("slot", strconv.Itoa(s.Slot))
			}
		}
		slotTaken[s.Slot] = s.PlayerID
	}
	for _, b := range l.Bench {
		if seen[b.PlayerID] {
			return matchday.Reject(matchday.CodeSlotOccupied, "player %s is listed twice", b.PlayerID).
				With("playerId", b.PlayerID)
		}
		seen[b.PlayerID] = true
	}
	return nil
}

// ValidatePositions checks every starter of l against the roster labels.
func ValidatePositions(catalog *formation.Catalog, l matchday.Lineup, roster []matchday.Player) error {
	slots, ok := catalog.SlotsFor(l.Formation)
	if !ok {
		return matchday.Reject(matchday.CodeUnknownFormation, "formation %q is not available", l.Formation).
			With("formation", l.Formation)
	}
	byID := make(map[string]matchday.Player, len(roster))
	for _, p := range roster {
		if p.Active {
			byID[p.ID] = p
		}
	}
	check := func(id string) (matchday.Player, error) {
		p, ok := byID[id]
		if !ok {
			return p, matchday.Reject(matchday.CodeUnknownPlayer, "player %s is not an active member of the roster", id).
				With("playerId", id)
		}
		return p, nil
	}
	for _, s := range l.Starters {
		p, err := check(s.PlayerID)
		if err != nil {
			return err
		}
		if s.Slot < 0 || s.Slot >= len(slots) {
			continue
		}
		if !formation.Compatible(slots[s.Slot].Position, p.Position) {
			return matchday.Reject(matchday.CodeIncompatiblePosition,
				"position mismatch: %s (%s) cannot play as %s", p.Name, p.Position, slots[s.Slot].Position).
				With("slot", strconv.Itoa(s.Slot))
		}
	}
	for _, b := range l.Bench {
		if _, err := check(b.PlayerID); err != nil {
			return err
		}
	}
	return nil
}
