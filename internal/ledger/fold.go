package ledger

import "github.com/playperu/matchday/internal/matchday"

// playerState is the folded view of one player on a match sheet.
type playerState struct {
	status    matchday.PlayerMatchStatus
	cameOn    bool
	subbedOff bool
}

func intp(v int) *int { return &v }

// fold applies one event to the per-player state. Events are assumed valid;
// validation happens in Plan before anything reaches the ledger.
func fold(players map[string]*playerState, e matchday.MatchEvent) {
	primary := players[e.PlayerID]
	switch e.Type {
	case matchday.EventGoal:
		if primary != nil {
			primary.status.Goals++
		}
		if assist := players[e.SecondaryID]; assist != nil {
			assist.status.Assists++
		}
	case matchday.EventYellowCard:
		if primary != nil {
			primary.status.Yellows++
			if primary.status.Yellows >= 2 {
				primary.status.Expelled = true
			}
		}
	case matchday.EventRedCard:
		if primary != nil {
			primary.status.Reds++
			primary.status.Expelled = true
			if primary.status.OnPitch {
				primary.status.OnPitch = false
				primary.status.LeftAt = intp(e.Minute)
			}
		}
	case matchday.EventSubstitution:
		if primary != nil {
			primary.subbedOff = true
			primary.status.OnPitch = false
			primary.status.LeftAt = intp(e.Minute)
		}
		if in := players[e.SecondaryID]; in != nil {
			in.cameOn = true
			in.status.OnPitch = true
			in.status.EnteredAt = intp(e.Minute)
		}
	}
}
