package store

import (
	"context"
	"fmt"
	"time"

	"github.com/playperu/matchday/internal/matchday"
)

type seedSquad struct {
	team  matchday.Team
	names []string
	// positions are handed out in roster order.
	positions []string
}

var demoEleven = []string{
	"Portero", "Portero",
	"Defensa", "Defensa", "Lateral", "Central", "Defensa",
	"Mediocampista", "Mediocampista", "Volante", "Mediocampista", "Medio",
	"Delantero", "Extremo", "Delantero", "Punta",
}

var demoIndoor = []string{
	"Portero", "Portero",
	"Defensa", "Defensa", "Defensa",
	"Mediocampista", "Mediocampista",
	"Delantero", "Delantero",
}

func demoSquads() []seedSquad {
	return []seedSquad{
		{
			team:      matchday.Team{ID: "t-incas", Name: "Los Incas", Sport: matchday.SportEleven},
			names:     []string{"Huamán", "Quispe", "Mamani", "Condori", "Flores", "Rojas", "Vargas", "Chávez", "Ramos", "Torres", "Castillo", "Mendoza", "Gutiérrez", "Salazar", "Paredes", "Cárdenas"},
			positions: demoEleven,
		},
		{
			team:      matchday.Team{ID: "t-condores", Name: "Los Cóndores", Sport: matchday.SportEleven},
			names:     []string{"Espinoza", "Rivera", "Díaz", "Herrera", "Medina", "Aguilar", "Silva", "Morales", "Ortiz", "Navarro", "Campos", "Vega", "Reyes", "Palacios", "Cruz", "Ríos"},
			positions: demoEleven,
		},
		{
			team:      matchday.Team{ID: "t-rimac", Name: "Rímac Futsal", Sport: matchday.SportIndoor},
			names:     []string{"Alarcón", "Benites", "Cabrera", "Delgado", "Escobar", "Fuentes", "Gamarra", "Hidalgo", "Ibáñez"},
			positions: demoIndoor,
		},
		{
			team:      matchday.Team{ID: "t-callao", Name: "Callao Indoor", Sport: matchday.SportIndoor},
			names:     []string{"Jiménez", "Lozano", "Montoya", "Núñez", "Olivares", "Pacheco", "Quiroz", "Robles", "Soto"},
			positions: demoIndoor,
		},
	}
}

// demoFormation is a custom indoor template stored alongside the built-ins.
var demoFormation = matchday.FormationTemplate{
	Code:  "2-1-2",
	Name:  "2-1-2 Indoor Rombo",
	Sport: matchday.SportIndoor,
	Slots: []matchday.Slot{
		{X: 50, Y: 90, Position: "Portero"},
		{X: 30, Y: 65, Position: "Defensa"}, {X: 70, Y: 65, Position: "Defensa"},
		{X: 50, Y: 45, Position: "Mediocampista"},
		{X: 30, Y: 20, Position: "Delantero"}, {X: 70, Y: 20, Position: "Delantero"},
	},
}

// SeedDemo populates an empty database with four teams, their rosters, a
// custom formation and two upcoming matches kicking off relative to now.
// It reports whether anything was written; a database that already has
// teams is left alone.
func (s *Store) SeedDemo(ctx context.Context, now time.Time) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	for _, sq := range demoSquads() {
		if err := s.CreateTeam(ctx, sq.team); err != nil {
			return false, err
		}
		for i, name := range sq.names {
			p := matchday.Player{
				ID:          fmt.Sprintf("%s-%02d", sq.team.ID, i+1),
				TeamID:      sq.team.ID,
				Name:        name,
				SquadNumber: i + 1,
				Position:    sq.positions[i],
				Active:      true,
			}
			if err := s.CreatePlayer(ctx, p); err != nil {
				return false, err
			}
		}
	}

	if err := s.SaveFormation(ctx, demoFormation); err != nil {
		return false, err
	}

	kickoff := now.UTC().Truncate(time.Minute)
	matches := []matchday.Match{
		{ID: "m-clasico", LocalTeamID: "t-incas", VisitorTeamID: "t-condores", Sport: matchday.SportEleven, KickoffAt: kickoff.Add(2 * time.Hour)},
		{ID: "m-futsal", LocalTeamID: "t-rimac", VisitorTeamID: "t-callao", Sport: matchday.SportIndoor, KickoffAt: kickoff.Add(30 * time.Minute)},
	}
	for _, m := range matches {
		if err := s.CreateMatch(ctx, m); err != nil {
			return false, err
		}
	}
	return true, nil
}
