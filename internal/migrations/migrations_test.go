package migrations_test

import (
	"context"
	"testing"

	"github.com/playperu/matchday/internal/database"
	"github.com/playperu/matchday/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	want := []string{"teams", "players", "matches", "lineups", "match_events", "formations"}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}

func TestEventSequenceIsUnique(t *testing.T) {
	db, err := database.Open(context.Background(), database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(db); err != nil {
		t.Fatal(err)
	}

	stmts := []string{
		`INSERT INTO teams (id, name, sport) VALUES ('t1', 'Uno', 'indoor'), ('t2', 'Dos', 'indoor')`,
		`INSERT INTO matches (id, local_team_id, visitor_team_id, sport, kickoff_at) VALUES ('m1', 't1', 't2', 'indoor', '2026-03-14T16:00:00Z')`,
		`INSERT INTO match_events (id, match_id, seq, type, minute, team_id, player_id, recorded_at) VALUES ('e1', 'm1', 1, 'goal', 3, 't1', 'p1', '2026-03-14T16:03:00Z')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	_, err = db.Exec(`INSERT INTO match_events (id, match_id, seq, type, minute, team_id, player_id, recorded_at) VALUES ('e2', 'm1', 1, 'goal', 4, 't1', 'p1', '2026-03-14T16:04:00Z')`)
	if err == nil {
		t.Fatal("duplicate sequence number was accepted")
	}
}
