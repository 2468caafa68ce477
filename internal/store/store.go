// Package store persists teams, rosters, matches, lineups and match events
// in SQLite. Lineups and per-match state are JSONB documents; events are
// rows ordered by their ledger sequence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

const timeLayout = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// matchDoc is the JSONB part of a match row.
type matchDoc struct {
	Score          matchday.Score  `json:"score"`
	PenaltyMinutes int             `json:"penaltyMinutes"`
	ScoreOverride  bool            `json:"scoreOverride"`
	Clock          *clock.Snapshot `json:"clock,omitempty"`
	FinalizedAt    *time.Time      `json:"finalizedAt,omitempty"`
}

// Teams and players

func (s *Store) CreateTeam(ctx context.Context, t matchday.Team) error {
	if !t.Sport.Valid() {
		return fmt.Errorf("team %q: unknown sport %q", t.ID, t.Sport)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, sport) VALUES (?, ?, ?)`,
		t.ID, t.Name, string(t.Sport),
	)
	if err != nil {
		return fmt.Errorf("inserting team %q: %w", t.ID, err)
	}
	return nil
}

func (s *Store) Team(ctx context.Context, id string) (matchday.Team, error) {
	var t matchday.Team
	var sport string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, sport FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &sport)
	if errors.Is(err, sql.ErrNoRows) {
		return t, matchday.ErrNotFound
	}
	t.Sport = matchday.SportType(sport)
	return t, err
}

func (s *Store) Teams(ctx context.Context) ([]matchday.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, sport FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []matchday.Team{}
	for rows.Next() {
		var t matchday.Team
		var sport string
		if err := rows.Scan(&t.ID, &t.Name, &sport); err != nil {
			return nil, err
		}
		t.Sport = matchday.SportType(sport)
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *Store) CreatePlayer(ctx context.Context, p matchday.Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, team_id, name, squad_number, position, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.TeamID, p.Name, p.SquadNumber, p.Position, p.Active,
	)
	if err != nil {
		return fmt.Errorf("inserting player %q: %w", p.ID, err)
	}
	return nil
}

// SetPlayerActive marks a roster member available or unavailable for
// selection.
func (s *Store) SetPlayerActive(ctx context.Context, playerID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET active = ? WHERE id = ?`, active, playerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return matchday.ErrNotFound
	}
	return nil
}

// Players returns the whole roster of a team, inactive members included,
// ordered by squad number.
func (s *Store) Players(ctx context.Context, teamID string) ([]matchday.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, name, squad_number, position, active
		FROM players
		WHERE team_id = ?
		ORDER BY squad_number, id
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []matchday.Player{}
	for rows.Next() {
		var p matchday.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.SquadNumber, &p.Position, &p.Active); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Matches

func (s *Store) CreateMatch(ctx context.Context, m matchday.Match) error {
	if m.LocalTeamID == m.VisitorTeamID {
		return fmt.Errorf("match %q: a team cannot play itself", m.ID)
	}
	if m.Status == "" {
		m.Status = matchday.MatchScheduled
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, local_team_id, visitor_team_id, sport, kickoff_at, status, data)
		VALUES (?, ?, ?, ?, ?, ?, jsonb('{}'))
	`, m.ID, m.LocalTeamID, m.VisitorTeamID, string(m.Sport),
		m.KickoffAt.UTC().Format(timeLayout), string(m.Status))
	if err != nil {
		return fmt.Errorf("inserting match %q: %w", m.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (match.MatchRecord, error) {
	var rec match.MatchRecord
	var sport, kickoff, status, data string
	err := row.Scan(&rec.ID, &rec.LocalTeamID, &rec.VisitorTeamID, &sport, &kickoff, &status, &data)
	if err != nil {
		return rec, err
	}
	rec.Sport = matchday.SportType(sport)
	rec.Status = matchday.MatchStatus(status)
	if rec.KickoffAt, err = time.Parse(timeLayout, kickoff); err != nil {
		return rec, fmt.Errorf("match %q kickoff: %w", rec.ID, err)
	}

	var doc matchDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return rec, fmt.Errorf("match %q data: %w", rec.ID, err)
	}
	rec.Score = doc.Score
	rec.PenaltyMinutes = doc.PenaltyMinutes
	rec.ScoreOverride = doc.ScoreOverride
	rec.Clock = doc.Clock
	rec.FinalizedAt = doc.FinalizedAt
	return rec, nil
}

const matchColumns = `id, local_team_id, visitor_team_id, sport, kickoff_at, status, json(data)`

func (s *Store) Match(ctx context.Context, matchID string) (match.MatchRecord, error) {
	rec, err := scanMatch(s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, matchID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, matchday.ErrNotFound
	}
	return rec, err
}

// ListMatches returns every match ordered by kickoff.
func (s *Store) ListMatches(ctx context.Context) ([]match.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY kickoff_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []match.MatchRecord{}
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	return matches, rows.Err()
}

// UpdateMatch overwrites the mutable state of a match. Teams, sport and
// kickoff never change after creation.
func (s *Store) UpdateMatch(ctx context.Context, rec match.MatchRecord) error {
	data, err := json.Marshal(matchDoc{
		Score:          rec.Score,
		PenaltyMinutes: rec.PenaltyMinutes,
		ScoreOverride:  rec.ScoreOverride,
		Clock:          rec.Clock,
		FinalizedAt:    rec.FinalizedAt,
	})
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, data = jsonb(?) WHERE id = ?`,
		string(rec.Status), string(data), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating match %q: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return matchday.ErrNotFound
	}
	return nil
}

// Lineups

func (s *Store) SaveLineup(ctx context.Context, l matchday.Lineup) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lineups (match_id, team_id, submitted_at, data) VALUES (?, ?, ?, jsonb(?))
		ON CONFLICT(match_id, team_id) DO UPDATE SET submitted_at = excluded.submitted_at, data = excluded.data
	`, l.MatchID, l.TeamID, l.SubmittedAt.UTC().Format(timeLayout), string(data))
	if err != nil {
		return fmt.Errorf("saving lineup of %s for %s: %w", l.TeamID, l.MatchID, err)
	}
	return nil
}

func (s *Store) LoadLineup(ctx context.Context, matchID, teamID string) (matchday.Lineup, error) {
	var l matchday.Lineup
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM lineups WHERE match_id = ? AND team_id = ?`, matchID, teamID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return l, matchday.ErrNotFound
	}
	if err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return l, fmt.Errorf("decoding lineup of %s for %s: %w", teamID, matchID, err)
	}
	return l, nil
}

// Events

// AppendEvents stores a batch atomically. A sequence number that already
// exists for the match fails the whole batch.
func (s *Store) AppendEvents(ctx context.Context, matchID string, events ...matchday.MatchEvent) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		if e.MatchID != matchID {
			return fmt.Errorf("event %q belongs to match %q, not %q", e.ID, e.MatchID, matchID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_events
				(id, match_id, seq, type, minute, team_id, player_id, secondary_id, system_generated, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, matchID, e.Seq, string(e.Type), e.Minute, e.TeamID, e.PlayerID, e.SecondaryID,
			e.SystemGenerated, e.RecordedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("inserting event %d of %s: %w", e.Seq, matchID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) EventsFor(ctx context.Context, matchID string) ([]matchday.MatchEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, seq, type, minute, team_id, player_id, secondary_id, system_generated, recorded_at
		FROM match_events
		WHERE match_id = ?
		ORDER BY seq
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []matchday.MatchEvent{}
	for rows.Next() {
		var e matchday.MatchEvent
		var typ, recordedAt string
		err := rows.Scan(&e.ID, &e.MatchID, &e.Seq, &typ, &e.Minute, &e.TeamID, &e.PlayerID,
			&e.SecondaryID, &e.SystemGenerated, &recordedAt)
		if err != nil {
			return nil, err
		}
		e.Type = matchday.EventType(typ)
		if e.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("event %q recorded_at: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Custom formations

// SaveFormation stores a user-defined formation. Built-in codes are checked
// by the catalog, not here.
func (s *Store) SaveFormation(ctx context.Context, t matchday.FormationTemplate) error {
	t.Custom = true
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO formations (code, sport, data) VALUES (?, ?, jsonb(?))`,
		t.Code, string(t.Sport), string(data),
	)
	if err != nil {
		return fmt.Errorf("saving formation %q: %w", t.Code, err)
	}
	return nil
}

// Formations returns the custom formations in creation order.
func (s *Store) Formations(ctx context.Context) ([]matchday.FormationTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM formations ORDER BY created_at, code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matchday.FormationTemplate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var t matchday.FormationTemplate
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var (
	_ match.RosterStore = (*Store)(nil)
	_ match.LineupStore = (*Store)(nil)
	_ match.EventStore  = (*Store)(nil)
	_ match.MatchStore  = (*Store)(nil)
)
