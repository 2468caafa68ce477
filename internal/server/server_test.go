package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/database"
	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/lineup"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
	"github.com/playperu/matchday/internal/migrations"
	"github.com/playperu/matchday/internal/notify"
	"github.com/playperu/matchday/internal/store"
)

// stillTicker never fires; tests drive the clock through the API only.
type stillTicker struct{}

func (stillTicker) C() <-chan time.Time { return nil }
func (stillTicker) Stop()               {}

func testRouter(t *testing.T) (chi.Router, *Broker) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	st := store.New(db)
	if _, err := st.SeedDemo(ctx, time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	custom, err := st.Formations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := formation.NewCatalog(custom...)
	if err != nil {
		t.Fatal(err)
	}

	broker := NewBroker()
	registry := match.NewRegistry(match.Deps{
		Catalog:  catalog,
		Rosters:  st,
		Lineups:  st,
		Events:   st,
		Matches:  st,
		Notifier: notify.NewLog(logger),
		Logger:   logger,
	},
		match.WithOnUpdate(broker.Publish),
		match.WithClockOptions(clock.WithTickerFactory(func(time.Duration) clock.Ticker { return stillTicker{} })),
	)

	app := App{Directory: st, Matches: registry, Catalog: catalog, Broker: broker}
	return NewRouter(logger, app), broker
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, status, rec.Body.String())
	}
}

func slot(i int) *int { return &i }

// composeIndoor fills the 1-2-2 of a seeded indoor squad: keeper, two
// defenders, two midfielders and a forward, with the rest on the bench.
func composeIndoor(t *testing.T, h http.Handler, matchID, team string) {
	t.Helper()
	base := "/api/matches/" + matchID + "/lineups/" + team
	starters := []string{"01", "03", "04", "06", "07", "08"}
	for i, n := range starters {
		rec := do(t, h, http.MethodPost, base+"/assign", AssignRequest{PlayerID: team + "-" + n, Slot: slot(i)})
		wantStatus(t, rec, http.StatusOK)
	}
	for _, n := range []string{"02", "05", "09"} {
		rec := do(t, h, http.MethodPost, base+"/assign", AssignRequest{PlayerID: team + "-" + n, Bench: true})
		wantStatus(t, rec, http.StatusOK)
	}

	rec := do(t, h, http.MethodPost, base+"/commit", nil)
	wantStatus(t, rec, http.StatusOK)
	got := decode[CommitResponse](t, rec)
	if len(got.Lineup.Starters) != 6 || len(got.Lineup.Bench) != 3 {
		t.Fatalf("committed %+v", got.Lineup)
	}
	if got.PenaltyMinutes != 0 {
		t.Errorf("penalty = %d, want 0 for an early commit", got.PenaltyMinutes)
	}
}

func TestMatchDayOverHTTP(t *testing.T) {
	h, _ := testRouter(t)
	const m = "/api/matches/m-futsal"

	draft := decode[lineup.Snapshot](t, do(t, h, http.MethodGet, m+"/lineups/t-rimac", nil))
	if draft.Formation.Code != "1-2-2" || len(draft.Unassigned) != 9 || draft.Required != 6 {
		t.Fatalf("initial draft = %+v", draft)
	}

	composeIndoor(t, h, "m-futsal", "t-rimac")
	composeIndoor(t, h, "m-futsal", "t-callao")

	wantStatus(t, do(t, h, http.MethodPost, m+"/start", nil), http.StatusOK)

	rec := do(t, h, http.MethodGet, m+"/lineups/t-rimac", nil)
	wantStatus(t, rec, http.StatusConflict)
	if code := decode[ErrorResponse](t, rec).Code; code != string(matchday.CodeLineupLocked) {
		t.Errorf("code = %s, want LINEUP_LOCKED", code)
	}

	rec = do(t, h, http.MethodPost, m+"/goals", GoalRequest{TeamID: "t-rimac", PlayerID: "t-rimac-08", AssistID: "t-rimac-06"})
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[match.Recorded](t, rec); got.Score != (matchday.Score{Local: 1}) {
		t.Errorf("score after goal = %+v", got.Score)
	}

	wantStatus(t, do(t, h, http.MethodPost, m+"/cards", CardRequest{TeamID: "t-callao", PlayerID: "t-callao-03", Card: matchday.EventYellowCard}), http.StatusCreated)
	rec = do(t, h, http.MethodPost, m+"/cards", CardRequest{TeamID: "t-callao", PlayerID: "t-callao-03", Card: matchday.EventYellowCard})
	wantStatus(t, rec, http.StatusCreated)
	second := decode[match.Recorded](t, rec)
	if len(second.Events) != 2 || second.Events[1].Type != matchday.EventRedCard || !second.Events[1].SystemGenerated {
		t.Fatalf("second yellow produced %+v", second.Events)
	}

	rec = do(t, h, http.MethodPost, m+"/goals", GoalRequest{TeamID: "t-callao", PlayerID: "t-callao-03"})
	wantStatus(t, rec, http.StatusUnprocessableEntity)
	if code := decode[ErrorResponse](t, rec).Code; code != string(matchday.CodePlayerExpelled) {
		t.Errorf("code = %s, want PLAYER_EXPELLED", code)
	}

	wantStatus(t, do(t, h, http.MethodPost, m+"/substitutions", SubstitutionRequest{TeamID: "t-rimac", OutID: "t-rimac-08", InID: "t-rimac-09"}), http.StatusCreated)
	rec = do(t, h, http.MethodPost, m+"/substitutions", SubstitutionRequest{TeamID: "t-rimac", OutID: "t-rimac-07", InID: "t-rimac-08"})
	wantStatus(t, rec, http.StatusUnprocessableEntity)
	if code := decode[ErrorResponse](t, rec).Code; code != string(matchday.CodeDuplicateSubstitution) {
		t.Errorf("code = %s, want DUPLICATE_SUBSTITUTION", code)
	}

	live := decode[matchday.Lineup](t, do(t, h, http.MethodGet, m+"/lineups/t-rimac/committed", nil))
	if live.Starters[5].PlayerID != "t-rimac-09" || len(live.Substituted) != 1 {
		t.Errorf("lineup after substitution = %+v", live)
	}

	st := decode[matchday.PlayerMatchStatus](t, do(t, h, http.MethodGet, m+"/players/t-rimac-08", nil))
	if st.Goals != 1 || st.OnPitch {
		t.Errorf("scorer status = %+v", st)
	}

	events := decode[[]matchday.MatchEvent](t, do(t, h, http.MethodGet, m+"/events", nil))
	if len(events) != 5 {
		t.Errorf("got %d events, want 5", len(events))
	}

	wantStatus(t, do(t, h, http.MethodPost, m+"/clock/pause", nil), http.StatusOK)
	snap := decode[clock.Snapshot](t, do(t, h, http.MethodPost, m+"/clock/speed", SpeedRequest{Speed: 60}))
	if snap.Speed != 60 || snap.Running {
		t.Errorf("clock after speed change = %+v", snap)
	}
	wantStatus(t, do(t, h, http.MethodPost, m+"/clock/speed", SpeedRequest{Speed: 7}), http.StatusUnprocessableEntity)
	wantStatus(t, do(t, h, http.MethodPost, m+"/clock/second-half", nil), http.StatusConflict)

	wantStatus(t, do(t, h, http.MethodGet, m+"/result", nil), http.StatusConflict)
	rec = do(t, h, http.MethodPost, m+"/finalize", FinalizeRequest{Override: &matchday.Score{Local: 2, Visitor: 0}})
	wantStatus(t, rec, http.StatusOK)
	res := decode[match.Result](t, rec)
	if res.Score != (matchday.Score{Local: 2}) || !res.Overridden {
		t.Errorf("result = %+v", res)
	}

	res = decode[match.Result](t, do(t, h, http.MethodGet, m+"/result", nil))
	if !res.Overridden || res.FinalizedAt.IsZero() {
		t.Errorf("stored result = %+v", res)
	}
	view := decode[match.View](t, do(t, h, http.MethodGet, m, nil))
	if view.Match.Status != matchday.MatchFinished || view.Clock == nil || view.Clock.Phase != clock.Finished {
		t.Errorf("view after finalize = %+v", view)
	}
}

func TestRejectionsMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		status   int
		code     matchday.Code
		metadata map[string]string
	}{
		{
			name: "unknown match", method: http.MethodGet, path: "/api/matches/nope",
			status: http.StatusNotFound,
		},
		{
			name: "event before kickoff", method: http.MethodPost, path: "/api/matches/m-futsal/goals",
			body:   GoalRequest{TeamID: "t-rimac", PlayerID: "t-rimac-08"},
			status: http.StatusConflict, code: matchday.CodeMatchNotInPlay,
		},
		{
			name: "start without lineups", method: http.MethodPost, path: "/api/matches/m-futsal/start",
			status: http.StatusConflict, code: matchday.CodeLineupsIncomplete,
		},
		{
			name: "forward in goal", method: http.MethodPost, path: "/api/matches/m-futsal/lineups/t-rimac/assign",
			body:   AssignRequest{PlayerID: "t-rimac-08", Slot: slot(0)},
			status: http.StatusUnprocessableEntity, code: matchday.CodeIncompatiblePosition,
			metadata: map[string]string{"slot": "0"},
		},
		{
			name: "team not in match", method: http.MethodPost, path: "/api/matches/m-futsal/lineups/t-incas/assign",
			body:   AssignRequest{PlayerID: "t-incas-01", Slot: slot(0)},
			status: http.StatusUnprocessableEntity, code: matchday.CodeNotInLineup,
		},
		{
			name: "unknown formation", method: http.MethodPost, path: "/api/matches/m-futsal/lineups/t-rimac/formation",
			body:   FormationRequest{Code: "4-4-2"},
			status: http.StatusUnprocessableEntity, code: matchday.CodeUnknownFormation,
		},
		{
			name: "incomplete commit", method: http.MethodPost, path: "/api/matches/m-futsal/lineups/t-rimac/commit",
			status: http.StatusUnprocessableEntity, code: matchday.CodeIncompleteLineup,
			metadata: map[string]string{"missing": "6"},
		},
		{
			name: "assign without target", method: http.MethodPost, path: "/api/matches/m-futsal/lineups/t-rimac/assign",
			body:   AssignRequest{PlayerID: "t-rimac-01"},
			status: http.StatusBadRequest,
		},
		{
			name: "finalize before kickoff", method: http.MethodPost, path: "/api/matches/m-futsal/finalize",
			status: http.StatusConflict, code: matchday.CodeMatchNotInPlay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := testRouter(t)
			rec := do(t, h, tt.method, tt.path, tt.body)
			wantStatus(t, rec, tt.status)

			got := decode[ErrorResponse](t, rec)
			if got.Code != string(tt.code) {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
			for k, v := range tt.metadata {
				if got.Metadata[k] != v {
					t.Errorf("metadata[%s] = %q, want %q", k, got.Metadata[k], v)
				}
			}
		})
	}
}

func TestFormationChangeNeedsConfirmation(t *testing.T) {
	h, _ := testRouter(t)
	base := "/api/matches/m-futsal/lineups/t-rimac"

	wantStatus(t, do(t, h, http.MethodPost, base+"/assign", AssignRequest{PlayerID: "t-rimac-01", Slot: slot(0)}), http.StatusOK)
	wantStatus(t, do(t, h, http.MethodPost, base+"/assign", AssignRequest{PlayerID: "t-rimac-02", Bench: true}), http.StatusOK)

	rec := do(t, h, http.MethodPost, base+"/formation", FormationRequest{Code: "2-1-2"})
	wantStatus(t, rec, http.StatusConflict)
	if code := decode[ErrorResponse](t, rec).Code; code != string(matchday.CodeConfirmationRequired) {
		t.Errorf("code = %s", code)
	}

	rec = do(t, h, http.MethodPost, base+"/formation", FormationRequest{Code: "2-1-2", Confirm: true})
	wantStatus(t, rec, http.StatusOK)
	snap := decode[lineup.Snapshot](t, rec)
	if snap.Formation.Code != "2-1-2" || !snap.Formation.Custom {
		t.Errorf("formation = %+v", snap.Formation)
	}
	if len(snap.Starters) != 0 || len(snap.Bench) != 1 {
		t.Errorf("starters %v bench %v; want starters cleared, bench kept", snap.Starters, snap.Bench)
	}
}

func TestDirectory(t *testing.T) {
	h, _ := testRouter(t)

	formations := decode[[]matchday.FormationTemplate](t, do(t, h, http.MethodGet, "/api/formations?sport=indoor", nil))
	codes := map[string]bool{}
	for _, f := range formations {
		if f.Sport != matchday.SportIndoor {
			t.Errorf("formation %s has sport %s", f.Code, f.Sport)
		}
		codes[f.Code] = true
	}
	for _, want := range []string{"1-2-2", "1-1-3", "1-3-1", "2-1-2"} {
		if !codes[want] {
			t.Errorf("missing formation %s", want)
		}
	}
	wantStatus(t, do(t, h, http.MethodGet, "/api/formations?sport=beach", nil), http.StatusBadRequest)

	rec := do(t, h, http.MethodPost, "/api/teams", TeamRequest{Name: "Miraflores", Sport: matchday.SportIndoor})
	wantStatus(t, rec, http.StatusCreated)
	team := decode[matchday.Team](t, rec)
	if team.ID == "" {
		t.Fatal("team created without id")
	}

	rec = do(t, h, http.MethodPost, "/api/teams/"+team.ID+"/players", PlayerRequest{Name: "Ugarte", SquadNumber: 1, Position: "Arquero"})
	wantStatus(t, rec, http.StatusCreated)
	p := decode[matchday.Player](t, rec)
	if !p.Active || p.TeamID != team.ID {
		t.Errorf("player = %+v", p)
	}
	wantStatus(t, do(t, h, http.MethodPost, "/api/teams/ghost/players", PlayerRequest{Name: "X", Position: "Defensa"}), http.StatusNotFound)

	wantStatus(t, do(t, h, http.MethodPatch, "/api/players/"+p.ID, PlayerUpdateRequest{Active: false}), http.StatusNoContent)
	players := decode[[]matchday.Player](t, do(t, h, http.MethodGet, "/api/teams/"+team.ID+"/players", nil))
	if len(players) != 1 || players[0].Active {
		t.Errorf("players = %+v", players)
	}

	kickoff := time.Now().Add(3 * time.Hour).UTC()
	rec = do(t, h, http.MethodPost, "/api/matches", MatchRequest{LocalTeamID: team.ID, VisitorTeamID: "t-incas", KickoffAt: kickoff})
	wantStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/api/matches", MatchRequest{ID: "m-new", LocalTeamID: team.ID, VisitorTeamID: "t-callao", KickoffAt: kickoff})
	wantStatus(t, rec, http.StatusCreated)
	if m := decode[matchday.Match](t, rec); m.Sport != matchday.SportIndoor || m.Status != matchday.MatchScheduled {
		t.Errorf("match = %+v", m)
	}

	matches := decode[[]match.MatchRecord](t, do(t, h, http.MethodGet, "/api/matches", nil))
	if len(matches) != 3 {
		t.Errorf("got %d matches, want 3", len(matches))
	}
	view := decode[match.View](t, do(t, h, http.MethodGet, "/api/matches/m-new", nil))
	if view.Match.LocalTeamID != team.ID {
		t.Errorf("view = %+v", view.Match)
	}
}

func TestStreamDeliversUpdates(t *testing.T) {
	h, broker := testRouter(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/matches/m-clasico/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	next := func() (event, data string) {
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
		t.Fatalf("stream ended: %v", sc.Err())
		return "", ""
	}

	if ev, _ := next(); ev != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", ev)
	}
	if n := broker.Subscribers("m-clasico"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	rec := do(t, h, http.MethodPost, "/api/matches/m-clasico/cancel", nil)
	wantStatus(t, rec, http.StatusOK)

	ev, data := next()
	if ev != "update" {
		t.Fatalf("event = %q, want update", ev)
	}
	var u match.Update
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		t.Fatal(err)
	}
	if u.Kind != match.UpdateStatus || u.Status != matchday.MatchCancelled || u.MatchID != "m-clasico" {
		t.Errorf("update = %+v", u)
	}
}

func TestSubmitLineupIgnoresClientSubmittedAt(t *testing.T) {
	h, _ := testRouter(t)

	// The deadline passed five minutes ago.
	kickoff := time.Now().Add(5 * time.Minute).UTC()
	rec := do(t, h, http.MethodPost, "/api/matches", MatchRequest{ID: "m-late", LocalTeamID: "t-rimac", VisitorTeamID: "t-callao", KickoffAt: kickoff})
	wantStatus(t, rec, http.StatusCreated)

	body := matchday.Lineup{
		Formation: "1-2-2",
		Starters: []matchday.StarterAssignment{
			{PlayerID: "t-rimac-01", Slot: 0},
			{PlayerID: "t-rimac-03", Slot: 1},
			{PlayerID: "t-rimac-04", Slot: 2},
			{PlayerID: "t-rimac-06", Slot: 3},
			{PlayerID: "t-rimac-07", Slot: 4},
			{PlayerID: "t-rimac-08", Slot: 5},
		},
		Bench:       []matchday.BenchAssignment{{PlayerID: "t-rimac-02"}},
		SubmittedAt: kickoff.Add(-time.Hour),
	}
	rec = do(t, h, http.MethodPut, "/api/matches/m-late/lineups/t-rimac", body)
	wantStatus(t, rec, http.StatusOK)

	got := decode[CommitResponse](t, rec)
	if got.PenaltyMinutes < 5 {
		t.Errorf("penalty = %d, want at least 5", got.PenaltyMinutes)
	}
	if !got.Lineup.SubmittedAt.After(body.SubmittedAt.Add(30 * time.Minute)) {
		t.Errorf("submittedAt = %v, client value %v was kept", got.Lineup.SubmittedAt, body.SubmittedAt)
	}
}
