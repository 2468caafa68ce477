package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/handler/health"
	"github.com/playperu/matchday/internal/lineup"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

// Path parameter carriers, so the reflector knows every {placeholder}.
type teamPath struct {
	TeamID string `path:"teamID"`
}

type playerPath struct {
	PlayerID string `path:"playerID"`
}

type matchPath struct {
	MatchID string `path:"matchID"`
}

type matchTeamPath struct {
	MatchID string `path:"matchID"`
	TeamID  string `path:"teamID"`
}

type matchPlayerPath struct {
	MatchID  string `path:"matchID"`
	PlayerID string `path:"playerID"`
}

type formationQuery struct {
	Sport matchday.SportType `query:"sport" enum:"eleven,indoor"`
}

type resp struct {
	body   any
	status int
}

type operation struct {
	method, path, summary, description string
	req                                any
	resps                              []resp
	contentType                        string
}

func operations() []operation {
	rejected := func(statuses ...int) []resp {
		out := make([]resp, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, resp{ErrorResponse{}, s})
		}
		return out
	}
	ok := func(body any, status int, errs ...int) []resp {
		return append([]resp{{body, status}}, rejected(errs...)...)
	}

	return []operation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			description: "Returns the health status of backend dependencies.",
			resps:       []resp{{health.Response{}, http.StatusOK}, {health.Response{}, http.StatusServiceUnavailable}}},
		{method: http.MethodGet, path: "/ws/matches/{matchID}", summary: "Live match feed",
			description: "Upgrades to a WebSocket that sends a snapshot frame and then every live update.",
			req:         matchPath{}, contentType: "text/plain",
			resps: []resp{{nil, http.StatusSwitchingProtocols}, {nil, http.StatusNotFound}}},

		{method: http.MethodGet, path: "/api/formations", summary: "List formations",
			description: "Built-in and custom formation templates, optionally filtered by sport.",
			req:         formationQuery{}, resps: ok([]matchday.FormationTemplate{}, http.StatusOK, http.StatusBadRequest)},

		{method: http.MethodGet, path: "/api/teams", summary: "List teams",
			resps: ok([]matchday.Team{}, http.StatusOK)},
		{method: http.MethodPost, path: "/api/teams", summary: "Create team",
			req: TeamRequest{}, resps: ok(matchday.Team{}, http.StatusCreated, http.StatusBadRequest)},
		{method: http.MethodGet, path: "/api/teams/{teamID}/players", summary: "List roster",
			description: "Every roster member, inactive players included, by squad number.",
			req:         teamPath{}, resps: ok([]matchday.Player{}, http.StatusOK)},
		{method: http.MethodPost, path: "/api/teams/{teamID}/players", summary: "Add player",
			req: struct {
				teamPath
				PlayerRequest
			}{}, resps: ok(matchday.Player{}, http.StatusCreated, http.StatusBadRequest, http.StatusNotFound)},
		{method: http.MethodPatch, path: "/api/players/{playerID}", summary: "Set player availability",
			req: struct {
				playerPath
				PlayerUpdateRequest
			}{}, resps: ok(nil, http.StatusNoContent, http.StatusBadRequest, http.StatusNotFound)},

		{method: http.MethodGet, path: "/api/matches", summary: "List matches",
			resps: ok([]match.MatchRecord{}, http.StatusOK)},
		{method: http.MethodPost, path: "/api/matches", summary: "Schedule match",
			req: MatchRequest{}, resps: ok(matchday.Match{}, http.StatusCreated, http.StatusBadRequest, http.StatusNotFound)},
		{method: http.MethodGet, path: "/api/matches/{matchID}", summary: "Match view",
			description: "Status, score, clock, lineups and per-player status.",
			req:         matchPath{}, resps: ok(match.View{}, http.StatusOK, http.StatusNotFound)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/start", summary: "Start match",
			description: "Requires both lineups. Starts the first half.",
			req:         matchPath{}, resps: ok(match.View{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/cancel", summary: "Cancel match",
			req: matchPath{}, resps: ok(match.View{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/finalize", summary: "Finalize match",
			description: "Stops the clock and freezes the score, optionally overridden.",
			req: struct {
				matchPath
				FinalizeRequest
			}{}, resps: ok(match.Result{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodGet, path: "/api/matches/{matchID}/result", summary: "Final result",
			req: matchPath{}, resps: ok(match.Result{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodGet, path: "/api/matches/{matchID}/events", summary: "Event ledger",
			req: matchPath{}, resps: ok([]matchday.MatchEvent{}, http.StatusOK)},
		{method: http.MethodGet, path: "/api/matches/{matchID}/players/{playerID}", summary: "Player match status",
			req: matchPlayerPath{}, resps: ok(matchday.PlayerMatchStatus{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodGet, path: "/api/matches/{matchID}/stream", summary: "SSE match stream",
			description: "Server-Sent Events: a snapshot event, then update events.",
			req:         matchPath{}, contentType: "text/event-stream", resps: []resp{{nil, http.StatusOK}}},

		{method: http.MethodGet, path: "/api/matches/{matchID}/lineups/{teamID}", summary: "Lineup draft",
			description: "The team's composition in progress, restored from its last commit.",
			req:         matchTeamPath{}, resps: ok(lineup.Snapshot{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPut, path: "/api/matches/{matchID}/lineups/{teamID}", summary: "Submit lineup",
			description: "Validates and stores a complete lineup in one call.",
			req: struct {
				matchTeamPath
				matchday.Lineup
			}{}, resps: ok(CommitResponse{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodGet, path: "/api/matches/{matchID}/lineups/{teamID}/committed", summary: "Committed lineup",
			description: "The stored lineup, reflecting substitutions once play started.",
			req:         matchTeamPath{}, resps: ok(matchday.Lineup{}, http.StatusOK, http.StatusNotFound)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/lineups/{teamID}/assign", summary: "Assign player",
			req: struct {
				matchTeamPath
				AssignRequest
			}{}, resps: ok(lineup.Snapshot{}, http.StatusOK, http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/lineups/{teamID}/unassign", summary: "Unassign player",
			req: struct {
				matchTeamPath
				UnassignRequest
			}{}, resps: ok(lineup.Snapshot{}, http.StatusOK, http.StatusBadRequest, http.StatusUnprocessableEntity)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/lineups/{teamID}/formation", summary: "Change formation",
			req: struct {
				matchTeamPath
				FormationRequest
			}{}, resps: ok(lineup.Snapshot{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/lineups/{teamID}/commit", summary: "Commit lineup",
			req: matchTeamPath{}, resps: ok(CommitResponse{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},

		{method: http.MethodPost, path: "/api/matches/{matchID}/goals", summary: "Register goal",
			req: struct {
				matchPath
				GoalRequest
			}{}, resps: ok(match.Recorded{}, http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/cards", summary: "Register card",
			description: "A second yellow adds a system-generated red.",
			req: struct {
				matchPath
				CardRequest
			}{}, resps: ok(match.Recorded{}, http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/substitutions", summary: "Register substitution",
			req: struct {
				matchPath
				SubstitutionRequest
			}{}, resps: ok(match.Recorded{}, http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity)},

		{method: http.MethodPost, path: "/api/matches/{matchID}/clock/pause", summary: "Pause clock",
			req: matchPath{}, resps: ok(clock.Snapshot{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/clock/resume", summary: "Resume clock",
			req: matchPath{}, resps: ok(clock.Snapshot{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/clock/second-half", summary: "Start second half",
			req: matchPath{}, resps: ok(clock.Snapshot{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/clock/stoppage", summary: "Add stoppage time",
			req: struct {
				matchPath
				StoppageRequest
			}{}, resps: ok(clock.Snapshot{}, http.StatusOK, http.StatusConflict)},
		{method: http.MethodPost, path: "/api/matches/{matchID}/clock/speed", summary: "Set clock speed",
			description: "Accepts 1, 10 or 60 simulated seconds per real second.",
			req: struct {
				matchPath
				SpeedRequest
			}{}, resps: ok(clock.Snapshot{}, http.StatusOK, http.StatusConflict, http.StatusUnprocessableEntity)},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Matchday API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Lineup composition and live match events.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, rs := range op.resps {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(rs.status)}
			if rs.body == nil && op.contentType != "" {
				opts = append(opts, openapi.WithContentType(op.contentType))
			}
			oc.AddRespStructure(rs.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
