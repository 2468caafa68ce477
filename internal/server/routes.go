package server

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

// Directory is the team, roster and fixture data the API manages directly.
type Directory interface {
	Teams(ctx context.Context) ([]matchday.Team, error)
	Team(ctx context.Context, id string) (matchday.Team, error)
	CreateTeam(ctx context.Context, t matchday.Team) error
	Players(ctx context.Context, teamID string) ([]matchday.Player, error)
	CreatePlayer(ctx context.Context, p matchday.Player) error
	SetPlayerActive(ctx context.Context, playerID string, active bool) error
	ListMatches(ctx context.Context) ([]match.MatchRecord, error)
	CreateMatch(ctx context.Context, m matchday.Match) error
}

// App holds what the handlers need.
type App struct {
	Directory Directory
	Matches   *match.Registry
	Catalog   *formation.Catalog
	Broker    *Broker
}

func addRoutes(r chi.Router, logger *slog.Logger, app App) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Matchday API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/formations", handleListFormations(app.Catalog))

		r.Get("/teams", handleListTeams(logger, app.Directory))
		r.Post("/teams", handleCreateTeam(logger, app.Directory))
		r.Get("/teams/{teamID}/players", handleListPlayers(logger, app.Directory))
		r.Post("/teams/{teamID}/players", handleCreatePlayer(logger, app.Directory))
		r.Patch("/players/{playerID}", handleUpdatePlayer(logger, app.Directory))

		r.Get("/matches", handleListMatches(logger, app.Directory))
		r.Post("/matches", handleCreateMatch(logger, app.Directory))

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Use(matchMiddleware(logger, app.Matches))

			r.Get("/", handleMatchView())
			r.Post("/start", handleStartMatch(logger))
			r.Post("/cancel", handleCancelMatch(logger))
			r.Post("/finalize", handleFinalize(logger))
			r.Get("/result", handleResult(logger))
			r.Get("/events", handleListEvents())
			r.Get("/players/{playerID}", handlePlayerStatus(logger))
			r.Get("/stream", handleStream(app.Broker))

			// Lineup composition, open until kickoff.
			r.Get("/lineups/{teamID}", handleGetDraft(logger))
			r.Put("/lineups/{teamID}", handleSubmitLineup(logger))
			r.Get("/lineups/{teamID}/committed", handleCommittedLineup(logger))
			r.Post("/lineups/{teamID}/assign", handleAssign(logger))
			r.Post("/lineups/{teamID}/unassign", handleUnassign(logger))
			r.Post("/lineups/{teamID}/formation", handleChangeFormation(logger))
			r.Post("/lineups/{teamID}/commit", handleCommitLineup(logger))

			// Live events.
			r.Post("/goals", handleGoal(logger))
			r.Post("/cards", handleCard(logger))
			r.Post("/substitutions", handleSubstitution(logger))

			r.Post("/clock/pause", handleClockPause(logger))
			r.Post("/clock/resume", handleClockResume(logger))
			r.Post("/clock/second-half", handleClockSecondHalf(logger))
			r.Post("/clock/stoppage", handleClockStoppage(logger))
			r.Post("/clock/speed", handleClockSpeed(logger))
		})
	})
}
