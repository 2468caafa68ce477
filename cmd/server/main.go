package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/matchday/internal/clock"
	"github.com/playperu/matchday/internal/config"
	"github.com/playperu/matchday/internal/database"
	"github.com/playperu/matchday/internal/formation"
	"github.com/playperu/matchday/internal/handler/health"
	"github.com/playperu/matchday/internal/handler/livefeed"
	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/migrations"
	"github.com/playperu/matchday/internal/notify"
	"github.com/playperu/matchday/internal/server"
	"github.com/playperu/matchday/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, err := migrations.Version(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	st := store.New(db)
	if cfg.SeedDemo {
		seeded, err := st.SeedDemo(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		if seeded {
			logger.Info("seeded demo teams and matches")
		}
	}

	custom, err := st.Formations(ctx)
	if err != nil {
		return fmt.Errorf("loading formations: %w", err)
	}
	catalog, err := formation.NewCatalog(custom...)
	if err != nil {
		return fmt.Errorf("building formation catalog: %w", err)
	}

	checks := map[string]health.Checker{"sqlite": dbChecker{db}}

	// --- Redis (optional) ---
	var notifier match.Notifier = notify.NewLog(logger)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis", "channel", cfg.NotifyChannel)

		notifier = notify.NewRedis(rdb, cfg.NotifyChannel, logger)
		checks["redis"] = redisChecker{rdb}
	}

	// --- Matches ---
	broker := server.NewBroker()
	registry := match.NewRegistry(match.Deps{
		Catalog:  catalog,
		Rosters:  st,
		Lineups:  st,
		Events:   st,
		Matches:  st,
		Notifier: notifier,
		Logger:   logger,
	},
		match.WithClockOptions(clock.WithSpeed(cfg.ClockSpeed)),
		match.WithOnUpdate(broker.Publish),
	)

	snapshot := func(ctx context.Context, matchID string) (any, error) {
		c, err := registry.Get(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return c.Snapshot(), nil
	}

	// --- HTTP Server ---
	app := server.App{
		Directory: st,
		Matches:   registry,
		Catalog:   catalog,
		Broker:    broker,
	}
	srv := server.New(cfg.HTTPAddr, logger, app, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
		r.Mount("/ws", livefeed.NewHandler(logger, broker, snapshot).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "clock_speed", cfg.ClockSpeed)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		// Running clocks are paused and saved so a restart resumes them.
		registry.Suspend(context.Background())
		return err
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
