// Package notify delivers finalized match results to the outside world.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/matchday/internal/match"
)

// DefaultChannel is the redis channel results are published on when none is
// configured.
const DefaultChannel = "matchday.finalized"

// Publisher is the part of *redis.Client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Message is the JSON payload published for each finalized match.
type Message struct {
	Event string `json:"event"`
	match.Result
}

// Redis publishes results as JSON on a pub/sub channel.
type Redis struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

func NewRedis(client Publisher, channel string, logger *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, channel: channel, logger: logger}
}

func (n *Redis) MatchFinalized(ctx context.Context, res match.Result) error {
	payload, err := json.Marshal(Message{Event: "match.finalized", Result: res})
	if err != nil {
		return fmt.Errorf("encoding result of %s: %w", res.MatchID, err)
	}
	receivers, err := n.client.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publishing result of %s: %w", res.MatchID, err)
	}
	n.logger.Info("match result published",
		"match_id", res.MatchID,
		"channel", n.channel,
		"receivers", receivers,
	)
	return nil
}

// Log writes results to the logger. Used when no redis is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (n *Log) MatchFinalized(_ context.Context, res match.Result) error {
	n.logger.Info("match finalized",
		"match_id", res.MatchID,
		"local", res.Score.Local,
		"visitor", res.Score.Visitor,
		"overridden", res.Overridden,
		"penalty_minutes", res.PenaltyMinutes,
	)
	return nil
}

var (
	_ match.Notifier = (*Redis)(nil)
	_ match.Notifier = (*Log)(nil)
)
