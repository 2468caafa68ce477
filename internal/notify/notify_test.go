package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
	"github.com/playperu/matchday/internal/notify"
)

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	return redis.NewIntResult(2, nil)
}

var result = match.Result{
	MatchID:        "m1",
	LocalTeamID:    "t1",
	VisitorTeamID:  "t2",
	Score:          matchday.Score{Local: 2, Visitor: 1},
	PenaltyMinutes: 3,
	FinalizedAt:    time.Date(2026, 3, 14, 17, 50, 0, 0, time.UTC),
}

func TestRedisPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := notify.NewRedis(pub, "", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	if err := n.MatchFinalized(context.Background(), result); err != nil {
		t.Fatal(err)
	}
	if pub.channel != notify.DefaultChannel {
		t.Errorf("channel = %q, want %q", pub.channel, notify.DefaultChannel)
	}

	var got notify.Message
	if err := json.Unmarshal(pub.message, &got); err != nil {
		t.Fatalf("decoding payload %q: %v", pub.message, err)
	}
	if got.Event != "match.finalized" {
		t.Errorf("event = %q", got.Event)
	}
	if got.MatchID != "m1" || got.Score != result.Score || got.PenaltyMinutes != 3 {
		t.Errorf("payload = %+v", got)
	}
	if !got.FinalizedAt.Equal(result.FinalizedAt) {
		t.Errorf("finalizedAt = %v", got.FinalizedAt)
	}
}

func TestRedisReportsPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := notify.NewRedis(pub, "results", nil)

	err := n.MatchFinalized(context.Background(), result)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("got %v", err)
	}
	if pub.channel != "results" {
		t.Errorf("channel = %q", pub.channel)
	}
}

func TestLogWritesResult(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := n.MatchFinalized(context.Background(), result); err != nil {
		t.Fatal(err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	if line["match_id"] != "m1" || line["local"] != float64(2) {
		t.Errorf("log line = %v", line)
	}
}
