// Package livefeed streams live match updates over a websocket.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/playperu/matchday/internal/matchday"
)

// Feed hands out per-match subscriptions carrying JSON-encoded updates.
type Feed interface {
	Subscribe(matchID string) chan []byte
	Unsubscribe(matchID string, ch chan []byte)
}

// SnapshotFunc returns the current view of a match, sent as the first frame.
type SnapshotFunc func(ctx context.Context, matchID string) (any, error)

// Frame wraps the initial snapshot. Later frames are raw updates.
type Frame struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

type Handler struct {
	logger   *slog.Logger
	feed     Feed
	snapshot SnapshotFunc
	// maxLife bounds a single connection.
	maxLife time.Duration
}

func NewHandler(logger *slog.Logger, feed Feed, snapshot SnapshotFunc) *Handler {
	return &Handler{logger: logger, feed: feed, snapshot: snapshot, maxLife: 4 * time.Hour}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/matches/{matchID}", h.serve)
	return r
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	// Subscribe before taking the snapshot so no update falls between.
	ch := h.feed.Subscribe(matchID)
	defer h.feed.Unsubscribe(matchID, ch)

	view, err := h.snapshot(r.Context(), matchID)
	if errors.Is(err, matchday.ErrNotFound) {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("loading match snapshot", "match_id", matchID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(r.Context(), h.maxLife)
	defer cancel()
	// The feed is one-way; CloseRead handles pings and notices the client
	// going away.
	ctx = conn.CloseRead(ctx)

	first, _ := json.Marshal(Frame{Kind: "snapshot", Data: view})
	if err := conn.Write(ctx, websocket.MessageText, first); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("websocket feed ended", "match_id", matchID, "error", ctx.Err())
			return
		case msg := <-ch:
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
