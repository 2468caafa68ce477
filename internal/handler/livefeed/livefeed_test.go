package livefeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/matchday/internal/handler/livefeed"
	"github.com/playperu/matchday/internal/matchday"
)

type fakeFeed struct {
	mu   sync.Mutex
	subs map[string]chan []byte
	got  chan string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: map[string]chan []byte{}, got: make(chan string, 1)}
}

func (f *fakeFeed) Subscribe(matchID string) chan []byte {
	ch := make(chan []byte, 4)
	f.mu.Lock()
	f.subs[matchID] = ch
	f.mu.Unlock()
	f.got <- matchID
	return ch
}

func (f *fakeFeed) Unsubscribe(matchID string, _ chan []byte) {
	f.mu.Lock()
	delete(f.subs, matchID)
	f.mu.Unlock()
}

func (f *fakeFeed) send(matchID, msg string) {
	f.mu.Lock()
	ch := f.subs[matchID]
	f.mu.Unlock()
	ch <- []byte(msg)
}

func snapshot(_ context.Context, matchID string) (any, error) {
	switch matchID {
	case "m1":
		return map[string]string{"status": "in_play"}, nil
	case "broken":
		return nil, errors.New("database is locked")
	}
	return nil, fmt.Errorf("loading match %q: %w", matchID, matchday.ErrNotFound)
}

func TestLiveFeed(t *testing.T) {
	feed := newFakeFeed()
	srv := httptest.NewServer(livefeed.NewHandler(slog.Default(), feed, snapshot).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/matches/m1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var first livefeed.Frame
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatal(err)
	}
	if first.Kind != "snapshot" {
		t.Errorf("first frame kind = %q", first.Kind)
	}

	select {
	case id := <-feed.got:
		if id != "m1" {
			t.Fatalf("subscribed to %q", id)
		}
	case <-ctx.Done():
		t.Fatal("never subscribed")
	}

	updates := []string{`{"kind":"event"}`, `{"kind":"clock"}`}
	for _, want := range updates {
		feed.send("m1", want)
		_, got, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestLiveFeedSnapshotFailures(t *testing.T) {
	tests := []struct {
		name       string
		matchID    string
		wantStatus int
	}{
		{"unknown match", "nope", http.StatusNotFound},
		{"storage failure", "broken", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newFakeFeed()
			srv := httptest.NewServer(livefeed.NewHandler(slog.Default(), feed, snapshot).Routes())
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/matches/" + tt.matchID)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			feed.mu.Lock()
			defer feed.mu.Unlock()
			if len(feed.subs) != 0 {
				t.Errorf("subscription left behind for %s", tt.matchID)
			}
		})
	}
}
