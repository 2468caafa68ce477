package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleStream is the SSE counterpart of the websocket feed: a snapshot
// first, then every live update of the match.
func handleStream(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := controller(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Subscribe before taking the snapshot so no update falls between.
		matchID := chi.URLParam(r, "matchID")
		ch := broker.Subscribe(matchID)
		defer broker.Unsubscribe(matchID, ch)

		first, _ := json.Marshal(c.Snapshot())
		fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", first)
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
