package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/matchday/internal/match"
)

// Broker is an in-process pub/sub for live match updates, keyed by match ID.
// It feeds both the SSE stream and the websocket feed.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded updates for the given match.
func (b *Broker) Subscribe(matchID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[chan []byte]struct{})
	}
	b.subs[matchID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the match's subscribers.
func (b *Broker) Unsubscribe(matchID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[matchID], ch)
	if len(b.subs[matchID]) == 0 {
		delete(b.subs, matchID)
	}
	b.mu.Unlock()
}

// Subscribers reports how many listeners a match has.
func (b *Broker) Subscribers(matchID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[matchID])
}

// Publish fans an update out to every subscriber of its match. It never
// blocks, so it is safe to call from a clock goroutine.
func (b *Broker) Publish(u match.Update) {
	data, _ := json.Marshal(u)
	b.mu.RLock()
	for ch := range b.subs[u.MatchID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
