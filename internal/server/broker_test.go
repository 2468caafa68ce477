package server

import (
	"encoding/json"
	"testing"

	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

func TestBrokerFansOutPerMatch(t *testing.T) {
	b := NewBroker()
	a1 := b.Subscribe("m1")
	a2 := b.Subscribe("m1")
	other := b.Subscribe("m2")

	b.Publish(match.Update{Kind: match.UpdateStatus, MatchID: "m1", Status: matchday.MatchInPlay})

	for i, ch := range []chan []byte{a1, a2} {
		select {
		case data := <-ch:
			var u match.Update
			if err := json.Unmarshal(data, &u); err != nil {
				t.Fatal(err)
			}
			if u.Status != matchday.MatchInPlay {
				t.Errorf("subscriber %d got %+v", i, u)
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}
	select {
	case <-other:
		t.Error("update leaked to another match")
	default:
	}

	b.Unsubscribe("m1", a1)
	b.Unsubscribe("m1", a2)
	if n := b.Subscribers("m1"); n != 0 {
		t.Errorf("subscribers = %d after unsubscribe", n)
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("m1")
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(match.Update{Kind: match.UpdateClock, MatchID: "m1"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d, want %d", len(ch), cap(ch))
	}
}
