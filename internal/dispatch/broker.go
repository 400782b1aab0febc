package dispatch

import (
	"sync"

	"github.com/example/epickup-dispatch/internal/models"
)

// Broker fans driver responses out to per-booking subscribers. It turns the
// push-style transport callbacks (websocket frames, HTTP webhooks) into the
// await point the match coordinator blocks on.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan models.DriverResponse]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan models.DriverResponse]struct{})}
}

// Subscribe registers for responses to one booking. The returned func
// unsubscribes and closes the channel; it is safe to call once.
func (b *Broker) Subscribe(bookingID string) (<-chan models.DriverResponse, func()) {
	ch := make(chan models.DriverResponse, 8)
	b.mu.Lock()
	if b.subs[bookingID] == nil {
		b.subs[bookingID] = make(map[chan models.DriverResponse]struct{})
	}
	b.subs[bookingID][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if m := b.subs[bookingID]; m != nil {
			if _, ok := m[ch]; ok {
				delete(m, ch)
				if len(m) == 0 {
					delete(b.subs, bookingID)
				}
				close(ch)
			}
		}
		b.mu.Unlock()
	}
}

// Publish delivers a response to that booking's subscribers. Slow subscribers
// are skipped rather than blocking the transport.
func (b *Broker) Publish(resp models.DriverResponse) {
	b.mu.Lock()
	for ch := range b.subs[resp.BookingID] {
		select {
		case ch <- resp:
		default:
		}
	}
	b.mu.Unlock()
}
