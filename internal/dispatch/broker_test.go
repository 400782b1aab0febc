package dispatch

import (
	"testing"
	"time"

	"github.com/example/epickup-dispatch/internal/models"
)

func TestBrokerDeliversToSubscriber(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("booking-1")
	defer unsub()

	b.Publish(models.DriverResponse{BookingID: "booking-1", DriverID: "d1", Accepted: true})
	select {
	case r := <-ch:
		if r.DriverID != "d1" || !r.Accepted {
			t.Fatalf("unexpected response: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("response not delivered")
	}
}

func TestBrokerIsolatesBookings(t *testing.T) {
	b := NewBroker()
	ch1, unsub1 := b.Subscribe("booking-1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("booking-2")
	defer unsub2()

	b.Publish(models.DriverResponse{BookingID: "booking-2", DriverID: "d9"})
	select {
	case r := <-ch2:
		if r.DriverID != "d9" {
			t.Fatalf("unexpected response: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("response not delivered")
	}
	select {
	case r := <-ch1:
		t.Fatalf("cross-booking leak: %+v", r)
	default:
	}
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("booking-1")
	unsub()
	unsub() // second call is a no-op

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(models.DriverResponse{BookingID: "booking-1", DriverID: "d1"})
}

func TestPublishSkipsSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe("booking-1")
	defer unsub()

	// Fill the buffer; further publishes are dropped, not blocked.
	for i := 0; i < 20; i++ {
		b.Publish(models.DriverResponse{BookingID: "booking-1", DriverID: "d1"})
	}
	drained := 0
	for {
		select {
		case <-ch:
			drained++
			continue
		default:
		}
		break
	}
	if drained == 0 || drained > 8 {
		t.Fatalf("expected buffered delivery with drops, drained %d", drained)
	}
}
