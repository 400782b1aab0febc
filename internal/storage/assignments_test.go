package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/example/epickup-dispatch/internal/models"
)

func TestCreateIfAbsentWinsOnlyOnce(t *testing.T) {
	s := NewMemoryAssignments()
	ctx := context.Background()

	won, err := s.CreateIfAbsent(ctx, "b1", "d1", models.AssignmentMetadata{})
	if err != nil || !won {
		t.Fatalf("first write should win: won=%v err=%v", won, err)
	}
	won, err = s.CreateIfAbsent(ctx, "b1", "d2", models.AssignmentMetadata{})
	if err != nil || won {
		t.Fatalf("second write must lose: won=%v err=%v", won, err)
	}
	if a, ok := s.Get("b1"); !ok || a.DriverID != "d1" {
		t.Fatalf("winner overwritten: %+v", a)
	}
}

func TestCreateIfAbsentConcurrentSingleWinner(t *testing.T) {
	s := NewMemoryAssignments()
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan string, 16)
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8"} {
		wg.Add(1)
		go func(driverID string) {
			defer wg.Done()
			if won, _ := s.CreateIfAbsent(ctx, "b1", driverID, models.AssignmentMetadata{}); won {
				wins <- driverID
			}
		}(id)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %v", winners)
	}
	if a, _ := s.Get("b1"); a.DriverID != winners[0] {
		t.Fatalf("stored driver %s does not match winner %s", a.DriverID, winners[0])
	}
}
