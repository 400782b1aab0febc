package scoring

import (
	"math"
	"testing"

	"github.com/example/epickup-dispatch/internal/models"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPerfectDriverScoresFull(t *testing.T) {
	c := models.DriverCandidate{
		TotalTrips:             200,
		CompletedTrips:         200,
		AvgResponseTimeSeconds: 0,
		CancellationRate:       0,
	}
	if s := PerformanceScore(c); !almostEqual(s, 100) {
		t.Fatalf("expected 100, got %f", s)
	}
}

func TestWorstDriverScoresZero(t *testing.T) {
	c := models.DriverCandidate{
		TotalTrips:             100,
		CompletedTrips:         0,
		AvgResponseTimeSeconds: 900, // beyond the cap
		CancellationRate:       1,
	}
	if s := PerformanceScore(c); !almostEqual(s, 0) {
		t.Fatalf("expected 0, got %f", s)
	}
}

func TestZeroTripsGetsNeutralCompletion(t *testing.T) {
	// 0/0 completion is the 0.5 midpoint; the other terms still apply.
	// 0.40*0.5 + 0.30*1 + 0.30*1 = 0.80 -> 80.
	c := models.DriverCandidate{
		TotalTrips:             0,
		CompletedTrips:         0,
		AvgResponseTimeSeconds: 0,
		CancellationRate:       0,
	}
	if s := PerformanceScore(c); !almostEqual(s, 80) {
		t.Fatalf("expected 80, got %f", s)
	}
}

func TestResponseTimeCapped(t *testing.T) {
	at := func(sec float64) float64 {
		return PerformanceScore(models.DriverCandidate{
			TotalTrips: 10, CompletedTrips: 10, AvgResponseTimeSeconds: sec,
		})
	}
	if at(300) != at(1200) {
		t.Fatalf("responsiveness should bottom out at the cap: %f vs %f", at(300), at(1200))
	}
	if at(30) <= at(150) {
		t.Fatalf("faster responder should score higher: %f vs %f", at(30), at(150))
	}
}

func TestPinnedCompositeValue(t *testing.T) {
	// 90% completion, 60s responses, 10% cancellation:
	// 0.40*0.9 + 0.30*(1-60/300) + 0.30*0.9 = 0.36 + 0.24 + 0.27 = 0.87.
	c := models.DriverCandidate{
		TotalTrips:             100,
		CompletedTrips:         90,
		AvgResponseTimeSeconds: 60,
		CancellationRate:       0.1,
	}
	if s := PerformanceScore(c); !almostEqual(s, 87) {
		t.Fatalf("expected 87, got %f", s)
	}
}

func TestScoreStaysInRange(t *testing.T) {
	cases := []models.DriverCandidate{
		{},
		{TotalTrips: 1, CompletedTrips: 1},
		{TotalTrips: 5, CompletedTrips: 2, AvgResponseTimeSeconds: 45, CancellationRate: 0.4},
		{CancellationRate: 2},  // out-of-range input is clamped
		{CancellationRate: -1}, // likewise
	}
	for i, c := range cases {
		s := PerformanceScore(c)
		if s < 0 || s > 100 {
			t.Fatalf("case %d: score out of range: %f", i, s)
		}
	}
}
