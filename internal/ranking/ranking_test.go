package ranking

import (
	"reflect"
	"testing"

	"github.com/example/epickup-dispatch/internal/models"
)

var pickup = models.Coordinate{Latitude: 12.9716, Longitude: 77.5946}

// candidateAtKm builds a candidate roughly km kilometers due north of pickup.
// One degree of latitude is ~111.2 km.
func candidateAtKm(id string, km, rating float64) models.DriverCandidate {
	return models.DriverCandidate{
		DriverID:       id,
		Location:       models.Coordinate{Latitude: pickup.Latitude + km/111.2, Longitude: pickup.Longitude},
		VehicleType:    models.VehicleTwoWheeler,
		Rating:         rating,
		TotalTrips:     100,
		CompletedTrips: 95,
	}
}

func ids(ranked []models.RankedCandidate) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.DriverID)
	}
	return out
}

func TestClosestIgnoresRating(t *testing.T) {
	cands := []models.DriverCandidate{
		candidateAtKm("far", 3, 5.0),
		candidateAtKm("near", 1, 1.0),
		candidateAtKm("mid", 2, 4.9),
	}
	got := ids(Rank(cands, pickup, models.PriorityClosest))
	want := []string{"near", "mid", "far"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("closest order = %v, want %v", got, want)
	}
}

func TestFastestPrefersQuickerVehicle(t *testing.T) {
	slow := candidateAtKm("slow", 2, 4.0)
	slow.VehicleType = models.VehicleFourWheeler // 2km @ 20km/h = 6min
	fast := candidateAtKm("fast", 2.2, 4.0)      // 2.2km @ 25km/h = 5.28min
	got := ids(Rank([]models.DriverCandidate{slow, fast}, pickup, models.PriorityFastest))
	if got[0] != "fast" {
		t.Fatalf("fastest order = %v, want fast first", got)
	}
}

func TestBestRatedThenPerformance(t *testing.T) {
	a := candidateAtKm("a", 1, 4.5)
	b := candidateAtKm("b", 5, 4.9)
	c := candidateAtKm("c", 5, 4.9)
	c.CompletedTrips = 60 // worse completion than b
	got := ids(Rank([]models.DriverCandidate{a, b, c}, pickup, models.PriorityBestRated))
	want := []string{"b", "c", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("best_rated order = %v, want %v", got, want)
	}
}

func TestBalancedFavorsCloseWellRated(t *testing.T) {
	good := candidateAtKm("good", 1, 4.8)
	farPoor := candidateAtKm("far-poor", 6, 2.0)
	farPoor.CancellationRate = 0.5
	got := ids(Rank([]models.DriverCandidate{farPoor, good}, pickup, models.PriorityBalanced))
	if got[0] != "good" {
		t.Fatalf("balanced order = %v, want good first", got)
	}
}

func TestRankingDeterministic(t *testing.T) {
	cands := []models.DriverCandidate{
		candidateAtKm("d3", 2.0, 4.1),
		candidateAtKm("d1", 1.5, 4.7),
		candidateAtKm("d2", 1.5, 4.7),
		candidateAtKm("d4", 3.2, 3.9),
	}
	for _, p := range []models.Priority{models.PriorityClosest, models.PriorityFastest, models.PriorityBestRated, models.PriorityBalanced} {
		first := ids(Rank(cands, pickup, p))
		second := ids(Rank(cands, pickup, p))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s: nondeterministic ranking: %v vs %v", p, first, second)
		}
	}
}

func TestTieBrokenByRatingThenID(t *testing.T) {
	// Same location, so distance/ETA tie exactly; higher rating first.
	hi := candidateAtKm("zz-high", 1, 4.9)
	lo := candidateAtKm("aa-low", 1, 3.0)
	got := ids(Rank([]models.DriverCandidate{lo, hi}, pickup, models.PriorityClosest))
	if got[0] != "zz-high" {
		t.Fatalf("rating tie-break failed: %v", got)
	}

	// Identical everything: driver ID ascending.
	a := candidateAtKm("d-a", 1, 4.0)
	b := candidateAtKm("d-b", 1, 4.0)
	got = ids(Rank([]models.DriverCandidate{b, a}, pickup, models.PriorityBalanced))
	if !reflect.DeepEqual(got, []string{"d-a", "d-b"}) {
		t.Fatalf("id tie-break failed: %v", got)
	}
}

func TestEmptyAndSingle(t *testing.T) {
	if got := Rank(nil, pickup, models.PriorityBalanced); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %v", got)
	}
	only := candidateAtKm("only", 0, 4.0)
	got := Rank([]models.DriverCandidate{only}, pickup, models.PriorityBalanced)
	if len(got) != 1 || got[0].DriverID != "only" {
		t.Fatalf("single-candidate ranking wrong: %v", got)
	}
	// Zero max distance must not divide by zero.
	if got[0].CompositeScore <= 0 {
		t.Fatalf("composite should be positive, got %f", got[0].CompositeScore)
	}
}
