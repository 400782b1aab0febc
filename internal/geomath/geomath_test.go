package geomath

import (
	"math"
	"testing"

	"github.com/example/epickup-dispatch/internal/models"
)

var (
	bangalore = models.Coordinate{Latitude: 12.9716, Longitude: 77.5946}
	mysore    = models.Coordinate{Latitude: 12.2958, Longitude: 76.6394}
	chennai   = models.Coordinate{Latitude: 13.0827, Longitude: 80.2707}
)

func TestHaversineZero(t *testing.T) {
	if d := HaversineDistanceKm(bangalore, bangalore); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bangalore to Mysore is roughly 127 km as the crow flies.
	d := HaversineDistanceKm(bangalore, mysore)
	if d < 120 || d > 135 {
		t.Fatalf("bangalore-mysore distance out of range: %f", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][2]models.Coordinate{
		{bangalore, mysore},
		{bangalore, chennai},
		{{Latitude: -33.8688, Longitude: 151.2093}, {Latitude: 51.5074, Longitude: -0.1278}},
	}
	for _, p := range pairs {
		ab := HaversineDistanceKm(p[0], p[1])
		ba := HaversineDistanceKm(p[1], p[0])
		if ab != ba {
			t.Fatalf("asymmetric distance: %f vs %f", ab, ba)
		}
	}
}

func TestHaversineTriangleInequality(t *testing.T) {
	ac := HaversineDistanceKm(bangalore, chennai)
	ab := HaversineDistanceKm(bangalore, mysore)
	bc := HaversineDistanceKm(mysore, chennai)
	if ac > ab+bc+1e-9 {
		t.Fatalf("triangle inequality violated: %f > %f + %f", ac, ab, bc)
	}
}

func TestEtaMonotonicInDistance(t *testing.T) {
	for _, vt := range []models.VehicleType{models.VehicleTwoWheeler, models.VehicleFourWheeler} {
		prev := 0.0
		for _, km := range []float64{0.5, 1, 2.5, 5, 10, 25} {
			eta := EstimateEtaMinutes(km, vt)
			if eta < prev {
				t.Fatalf("%s: eta decreased at %f km: %f < %f", vt, km, eta, prev)
			}
			prev = eta
		}
	}
}

func TestEtaSpeedConstants(t *testing.T) {
	// Pin the policy constants: 25 km/h for two-wheelers, 20 km/h for
	// four-wheelers. 10 km therefore takes 24 and 30 minutes respectively.
	if eta := EstimateEtaMinutes(10, models.VehicleTwoWheeler); math.Abs(eta-24) > 1e-9 {
		t.Fatalf("two_wheeler eta for 10km = %f, want 24", eta)
	}
	if eta := EstimateEtaMinutes(10, models.VehicleFourWheeler); math.Abs(eta-30) > 1e-9 {
		t.Fatalf("four_wheeler eta for 10km = %f, want 30", eta)
	}
}
