package geomath

import (
	"math"

	"github.com/example/epickup-dispatch/internal/models"
)

const earthRadiusKm = 6371.0

// Average city speeds per vehicle type. Two-wheelers cut through congestion
// better than four-wheelers, so they get the higher constant.
const (
	speedTwoWheelerKmph  = 25.0
	speedFourWheelerKmph = 20.0
)

// HaversineDistanceKm returns the great-circle distance between a and b in
// kilometers. Callers are expected to pass coordinates already validated to
// the usual lat/lon ranges.
func HaversineDistanceKm(a, b models.Coordinate) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// EstimateEtaMinutes converts a distance into a travel-time estimate using the
// per-vehicle average speed. Monotonically increasing in distance for a fixed
// vehicle type.
func EstimateEtaMinutes(distanceKm float64, vehicle models.VehicleType) float64 {
	return distanceKm / speedKmph(vehicle) * 60
}

func speedKmph(vehicle models.VehicleType) float64 {
	if vehicle == models.VehicleFourWheeler {
		return speedFourWheelerKmph
	}
	return speedTwoWheelerKmph
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
