package ranking

import (
	"math"
	"sort"

	"github.com/example/epickup-dispatch/internal/geomath"
	"github.com/example/epickup-dispatch/internal/models"
	"github.com/example/epickup-dispatch/internal/scoring"
)

// Balanced-mode weights over the normalized terms.
const (
	weightDistance    = 0.30
	weightEta         = 0.20
	weightRating      = 0.25
	weightPerformance = 0.25
)

// Metric differences below this are treated as ties.
const tieEpsilon = 1e-9

// Rank orders candidates by descending desirability for the given pickup and
// priority mode. The returned slice is freshly built each call; ordering is
// fully deterministic (final tie-break on driver ID).
func Rank(candidates []models.DriverCandidate, pickup models.Coordinate, priority models.Priority) []models.RankedCandidate {
	ranked := make([]models.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		dist := geomath.HaversineDistanceKm(c.Location, pickup)
		ranked = append(ranked, models.RankedCandidate{
			DriverID:         c.DriverID,
			DistanceKm:       dist,
			EtaMinutes:       geomath.EstimateEtaMinutes(dist, c.VehicleType),
			Rating:           c.Rating,
			PerformanceScore: scoring.PerformanceScore(c),
		})
	}
	fillComposite(ranked)

	sort.Slice(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j], priority)
	})
	return ranked
}

// fillComposite computes the balanced composite on a 0..100 scale. Distance
// and ETA are normalized inversely against the set maximum so that closer and
// faster candidates score higher.
func fillComposite(ranked []models.RankedCandidate) {
	var maxDist, maxEta float64
	for _, r := range ranked {
		maxDist = math.Max(maxDist, r.DistanceKm)
		maxEta = math.Max(maxEta, r.EtaMinutes)
	}
	for i, r := range ranked {
		composite := weightDistance*invNorm(r.DistanceKm, maxDist) +
			weightEta*invNorm(r.EtaMinutes, maxEta) +
			weightRating*(r.Rating/5) +
			weightPerformance*(r.PerformanceScore/100)
		ranked[i].CompositeScore = composite * 100
	}
}

// invNorm maps v in [0,max] to [0,1] with 0 -> 1 and max -> 0.
func invNorm(v, max float64) float64 {
	if max <= 0 {
		return 1
	}
	return 1 - v/max
}

func less(a, b models.RankedCandidate, priority models.Priority) bool {
	switch priority {
	case models.PriorityClosest:
		if d := a.DistanceKm - b.DistanceKm; math.Abs(d) > tieEpsilon {
			return d < 0
		}
	case models.PriorityFastest:
		if d := a.EtaMinutes - b.EtaMinutes; math.Abs(d) > tieEpsilon {
			return d < 0
		}
	case models.PriorityBestRated:
		if d := a.Rating - b.Rating; math.Abs(d) > tieEpsilon {
			return d > 0
		}
		if d := a.PerformanceScore - b.PerformanceScore; math.Abs(d) > tieEpsilon {
			return d > 0
		}
	default: // balanced
		if d := a.CompositeScore - b.CompositeScore; math.Abs(d) > tieEpsilon {
			return d > 0
		}
	}
	// Tie on the primary metric: higher rating wins, then driver ID for a
	// reproducible total order.
	if d := a.Rating - b.Rating; math.Abs(d) > tieEpsilon {
		return d > 0
	}
	return a.DriverID < b.DriverID
}
