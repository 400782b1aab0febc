package scoring

import (
	"math"

	"github.com/example/epickup-dispatch/internal/models"
)

// Performance score weights. Completion history dominates, responsiveness and
// a low cancellation rate split the rest.
const (
	weightCompletion     = 0.40
	weightResponsiveness = 0.30
	weightLowCancel      = 0.30

	// Responses slower than this cap score zero on the responsiveness term.
	responseCapSeconds = 300.0

	// A driver with no trip history gets the midpoint on the completion
	// term only: no track record is neither a penalty nor a boost.
	neutralCompletion = 0.5
)

// PerformanceScore computes a driver's historical performance on a 0..100
// scale from completion rate, responsiveness and cancellation rate.
func PerformanceScore(c models.DriverCandidate) float64 {
	completion := neutralCompletion
	if c.TotalTrips > 0 {
		completion = clamp01(float64(c.CompletedTrips) / float64(c.TotalTrips))
	}
	responsiveness := 1 - math.Min(c.AvgResponseTimeSeconds, responseCapSeconds)/responseCapSeconds
	lowCancel := 1 - clamp01(c.CancellationRate)

	score := weightCompletion*completion + weightResponsiveness*responsiveness + weightLowCancel*lowCancel
	return score * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
