// Package match orchestrates driver matching for a booking: candidate
// search with radius widening, ranking, and strictly sequential assignment
// proposals until a driver accepts or the pool is exhausted.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/epickup-dispatch/internal/models"
)

// CandidateProvider supplies available drivers around a pickup point.
// Freshness and online-status filtering are the provider's concern.
type CandidateProvider interface {
	FindAvailable(ctx context.Context, pickup models.Coordinate, radiusKm float64, vehicle models.VehicleType) ([]models.DriverCandidate, error)
}

// NotificationSink delivers an assignment proposal to a driver. Fire and
// forget; the answer arrives through a ResponseStream.
type NotificationSink interface {
	ProposeAssignment(ctx context.Context, bookingID, driverID string, expiresAt time.Time) error
}

// ResponseStream is an async source of driver responses for one booking.
// Subscribe returns a receive channel and an unsubscribe func.
type ResponseStream interface {
	Subscribe(bookingID string) (<-chan models.DriverResponse, func())
}

// AssignmentStore persists the winning assignment through an atomic
// conditional write keyed by booking ID. CreateIfAbsent returns true only
// for the call that won the record.
type AssignmentStore interface {
	CreateIfAbsent(ctx context.Context, bookingID, driverID string, meta models.AssignmentMetadata) (bool, error)
}

// FailureReason classifies terminal match failures surfaced to the caller.
type FailureReason string

const (
	ReasonNoDriversFound         FailureReason = "no_drivers_found"
	ReasonAllCandidatesExhausted FailureReason = "all_candidates_exhausted"
	ReasonCancelled              FailureReason = "cancelled"
)

var (
	// ErrInvalidBooking rejects malformed requests before any search starts.
	ErrInvalidBooking = errors.New("invalid booking request")
	// ErrMatchInProgress refuses a second concurrent match for a booking.
	ErrMatchInProgress = errors.New("match already in progress")
)

// Failure is the structured error for a terminal unsuccessful match. It
// carries the candidates that were tried so the caller can log or retry.
type Failure struct {
	Reason    FailureReason
	Attempted []models.RankedCandidate
	Attempts  []models.AssignmentAttempt
	Cause     error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("match failed: %s: %v", f.Reason, f.Cause)
	}
	return "match failed: " + string(f.Reason)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Result is the terminal outcome of a successful match attempt. When
// AssignedElsewhere is set the booking was assigned by a concurrent path and
// DriverID is empty.
type Result struct {
	BookingID         string                     `json:"booking_id"`
	DriverID          string                     `json:"driver_id,omitempty"`
	DistanceKm        float64                    `json:"distance_km,omitempty"`
	EtaMinutes        float64                    `json:"eta_minutes,omitempty"`
	AssignedElsewhere bool                       `json:"assigned_elsewhere,omitempty"`
	Alternatives      []models.RankedCandidate   `json:"alternatives,omitempty"`
	Attempts          []models.AssignmentAttempt `json:"attempts,omitempty"`
}

func validateBooking(b models.BookingRequest) error {
	if b.ID == "" {
		return fmt.Errorf("%w: missing booking id", ErrInvalidBooking)
	}
	if !b.Pickup.Valid() {
		return fmt.Errorf("%w: pickup out of range", ErrInvalidBooking)
	}
	if !b.Dropoff.Valid() {
		return fmt.Errorf("%w: dropoff out of range", ErrInvalidBooking)
	}
	if b.PackageWeightKg < 0 {
		return fmt.Errorf("%w: negative package weight", ErrInvalidBooking)
	}
	if b.VehicleType != "" && !b.VehicleType.Valid() {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidBooking, b.VehicleType)
	}
	if b.Priority != "" && !b.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidBooking, b.Priority)
	}
	return nil
}
