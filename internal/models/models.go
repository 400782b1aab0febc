package models

import "time"

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies in the usual lat/lon ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

type VehicleType string

const (
	VehicleTwoWheeler  VehicleType = "two_wheeler"
	VehicleFourWheeler VehicleType = "four_wheeler"
)

func (v VehicleType) Valid() bool {
	return v == VehicleTwoWheeler || v == VehicleFourWheeler
}

// Priority selects how candidates are ordered for a booking.
type Priority string

const (
	PriorityFastest   Priority = "fastest"
	PriorityBestRated Priority = "best_rated"
	PriorityClosest   Priority = "closest"
	PriorityBalanced  Priority = "balanced"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityFastest, PriorityBestRated, PriorityClosest, PriorityBalanced:
		return true
	}
	return false
}

// DriverCandidate is a driver eligible for matching at the moment of a match
// attempt. Built fresh from the location store per attempt, never mutated.
type DriverCandidate struct {
	DriverID               string      `json:"driver_id"`
	Location               Coordinate  `json:"location"`
	LocationTimestamp      time.Time   `json:"location_timestamp"`
	VehicleType            VehicleType `json:"vehicle_type"`
	Rating                 float64     `json:"rating"` // 0..5
	TotalTrips             int         `json:"total_trips"`
	CompletedTrips         int         `json:"completed_trips"`
	AvgResponseTimeSeconds float64     `json:"avg_response_time_seconds"`
	CancellationRate       float64     `json:"cancellation_rate"` // 0..1
}

// DriverUpdate is the location-ingest payload: a candidate snapshot plus the
// driver's availability flag.
type DriverUpdate struct {
	DriverCandidate
	Available bool `json:"available"`
}

// BookingRequest is the immutable input to one match attempt.
type BookingRequest struct {
	ID              string      `json:"id"`
	Pickup          Coordinate  `json:"pickup"`
	Dropoff         Coordinate  `json:"dropoff"`
	PackageWeightKg float64     `json:"package_weight_kg"`
	VehicleType     VehicleType `json:"vehicle_type,omitempty"` // empty = any
	Priority        Priority    `json:"priority,omitempty"`     // empty = balanced
}

// RankedCandidate is one row of a ranking pass. Ephemeral, never persisted.
type RankedCandidate struct {
	DriverID         string  `json:"driver_id"`
	DistanceKm       float64 `json:"distance_km"`
	EtaMinutes       float64 `json:"eta_minutes"`
	Rating           float64 `json:"rating"`
	PerformanceScore float64 `json:"performance_score"`
	CompositeScore   float64 `json:"composite_score"`
}

type AttemptOutcome string

const (
	AttemptProposed AttemptOutcome = "proposed"
	AttemptAccepted AttemptOutcome = "accepted"
	AttemptRejected AttemptOutcome = "rejected"
	AttemptExpired  AttemptOutcome = "expired"
)

// Reasons qualifying a rejected attempt that was not a driver decline.
const (
	AttemptReasonBookingCancelled = "booking_cancelled"
	AttemptReasonDispatchFailed   = "dispatch_failed"
)

// AssignmentAttempt is one proposal of a booking to one driver.
// proposed -> accepted | rejected | expired; terminal outcomes are final.
type AssignmentAttempt struct {
	BookingID   string         `json:"booking_id"`
	DriverID    string         `json:"driver_id"`
	ProposedAt  time.Time      `json:"proposed_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	RespondedAt time.Time      `json:"responded_at,omitempty"` // zero when no response arrived
	Outcome     AttemptOutcome `json:"outcome"`
	Reason      string         `json:"reason,omitempty"` // set when the rejection was not the driver's
}

// DriverResponse is a driver's answer to a proposal, delivered asynchronously.
type DriverResponse struct {
	BookingID string `json:"booking_id"`
	DriverID  string `json:"driver_id"`
	Accepted  bool   `json:"accepted"`
}

// AssignmentMetadata is written alongside the winning assignment record.
type AssignmentMetadata struct {
	Pickup     Coordinate  `json:"pickup"`
	Dropoff    Coordinate  `json:"dropoff"`
	Vehicle    VehicleType `json:"vehicle"`
	DistanceKm float64     `json:"distance_km"`
	EtaMinutes float64     `json:"eta_minutes"`
}
