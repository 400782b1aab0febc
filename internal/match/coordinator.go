package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/epickup-dispatch/internal/models"
	"github.com/example/epickup-dispatch/internal/observability"
	"github.com/example/epickup-dispatch/internal/ranking"
)

// Config carries the matching tunables.
type Config struct {
	InitialRadiusKm float64
	MaxRadiusKm     float64
	ProposalTimeout time.Duration
	MaxCandidates   int
}

// DefaultConfig returns the production defaults: 5 km search widened once to
// 15 km, 120 s per proposal, at most 8 drivers tried per booking.
func DefaultConfig() Config {
	return Config{
		InitialRadiusKm: 5,
		MaxRadiusKm:     15,
		ProposalTimeout: 120 * time.Second,
		MaxCandidates:   8,
	}
}

// Packages above this weight need a four-wheeler when the booking does not
// name a vehicle type itself.
const heavyPackageKg = 8.0

// Coordinator runs match attempts. One booking has at most one in-flight
// attempt and at most one non-terminal proposal at any time; different
// bookings match concurrently with no shared state beyond the store.
type Coordinator struct {
	provider  CandidateProvider
	sink      NotificationSink
	responses ResponseStream
	store     AssignmentStore
	cfg       Config
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]*attemptState
	busy     map[string]string // driverID -> bookingID holding the driver
}

type attemptState struct {
	cancelled chan struct{}
	once      sync.Once
}

func (s *attemptState) cancel() { s.once.Do(func() { close(s.cancelled) }) }

func NewCoordinator(provider CandidateProvider, sink NotificationSink, responses ResponseStream, store AssignmentStore, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.InitialRadiusKm <= 0 {
		cfg.InitialRadiusKm = DefaultConfig().InitialRadiusKm
	}
	if cfg.MaxRadiusKm < cfg.InitialRadiusKm {
		cfg.MaxRadiusKm = cfg.InitialRadiusKm
	}
	if cfg.ProposalTimeout <= 0 {
		cfg.ProposalTimeout = DefaultConfig().ProposalTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		provider:  provider,
		sink:      sink,
		responses: responses,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		inflight:  make(map[string]*attemptState),
		busy:      make(map[string]string),
	}
}

// Match runs one full match attempt for the booking and blocks until a
// terminal state. A second call for a booking still in flight returns
// ErrMatchInProgress.
func (c *Coordinator) Match(ctx context.Context, booking models.BookingRequest) (Result, error) {
	if err := validateBooking(booking); err != nil {
		return Result{}, err
	}
	if booking.Priority == "" {
		booking.Priority = models.PriorityBalanced
	}

	st, err := c.begin(booking.ID)
	if err != nil {
		return Result{}, err
	}
	defer c.end(booking.ID)

	start := time.Now()
	res, err := c.run(ctx, st, booking)
	observability.MatchLatency.Observe(time.Since(start).Seconds())
	observability.MatchesTotal.WithLabelValues(outcomeLabel(res, err)).Inc()
	return res, err
}

// Cancel aborts the in-flight match for the booking, if any. The current
// proposal terminates immediately and no further proposals are sent.
func (c *Coordinator) Cancel(bookingID string) bool {
	c.mu.Lock()
	st := c.inflight[bookingID]
	c.mu.Unlock()
	if st == nil {
		return false
	}
	st.cancel()
	return true
}

// Release frees a driver held by an accepted assignment, making them
// eligible for matching again. Called when the delivery completes.
func (c *Coordinator) Release(driverID string) {
	c.mu.Lock()
	delete(c.busy, driverID)
	c.mu.Unlock()
}

func (c *Coordinator) run(ctx context.Context, st *attemptState, booking models.BookingRequest) (Result, error) {
	vehicle := effectiveVehicle(booking)

	candidates, err := c.search(ctx, booking, vehicle)
	if err != nil {
		return Result{}, err
	}

	ranked := ranking.Rank(candidates, booking.Pickup, booking.Priority)
	if c.cfg.MaxCandidates > 0 && len(ranked) > c.cfg.MaxCandidates {
		ranked = ranked[:c.cfg.MaxCandidates]
	}
	byID := make(map[string]models.DriverCandidate, len(candidates))
	for _, cand := range candidates {
		byID[cand.DriverID] = cand
	}

	respCh, unsubscribe := c.responses.Subscribe(booking.ID)
	defer unsubscribe()

	attempts := make([]models.AssignmentAttempt, 0, len(ranked))
	for i, rc := range ranked {
		if interrupted(st, ctx) {
			return Result{}, &Failure{Reason: ReasonCancelled, Attempted: ranked[:i], Attempts: attempts}
		}

		attempt, outcome := c.propose(ctx, st, booking, rc, respCh)
		attempts = append(attempts, attempt)
		c.logger.Info("assignment attempt finished",
			"booking_id", booking.ID, "driver_id", rc.DriverID, "outcome", attempt.Outcome)

		switch outcome {
		case proposalAccepted:
			meta := models.AssignmentMetadata{
				Pickup:     booking.Pickup,
				Dropoff:    booking.Dropoff,
				Vehicle:    byID[rc.DriverID].VehicleType,
				DistanceKm: rc.DistanceKm,
				EtaMinutes: rc.EtaMinutes,
			}
			won, err := c.store.CreateIfAbsent(ctx, booking.ID, rc.DriverID, meta)
			if err != nil {
				c.logger.Error("assignment write failed",
					"booking_id", booking.ID, "driver_id", rc.DriverID, "error", err)
				c.release(rc.DriverID)
				continue
			}
			if !won {
				// Another path already assigned this booking. Resolved,
				// just not by us; back off without retrying.
				c.release(rc.DriverID)
				return Result{
					BookingID:         booking.ID,
					AssignedElsewhere: true,
					Alternatives:      alternatives(ranked, rc.DriverID),
					Attempts:          attempts,
				}, nil
			}
			return Result{
				BookingID:    booking.ID,
				DriverID:     rc.DriverID,
				DistanceKm:   rc.DistanceKm,
				EtaMinutes:   rc.EtaMinutes,
				Alternatives: alternatives(ranked, rc.DriverID),
				Attempts:     attempts,
			}, nil
		case proposalCancelled:
			// The driver never accepted anything; free them for other
			// bookings before bailing out.
			c.release(rc.DriverID)
			return Result{}, &Failure{Reason: ReasonCancelled, Attempted: ranked[:i+1], Attempts: attempts}
		default: // rejected, expired, or dispatch failed: next candidate
			c.release(rc.DriverID)
		}
	}
	return Result{}, &Failure{Reason: ReasonAllCandidatesExhausted, Attempted: ranked, Attempts: attempts}
}

// search queries the provider at the initial radius and widens once to the
// max radius before giving up. A provider error here is fatal to the attempt.
func (c *Coordinator) search(ctx context.Context, booking models.BookingRequest, vehicle models.VehicleType) ([]models.DriverCandidate, error) {
	radius := c.cfg.InitialRadiusKm
	for {
		found, err := c.provider.FindAvailable(ctx, booking.Pickup, radius, vehicle)
		if err != nil {
			return nil, &Failure{Reason: ReasonNoDriversFound, Cause: fmt.Errorf("candidate lookup: %w", err)}
		}
		eligible := c.filter(found, vehicle)
		if len(eligible) > 0 {
			return eligible, nil
		}
		if radius >= c.cfg.MaxRadiusKm {
			return nil, &Failure{Reason: ReasonNoDriversFound}
		}
		c.logger.Info("widening search radius",
			"booking_id", booking.ID, "from_km", radius, "to_km", c.cfg.MaxRadiusKm)
		radius = c.cfg.MaxRadiusKm
	}
}

// filter enforces vehicle compatibility and drops drivers already holding an
// active assignment. Availability and location freshness belong to the
// provider.
func (c *Coordinator) filter(found []models.DriverCandidate, vehicle models.VehicleType) []models.DriverCandidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.DriverCandidate, 0, len(found))
	for _, cand := range found {
		if vehicle != "" && cand.VehicleType != vehicle {
			continue
		}
		if _, taken := c.busy[cand.DriverID]; taken {
			continue
		}
		out = append(out, cand)
	}
	return out
}

type proposalOutcome int

const (
	proposalAccepted proposalOutcome = iota
	proposalRejected
	proposalExpired
	proposalFailed
	proposalCancelled
)

// propose sends one assignment proposal and blocks until the driver answers,
// the timeout fires, or the attempt is cancelled. The timer guarantees a
// terminal outcome even if the response channel never delivers.
func (c *Coordinator) propose(ctx context.Context, st *attemptState, booking models.BookingRequest, rc models.RankedCandidate, respCh <-chan models.DriverResponse) (models.AssignmentAttempt, proposalOutcome) {
	now := time.Now()
	attempt := models.AssignmentAttempt{
		BookingID:  booking.ID,
		DriverID:   rc.DriverID,
		ProposedAt: now,
		ExpiresAt:  now.Add(c.cfg.ProposalTimeout),
		Outcome:    models.AttemptProposed,
	}
	c.markBusy(rc.DriverID, booking.ID)
	observability.ProposalsTotal.Inc()

	if err := c.sink.ProposeAssignment(ctx, booking.ID, rc.DriverID, attempt.ExpiresAt); err != nil {
		c.logger.Warn("proposal dispatch failed",
			"booking_id", booking.ID, "driver_id", rc.DriverID, "error", err)
		// The proposal never reached the driver; this is not a timeout.
		attempt.Outcome = models.AttemptRejected
		attempt.Reason = models.AttemptReasonDispatchFailed
		return attempt, proposalFailed
	}

	timer := time.NewTimer(c.cfg.ProposalTimeout)
	defer timer.Stop()
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				attempt.Outcome = models.AttemptExpired
				return attempt, proposalExpired
			}
			if resp.DriverID != rc.DriverID {
				// Late answer from an earlier candidate; ignore.
				continue
			}
			attempt.RespondedAt = time.Now()
			if resp.Accepted {
				attempt.Outcome = models.AttemptAccepted
				return attempt, proposalAccepted
			}
			attempt.Outcome = models.AttemptRejected
			return attempt, proposalRejected
		case <-timer.C:
			attempt.Outcome = models.AttemptExpired
			return attempt, proposalExpired
		case <-st.cancelled:
			attempt.Outcome = models.AttemptRejected
			attempt.Reason = models.AttemptReasonBookingCancelled
			return attempt, proposalCancelled
		case <-ctx.Done():
			attempt.Outcome = models.AttemptRejected
			attempt.Reason = models.AttemptReasonBookingCancelled
			return attempt, proposalCancelled
		}
	}
}

func (c *Coordinator) begin(bookingID string) (*attemptState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[bookingID]; ok {
		return nil, fmt.Errorf("%w: booking %s", ErrMatchInProgress, bookingID)
	}
	st := &attemptState{cancelled: make(chan struct{})}
	c.inflight[bookingID] = st
	return st, nil
}

func (c *Coordinator) end(bookingID string) {
	c.mu.Lock()
	delete(c.inflight, bookingID)
	c.mu.Unlock()
}

func (c *Coordinator) markBusy(driverID, bookingID string) {
	c.mu.Lock()
	c.busy[driverID] = bookingID
	c.mu.Unlock()
}

func (c *Coordinator) release(driverID string) {
	c.mu.Lock()
	delete(c.busy, driverID)
	c.mu.Unlock()
}

func interrupted(st *attemptState, ctx context.Context) bool {
	select {
	case <-st.cancelled:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func effectiveVehicle(b models.BookingRequest) models.VehicleType {
	if b.VehicleType != "" {
		return b.VehicleType
	}
	if b.PackageWeightKg > heavyPackageKg {
		return models.VehicleFourWheeler
	}
	return ""
}

func alternatives(ranked []models.RankedCandidate, winnerID string) []models.RankedCandidate {
	out := make([]models.RankedCandidate, 0, len(ranked)-1)
	for _, rc := range ranked {
		if rc.DriverID != winnerID {
			out = append(out, rc)
		}
	}
	return out
}

func outcomeLabel(res Result, err error) string {
	if err == nil {
		if res.AssignedElsewhere {
			return "assigned_elsewhere"
		}
		return "accepted"
	}
	var f *Failure
	if errors.As(err, &f) {
		return string(f.Reason)
	}
	return "error"
}
