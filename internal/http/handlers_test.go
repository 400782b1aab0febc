package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/epickup-dispatch/internal/dispatch"
	"github.com/example/epickup-dispatch/internal/geo"
	"github.com/example/epickup-dispatch/internal/match"
	"github.com/example/epickup-dispatch/internal/models"
	"github.com/example/epickup-dispatch/internal/storage"
)

// autoAcceptSink answers every proposal with an immediate acceptance.
type autoAcceptSink struct{ broker *dispatch.Broker }

func (s *autoAcceptSink) ProposeAssignment(ctx context.Context, bookingID, driverID string, expiresAt time.Time) error {
	s.broker.Publish(models.DriverResponse{BookingID: bookingID, DriverID: driverID, Accepted: true})
	return nil
}

func newTestServer(t *testing.T) (*Server, *geo.Index) {
	t.Helper()
	idx := geo.NewIndex()
	broker := dispatch.NewBroker()
	coordinator := match.NewCoordinator(idx, &autoAcceptSink{broker: broker}, broker, storage.NewMemoryAssignments(),
		match.Config{InitialRadiusKm: 5, MaxRadiusKm: 15, ProposalTimeout: time.Second, MaxCandidates: 8}, nil)
	s := NewServer(Options{
		Coordinator: coordinator,
		Geo:         idx,
		WSReg:       dispatch.NewWSRegistry(),
		Broker:      broker,
	})
	return s, idx
}

func seedDriver(t *testing.T, idx *geo.Index, id string, lat, lon float64) {
	t.Helper()
	err := idx.Upsert(context.Background(), models.DriverUpdate{
		DriverCandidate: models.DriverCandidate{
			DriverID:    id,
			Location:    models.Coordinate{Latitude: lat, Longitude: lon},
			VehicleType: models.VehicleTwoWheeler,
			Rating:      4.6,
		},
		Available: true,
	})
	if err != nil {
		t.Fatalf("seed driver: %v", err)
	}
}

func TestMatchEndpointReturnsDriver(t *testing.T) {
	s, idx := newTestServer(t)
	seedDriver(t, idx, "d1", 12.9720, 77.5946)

	body, _ := json.Marshal(models.BookingRequest{
		ID:      "b1",
		Pickup:  models.Coordinate{Latitude: 12.9716, Longitude: 77.5946},
		Dropoff: models.Coordinate{Latitude: 12.90, Longitude: 77.60},
	})
	req := httptest.NewRequest("POST", "/api/v1/bookings/match", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Result match.Result `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.DriverID != "d1" {
		t.Fatalf("expected d1, got %+v", resp.Result)
	}
}

func TestMatchEndpointNoDrivers(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(models.BookingRequest{
		ID:      "b1",
		Pickup:  models.Coordinate{Latitude: 12.9716, Longitude: 77.5946},
		Dropoff: models.Coordinate{Latitude: 12.90, Longitude: 77.60},
	})
	req := httptest.NewRequest("POST", "/api/v1/bookings/match", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["reason"] != "no_drivers_found" {
		t.Fatalf("unexpected failure payload: %v", resp)
	}
}

func TestMatchEndpointRejectsBadCoordinates(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(models.BookingRequest{
		ID:      "b1",
		Pickup:  models.Coordinate{Latitude: 99, Longitude: 0},
		Dropoff: models.Coordinate{Latitude: 12.90, Longitude: 77.60},
	})
	req := httptest.NewRequest("POST", "/api/v1/bookings/match", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCancelWithoutInflightMatch(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/bookings/unknown/cancel", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDriverLocationIngest(t *testing.T) {
	s, idx := newTestServer(t)
	body, _ := json.Marshal(models.DriverUpdate{
		DriverCandidate: models.DriverCandidate{
			DriverID:    "d9",
			Location:    models.Coordinate{Latitude: 12.97, Longitude: 77.59},
			VehicleType: models.VehicleTwoWheeler,
		},
	})
	req := httptest.NewRequest("POST", "/internal/driver/locations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != 204 {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	got, err := idx.FindAvailable(context.Background(), models.Coordinate{Latitude: 12.97, Longitude: 77.59}, 5, "")
	if err != nil || len(got) != 1 || got[0].DriverID != "d9" {
		t.Fatalf("driver not stored: %v %v", got, err)
	}
}
