package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNoSession is returned when a proposal targets a driver with no live
// websocket connection.
var ErrNoSession = errors.New("no websocket session for driver")

// ProposalFrame is the JSON payload pushed to a driver's websocket when they
// are proposed an assignment.
type ProposalFrame struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	DriverID  string    `json:"driver_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WSSession is one connected driver. Writes are serialized per connection.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(frame ProposalFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(frame)
}

// WSRegistry holds driver websocket sessions and implements the notification
// sink over them.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(driverID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[driverID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, driverID)
}

// ProposeAssignment pushes the proposal frame to the driver's session.
func (r *WSRegistry) ProposeAssignment(ctx context.Context, bookingID, driverID string, expiresAt time.Time) error {
	r.mu.RLock()
	s, ok := r.sessions[driverID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.send(ProposalFrame{
		Type:      "assignment_proposal",
		BookingID: bookingID,
		DriverID:  driverID,
		ExpiresAt: expiresAt,
	})
}
