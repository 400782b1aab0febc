package storage

import (
	"context"
	"sync"
	"time"

	"github.com/example/epickup-dispatch/internal/models"
)

// Assignment is the persisted record of a won match.
type Assignment struct {
	BookingID string
	DriverID  string
	Meta      models.AssignmentMetadata
	CreatedAt time.Time
}

// MemoryAssignments is an in-process assignment store for local runs and
// tests. The mutex gives the same at-most-once guarantee the conditional
// insert gives in Postgres.
type MemoryAssignments struct {
	mu      sync.Mutex
	records map[string]Assignment
}

func NewMemoryAssignments() *MemoryAssignments {
	return &MemoryAssignments{records: make(map[string]Assignment)}
}

func (m *MemoryAssignments) CreateIfAbsent(ctx context.Context, bookingID, driverID string, meta models.AssignmentMetadata) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[bookingID]; ok {
		return false, nil
	}
	m.records[bookingID] = Assignment{
		BookingID: bookingID,
		DriverID:  driverID,
		Meta:      meta,
		CreatedAt: time.Now(),
	}
	return true, nil
}

func (m *MemoryAssignments) Get(bookingID string) (Assignment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.records[bookingID]
	return a, ok
}
