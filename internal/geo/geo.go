package geo

import (
	"context"
	"sync"
	"time"

	"github.com/example/epickup-dispatch/internal/geomath"
	"github.com/example/epickup-dispatch/internal/models"
)

// Store is the driver-location store surface used by handlers and the
// ingest consumer: candidate lookup plus location upserts.
type Store interface {
	FindAvailable(ctx context.Context, pickup models.Coordinate, radiusKm float64, vehicle models.VehicleType) ([]models.DriverCandidate, error)
	Upsert(ctx context.Context, d models.DriverUpdate) error
}

// Index is an in-memory Store for local runs and tests.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverUpdate
}

func NewIndex() *Index {
	return &Index{drivers: make(map[string]models.DriverUpdate)}
}

func (g *Index) Upsert(ctx context.Context, d models.DriverUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	d.LocationTimestamp = time.Now()
	g.drivers[d.DriverID] = d
	return nil
}

// naive scan; the Redis GEO store is the production path
func (g *Index) FindAvailable(ctx context.Context, pickup models.Coordinate, radiusKm float64, vehicle models.VehicleType) ([]models.DriverCandidate, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.DriverCandidate, 0, len(g.drivers))
	for _, d := range g.drivers {
		if !d.Available {
			continue
		}
		if vehicle != "" && d.VehicleType != vehicle {
			continue
		}
		if geomath.HaversineDistanceKm(d.Location, pickup) > radiusKm {
			continue
		}
		out = append(out, d.DriverCandidate)
	}
	return out, nil
}
