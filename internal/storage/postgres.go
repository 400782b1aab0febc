package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/epickup-dispatch/internal/models"
)

// PostgresAssignments persists assignments with a conditional insert keyed on
// booking_id. The ON CONFLICT DO NOTHING clause is the atomic
// create-if-absent primitive: exactly one caller per booking sees true.
type PostgresAssignments struct {
	db *sql.DB
}

func NewPostgresAssignments(dsn string) (*PostgresAssignments, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresAssignments{db: db}, nil
}

func (p *PostgresAssignments) CreateIfAbsent(ctx context.Context, bookingID, driverID string, meta models.AssignmentMetadata) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO assignments(
			booking_id, driver_id,
			pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
			vehicle_type, distance_km, eta_minutes, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (booking_id) DO NOTHING`,
		bookingID, driverID,
		meta.Pickup.Latitude, meta.Pickup.Longitude,
		meta.Dropoff.Latitude, meta.Dropoff.Longitude,
		string(meta.Vehicle), meta.DistanceKm, meta.EtaMinutes, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresAssignments) Close() error { return p.db.Close() }
