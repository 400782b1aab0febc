package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/epickup-dispatch/internal/models"
)

// RedisGeo is the production Store: driver positions live in a Redis GEO set,
// profile stats in a per-driver hash.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

func (r *RedisGeo) Upsert(ctx context.Context, d models.DriverUpdate) error {
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: d.Location.Longitude,
		Latitude:  d.Location.Latitude,
		Name:      d.DriverID,
	}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(d.DriverID), map[string]interface{}{
		"vehicle_type":         string(d.VehicleType),
		"rating":               strconv.FormatFloat(d.Rating, 'f', -1, 64),
		"total_trips":          strconv.Itoa(d.TotalTrips),
		"completed_trips":      strconv.Itoa(d.CompletedTrips),
		"avg_response_seconds": strconv.FormatFloat(d.AvgResponseTimeSeconds, 'f', -1, 64),
		"cancellation_rate":    strconv.FormatFloat(d.CancellationRate, 'f', -1, 64),
		"available":            strconv.FormatBool(d.Available),
		"updated":              time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisGeo) FindAvailable(ctx context.Context, pickup models.Coordinate, radiusKm float64, vehicle models.VehicleType) ([]models.DriverCandidate, error) {
	res, err := r.client.GeoRadius(ctx, r.key, pickup.Longitude, pickup.Latitude, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.DriverCandidate, 0, len(res))
	for _, g := range res {
		meta, err := r.client.HGetAll(ctx, metaKey(g.Name)).Result()
		if err != nil {
			continue
		}
		if meta["available"] != "true" {
			continue
		}
		cand := models.DriverCandidate{
			DriverID:    g.Name,
			Location:    models.Coordinate{Latitude: g.Latitude, Longitude: g.Longitude},
			VehicleType: models.VehicleType(meta["vehicle_type"]),
		}
		if vehicle != "" && cand.VehicleType != vehicle {
			continue
		}
		cand.Rating = parseFloat(meta["rating"])
		cand.TotalTrips = parseInt(meta["total_trips"])
		cand.CompletedTrips = parseInt(meta["completed_trips"])
		cand.AvgResponseTimeSeconds = parseFloat(meta["avg_response_seconds"])
		cand.CancellationRate = parseFloat(meta["cancellation_rate"])
		if ts, err := time.Parse(time.RFC3339, meta["updated"]); err == nil {
			cand.LocationTimestamp = ts
		}
		out = append(out, cand)
	}
	return out, nil
}

func metaKey(id string) string { return "driver:meta:" + id }

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func parseInt(v string) int {
	i, _ := strconv.Atoi(v)
	return i
}
