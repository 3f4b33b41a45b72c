package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

const defaultLocationTTL = time.Hour

// LocationCache stores location search results in Redis.
// Key format: location:<lat>:<lng> with coordinates as given (callers round them).
type LocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocationCache creates a LocationCache. Entries expire after ttl
// (defaultLocationTTL when ttl <= 0).
func NewLocationCache(client *redis.Client, ttl time.Duration) *LocationCache {
	if ttl <= 0 {
		ttl = defaultLocationTTL
	}
	return &LocationCache{client: client, ttl: ttl}
}

// GetLocations returns the cached locations for a coordinate.
func (c *LocationCache) GetLocations(ctx context.Context, lat, lng float64) ([]domain.Location, bool, error) {
	raw, err := c.client.Get(ctx, locationKey(lat, lng)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("location cache get: %w", err)
	}

	var locs []domain.Location
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, false, fmt.Errorf("location cache decode: %w", err)
	}
	return locs, true, nil
}

// SetLocations stores locations for a coordinate.
func (c *LocationCache) SetLocations(ctx context.Context, lat, lng float64, locs []domain.Location) error {
	raw, err := json.Marshal(locs)
	if err != nil {
		return fmt.Errorf("location cache encode: %w", err)
	}
	if err := c.client.Set(ctx, locationKey(lat, lng), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("location cache set: %w", err)
	}
	return nil
}

func locationKey(lat, lng float64) string {
	return fmt.Sprintf("location:%.2f:%.2f", lat, lng)
}
