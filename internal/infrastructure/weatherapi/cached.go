package weatherapi

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/dronewatch/drone-weather/internal/api/metrics"
	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// coordPrecision rounds coordinates to 2 decimals (about 1.1 km) for cache keys.
const coordPrecision = 100.0

// LocationCache stores location search results by rounded coordinate.
// Get reports found=false on a miss.
type LocationCache interface {
	GetLocations(ctx context.Context, lat, lng float64) (locs []domain.Location, found bool, err error)
	SetLocations(ctx context.Context, lat, lng float64, locs []domain.Location) error
}

// CachedClient serves location searches from a LocationCache and delegates
// everything else. Cache failures are logged and bypassed.
type CachedClient struct {
	next  ports.WeatherAPI
	cache LocationCache
	log   zerolog.Logger
}

// NewCachedClient wraps next with cache.
func NewCachedClient(next ports.WeatherAPI, cache LocationCache, log zerolog.Logger) *CachedClient {
	return &CachedClient{
		next:  next,
		cache: cache,
		log:   log.With().Str("component", "location_cache").Logger(),
	}
}

// FindLocationByLatLng returns cached locations when present. Only non-empty
// upstream results are cached.
func (c *CachedClient) FindLocationByLatLng(ctx context.Context, lat, lng float64) ([]domain.Location, error) {
	rLat, rLng := roundCoord(lat), roundCoord(lng)

	locs, found, err := c.cache.GetLocations(ctx, rLat, rLng)
	switch {
	case err != nil:
		metrics.LocationCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Float64("lat", rLat).Float64("lng", rLng).Msg("cache read failed, querying upstream")
	case found:
		metrics.LocationCacheTotal.WithLabelValues("hit").Inc()
		return locs, nil
	default:
		metrics.LocationCacheTotal.WithLabelValues("miss").Inc()
	}

	locs, err = c.next.FindLocationByLatLng(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if len(locs) > 0 {
		if err := c.cache.SetLocations(ctx, rLat, rLng, locs); err != nil {
			c.log.Warn().Err(err).Float64("lat", rLat).Float64("lng", rLng).Msg("failed to update cache")
		}
	}
	return locs, nil
}

func (c *CachedClient) FindWeatherByID(ctx context.Context, woeid int) (*domain.Weather, error) {
	return c.next.FindWeatherByID(ctx, woeid)
}

func (c *CachedClient) FindDroneLocation(ctx context.Context) (*domain.DroneData, error) {
	return c.next.FindDroneLocation(ctx)
}

func roundCoord(v float64) float64 {
	return math.Round(v*coordPrecision) / coordPrecision
}

var _ ports.WeatherAPI = (*CachedClient)(nil)
