package ports

import (
	"context"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

// WeatherAPI is the upstream weather and drone service. Failed calls return
// a *domain.UpstreamError when upstream answered with a status.
type WeatherAPI interface {
	// FindLocationByLatLng returns the locations near a coordinate, nearest
	// first. An empty slice is a valid answer.
	FindLocationByLatLng(ctx context.Context, lat, lng float64) ([]domain.Location, error)
	FindWeatherByID(ctx context.Context, woeid int) (*domain.Weather, error)
	FindDroneLocation(ctx context.Context) (*domain.DroneData, error)
}
