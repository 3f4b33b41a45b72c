package handler

import (
	"time"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

// Pointers let "required" tell a missing field from 0, a valid coordinate.
type fetchWeatherRequest struct {
	Latitude  *float64 `json:"latitude"  validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type acceptedResponse struct {
	Message string           `json:"message"`
	Type    domain.EventType `json:"type"`
}

type eventsResponse struct {
	Events []domain.Envelope `json:"events"`
	Count  int               `json:"count"`
}

type stateResponse struct {
	domain.Snapshot
	RefreshDelay string    `json:"refresh_delay,omitempty"`
	ServedAt     time.Time `json:"served_at"`
}
