package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names an application event.
type EventType string

const (
	TypeFetchWeather        EventType = "FETCH_WEATHER"
	TypeWeatherIDReceived   EventType = "WEATHER_ID_RECEIVED"
	TypeWeatherDataReceived EventType = "WEATHER_DATA_RECEIVED"
	TypeFetchDroneData      EventType = "FETCH_DRONE_DATA"
	TypeDroneDataReceived   EventType = "DRONE_DATA_RECEIVED"
	TypeAPIError            EventType = "API_ERROR"
)

// Event is one of the payload variants below. The set is closed.
type Event interface {
	Type() EventType
	event()
}

// FetchWeather asks for the weather at a coordinate.
type FetchWeather struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// WeatherIDReceived carries the woeid resolved for a coordinate.
type WeatherIDReceived struct {
	ID int `json:"id" bson:"id"`
}

// WeatherDataReceived carries the weather report for a woeid.
type WeatherDataReceived struct {
	Data Weather `json:"data" bson:"data"`
}

// FetchDroneData asks for the current drone position.
type FetchDroneData struct{}

// DroneDataReceived carries the drone readings returned upstream.
type DroneDataReceived struct {
	Data DroneData `json:"data" bson:"data"`
}

// APIError reports a failed lookup. Code is the upstream status, zero when
// there is none (empty result, transport failure).
type APIError struct {
	Code    int    `json:"code,omitempty" bson:"code,omitempty"`
	Message string `json:"message,omitempty" bson:"message,omitempty"`
}

func (FetchWeather) Type() EventType        { return TypeFetchWeather }
func (WeatherIDReceived) Type() EventType   { return TypeWeatherIDReceived }
func (WeatherDataReceived) Type() EventType { return TypeWeatherDataReceived }
func (FetchDroneData) Type() EventType      { return TypeFetchDroneData }
func (DroneDataReceived) Type() EventType   { return TypeDroneDataReceived }
func (APIError) Type() EventType            { return TypeAPIError }

func (FetchWeather) event()        {}
func (WeatherIDReceived) event()   {}
func (WeatherDataReceived) event() {}
func (FetchDroneData) event()      {}
func (DroneDataReceived) event()   {}
func (APIError) event()            {}

// HasCode reports whether the error carries an upstream code.
func (e APIError) HasCode() bool { return e.Code != 0 }

// Envelope is an event as delivered by the bus.
type Envelope struct {
	ID         string    `json:"id" bson:"event_id"`
	Type       EventType `json:"type" bson:"type"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
	Payload    Event     `json:"payload" bson:"payload"`
}

// DecodeEvent builds the payload variant for t using decode, which fills the
// value it is given (json.Unmarshal, bson.Unmarshal and the like).
func DecodeEvent(t EventType, decode func(v any) error) (Event, error) {
	switch t {
	case TypeFetchWeather:
		var e FetchWeather
		err := decode(&e)
		return e, err
	case TypeWeatherIDReceived:
		var e WeatherIDReceived
		err := decode(&e)
		return e, err
	case TypeWeatherDataReceived:
		var e WeatherDataReceived
		err := decode(&e)
		return e, err
	case TypeFetchDroneData:
		var e FetchDroneData
		err := decode(&e)
		return e, err
	case TypeDroneDataReceived:
		var e DroneDataReceived
		err := decode(&e)
		return e, err
	case TypeAPIError:
		var e APIError
		err := decode(&e)
		return e, err
	}
	return nil, fmt.Errorf("decode event: %w: %q", ErrUnknownEventType, t)
}

// UnmarshalJSON restores the concrete payload from the type tag.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Type       EventType       `json:"type"`
		OccurredAt time.Time       `json:"occurred_at"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	payload, err := DecodeEvent(raw.Type, func(v any) error {
		if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
			return nil
		}
		return json.Unmarshal(raw.Payload, v)
	})
	if err != nil {
		return err
	}
	*e = Envelope{ID: raw.ID, Type: raw.Type, OccurredAt: raw.OccurredAt, Payload: payload}
	return nil
}
