package domain

import "time"

// Snapshot is the application state the event stream drives.
type Snapshot struct {
	Coordinates *FetchWeather `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	WeatherID   int           `json:"weather_id,omitempty" bson:"weather_id,omitempty"`
	Weather     *Weather      `json:"weather,omitempty" bson:"weather,omitempty"`
	Drone       *DroneReading `json:"drone,omitempty" bson:"drone,omitempty"`
	LastError   *APIError     `json:"last_error,omitempty" bson:"last_error,omitempty"`
	Loading     bool          `json:"loading" bson:"loading"`
	Cycles      int           `json:"cycles" bson:"cycles"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// Apply returns the snapshot after ev. The receiver is not modified.
func (s Snapshot) Apply(ev Event, at time.Time) Snapshot {
	next := s
	switch e := ev.(type) {
	case FetchWeather:
		c := e
		next.Coordinates = &c
		next.LastError = nil
		next.Loading = true
	case WeatherIDReceived:
		next.WeatherID = e.ID
		next.Loading = true
	case WeatherDataReceived:
		w := e.Data
		next.Weather = &w
		next.Loading = false
	case FetchDroneData:
		next.Loading = true
		next.Cycles++
	case DroneDataReceived:
		if r, ok := e.Data.Latest(); ok {
			next.Drone = &r
		}
	case APIError:
		ae := e
		next.LastError = &ae
		next.Loading = false
	default:
		return s
	}
	next.UpdatedAt = at.UTC()
	return next
}
