package domain

// successors lists, for each event, the events its handler may emit.
//
//	FETCH_WEATHER ──► WEATHER_ID_RECEIVED ──► WEATHER_DATA_RECEIVED
//	                        ▲                         │ (refresh delay)
//	                        │                         ▼
//	DRONE_DATA_RECEIVED ◄───┴── FETCH_DRONE_DATA ◄────┘
//
// Every call-making step may emit API_ERROR instead, which ends that sequence.
var successors = map[EventType][]EventType{
	TypeFetchWeather:        {TypeWeatherIDReceived, TypeAPIError},
	TypeWeatherIDReceived:   {TypeWeatherDataReceived, TypeAPIError},
	TypeWeatherDataReceived: {TypeFetchDroneData},
	TypeFetchDroneData:      {TypeDroneDataReceived, TypeAPIError},
	TypeDroneDataReceived:   {TypeWeatherIDReceived, TypeAPIError},
}

// RefreshLoop is the steady-state cycle, starting from the weather id.
var RefreshLoop = []EventType{
	TypeWeatherIDReceived,
	TypeWeatherDataReceived,
	TypeFetchDroneData,
	TypeDroneDataReceived,
}

// Successors returns the events a handler for t may emit. API_ERROR has no
// handler and therefore no successors.
func Successors(t EventType) []EventType {
	out := make([]EventType, len(successors[t]))
	copy(out, successors[t])
	return out
}

// CanFollow reports whether next is a legal emission for a handler of prev.
func CanFollow(prev, next EventType) bool {
	for _, s := range successors[prev] {
		if s == next {
			return true
		}
	}
	return false
}

// Handled returns the event types the orchestrator subscribes to.
func Handled() []EventType {
	return []EventType{
		TypeFetchWeather,
		TypeWeatherIDReceived,
		TypeWeatherDataReceived,
		TypeFetchDroneData,
		TypeDroneDataReceived,
	}
}
