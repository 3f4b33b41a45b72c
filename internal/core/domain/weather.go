package domain

// Location is a single hit of a lat/lng location search.
type Location struct {
	WOEID        int    `json:"woeid" bson:"woeid"`
	Title        string `json:"title" bson:"title"`
	LocationType string `json:"location_type" bson:"location_type"`
	LattLong     string `json:"latt_long" bson:"latt_long"`
	Distance     int    `json:"distance,omitempty" bson:"distance,omitempty"`
}

// Forecast is one entry of a weather report's consolidated_weather list.
type Forecast struct {
	ID                   int64   `json:"id" bson:"id"`
	WeatherStateName     string  `json:"weather_state_name" bson:"weather_state_name"`
	WeatherStateAbbr     string  `json:"weather_state_abbr" bson:"weather_state_abbr"`
	WindDirectionCompass string  `json:"wind_direction_compass" bson:"wind_direction_compass"`
	ApplicableDate       string  `json:"applicable_date" bson:"applicable_date"`
	MinTemp              float64 `json:"min_temp" bson:"min_temp"`
	MaxTemp              float64 `json:"max_temp" bson:"max_temp"`
	TheTemp              float64 `json:"the_temp" bson:"the_temp"`
	WindSpeed            float64 `json:"wind_speed" bson:"wind_speed"`
	WindDirection        float64 `json:"wind_direction" bson:"wind_direction"`
	AirPressure          float64 `json:"air_pressure" bson:"air_pressure"`
	Humidity             int     `json:"humidity" bson:"humidity"`
	Visibility           float64 `json:"visibility" bson:"visibility"`
	Predictability       int     `json:"predictability" bson:"predictability"`
}

// Weather is the report returned for a woeid.
type Weather struct {
	WOEID               int        `json:"woeid" bson:"woeid"`
	Title               string     `json:"title" bson:"title"`
	LocationType        string     `json:"location_type,omitempty" bson:"location_type,omitempty"`
	LattLong            string     `json:"latt_long,omitempty" bson:"latt_long,omitempty"`
	Time                string     `json:"time,omitempty" bson:"time,omitempty"`
	Timezone            string     `json:"timezone,omitempty" bson:"timezone,omitempty"`
	ConsolidatedWeather []Forecast `json:"consolidated_weather" bson:"consolidated_weather"`
}

// Current returns the first forecast entry, which upstream uses for today.
func (w Weather) Current() (Forecast, bool) {
	if len(w.ConsolidatedWeather) == 0 {
		return Forecast{}, false
	}
	return w.ConsolidatedWeather[0], true
}
