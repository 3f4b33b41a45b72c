package domain

// DroneReading is a single position sample reported by the drone service.
type DroneReading struct {
	Metric    string  `json:"metric" bson:"metric"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	UOM       string  `json:"uom" bson:"uom"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
	Accuracy  float64 `json:"accuracy" bson:"accuracy"`
}

// DroneData is the drone service response body.
type DroneData struct {
	Data []DroneReading `json:"data" bson:"data"`
}

// Latest returns the reading the refresh loop follows (the first one).
func (d DroneData) Latest() (DroneReading, bool) {
	if len(d.Data) == 0 {
		return DroneReading{}, false
	}
	return d.Data[0], true
}
