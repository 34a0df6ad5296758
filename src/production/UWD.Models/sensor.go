package uwdmodels

// Known sensor kinds. The set is open-ended: ingest passes unrecognized
// kinds through untouched, these constants only name the ones the demo
// fleet ships with.
const (
	KindHeartRate   = "heart_rate"
	KindTemperature = "temperature"
	KindMotion      = "motion"
)

// Sensor is the authoritative record for a single sensor.
type Sensor struct {
	SensorID    string  `json:"sensor_id"`
	Kind        string  `json:"kind"`
	Value       float64 `json:"value"`
	Active      bool    `json:"active"`
	LastUpdated int64   `json:"last_updated"` // milliseconds since epoch
}

// Reading is a normalized sensor update as produced by the ingest path.
type Reading struct {
	SensorID  string  `json:"sensor_id"`
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
}
