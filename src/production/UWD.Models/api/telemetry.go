package api_models

// SensorUpdate is the wire form of one sensor's state, matching what the
// browser client consumes.
type SensorUpdate struct {
	SensorID  string  `json:"sensorId"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Active    bool    `json:"active"`
}

// TelemetryFrame is one push message on the live stream: sensor updates
// keyed by the sensor's kind label. The first frame after connect is a full
// authorized snapshot, later frames carry only changed sensors (or a full
// refresh after coalescing).
type TelemetryFrame map[string]SensorUpdate

// RawReading is one entry of an ingest payload before validation. Pointers
// distinguish absent fields from zero values.
type RawReading struct {
	SensorID  string   `json:"sensorId"`
	Value     *float64 `json:"value"`
	Timestamp *int64   `json:"timestamp"`
}

// IngestResult reports the outcome of an ingest batch: entries that failed
// validation are rejected individually, the rest still apply.
type IngestResult struct {
	Accepted int               `json:"accepted"`
	Rejected []RejectedReading `json:"rejected,omitempty"`
}

// RejectedReading names one ingest entry that failed validation and why.
type RejectedReading struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}
