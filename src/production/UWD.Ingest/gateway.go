package ingest

import (
	"fmt"
	"math"
	"sort"
	"time"

	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
)

// Gateway normalizes raw sensor events into registry writes. Malformed
// events are rejected with a reason and logged; they never produce a partial
// registry write. Unrecognized kinds pass through untouched so new sensor
// categories need no server change.
type Gateway struct {
	registry *registry.Registry
	log      *logger.Logger

	knownKinds map[string]struct{}
	now        func() int64
}

// NewGateway creates an ingest gateway writing into the given registry.
func NewGateway(reg *registry.Registry, log *logger.Logger) *Gateway {
	return &Gateway{
		registry: reg,
		log:      log.WithComponent("ingest"),
		knownKinds: map[string]struct{}{
			uwdmodels.KindHeartRate:   {},
			uwdmodels.KindTemperature: {},
			uwdmodels.KindMotion:      {},
		},
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

// Apply validates one raw event and upserts it. The returned error wraps
// ErrMalformedInput with the concrete reason.
func (g *Gateway) Apply(kind string, raw api_models.RawReading) (uwdmodels.Sensor, error) {
	reading, err := g.validate(kind, raw)
	if err != nil {
		g.log.WithField("kind", kind).WithField("reason", err.Error()).Warn("rejected malformed reading")
		return uwdmodels.Sensor{}, err
	}
	return g.registry.Upsert(reading), nil
}

// ApplyBatch applies a keyed batch of raw events, rejecting malformed
// entries individually so valid ones still land.
func (g *Gateway) ApplyBatch(batch map[string]api_models.RawReading) api_models.IngestResult {
	var result api_models.IngestResult

	// Stable order keeps rejection lists deterministic.
	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, kind := range keys {
		if _, err := g.Apply(kind, batch[kind]); err != nil {
			result.Rejected = append(result.Rejected, api_models.RejectedReading{
				Key:    kind,
				Reason: err.Error(),
			})
			continue
		}
		result.Accepted++
	}
	return result
}

func (g *Gateway) validate(kind string, raw api_models.RawReading) (uwdmodels.Reading, error) {
	if kind == "" {
		return uwdmodels.Reading{}, fmt.Errorf("%w: missing kind", uwdmodels.ErrMalformedInput)
	}
	if raw.SensorID == "" {
		return uwdmodels.Reading{}, fmt.Errorf("%w: missing sensorId", uwdmodels.ErrMalformedInput)
	}
	if raw.Value == nil {
		return uwdmodels.Reading{}, fmt.Errorf("%w: missing value", uwdmodels.ErrMalformedInput)
	}
	if math.IsNaN(*raw.Value) || math.IsInf(*raw.Value, 0) {
		return uwdmodels.Reading{}, fmt.Errorf("%w: value is not a finite number", uwdmodels.ErrMalformedInput)
	}

	if _, known := g.knownKinds[kind]; !known {
		g.log.WithField("kind", kind).Debug("passing through unrecognized sensor kind")
	}

	ts := g.now()
	if raw.Timestamp != nil {
		if *raw.Timestamp < 0 {
			return uwdmodels.Reading{}, fmt.Errorf("%w: negative timestamp", uwdmodels.ErrMalformedInput)
		}
		ts = *raw.Timestamp
	}

	return uwdmodels.Reading{
		SensorID:  raw.SensorID,
		Kind:      kind,
		Value:     *raw.Value,
		Timestamp: ts,
	}, nil
}
