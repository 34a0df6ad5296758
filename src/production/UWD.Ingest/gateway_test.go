package ingest

import (
	"errors"
	"math"
	"testing"

	config "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Config"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
)

func newTestGateway(t *testing.T) (*Gateway, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry()
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "text"})
	return NewGateway(reg, log), reg
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestApplyWritesRegistry(t *testing.T) {
	g, reg := newTestGateway(t)

	sensor, err := g.Apply(uwdmodels.KindHeartRate, api_models.RawReading{SensorID: "hr-1", Value: f64(72), Timestamp: i64(100)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if sensor.Kind != uwdmodels.KindHeartRate || sensor.Value != 72 || sensor.LastUpdated != 100 {
		t.Errorf("unexpected sensor: %+v", sensor)
	}

	got, err := reg.Get("hr-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != 72 {
		t.Errorf("registry not updated: %+v", got)
	}
}

func TestApplyDefaultsMissingTimestamp(t *testing.T) {
	g, _ := newTestGateway(t)
	g.now = func() int64 { return 4242 }

	sensor, err := g.Apply(uwdmodels.KindMotion, api_models.RawReading{SensorID: "mot-1", Value: f64(0.5)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if sensor.LastUpdated != 4242 {
		t.Errorf("expected ingest-time timestamp, got %d", sensor.LastUpdated)
	}
}

func TestApplyPassesThroughUnknownKind(t *testing.T) {
	g, _ := newTestGateway(t)

	sensor, err := g.Apply("co2", api_models.RawReading{SensorID: "co2-1", Value: f64(412), Timestamp: i64(100)})
	if err != nil {
		t.Fatalf("unknown kind must pass through: %v", err)
	}
	if sensor.Kind != "co2" {
		t.Errorf("kind mangled: %q", sensor.Kind)
	}
}

func TestApplyRejectsMalformedReadings(t *testing.T) {
	tests := []struct {
		name string
		kind string
		raw  api_models.RawReading
	}{
		{"missing kind", "", api_models.RawReading{SensorID: "x", Value: f64(1)}},
		{"missing sensorId", uwdmodels.KindMotion, api_models.RawReading{Value: f64(1)}},
		{"missing value", uwdmodels.KindMotion, api_models.RawReading{SensorID: "x"}},
		{"NaN value", uwdmodels.KindMotion, api_models.RawReading{SensorID: "x", Value: f64(math.NaN())}},
		{"Inf value", uwdmodels.KindMotion, api_models.RawReading{SensorID: "x", Value: f64(math.Inf(1))}},
		{"negative timestamp", uwdmodels.KindMotion, api_models.RawReading{SensorID: "x", Value: f64(1), Timestamp: i64(-5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, reg := newTestGateway(t)
			if _, err := g.Apply(tt.kind, tt.raw); !errors.Is(err, uwdmodels.ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
			if reg.Len() != 0 {
				t.Error("malformed reading must not touch the registry")
			}
		})
	}
}

func TestApplyBatchRejectsIndividually(t *testing.T) {
	g, reg := newTestGateway(t)

	result := g.ApplyBatch(map[string]api_models.RawReading{
		uwdmodels.KindHeartRate:   {SensorID: "hr-1", Value: f64(72), Timestamp: i64(100)},
		uwdmodels.KindTemperature: {SensorID: "temp-1", Timestamp: i64(100)}, // no value
		uwdmodels.KindMotion:      {SensorID: "mot-1", Value: f64(0.4), Timestamp: i64(100)},
	})

	if result.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", result.Accepted)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Key != uwdmodels.KindTemperature {
		t.Errorf("unexpected rejections: %+v", result.Rejected)
	}
	if reg.Len() != 2 {
		t.Errorf("expected 2 sensors in registry, got %d", reg.Len())
	}
}
