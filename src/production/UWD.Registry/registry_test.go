package registry

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
)

func TestUpsertCreatesActiveSensor(t *testing.T) {
	r := NewRegistry()

	got := r.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})

	if !got.Active {
		t.Error("expected new sensor to be active")
	}
	if got.Value != 72 || got.LastUpdated != 100 {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestUpsertLastWriterWinsByTimestamp(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []int64
		values     []float64
		wantValue  float64
		wantTime   int64
	}{
		{
			name:       "in order",
			timestamps: []int64{100, 200, 300},
			values:     []float64{1, 2, 3},
			wantValue:  3,
			wantTime:   300,
		},
		{
			name:       "stale write dropped",
			timestamps: []int64{300, 100},
			values:     []float64{3, 1},
			wantValue:  3,
			wantTime:   300,
		},
		{
			name:       "equal timestamp overwrites",
			timestamps: []int64{100, 100},
			values:     []float64{1, 2},
			wantValue:  2,
			wantTime:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for i, ts := range tt.timestamps {
				r.Upsert(uwdmodels.Reading{SensorID: "TEMP001", Kind: uwdmodels.KindTemperature, Value: tt.values[i], Timestamp: ts})
			}
			got, err := r.Get("TEMP001")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Value != tt.wantValue || got.LastUpdated != tt.wantTime {
				t.Errorf("got value=%v ts=%d, want value=%v ts=%d", got.Value, got.LastUpdated, tt.wantValue, tt.wantTime)
			}
		})
	}
}

func TestUpsertConcurrentArrivalOrderIrrelevant(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	order := rand.Perm(100)
	for _, i := range order {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			r.Upsert(uwdmodels.Reading{SensorID: "MOT001", Kind: uwdmodels.KindMotion, Value: float64(ts), Timestamp: ts})
		}(int64(i + 1))
	}
	wg.Wait()

	got, err := r.Get("MOT001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastUpdated != 100 || got.Value != 100 {
		t.Errorf("expected greatest-timestamp write to win, got %+v", got)
	}
}

func TestGetUnknownSensor(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, uwdmodels.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	r := NewRegistry()
	r.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})

	var events []uwdmodels.Sensor
	r.OnChange(func(s uwdmodels.Sensor) { events = append(events, s) })

	sensor, err := r.SetActive("HR001", false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if sensor.Active {
		t.Error("expected sensor to be deactivated")
	}
	if sensor.LastUpdated != 100 {
		t.Errorf("activation flag must not touch LastUpdated, got %d", sensor.LastUpdated)
	}
	if len(events) != 1 {
		t.Fatalf("expected one change event, got %d", len(events))
	}

	// Same target state again: no-op success, no event.
	if _, err := r.SetActive("HR001", false); err != nil {
		t.Fatalf("idempotent set active: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("no-op must not emit an event, got %d events", len(events))
	}

	if _, err := r.SetActive("missing", true); !errors.Is(err, uwdmodels.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotOrderedAndConsistent(t *testing.T) {
	r := NewRegistry()
	for i := 9; i >= 0; i-- {
		id := fmt.Sprintf("S%03d", i)
		r.Upsert(uwdmodels.Reading{SensorID: id, Kind: uwdmodels.KindMotion, Value: float64(i), Timestamp: int64(i)})
	}

	snap := r.Snapshot()
	if len(snap) != 10 {
		t.Fatalf("expected 10 sensors, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].SensorID >= snap[i].SensorID {
			t.Fatalf("snapshot not ordered at %d: %s >= %s", i, snap[i-1].SensorID, snap[i].SensorID)
		}
	}

	// Mutating the registry afterwards must not change the copy.
	r.Upsert(uwdmodels.Reading{SensorID: "S000", Kind: uwdmodels.KindMotion, Value: 999, Timestamp: 500})
	if snap[0].Value == 999 {
		t.Error("snapshot must be a point-in-time copy")
	}
}

func TestChangeEventsEmittedOnUpsert(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	var events []uwdmodels.Sensor
	r.OnChange(func(s uwdmodels.Sensor) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	})

	r.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})
	r.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 60, Timestamp: 50}) // stale

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("stale write must not emit an event, got %d events", len(events))
	}
	if events[0].Value != 72 {
		t.Errorf("unexpected event payload: %+v", events[0])
	}
}
