package registry

import (
	"hash/fnv"
	"sort"
	"sync"

	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
)

// shardCount spreads sensors across independently locked maps so writes to
// different sensors never contend.
const shardCount = 16

// ChangeListener receives a copy of a sensor record after every successful
// mutation. Listeners must not block: the broadcast hub applies its own
// queueing policy downstream.
type ChangeListener func(uwdmodels.Sensor)

// Registry is the authoritative in-memory sensor table.
type Registry struct {
	shards [shardCount]shard

	listenerMu sync.RWMutex
	listeners  []ChangeListener
}

type shard struct {
	mu      sync.RWMutex
	sensors map[string]uwdmodels.Sensor
}

// NewRegistry creates an empty sensor registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sensors = make(map[string]uwdmodels.Sensor)
	}
	return r
}

// OnChange registers a listener for sensor mutations.
func (r *Registry) OnChange(fn ChangeListener) {
	r.listenerMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenerMu.Unlock()
}

func (r *Registry) shardFor(sensorID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(sensorID))
	return &r.shards[h.Sum32()%shardCount]
}

// Get returns the current record for a sensor.
func (r *Registry) Get(sensorID string) (uwdmodels.Sensor, error) {
	s := r.shardFor(sensorID)
	s.mu.RLock()
	sensor, ok := s.sensors[sensorID]
	s.mu.RUnlock()
	if !ok {
		return uwdmodels.Sensor{}, uwdmodels.ErrNotFound
	}
	return sensor, nil
}

// Upsert applies a reading to the registry. Unknown sensors are created
// active. For known sensors the merge is last-writer-wins by timestamp:
// a reading older than the stored record is dropped, so LastUpdated never
// decreases regardless of arrival order.
func (r *Registry) Upsert(reading uwdmodels.Reading) uwdmodels.Sensor {
	s := r.shardFor(reading.SensorID)

	s.mu.Lock()
	sensor, ok := s.sensors[reading.SensorID]
	if !ok {
		sensor = uwdmodels.Sensor{
			SensorID:    reading.SensorID,
			Kind:        reading.Kind,
			Value:       reading.Value,
			Active:      true,
			LastUpdated: reading.Timestamp,
		}
	} else {
		if reading.Timestamp < sensor.LastUpdated {
			s.mu.Unlock()
			return sensor
		}
		sensor.Value = reading.Value
		sensor.LastUpdated = reading.Timestamp
		if reading.Kind != "" {
			sensor.Kind = reading.Kind
		}
	}
	s.sensors[reading.SensorID] = sensor
	s.mu.Unlock()

	r.notify(sensor)
	return sensor
}

// SetActive flips a sensor's active flag. Setting the flag to its current
// value is a no-op success and emits no change event.
func (r *Registry) SetActive(sensorID string, active bool) (uwdmodels.Sensor, error) {
	s := r.shardFor(sensorID)

	s.mu.Lock()
	sensor, ok := s.sensors[sensorID]
	if !ok {
		s.mu.Unlock()
		return uwdmodels.Sensor{}, uwdmodels.ErrNotFound
	}
	if sensor.Active == active {
		s.mu.Unlock()
		return sensor, nil
	}
	sensor.Active = active
	s.sensors[sensorID] = sensor
	s.mu.Unlock()

	r.notify(sensor)
	return sensor, nil
}

// Snapshot returns a point-in-time copy of all sensors, ordered by sensor ID.
func (r *Registry) Snapshot() []uwdmodels.Sensor {
	out := make([]uwdmodels.Sensor, 0, r.Len())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, sensor := range s.sensors {
			out = append(out, sensor)
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}

// Len returns the number of known sensors.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.sensors)
		s.mu.RUnlock()
	}
	return n
}

func (r *Registry) notify(sensor uwdmodels.Sensor) {
	r.listenerMu.RLock()
	listeners := r.listeners
	r.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(sensor)
	}
}
