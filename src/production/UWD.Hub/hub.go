package hub

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
)

// ErrSubscriberLimit is returned when the hub is at capacity. New
// connections are rejected rather than degrading delivery to existing ones.
var ErrSubscriberLimit = errors.New("subscriber limit reached")

// Hub fans sensor change events out to live subscribers. Every outgoing
// frame is filtered through the subscriber's grants, so a user never sees a
// sensor they cannot View. A slow subscriber only ever loses intermediate
// frames: its queue is collapsed into a fresh full snapshot instead of
// growing without bound or stalling the broadcast path.
type Hub struct {
	acl      *access.Store
	registry *registry.Registry
	log      *logger.Logger

	queueSize      int
	maxSubscribers int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// Config holds hub tuning.
type Config struct {
	// QueueSize bounds each subscriber's pending frame queue.
	QueueSize int
	// MaxSubscribers caps concurrent subscriptions.
	MaxSubscribers int
}

// NewHub creates a broadcast hub and wires it to the registry's change
// events.
func NewHub(cfg Config, acl *access.Store, reg *registry.Registry, log *logger.Logger) *Hub {
	h := &Hub{
		acl:            acl,
		registry:       reg,
		log:            log.WithComponent("hub"),
		queueSize:      cfg.QueueSize,
		maxSubscribers: cfg.MaxSubscribers,
		subscribers:    make(map[string]*Subscriber),
	}
	reg.OnChange(h.publish)
	return h
}

// Subscribe registers a live connection for the given user. The first frame
// on the subscriber's channel is a complete snapshot of every sensor the
// user may view; later frames are deltas, or full refreshes after
// coalescing.
func (h *Hub) Subscribe(userID, token string) (*Subscriber, error) {
	sub := &Subscriber{
		ID:     uuid.New().String(),
		UserID: userID,
		Token:  token,
		out:    make(chan api_models.TelemetryFrame, h.queueSize),
		hub:    h,
	}

	// Hold the subscriber lock across registration and the initial
	// snapshot so a concurrent publish cannot slip a delta in front of it.
	sub.mu.Lock()
	defer sub.mu.Unlock()

	h.mu.Lock()
	if len(h.subscribers) >= h.maxSubscribers {
		h.mu.Unlock()
		return nil, ErrSubscriberLimit
	}
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	sub.enqueueLocked(h.snapshotFor(userID))
	h.log.WithField("user_id", userID).Debug("subscriber registered")
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its frame channel. Safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub.ID]
	delete(h.subscribers, sub.ID)
	h.mu.Unlock()
	if !ok {
		return
	}

	sub.mu.Lock()
	sub.closed = true
	close(sub.out)
	sub.mu.Unlock()
	h.log.WithField("user_id", sub.UserID).Debug("subscriber removed")
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// publish delivers one sensor change to every authorized subscriber. It
// never blocks: a full queue triggers coalescing for that subscriber only.
func (h *Hub) publish(sensor uwdmodels.Sensor) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !h.acl.IsAuthorized(sub.UserID, sensor.SensorID, access.View) {
			continue
		}
		sub.deliver(api_models.TelemetryFrame{
			sensor.Kind: toUpdate(sensor),
		})
	}
}

// snapshotFor builds a full telemetry frame of every sensor the user may
// view, keyed by sensor kind.
func (h *Hub) snapshotFor(userID string) api_models.TelemetryFrame {
	frame := make(api_models.TelemetryFrame)
	for _, sensor := range h.registry.Snapshot() {
		if !h.acl.IsAuthorized(userID, sensor.SensorID, access.View) {
			continue
		}
		frame[sensor.Kind] = toUpdate(sensor)
	}
	return frame
}

func toUpdate(s uwdmodels.Sensor) api_models.SensorUpdate {
	return api_models.SensorUpdate{
		SensorID:  s.SensorID,
		Value:     s.Value,
		Timestamp: s.LastUpdated,
		Active:    s.Active,
	}
}
