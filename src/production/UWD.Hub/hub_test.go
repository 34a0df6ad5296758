package hub

import (
	"errors"
	"testing"
	"time"

	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	config "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Config"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
)

func newTestHub(t *testing.T, queueSize, maxSubs int) (*Hub, *access.Store, *registry.Registry) {
	t.Helper()
	acl := access.NewStore()
	reg := registry.NewRegistry()
	log := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "text"})
	h := NewHub(Config{QueueSize: queueSize, MaxSubscribers: maxSubs}, acl, reg, log)
	return h, acl, reg
}

func recvFrame(t *testing.T, sub *Subscriber) api_models.TelemetryFrame {
	t.Helper()
	select {
	case frame, ok := <-sub.Frames():
		if !ok {
			t.Fatal("frame channel closed unexpectedly")
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func TestFirstFrameIsFullAuthorizedSnapshot(t *testing.T) {
	h, acl, reg := newTestHub(t, 8, 16)
	reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})
	reg.Upsert(uwdmodels.Reading{SensorID: "TEMP001", Kind: uwdmodels.KindTemperature, Value: 36.6, Timestamp: 100})
	reg.Upsert(uwdmodels.Reading{SensorID: "MOT001", Kind: uwdmodels.KindMotion, Value: 0.4, Timestamp: 100})
	acl.Grant("alice", []string{"HR001", "TEMP001"})

	sub, err := h.Subscribe("alice", "tok")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(sub)

	frame := recvFrame(t, sub)
	if len(frame) != 2 {
		t.Fatalf("expected exactly the 2 granted sensors, got %d: %v", len(frame), frame)
	}
	if _, ok := frame[uwdmodels.KindMotion]; ok {
		t.Error("ungranted sensor leaked into snapshot")
	}
	if frame[uwdmodels.KindHeartRate].SensorID != "HR001" {
		t.Errorf("unexpected heart_rate entry: %+v", frame[uwdmodels.KindHeartRate])
	}
}

func TestDeltaDeliveryAndFiltering(t *testing.T) {
	h, acl, reg := newTestHub(t, 8, 16)
	acl.Grant("alice", []string{"hr-1"})

	aliceSub, err := h.Subscribe("alice", "tok-a")
	if err != nil {
		t.Fatalf("subscribe alice: %v", err)
	}
	defer h.Unsubscribe(aliceSub)
	bobSub, err := h.Subscribe("bob", "tok-b")
	if err != nil {
		t.Fatalf("subscribe bob: %v", err)
	}
	defer h.Unsubscribe(bobSub)

	// Drain initial snapshots.
	recvFrame(t, aliceSub)
	recvFrame(t, bobSub)

	reg.Upsert(uwdmodels.Reading{SensorID: "hr-1", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})

	frame := recvFrame(t, aliceSub)
	update, ok := frame[uwdmodels.KindHeartRate]
	if !ok {
		t.Fatalf("alice missing heart_rate delta: %v", frame)
	}
	if update.SensorID != "hr-1" || update.Value != 72 || update.Timestamp != 100 {
		t.Errorf("unexpected update: %+v", update)
	}

	select {
	case frame := <-bobSub.Frames():
		t.Fatalf("bob must receive nothing, got %v", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdminSeesEverything(t *testing.T) {
	h, acl, reg := newTestHub(t, 8, 16)
	acl.MarkAdmin("root")
	reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})

	sub, err := h.Subscribe("root", "tok")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(sub)

	frame := recvFrame(t, sub)
	if len(frame) != 1 {
		t.Fatalf("admin snapshot missing sensors: %v", frame)
	}
}

func TestSlowConsumerCoalescesToSnapshot(t *testing.T) {
	const queueSize = 4
	h, acl, reg := newTestHub(t, queueSize, 16)
	acl.Grant("alice", []string{"HR001"})
	reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 0, Timestamp: 0})

	sub, err := h.Subscribe("alice", "tok")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(sub)

	// Never read: push far more updates than the queue holds.
	for i := 1; i <= queueSize*10; i++ {
		reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: float64(i), Timestamp: int64(i)})
	}

	if n := len(sub.Frames()); n > queueSize {
		t.Fatalf("queue grew past its bound: %d > %d", n, queueSize)
	}

	// The last readable frame must be a snapshot carrying the newest state.
	var last api_models.TelemetryFrame
	for {
		select {
		case frame := <-sub.Frames():
			last = frame
			continue
		default:
		}
		break
	}
	update, ok := last[uwdmodels.KindHeartRate]
	if !ok {
		t.Fatalf("expected heart_rate in coalesced snapshot, got %v", last)
	}
	if update.Value != float64(queueSize*10) {
		t.Errorf("coalesced snapshot must carry the freshest value, got %v", update.Value)
	}
}

func TestSlowConsumerDoesNotStallOthers(t *testing.T) {
	h, acl, reg := newTestHub(t, 2, 16)
	acl.Grant("slow", []string{"HR001"})
	acl.Grant("fast", []string{"HR001"})

	slowSub, err := h.Subscribe("slow", "tok-s")
	if err != nil {
		t.Fatalf("subscribe slow: %v", err)
	}
	defer h.Unsubscribe(slowSub)
	fastSub, err := h.Subscribe("fast", "tok-f")
	if err != nil {
		t.Fatalf("subscribe fast: %v", err)
	}
	defer h.Unsubscribe(fastSub)
	recvFrame(t, fastSub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 50; i++ {
			reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: float64(i), Timestamp: int64(i)})
			recvFrame(t, fastSub)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slow subscriber stalled delivery to the fast one")
	}
}

func TestUnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	h, acl, reg := newTestHub(t, 8, 16)
	acl.Grant("alice", []string{"HR001"})

	sub, err := h.Subscribe("alice", "tok")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	recvFrame(t, sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // second call is a no-op

	// Publishing after removal must not panic or deliver.
	reg.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 72, Timestamp: 100})

	if _, ok := <-sub.Frames(); ok {
		t.Error("expected closed frame channel")
	}
	if n := h.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestSubscriberLimit(t *testing.T) {
	h, _, _ := newTestHub(t, 8, 1)

	first, err := h.Subscribe("alice", "tok-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer h.Unsubscribe(first)

	if _, err := h.Subscribe("bob", "tok-2"); !errors.Is(err, ErrSubscriberLimit) {
		t.Errorf("expected ErrSubscriberLimit, got %v", err)
	}
}
