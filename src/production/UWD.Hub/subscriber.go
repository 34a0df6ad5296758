package hub

import (
	"sync"

	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
)

// Subscriber is one live connection's view of the hub. The transport reads
// frames from Frames(); the hub owns the channel and closes it on
// Unsubscribe.
type Subscriber struct {
	ID     string
	UserID string
	// Token is the session token the connection authenticated with. Held
	// only so the transport can release the session on close.
	Token string

	hub *Hub

	mu     sync.Mutex
	out    chan api_models.TelemetryFrame
	closed bool
}

// Frames returns the channel of outbound telemetry frames. The channel is
// closed when the subscriber is removed from the hub.
func (s *Subscriber) Frames() <-chan api_models.TelemetryFrame {
	return s.out
}

// deliver enqueues one frame, coalescing on overflow.
func (s *Subscriber) deliver(frame api_models.TelemetryFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.enqueueLocked(frame)
}

// enqueueLocked pushes a frame without blocking. When the queue is full the
// subscriber is a slow consumer: pending frames are stale the moment a fresh
// snapshot exists, so the queue is drained and replaced with one full
// authorized snapshot.
func (s *Subscriber) enqueueLocked(frame api_models.TelemetryFrame) {
	select {
	case s.out <- frame:
		return
	default:
	}

	// Slow consumer: drop everything queued and coalesce.
	for {
		select {
		case <-s.out:
			continue
		default:
		}
		break
	}
	s.out <- s.hub.snapshotFor(s.UserID)
	s.hub.log.WithField("user_id", s.UserID).Debug("slow consumer, coalesced queue into snapshot")
}
