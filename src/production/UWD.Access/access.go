package access

import (
	"sort"
	"sync"
)

// Capability is a per-sensor right a user can hold.
type Capability int

const (
	// View allows reading a sensor's state and receiving its updates.
	View Capability = iota
	// Mutate allows activating and deactivating a sensor. Mutate implies
	// View.
	Mutate
)

// grantSet holds one user's grants. view is a superset of mutate.
type grantSet struct {
	mu     sync.RWMutex
	view   map[string]struct{}
	mutate map[string]struct{}
}

func newGrantSet() *grantSet {
	return &grantSet{
		view:   make(map[string]struct{}),
		mutate: make(map[string]struct{}),
	}
}

// Store maps user identities to sensor grants. Default-deny: a user without
// an explicit grant has no capability on any sensor. Admins bypass per-sensor
// checks entirely.
type Store struct {
	mu     sync.RWMutex
	grants map[string]*grantSet
	admins map[string]struct{}
}

// NewStore creates an empty access-control store.
func NewStore() *Store {
	return &Store{
		grants: make(map[string]*grantSet),
		admins: make(map[string]struct{}),
	}
}

func (s *Store) setFor(userID string, create bool) *grantSet {
	s.mu.RLock()
	gs, ok := s.grants[userID]
	s.mu.RUnlock()
	if ok || !create {
		return gs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gs, ok = s.grants[userID]; ok {
		return gs
	}
	gs = newGrantSet()
	s.grants[userID] = gs
	return gs
}

// MarkAdmin gives a user the administrative capability: every per-sensor
// check passes.
func (s *Store) MarkAdmin(userID string) {
	s.mu.Lock()
	s.admins[userID] = struct{}{}
	s.mu.Unlock()
}

// IsAdmin reports whether the user holds the administrative capability.
func (s *Store) IsAdmin(userID string) bool {
	s.mu.RLock()
	_, ok := s.admins[userID]
	s.mu.RUnlock()
	return ok
}

// Grant gives the user View and Mutate on the listed sensors. Grants are
// additive; granting an already granted sensor is a no-op.
func (s *Store) Grant(userID string, sensorIDs []string) {
	gs := s.setFor(userID, true)
	gs.mu.Lock()
	for _, id := range sensorIDs {
		gs.view[id] = struct{}{}
		gs.mutate[id] = struct{}{}
	}
	gs.mu.Unlock()
}

// GrantView gives the user View only on the listed sensors.
func (s *Store) GrantView(userID string, sensorIDs []string) {
	gs := s.setFor(userID, true)
	gs.mu.Lock()
	for _, id := range sensorIDs {
		gs.view[id] = struct{}{}
	}
	gs.mu.Unlock()
}

// Revoke removes all capabilities on the listed sensors from the user.
func (s *Store) Revoke(userID string, sensorIDs []string) {
	gs := s.setFor(userID, false)
	if gs == nil {
		return
	}
	gs.mu.Lock()
	for _, id := range sensorIDs {
		delete(gs.view, id)
		delete(gs.mutate, id)
	}
	gs.mu.Unlock()
}

// IsAuthorized reports whether the user holds the capability on the sensor.
func (s *Store) IsAuthorized(userID, sensorID string, cap Capability) bool {
	if s.IsAdmin(userID) {
		return true
	}
	gs := s.setFor(userID, false)
	if gs == nil {
		return false
	}
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	switch cap {
	case Mutate:
		_, ok := gs.mutate[sensorID]
		return ok
	default:
		_, ok := gs.view[sensorID]
		return ok
	}
}

// ListGranted returns the sorted set of sensor IDs the user may view.
func (s *Store) ListGranted(userID string) []string {
	gs := s.setFor(userID, false)
	if gs == nil {
		return nil
	}
	gs.mu.RLock()
	out := make([]string, 0, len(gs.view))
	for id := range gs.view {
		out = append(out, id)
	}
	gs.mu.RUnlock()
	sort.Strings(out)
	return out
}
