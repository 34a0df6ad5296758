package command

import (
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

// Processor validates and applies sensor mutation commands.
//
// Commands are idempotent by target state: activating an already-active
// sensor is a success, not an error. Concurrent commands on the same sensor
// serialize through the registry's per-sensor lock; the final state is that
// of whichever write lands last, not network arrival order.
type Processor struct {
	sessions *session.Authenticator
	acl      *access.Store
	registry *registry.Registry
}

// NewProcessor creates a command processor.
func NewProcessor(sessions *session.Authenticator, acl *access.Store, reg *registry.Registry) *Processor {
	return &Processor{
		sessions: sessions,
		acl:      acl,
		registry: reg,
	}
}

// Apply resolves the command's session and applies it. Errors:
// ErrMalformedInput (bad shape), ErrUnauthenticated (bad token),
// ErrForbidden (no Mutate grant), ErrNotFound (unknown sensor).
func (p *Processor) Apply(cmd uwdmodels.Command) (uwdmodels.Sensor, error) {
	userID, err := p.sessions.Validate(cmd.Token)
	if err != nil {
		return uwdmodels.Sensor{}, uwdmodels.ErrUnauthenticated
	}
	return p.ApplyForUser(userID, cmd.SensorID, cmd.Action)
}

// ApplyForUser applies a command for an already-resolved user. The live
// stream uses this path: its session was resolved once at connect time.
func (p *Processor) ApplyForUser(userID, sensorID string, action uwdmodels.Action) (uwdmodels.Sensor, error) {
	if sensorID == "" || !action.Valid() {
		return uwdmodels.Sensor{}, uwdmodels.ErrMalformedInput
	}
	if !p.acl.IsAuthorized(userID, sensorID, access.Mutate) {
		return uwdmodels.Sensor{}, uwdmodels.ErrForbidden
	}
	return p.registry.SetActive(sensorID, action == uwdmodels.ActionActivate)
}
