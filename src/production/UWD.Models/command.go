package uwdmodels

// Action is a sensor mutation requested by a client.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

// Valid reports whether the action is one of the supported mutations.
func (a Action) Valid() bool {
	return a == ActionActivate || a == ActionDeactivate
}

// Command is a validated toggle request bound to a session token.
type Command struct {
	Token    string `json:"-"`
	SensorID string `json:"sensor_id"`
	Action   Action `json:"action"`
}
