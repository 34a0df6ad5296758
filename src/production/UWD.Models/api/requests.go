package api_models

// LoginRequest carries user credentials for /auth/login.
type LoginRequest struct {
	UserID string `json:"userId" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// LoginResponse is the login outcome. Error is the generic failure message,
// present only when OK is false.
type LoginResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// SensorListResponse lists the sensor IDs a user may view.
type SensorListResponse struct {
	Sensors []string `json:"sensors"`
}

// AddUserRequest provisions a user and their initial grants.
type AddUserRequest struct {
	UserID    string   `json:"userId" binding:"required"`
	Secret    string   `json:"secret" binding:"required"`
	SensorIDs []string `json:"sensorIds"`
}

// GrantRequest adds or removes grants for an existing user.
type GrantRequest struct {
	UserID    string   `json:"userId" binding:"required"`
	SensorIDs []string `json:"sensorIds" binding:"required"`
}

// ToggleRequest asks to activate or deactivate a sensor. It is accepted both
// over REST and as an inbound frame on the live stream.
type ToggleRequest struct {
	SensorID string `json:"sensorId"`
	Action   string `json:"action"`
}

// CommandAck is the reply to a toggle request. Error carries the reason code
// (Unauthenticated, Forbidden, NotFound, MalformedInput) when OK is false.
type CommandAck struct {
	OK       bool   `json:"ok"`
	SensorID string `json:"sensorId,omitempty"`
	Error    string `json:"error,omitempty"`
}
