package uwdmodels

import "errors"

// Domain errors shared across the core components. Handlers map these to
// HTTP statuses and command acks with errors.Is; the messages double as the
// wire-level reason codes.
var (
	// ErrAuthFailed is returned for any credential failure. It is
	// deliberately generic so callers cannot distinguish an unknown user
	// from a wrong secret.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUnauthenticated means the request carried no session token, or an
	// invalid or expired one.
	ErrUnauthenticated = errors.New("Unauthenticated")

	// ErrForbidden means the session is valid but the user has no grant
	// covering the requested sensor and capability.
	ErrForbidden = errors.New("Forbidden")

	// ErrNotFound means the sensor is not present in the registry.
	ErrNotFound = errors.New("NotFound")

	// ErrMalformedInput means an ingest event or command payload failed
	// shape validation.
	ErrMalformedInput = errors.New("MalformedInput")
)
