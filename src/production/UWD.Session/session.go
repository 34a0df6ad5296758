package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	auth_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/auth"
	"golang.org/x/crypto/bcrypt"
)

// tokenBytes sizes session tokens at 128 bits of entropy.
const tokenBytes = 16

// Session binds an opaque token to a user for the lifetime of a connection.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticator owns user credentials and live sessions. Secrets never leave
// this package: they are stored as bcrypt hashes and compared in constant
// time, and every credential failure surfaces as the same generic error.
type Authenticator struct {
	mu       sync.RWMutex
	users    map[string]*auth_models.User
	sessions map[string]*Session

	ttl time.Duration
	now func() time.Time
}

// NewAuthenticator creates an authenticator issuing sessions with the given
// lifetime. A zero ttl means sessions never expire.
func NewAuthenticator(ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:    make(map[string]*auth_models.User),
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// AddUser provisions a user with the given secret and role. Adding an
// existing user replaces the secret.
func (a *Authenticator) AddUser(userID, secret, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.users[userID]; ok {
		existing.SecretHash = string(hash)
		return nil
	}
	a.users[userID] = auth_models.NewUser(userID, string(hash), role)
	return nil
}

// HasUser reports whether a user is provisioned.
func (a *Authenticator) HasUser(userID string) bool {
	a.mu.RLock()
	_, ok := a.users[userID]
	a.mu.RUnlock()
	return ok
}

// Login validates credentials and issues a session. Any failure returns
// ErrAuthFailed so callers cannot probe for user existence.
func (a *Authenticator) Login(userID, secret string) (*Session, error) {
	a.mu.RLock()
	user, ok := a.users[userID]
	a.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway so unknown users cost the same as a
		// wrong secret.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZzC0yrder7jrcXqMmcYbmvedBGsGe"), []byte(secret))
		return nil, uwdmodels.ErrAuthFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)); err != nil {
		return nil, uwdmodels.ErrAuthFailed
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := a.now()
	s := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
	}
	if a.ttl > 0 {
		s.ExpiresAt = now.Add(a.ttl)
	}

	a.mu.Lock()
	a.sessions[token] = s
	a.mu.Unlock()
	return s, nil
}

// Validate resolves a session token to its user. Missing, unknown and
// expired tokens all return ErrUnauthenticated.
func (a *Authenticator) Validate(token string) (string, error) {
	if token == "" {
		return "", uwdmodels.ErrUnauthenticated
	}

	a.mu.RLock()
	s, ok := a.sessions[token]
	a.mu.RUnlock()
	if !ok {
		return "", uwdmodels.ErrUnauthenticated
	}
	if !s.ExpiresAt.IsZero() && a.now().After(s.ExpiresAt) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return "", uwdmodels.ErrUnauthenticated
	}
	return s.UserID, nil
}

// Logout destroys a session. Unknown tokens are ignored.
func (a *Authenticator) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// SessionCount returns the number of live sessions.
func (a *Authenticator) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// StartSweeper evicts expired sessions in the background until the context
// is cancelled.
func (a *Authenticator) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (a *Authenticator) sweep() {
	now := a.now()
	a.mu.Lock()
	for token, s := range a.sessions {
		if !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt) {
			delete(a.sessions, token)
		}
	}
	a.mu.Unlock()
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
