package auth

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// StateCookieName holds the OIDC state and nonce between login and callback.
	StateCookieName = "catalog_oidc_state"
	// StateCookieMaxAge is how long a login attempt stays valid.
	StateCookieMaxAge = 5 * time.Minute
)

// StateStore manages state and nonce for OIDC CSRF protection.
type StateStore struct {
	box    *sealer
	secure bool
}

// StateData holds the state and nonce for an OIDC request.
type StateData struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewStateStore creates a state store. The key must be exactly 32 bytes.
func NewStateStore(key []byte, secure bool) (*StateStore, error) {
	box, err := newSealer(key)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	return &StateStore{box: box, secure: secure}, nil
}

// Generate creates a state/nonce pair and stores it in an encrypted cookie.
func (ss *StateStore) Generate(w http.ResponseWriter) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{State: state, Nonce: nonce, ExpiresAt: time.Now().Add(StateCookieMaxAge)}
	value, err := ss.box.seal(data)
	if err != nil {
		return nil, err
	}
	setCookie(w, StateCookieName, value, StateCookieMaxAge, ss.secure)
	return data, nil
}

// Validate checks the cookie against the state returned by the provider.
func (ss *StateStore) Validate(r *http.Request, state string) (*StateData, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return nil, fmt.Errorf("state cookie not found: %w", err)
	}
	var data StateData
	if err := ss.box.open(cookie.Value, &data); err != nil {
		return nil, err
	}
	if time.Now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("state expired")
	}
	if !ConstantTimeCompare(data.State, state) {
		return nil, fmt.Errorf("state mismatch")
	}
	return &data, nil
}

// Clear clears the state cookie.
func (ss *StateStore) Clear(w http.ResponseWriter) {
	setCookie(w, StateCookieName, "", -1, ss.secure)
}
