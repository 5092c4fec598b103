package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// SessionCookieName is the name of the signed-in user's cookie.
const SessionCookieName = "catalog_session"

// SessionManager handles encrypted session cookies.
type SessionManager struct {
	box      *sealer
	duration time.Duration
	secure   bool // Use Secure flag on cookies (for HTTPS)
	now      func() time.Time
}

// SessionData is what the session cookie carries.
type SessionData struct {
	UserID    string          `json:"uid"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      domain.UserRole `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewSessionManager creates a session manager. The key must be exactly 32 bytes.
func NewSessionManager(key []byte, duration time.Duration, secure bool) (*SessionManager, error) {
	box, err := newSealer(key)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	return &SessionManager{box: box, duration: duration, secure: secure, now: time.Now}, nil
}

// Create writes a session cookie for user.
func (sm *SessionManager) Create(w http.ResponseWriter, user *domain.User) error {
	now := sm.now()
	value, err := sm.box.seal(&SessionData{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.duration),
	})
	if err != nil {
		return err
	}
	setCookie(w, SessionCookieName, value, sm.duration, sm.secure)
	return nil
}

// Get returns the session carried by r. Missing, tampered and expired cookies wrap ErrUnauthorized.
func (sm *SessionManager) Get(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: session cookie not found", domain.ErrUnauthorized)
	}
	var data SessionData
	if err := sm.box.open(cookie.Value, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if sm.now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}
	return &data, nil
}

// Clear expires the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	setCookie(w, SessionCookieName, "", -1, sm.secure)
}
