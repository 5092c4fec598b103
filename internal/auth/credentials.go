package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/supabase"
)

// Identity is what a credential provider knows about a user.
type Identity struct {
	// ID becomes the user row id.
	ID string
	// PasswordHash is stored on the user row when the provider keeps hashes locally.
	PasswordHash string
}

// Authenticator verifies email/password credentials.
type Authenticator interface {
	// Register creates credentials for a new user.
	Register(ctx context.Context, email, password string) (*Identity, error)
	// Verify checks credentials. existing is the stored user row, or nil when none was found.
	Verify(ctx context.Context, email, password string, existing *domain.User) (*Identity, error)
}

// LocalAuthenticator keeps bcrypt hashes in the users table.
type LocalAuthenticator struct {
	Cost int
}

// NewLocalAuthenticator returns a bcrypt authenticator at the default cost.
func NewLocalAuthenticator() *LocalAuthenticator {
	return &LocalAuthenticator{Cost: bcrypt.DefaultCost}
}

func (a *LocalAuthenticator) Register(ctx context.Context, email, password string) (*Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.Cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &Identity{ID: uuid.NewString(), PasswordHash: string(hash)}, nil
}

func (a *LocalAuthenticator) Verify(ctx context.Context, email, password string, existing *domain.User) (*Identity, error) {
	if existing == nil || existing.PasswordHash == "" {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}
	return &Identity{ID: existing.ID, PasswordHash: existing.PasswordHash}, nil
}

// SupabaseAuthenticator delegates credentials to Supabase GoTrue. User rows are keyed by the GoTrue user id.
type SupabaseAuthenticator struct {
	auth *supabase.AuthClient
}

// NewSupabaseAuthenticator wraps client's auth API.
func NewSupabaseAuthenticator(client *supabase.Client) *SupabaseAuthenticator {
	return &SupabaseAuthenticator{auth: client.Auth()}
}

func (a *SupabaseAuthenticator) Register(ctx context.Context, email, password string) (*Identity, error) {
	resp, err := a.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, mapAuthError(err)
	}
	if resp.User == nil || resp.User.ID == "" {
		return nil, fmt.Errorf("sign up returned no user")
	}
	return &Identity{ID: resp.User.ID}, nil
}

func (a *SupabaseAuthenticator) Verify(ctx context.Context, email, password string, existing *domain.User) (*Identity, error) {
	resp, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, mapAuthError(err)
	}
	if resp.User == nil || resp.User.ID == "" {
		return nil, fmt.Errorf("sign in returned no user")
	}
	return &Identity{ID: resp.User.ID}, nil
}

func mapAuthError(err error) error {
	var se *supabase.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, se.Message)
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, se.Message)
	}
	return err
}
