// Package auth handles sign up, sign in, sessions, OIDC login and auth-state notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/validation"
)

// Event names an auth-state change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedUp       Event = "SIGNED_UP"
	EventSignedOut      Event = "SIGNED_OUT"
	EventProfileUpdated Event = "USER_UPDATED"
)

// Listener receives auth-state changes. user is nil after sign out.
type Listener func(event Event, user *domain.User)

// UserStore is the slice of storage the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
}

// Options tune the service.
type Options struct {
	// DemoEnabled allows password-less DemoSignIn.
	DemoEnabled bool
	// AllowAdminSignUp lets SignUp grant the admin role. Otherwise every sign up is a user.
	AllowAdminSignUp bool
}

// Service is the auth entry point shared by the HTTP API and the CLI.
type Service struct {
	users UserStore
	creds Authenticator
	opts  Options
	log   zerolog.Logger
	now   func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// NewService creates an auth service.
func NewService(users UserStore, creds Authenticator, opts Options, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		creds:     creds,
		opts:      opts,
		log:       log.With().Str("component", "auth").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l for auth-state changes and returns a func that removes it.
func (s *Service) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Service) notify(event Event, user *domain.User) {
	// Listeners run outside the lock in subscription order.
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if l, ok := s.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		var u *domain.User
		if user != nil {
			c := *user
			u = &c
		}
		l(event, u)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) role(requested domain.UserRole) domain.UserRole {
	if requested == domain.UserRoleAdmin && s.opts.AllowAdminSignUp {
		return domain.UserRoleAdmin
	}
	return domain.UserRoleUser
}

// SignUp registers a user with a password.
func (s *Service) SignUp(ctx context.Context, req *domain.SignUpRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	var errs validation.ValidationErrors
	if err := validation.ValidateEmail(email); err != nil {
		errs.Add("email", req.Email, err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		errs.Add("password", "", err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		errs.Add("name", req.Name, "name is required")
	}
	if req.Role != "" {
		if err := validation.ValidateUserRole(req.Role); err != nil {
			errs.Add("role", string(req.Role), err.Error())
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ident, err := s.creds.Register(ctx, email, req.Password)
	if err != nil {
		return nil, fmt.Errorf("registering credentials: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           ident.ID,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         s.role(req.Role),
		PasswordHash: ident.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")
	s.notify(EventSignedUp, user)
	return user, nil
}

// SignIn checks a password and returns the user.
func (s *Service) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ident, err := s.creds.Verify(ctx, email, req.Password, existing)
	if err != nil {
		s.log.Warn().Str("email", email).Err(err).Msg("sign in rejected")
		return nil, err
	}

	user := existing
	if user == nil {
		// Credentials live elsewhere and no profile row exists yet.
		now := s.now()
		user = &domain.User{ID: ident.ID, Email: email, Name: email, Role: domain.UserRoleUser, CreatedAt: now, UpdatedAt: now}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("creating user profile: %w", err)
		}
	}
	s.log.Info().Str("user_id", user.ID).Msg("user signed in")
	s.notify(EventSignedIn, user)
	return user, nil
}

// DemoSignIn returns the user with email, creating it when absent. No password is checked.
func (s *Service) DemoSignIn(ctx context.Context, req *domain.DemoSignInRequest) (*domain.User, error) {
	if !s.opts.DemoEnabled {
		return nil, domain.ErrDemoDisabled
	}
	email := normalizeEmail(req.Email)
	if err := validation.ValidateEmail(email); err != nil {
		var errs validation.ValidationErrors
		errs.Add("email", req.Email, err.Error())
		return nil, errs
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		role := req.Role
		if !role.Valid() {
			role = domain.UserRoleUser
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = email
		}
		now := s.now()
		user = &domain.User{ID: uuid.NewString(), Email: email, Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("creating demo user: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("demo user created")
	default:
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	s.notify(EventSignedIn, user)
	return user, nil
}

// OIDCSignIn finds the user by the verified email claim, creating a plain user on first login.
func (s *Service) OIDCSignIn(ctx context.Context, claims *OIDCClaims) (*domain.User, error) {
	email := normalizeEmail(claims.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		name := claims.Name
		if name == "" {
			name = email
		}
		now := s.now()
		user = &domain.User{ID: uuid.NewString(), Email: email, Name: name, Role: domain.UserRoleUser, CreatedAt: now, UpdatedAt: now}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	s.notify(EventSignedIn, user)
	return user, nil
}

// SignOut announces that user has signed out.
func (s *Service) SignOut(ctx context.Context, user *domain.User) {
	if user != nil {
		s.log.Info().Str("user_id", user.ID).Msg("user signed out")
	}
	s.notify(EventSignedOut, nil)
}

// CurrentUser loads the user by id.
func (s *Service) CurrentUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
	}
	return user, err
}

// UpdateProfile changes the user's own name or email.
func (s *Service) UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	var errs validation.ValidationErrors
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			errs.Add("name", *req.Name, "name is required")
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := validation.ValidateEmail(email); err != nil {
			errs.Add("email", *req.Email, err.Error())
		}
		user.Email = email
	}
	if errs.HasErrors() {
		return nil, errs
	}

	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	s.notify(EventProfileUpdated, user)
	return user, nil
}
