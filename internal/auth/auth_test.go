package auth

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
	"github.com/bcnelson/app-catalog/internal/supabase"
	"github.com/bcnelson/app-catalog/internal/validation"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func newService(opts Options) *Service {
	return NewService(memory.New(), &LocalAuthenticator{Cost: bcrypt.MinCost}, opts, zerolog.Nop())
}

func TestSessionRoundTrip(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Create(rec, &domain.User{ID: "u1", Email: "a@corp.io", Name: "Ann", Role: domain.UserRoleAdmin}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	got, err := sm.Get(req)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.UserRoleAdmin, got.Role)
}

func TestSessionRejects(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	_, err = sm.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered"})
	_, err = sm.Get(req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	sm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Create(rec, &domain.User{ID: "u1"}))
	sm.now = time.Now
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	_, err = sm.Get(req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewSessionManagerKeyLength(t *testing.T) {
	_, err := NewSessionManager([]byte("short"), time.Hour, false)
	assert.Error(t, err)
}

func TestStateStore(t *testing.T) {
	ss, err := NewStateStore(testKey, true)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	data, err := ss.Generate(rec)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/oidc/callback", nil)
	for _, c := range rec.Result().Cookies() {
		assert.True(t, c.Secure)
		req.AddCookie(c)
	}
	got, err := ss.Validate(req, data.State)
	require.NoError(t, err)
	assert.Equal(t, data.Nonce, got.Nonce)

	_, err = ss.Validate(req, "other")
	assert.Error(t, err)
}

func TestCheckEmailDomain(t *testing.T) {
	assert.NoError(t, CheckEmailDomain("a@corp.io", nil))
	assert.NoError(t, CheckEmailDomain("a@CORP.io", []string{"corp.io"}))
	assert.Error(t, CheckEmailDomain("a@else.io", []string{"corp.io"}))
	assert.Error(t, CheckEmailDomain("", nil))
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newService(Options{})
	ctx := context.Background()

	var events []Event
	unsubscribe := svc.Subscribe(func(e Event, u *domain.User) { events = append(events, e) })

	user, err := svc.SignUp(ctx, &domain.SignUpRequest{Email: " Ann@Corp.io ", Password: "correct-horse", Name: "Ann", Role: domain.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "ann@corp.io", user.Email)
	assert.Equal(t, domain.UserRoleUser, user.Role, "admin sign up needs AllowAdminSignUp")
	assert.NotEmpty(t, user.PasswordHash)

	_, err = svc.SignUp(ctx, &domain.SignUpRequest{Email: "ann@corp.io", Password: "correct-horse", Name: "Ann"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "ANN@corp.io", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.SignIn(ctx, &domain.SignInRequest{Email: "ann@corp.io", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.SignIn(ctx, &domain.SignInRequest{Email: "nobody@corp.io", Password: "whatever1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	svc.SignOut(ctx, got)
	unsubscribe()
	svc.SignOut(ctx, got)
	assert.Equal(t, []Event{EventSignedUp, EventSignedIn, EventSignedOut}, events)
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(Options{})
	_, err := svc.SignUp(context.Background(), &domain.SignUpRequest{Email: "bad", Password: "short", Role: "owner"})
	var errs validation.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 4)
}

func TestAdminSignUpAllowed(t *testing.T) {
	svc := newService(Options{AllowAdminSignUp: true})
	user, err := svc.SignUp(context.Background(), &domain.SignUpRequest{Email: "root@corp.io", Password: "correct-horse", Name: "Root", Role: domain.UserRoleAdmin})
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestDemoSignIn(t *testing.T) {
	ctx := context.Background()
	_, err := newService(Options{}).DemoSignIn(ctx, &domain.DemoSignInRequest{Email: "demo@corp.io"})
	assert.ErrorIs(t, err, domain.ErrDemoDisabled)

	svc := newService(Options{DemoEnabled: true})
	first, err := svc.DemoSignIn(ctx, &domain.DemoSignInRequest{Email: "Demo@corp.io", Name: "Demo", Role: domain.UserRoleAdmin})
	require.NoError(t, err)
	assert.True(t, first.IsAdmin())

	second, err := svc.DemoSignIn(ctx, &domain.DemoSignInRequest{Email: "demo@corp.io"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdateProfile(t *testing.T) {
	svc := newService(Options{DemoEnabled: true})
	ctx := context.Background()
	user, err := svc.DemoSignIn(ctx, &domain.DemoSignInRequest{Email: "a@corp.io", Name: "A"})
	require.NoError(t, err)

	var seen *domain.User
	svc.Subscribe(func(e Event, u *domain.User) {
		if e == EventProfileUpdated {
			seen = u
		}
	})

	name := "Alice"
	updated, err := svc.UpdateProfile(ctx, user.ID, &domain.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	require.NotNil(t, seen)
	assert.Equal(t, "Alice", seen.Name)

	bad := "nope"
	_, err = svc.UpdateProfile(ctx, user.ID, &domain.UpdateProfileRequest{Email: &bad})
	var errs validation.ValidationErrors
	assert.ErrorAs(t, err, &errs)

	_, err = svc.CurrentUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOIDCSignInCreatesUser(t *testing.T) {
	svc := newService(Options{})
	ctx := context.Background()
	first, err := svc.OIDCSignIn(ctx, &OIDCClaims{Email: "Sso@corp.io", Name: "SSO"})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleUser, first.Role)

	again, err := svc.OIDCSignIn(ctx, &OIDCClaims{Email: "sso@corp.io"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestSupabaseAuthenticator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/signup":
			w.Write([]byte(`{"id":"gotrue-1","email":"a@corp.io"}`))
		case "/auth/v1/token":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "anon"})
	require.NoError(t, err)
	svc := NewService(memory.New(), NewSupabaseAuthenticator(client), Options{}, zerolog.Nop())
	ctx := context.Background()

	user, err := svc.SignUp(ctx, &domain.SignUpRequest{Email: "a@corp.io", Password: "correct-horse", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "gotrue-1", user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.SignIn(ctx, &domain.SignInRequest{Email: "a@corp.io", Password: "bad-password"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
