package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/config"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
)

func TestOpenStorageMemory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Backend: config.BackendMemory}}
	store, err := OpenStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestOpenStorageSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "catalog.db")
	cfg := &config.Config{Database: config.DatabaseConfig{Backend: config.BackendSQLite, DSN: dsn}}

	store, err := OpenStorage(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	list, err := store.ListApplications(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpenStorageSupabaseNeedsURL(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Backend: config.BackendSupabase}}
	_, err := OpenStorage(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenPreferences(t *testing.T) {
	store, err := OpenPreferences(&config.PreferencesConfig{Backend: config.PrefsMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &prefs.MemoryStore{}, store)

	store, err = OpenPreferences(&config.PreferencesConfig{Backend: config.PrefsFile, Path: filepath.Join(t.TempDir(), "p.json")}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &prefs.FileStore{}, store)

	store, err = OpenPreferences(&config.PreferencesConfig{Backend: config.PrefsRedis, RedisURL: "redis://localhost:6379/0"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &prefs.RedisStore{}, store)
	store.Close()
}

func TestAuthenticator(t *testing.T) {
	a, err := Authenticator(&config.Config{Auth: config.AuthConfig{Provider: "local"}})
	require.NoError(t, err)
	assert.IsType(t, &auth.LocalAuthenticator{}, a)

	a, err = Authenticator(&config.Config{
		Auth:     config.AuthConfig{Provider: "supabase"},
		Supabase: config.SupabaseConfig{URL: "https://x.supabase.co", AnonKey: "anon"},
	})
	require.NoError(t, err)
	assert.IsType(t, &auth.SupabaseAuthenticator{}, a)
}

func TestSessionKey(t *testing.T) {
	key, err := SessionKey(&config.AuthConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, key, 32)

	key, err = SessionKey(&config.AuthConfig{SessionSecret: "0123456789abcdef0123456789abcdef"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), key)

	_, err = SessionKey(&config.AuthConfig{SessionSecret: "short"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestOIDCDisabled(t *testing.T) {
	p, err := OIDC(context.Background(), &config.OIDCConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAuthServiceDemo(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Provider: "local", DemoEnabled: true}}
	svc, err := AuthService(cfg, memory.New(), zerolog.Nop())
	require.NoError(t, err)

	user, err := svc.DemoSignIn(context.Background(), &domain.DemoSignInRequest{Email: "a@corp.io"})
	require.NoError(t, err)
	assert.Equal(t, "a@corp.io", user.Email)
}
