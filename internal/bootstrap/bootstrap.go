// Package bootstrap builds the storage, preference and auth backends named by the configuration.
package bootstrap

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/config"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
	"github.com/bcnelson/app-catalog/internal/storage/sql"
	supastore "github.com/bcnelson/app-catalog/internal/storage/supabase"
	"github.com/bcnelson/app-catalog/internal/supabase"
)

// SupabaseClient builds the REST client from cfg.
func SupabaseClient(cfg *config.SupabaseConfig) (*supabase.Client, error) {
	client, err := supabase.New(supabase.Config{
		URL:        cfg.URL,
		APIKey:     cfg.AnonKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff,
	})
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return client, nil
}

// OpenStorage opens the configured backing store.
func OpenStorage(cfg *config.Config, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Database.Backend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		return memory.New(), nil
	case config.BackendSupabase:
		client, err := SupabaseClient(&cfg.Supabase)
		if err != nil {
			return nil, err
		}
		log.Info().Str("url", cfg.Supabase.URL).Msg("using supabase storage")
		return supastore.New(client), nil
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Database.Backend, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Database.Backend, err)
	}
	log.Info().Str("backend", cfg.Database.Backend).Msg("storage ready")
	return store, nil
}

// OpenPreferences opens the configured preference store.
func OpenPreferences(cfg *config.PreferencesConfig, log zerolog.Logger) (prefs.Store, error) {
	switch cfg.Backend {
	case config.PrefsMemory:
		return prefs.NewMemoryStore(), nil
	case config.PrefsRedis:
		store, err := prefs.NewRedisStore(prefs.RedisOptions{
			URL:        cfg.RedisURL,
			KeyPrefix:  cfg.KeyPrefix,
			Expiration: cfg.Expiration,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	path := cfg.Path
	if path == "" {
		path = prefs.DefaultPath()
	}
	return prefs.NewFileStore(path, log), nil
}

// Authenticator returns the credential provider named by cfg.Auth.Provider.
func Authenticator(cfg *config.Config) (auth.Authenticator, error) {
	if cfg.Auth.Provider == "supabase" {
		client, err := SupabaseClient(&cfg.Supabase)
		if err != nil {
			return nil, err
		}
		return auth.NewSupabaseAuthenticator(client), nil
	}
	return auth.NewLocalAuthenticator(), nil
}

// AuthService builds the auth service over store with the configured credential provider.
func AuthService(cfg *config.Config, store storage.Storage, log zerolog.Logger) (*auth.Service, error) {
	creds, err := Authenticator(cfg)
	if err != nil {
		return nil, err
	}
	return auth.NewService(store, creds, auth.Options{
		DemoEnabled:      cfg.Auth.DemoEnabled,
		AllowAdminSignUp: cfg.Auth.AllowAdminSignUp,
	}, log), nil
}

// SessionKey returns the configured session key. Without one a random key is generated,
// so sessions do not survive a restart.
func SessionKey(cfg *config.AuthConfig, log zerolog.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecretBytes()
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	log.Warn().Msg("SESSION_SECRET not set; using a random key, sessions end on restart")
	return key, nil
}

// OIDC discovers the configured provider. It returns nil, nil when OIDC is disabled.
func OIDC(ctx context.Context, cfg *config.OIDCConfig, log zerolog.Logger) (*auth.OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	provider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
		IssuerURL:      cfg.IssuerURL,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		RedirectURL:    cfg.RedirectURL,
		Scopes:         cfg.Scopes,
		AllowedDomains: cfg.AllowedDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing OIDC provider: %w", err)
	}
	log.Info().Str("issuer", cfg.IssuerURL).Msg("OIDC login enabled")
	return provider, nil
}
