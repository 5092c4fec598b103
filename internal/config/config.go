package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite3"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"
)

// Preference backends.
const (
	PrefsFile   = "file"
	PrefsRedis  = "redis"
	PrefsMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Supabase    SupabaseConfig
	Auth        AuthConfig
	OIDC        OIDCConfig
	Log         LogConfig
	Preferences PreferencesConfig
	Search      SearchConfig
	RateLimit   RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxImportBytes  int64         `env:"SERVER_MAX_IMPORT_BYTES" envDefault:"10485760"`
	// URL is used by the CLI to reach a running server. Empty means talk to the store directly.
	URL string `env:"CATALOG_SERVER_URL"`
}

// DatabaseConfig selects and configures the backing store.
type DatabaseConfig struct {
	Backend string `env:"DB_BACKEND" envDefault:"sqlite3"`
	DSN     string `env:"DB_DSN" envDefault:"data/app-catalog.db"`
}

// SupabaseConfig configures the PostgREST and GoTrue backend.
type SupabaseConfig struct {
	URL        string        `env:"SUPABASE_URL"`
	AnonKey    string        `env:"SUPABASE_ANON_KEY"`
	Timeout    time.Duration `env:"SUPABASE_TIMEOUT" envDefault:"30s"`
	MaxRetries int           `env:"SUPABASE_MAX_RETRIES" envDefault:"3"`
	Backoff    time.Duration `env:"SUPABASE_RETRY_BACKOFF" envDefault:"200ms"`
}

// AuthConfig controls sign in and sessions.
type AuthConfig struct {
	// Provider is local (bcrypt in the users table) or supabase (GoTrue).
	Provider         string        `env:"AUTH_PROVIDER" envDefault:"local"`
	SessionSecret    string        `env:"SESSION_SECRET"`
	SessionDuration  time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	SecureCookies    bool          `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
	DemoEnabled      bool          `env:"AUTH_DEMO_ENABLED" envDefault:"false"`
	AllowAdminSignUp bool          `env:"AUTH_ALLOW_ADMIN_SIGNUP" envDefault:"false"`
	BootstrapAPIKey  string        `env:"BOOTSTRAP_API_KEY"`
}

// SessionSecretBytes returns the session key as 32 bytes. A 64 character value is read as hex.
func (c *AuthConfig) SessionSecretBytes() ([]byte, error) {
	if c.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) == 64 {
		if decoded, err := hex.DecodeString(c.SessionSecret); err == nil {
			return decoded, nil
		}
	}
	if len(c.SessionSecret) != 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be 32 bytes (or 64 hex characters)")
	}
	return []byte(c.SessionSecret), nil
}

// OIDCConfig holds OIDC login configuration.
type OIDCConfig struct {
	Enabled        bool     `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL      string   `env:"OIDC_ISSUER_URL"`
	ClientID       string   `env:"OIDC_CLIENT_ID"`
	ClientSecret   string   `env:"OIDC_CLIENT_SECRET"`
	RedirectURL    string   `env:"OIDC_REDIRECT_URL"`
	Scopes         []string `env:"OIDC_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	AllowedDomains []string `env:"OIDC_ALLOWED_DOMAINS" envSeparator:","`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// PreferencesConfig selects where client preferences persist.
type PreferencesConfig struct {
	Backend    string        `env:"PREFS_BACKEND" envDefault:"file"`
	Path       string        `env:"PREFS_PATH"`
	RedisURL   string        `env:"PREFS_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix  string        `env:"PREFS_KEY_PREFIX" envDefault:"app-catalog:"`
	Expiration time.Duration `env:"PREFS_EXPIRATION" envDefault:"0s"`
}

// SearchConfig tunes client-side search.
type SearchConfig struct {
	Debounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"300ms"`
	PageSize int           `env:"SEARCH_PAGE_SIZE" envDefault:"10"`
}

// RateLimitConfig limits requests per client on the auth routes.
type RateLimitConfig struct {
	Enabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst   int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		v    any
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"supabase", &cfg.Supabase},
		{"auth", &cfg.Auth},
		{"oidc", &cfg.OIDC},
		{"log", &cfg.Log},
		{"preferences", &cfg.Preferences},
		{"search", &cfg.Search},
		{"rate limit", &cfg.RateLimit},
	}
	for _, s := range sections {
		if err := env.Parse(s.v); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}
	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case BackendSQLite, BackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s backend", c.Database.Backend)
		}
	case BackendSupabase:
		if err := c.Supabase.validate(); err != nil {
			return err
		}
	case BackendMemory:
	default:
		return fmt.Errorf("DB_BACKEND must be one of sqlite3, postgres, supabase, memory")
	}

	switch c.Auth.Provider {
	case "local":
	case "supabase":
		if err := c.Supabase.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be local or supabase")
	}
	if c.Auth.SessionSecret != "" {
		if _, err := c.Auth.SessionSecretBytes(); err != nil {
			return err
		}
	}

	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
		if c.OIDC.ClientSecret == "" {
			return fmt.Errorf("OIDC_CLIENT_SECRET is required when OIDC is enabled")
		}
		if c.OIDC.RedirectURL == "" {
			return fmt.Errorf("OIDC_REDIRECT_URL is required when OIDC is enabled")
		}
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required when OIDC is enabled")
		}
	}

	switch c.Preferences.Backend {
	case PrefsFile, PrefsMemory:
	case PrefsRedis:
		if c.Preferences.RedisURL == "" {
			return fmt.Errorf("PREFS_REDIS_URL is required for the redis preference backend")
		}
	default:
		return fmt.Errorf("PREFS_BACKEND must be one of file, redis, memory")
	}

	if c.Search.PageSize < 1 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be at least 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}
	return nil
}

func (c *SupabaseConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return nil
}
