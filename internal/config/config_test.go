package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxImportBytes)
	assert.Equal(t, BackendSQLite, cfg.Database.Backend)
	assert.Equal(t, "local", cfg.Auth.Provider)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.OIDC.Scopes)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_BACKEND", "supabase")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("OIDC_ALLOWED_DOMAINS", "corp.io,example.com")
	t.Setenv("PREFS_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"corp.io", "example.com"}, cfg.OIDC.AllowedDomains)
	assert.NoError(t, cfg.Validate())
}

func TestLoadBadValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "server")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown backend", map[string]string{"DB_BACKEND": "mongo"}, "DB_BACKEND"},
		{"supabase without url", map[string]string{"DB_BACKEND": "supabase"}, "SUPABASE_URL"},
		{"supabase auth without key", map[string]string{"AUTH_PROVIDER": "supabase", "SUPABASE_URL": "https://x"}, "SUPABASE_ANON_KEY"},
		{"short secret", map[string]string{"SESSION_SECRET": "tiny"}, "SESSION_SECRET"},
		{"oidc incomplete", map[string]string{"OIDC_ENABLED": "true", "OIDC_ISSUER_URL": "https://idp"}, "OIDC_CLIENT_ID"},
		{"bad prefs", map[string]string{"PREFS_BACKEND": "s3"}, "PREFS_BACKEND"},
		{"page size", map[string]string{"SEARCH_PAGE_SIZE": "0"}, "SEARCH_PAGE_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestSessionSecretBytes(t *testing.T) {
	raw := AuthConfig{SessionSecret: strings.Repeat("s", 32)}
	b, err := raw.SessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)

	hexed := AuthConfig{SessionSecret: strings.Repeat("ab", 32)}
	b, err = hexed.SessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, byte(0xab), b[0])
}
