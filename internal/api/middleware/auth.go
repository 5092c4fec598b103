package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is whoever made the request: a signed-in user or an API key.
type Principal struct {
	User   *domain.User
	APIKey *domain.APIKey
}

// IsAdmin reports whether the principal may mutate the catalog. API keys act as admins.
func (p *Principal) IsAdmin() bool {
	if p == nil {
		return false
	}
	return p.APIKey != nil || p.User.IsAdmin()
}

// UserLoader resolves a session's user id to the current user row.
type UserLoader interface {
	CurrentUser(ctx context.Context, id string) (*domain.User, error)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&domain.APIError{Code: status, Message: message})
}

// Auth accepts a bearer API key or a session cookie. The user row is reloaded on every
// request so role changes apply without signing in again.
func Auth(store storage.Storage, sessions *auth.SessionManager, users UserLoader, bootstrapKey string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if header := r.Header.Get("Authorization"); header != "" {
				key, status, msg := apiKeyPrincipal(ctx, store, header, bootstrapKey, log)
				if key == nil {
					writeError(w, status, msg)
					return
				}
				ctx = context.WithValue(ctx, principalContextKey, &Principal{APIKey: key})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if sessions == nil {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			data, err := sessions.Get(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not signed in")
				return
			}
			user, err := users.CurrentUser(ctx, data.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					sessions.Clear(w)
					writeError(w, http.StatusUnauthorized, "not signed in")
					return
				}
				log.Error().Err(err).Msg("loading session user")
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			ctx = context.WithValue(ctx, principalContextKey, &Principal{User: user})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func apiKeyPrincipal(ctx context.Context, store storage.Storage, header, bootstrapKey string, log zerolog.Logger) (*domain.APIKey, int, string) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, http.StatusUnauthorized, "invalid authorization header format"
	}
	apiKey := strings.TrimPrefix(header, "Bearer ")
	if apiKey == "" {
		return nil, http.StatusUnauthorized, "empty API key"
	}

	keyCount, err := store.CountAPIKeys(ctx)
	if err != nil {
		log.Error().Err(err).Msg("counting api keys")
		return nil, http.StatusInternalServerError, "internal server error"
	}
	// The bootstrap key only works until the first real key exists.
	if keyCount == 0 && bootstrapKey != "" &&
		subtle.ConstantTimeCompare([]byte(apiKey), []byte(bootstrapKey)) == 1 {
		return &domain.APIKey{ID: "bootstrap", Name: "Bootstrap Key"}, 0, ""
	}

	storedKey, err := store.GetAPIKeyByHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, http.StatusUnauthorized, "invalid API key"
		}
		log.Error().Err(err).Msg("looking up api key")
		return nil, http.StatusInternalServerError, "internal server error"
	}

	go func(id string) {
		if err := store.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
			log.Warn().Err(err).Str("key_id", id).Msg("updating api key last used")
		}
	}(storedKey.ID)
	return storedKey, 0, ""
}

// RequireAdmin rejects principals without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashAPIKey returns the hex SHA-256 of key. Keys are high-entropy so a fast hash is enough for lookup.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// UserFromContext returns the signed-in user, or nil for API key requests.
func UserFromContext(ctx context.Context) *domain.User {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.User
	}
	return nil
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
