package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/api/middleware"
	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/domain"
)

// AuthHandler handles sign in, sign up and sign out. OIDC routes are only active when a provider is configured.
type AuthHandler struct {
	svc      *auth.Service
	sessions *auth.SessionManager
	oidc     *auth.OIDCProvider
	states   *auth.StateStore
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. oidc and states may be nil.
func NewAuthHandler(svc *auth.Service, sessions *auth.SessionManager, oidc *auth.OIDCProvider, states *auth.StateStore, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, oidc: oidc, states: states, log: log}
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user *domain.User, status int) {
	if err := h.sessions.Create(w, user); err != nil {
		h.log.Error().Err(err).Msg("creating session")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, status, user)
}

// SignUp registers a password account and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.SignUp(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	h.startSession(w, user, http.StatusCreated)
}

// SignIn checks a password and starts a session.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.SignIn(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	h.startSession(w, user, http.StatusOK)
}

// Demo signs in by email alone when demo mode is enabled.
func (h *AuthHandler) Demo(w http.ResponseWriter, r *http.Request) {
	var req domain.DemoSignInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.DemoSignIn(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	h.startSession(w, user, http.StatusOK)
}

// SignOut clears the session. It succeeds without a session too.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var user *domain.User
	if data, err := h.sessions.Get(r); err == nil {
		user = &domain.User{ID: data.UserID, Email: data.Email, Name: data.Name, Role: data.Role}
	}
	h.sessions.Clear(w)
	h.svc.SignOut(r.Context(), user)
	w.WriteHeader(http.StatusNoContent)
}

// OIDCLogin redirects to the identity provider.
func (h *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusNotFound, "OIDC login is not configured")
		return
	}
	st, err := h.states.Generate(w)
	if err != nil {
		h.log.Error().Err(err).Msg("generating oidc state")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.Redirect(w, r, h.oidc.AuthCodeURL(st.State, st.Nonce), http.StatusFound)
}

// OIDCCallback completes the provider login and starts a session.
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusNotFound, "OIDC login is not configured")
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.log.Warn().Str("error", e).Str("description", q.Get("error_description")).Msg("oidc provider returned error")
		respondError(w, http.StatusUnauthorized, "login was rejected by the identity provider")
		return
	}

	st, err := h.states.Validate(r, q.Get("state"))
	h.states.Clear(w)
	if err != nil {
		h.log.Warn().Err(err).Msg("invalid oidc state")
		respondError(w, http.StatusBadRequest, "invalid login state")
		return
	}

	claims, err := h.oidc.Exchange(r.Context(), q.Get("code"), st.Nonce)
	if err != nil {
		h.log.Warn().Err(err).Msg("oidc exchange failed")
		respondError(w, http.StatusUnauthorized, "login failed")
		return
	}

	user, err := h.svc.OIDCSignIn(r.Context(), claims)
	if err != nil {
		h.log.Error().Err(err).Msg("oidc sign in")
		handleError(w, err)
		return
	}
	if err := h.sessions.Create(w, user); err != nil {
		h.log.Error().Err(err).Msg("creating session")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusNotFound, "API keys have no user profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateMe edits the signed-in user's name or email and refreshes the session cookie.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current := middleware.UserFromContext(r.Context())
	if current == nil {
		respondError(w, http.StatusNotFound, "API keys have no user profile")
		return
	}
	var req domain.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), current.ID, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	h.startSession(w, user, http.StatusOK)
}

// Catalog returns the enumerations forms are built from.
func Catalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.CatalogInfo())
}
