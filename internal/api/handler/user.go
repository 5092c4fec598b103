package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/app-catalog/internal/api/middleware"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
)

// UserHandler handles admin user management.
type UserHandler struct {
	users *gateway.Users
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *gateway.Users) *UserHandler {
	return &UserHandler{users: users}
}

// List lists users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if me := middleware.UserFromContext(r.Context()); me != nil && me.ID == id && req.Role != domain.UserRoleAdmin {
		respondError(w, http.StatusBadRequest, "cannot remove your own admin role")
		return
	}

	user, err := h.users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Delete removes a user.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if me := middleware.UserFromContext(r.Context()); me != nil && me.ID == id {
		respondError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
