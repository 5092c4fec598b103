package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
)

// StakeholderHandler handles the stakeholder directory endpoints.
type StakeholderHandler struct {
	people *gateway.Stakeholders
}

// NewStakeholderHandler creates a new StakeholderHandler.
func NewStakeholderHandler(people *gateway.Stakeholders) *StakeholderHandler {
	return &StakeholderHandler{people: people}
}

// List lists stakeholders with their application roles.
func (h *StakeholderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.people.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// ByDepartment groups stakeholders by department.
func (h *StakeholderHandler) ByDepartment(w http.ResponseWriter, r *http.Request) {
	groups, err := h.people.ByDepartment(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Get returns a stakeholder.
func (h *StakeholderHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.people.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// Create adds a stakeholder to the directory.
func (h *StakeholderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStakeholderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.people.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// Update edits a stakeholder. Renames are carried to the applications naming them.
func (h *StakeholderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStakeholderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.people.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// Delete removes a stakeholder.
func (h *StakeholderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.people.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddRole links the stakeholder to an application.
func (h *StakeholderHandler) AddRole(w http.ResponseWriter, r *http.Request) {
	var req domain.AddStakeholderRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := h.people.AddRole(r.Context(), chi.URLParam(r, "id"), req.ApplicationID, req.Role)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, role)
}

// RemoveRole unlinks one of the stakeholder's roles.
func (h *StakeholderHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	if err := h.people.RemoveRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "role_id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
