package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage"
)

// APIKeyHandler manages the bearer keys used by automation such as nightly imports.
type APIKeyHandler struct {
	store storage.Storage
	log   zerolog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(store storage.Storage, log zerolog.Logger) *APIKeyHandler {
	return &APIKeyHandler{store: store, log: log}
}

// Create issues a key. The plaintext is only in this response.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	key, hash, prefix, err := generateAPIKey()
	if err != nil {
		h.log.Error().Err(err).Msg("generating api key")
		respondError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	apiKey := &domain.APIKey{
		ID:        generateID(),
		Name:      req.Name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		h.log.Error().Err(err).Msg("storing api key")
		handleError(w, err)
		return
	}
	h.log.Info().Str("key_id", apiKey.ID).Str("name", apiKey.Name).Msg("api key created")

	respondJSON(w, http.StatusCreated, &domain.CreateAPIKeyResponse{
		ID:        apiKey.ID,
		Name:      apiKey.Name,
		Key:       key,
		KeyPrefix: apiKey.KeyPrefix,
		CreatedAt: apiKey.CreatedAt,
	})
}

// List lists keys without their secrets.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if keys == nil {
		keys = []*domain.APIKey{}
	}
	respondJSON(w, http.StatusOK, keys)
}

// Delete revokes a key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	h.log.Info().Str("key_id", id).Msg("api key revoked")
	w.WriteHeader(http.StatusNoContent)
}
