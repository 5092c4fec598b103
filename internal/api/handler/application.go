package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/search"
	"github.com/bcnelson/app-catalog/internal/transfer"
)

// maxImportBytes caps the size of an import upload when no limit is configured.
const maxImportBytes = 10 << 20

// Search modes for GET /applications.
const (
	modeFuzzy  = "fuzzy"
	modeServer = "server"
)

// ApplicationHandler handles application endpoints.
type ApplicationHandler struct {
	apps     *gateway.Applications
	importer *transfer.Importer
	pageSize    int
	importLimit int64
	log         zerolog.Logger
	now      func() time.Time
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(apps *gateway.Applications, importer *transfer.Importer, pageSize int, importLimit int64, log zerolog.Logger) *ApplicationHandler {
	if importLimit <= 0 {
		importLimit = maxImportBytes
	}
	return &ApplicationHandler{
		apps:        apps,
		importer:    importer,
		pageSize:    pageSize,
		importLimit: importLimit,
		log:         log,
		now:         time.Now,
	}
}

// splitParam collects a repeatable query parameter, also accepting comma separated values.
func splitParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func filtersFromRequest(r *http.Request) domain.FilterState {
	f := domain.FilterState{Domains: splitParam(r, "domain")}
	for _, s := range splitParam(r, "status") {
		f.Statuses = append(f.Statuses, domain.Status(s))
	}
	return f
}

// visible returns the applications matching the request's query and filters.
// Server mode pushes the text match to the store; fuzzy mode matches in process.
func (h *ApplicationHandler) visible(r *http.Request) ([]*domain.Application, error) {
	q := r.URL.Query()
	query := q.Get("q")
	filters := filtersFromRequest(r)

	switch q.Get("mode") {
	case modeServer:
		apps, err := h.apps.Search(r.Context(), query)
		if err != nil {
			return nil, err
		}
		return search.ApplyFilters(apps, filters), nil
	case "", modeFuzzy:
		apps, err := h.apps.List(r.Context())
		if err != nil {
			return nil, err
		}
		return search.Visible(apps, query, filters), nil
	}
	return nil, domain.ErrInvalidInput
}

// List returns one page of applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.visible(r)
	if err != nil {
		handleError(w, err)
		return
	}
	page := search.Paginate(apps, queryInt(r, "page", 1), queryInt(r, "page_size", h.pageSize))
	respondJSON(w, http.StatusOK, page)
}

// Suggestions returns up to five application names for the typed query.
func (h *ApplicationHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"suggestions": search.Suggestions(apps, r.URL.Query().Get("q")),
	})
}

// Facets returns per-domain and per-status counts for the filter panel.
func (h *ApplicationHandler) Facets(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, search.Facets(apps))
}

// Stats returns the dashboard counters.
func (h *ApplicationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, search.ComputeStats(apps))
}

// Get returns a single application with its ETag.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.apps.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	SetApplicationETag(w, app)
	respondJSON(w, http.StatusOK, app)
}

// Create creates an application.
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	app, err := h.apps.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	SetApplicationETag(w, app)
	respondJSON(w, http.StatusCreated, app)
}

// Update applies a partial update. A stale If-Match is rejected with 412.
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req domain.UpdateApplicationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.apps.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if !CheckApplicationIfMatch(r, current) {
		RespondPreconditionFailed(w, applicationETag, current)
		return
	}

	app, err := h.apps.Update(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	SetApplicationETag(w, app)
	respondJSON(w, http.StatusOK, app)
}

// Delete removes an application and its child rows.
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.apps.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the visible applications as JSON or YAML.
func (h *ApplicationHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))

	apps, err := h.visible(r)
	if err != nil {
		handleError(w, err)
		return
	}

	// Render first so an unknown format still gets a JSON error body.
	var buf bytes.Buffer
	if err := transfer.Write(&buf, format, apps); err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", transfer.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+transfer.Filename(h.now(), format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn().Err(err).Msg("writing export")
	}
}

// Import creates applications from an uploaded JSON file. Per-record failures are
// reported in a 200 response; malformed files are rejected with 400 and oversized ones with 413.
func (h *ApplicationHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.importLimit)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "import file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.importer.Import(r.Context(), data)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
