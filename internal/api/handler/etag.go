package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// ETaggable is implemented by resources that carry a version timestamp.
type ETaggable interface {
	GetID() string
	GetUpdatedAt() time.Time
}

// GenerateETag builds a strong ETag of the form "<type>-<id>-<updated_at_unix_nano>".
func GenerateETag(resourceType string, res ETaggable) string {
	return fmt.Sprintf(`"%s-%s-%d"`, resourceType, res.GetID(), res.GetUpdatedAt().UnixNano())
}

// SetETagHeader sets the ETag header on the response.
func SetETagHeader(w http.ResponseWriter, resourceType string, res ETaggable) {
	w.Header().Set("ETag", GenerateETag(resourceType, res))
}

// CheckIfMatch reports whether the request may modify res.
// A request without If-Match always passes; "*" matches any current version.
func CheckIfMatch(r *http.Request, resourceType string, res ETaggable) bool {
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	return ifMatch == GenerateETag(resourceType, res)
}

// RespondPreconditionFailed writes a 412 carrying the current ETag.
func RespondPreconditionFailed(w http.ResponseWriter, resourceType string, res ETaggable) {
	respondStandardError(w, http.StatusPreconditionFailed, domain.ErrCodePreconditionFailed,
		"resource has been modified", "", map[string]any{
			"currentETag": GenerateETag(resourceType, res),
		})
}

const applicationETag = "application"

// SetApplicationETag sets the ETag for app.
func SetApplicationETag(w http.ResponseWriter, app *domain.Application) {
	SetETagHeader(w, applicationETag, app)
}

// CheckApplicationIfMatch compares If-Match against app's current ETag.
func CheckApplicationIfMatch(r *http.Request, app *domain.Application) bool {
	return CheckIfMatch(r, applicationETag, app)
}
