package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// ValidationError is one rejected form field. Value echoes the submitted input and is empty for secrets.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one request so a form can show them together.
type ValidationErrors []*ValidationError

// Error joins the first field error with a count of the rest.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Is lets callers match any validation failure with errors.Is(err, domain.ErrInvalidInput).
func (e ValidationErrors) Is(target error) bool {
	return target == domain.ErrInvalidInput
}

// Add records a failure for field.
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, &ValidationError{Field: field, Value: value, Message: message})
}

// HasErrors reports whether anything was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields lists the rejected field names in the order they were recorded.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, v := range e {
		out = append(out, v.Field)
	}
	return out
}

// Summary is a one-line, comma separated form of every message, used in CLI output.
func (e ValidationErrors) Summary() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, ", ")
}
