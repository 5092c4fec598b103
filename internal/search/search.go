// Package search derives the visible application list from a query and filter selections.
// Every function is pure and safe to call on each state change.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// MaxSuggestions bounds the suggestion list.
const MaxSuggestions = 5

// FuzzyMatch reports whether query matches text, ignoring case.
// A contiguous substring matches; otherwise every query rune must appear in text in order.
func FuzzyMatch(text, query string) bool {
	t := strings.ToLower(text)
	q := strings.ToLower(query)
	if strings.Contains(t, q) {
		return true
	}

	qi := 0
	for _, r := range t {
		if qi >= len(q) {
			break
		}
		qr, size := utf8.DecodeRuneInString(q[qi:])
		if r == qr {
			qi += size
		}
	}
	return qi >= len(q)
}

// blob joins every searchable field of app with spaces.
func blob(app *domain.Application) string {
	parts := make([]string, 0, 4+len(app.FunctionalDomains)+len(app.TechnicalStack)+len(domain.Roles))
	parts = append(parts, app.AppCode, app.Name, app.Description)
	parts = append(parts, app.FunctionalDomains...)
	parts = append(parts, app.TechnicalStack...)
	parts = append(parts, string(app.Status))
	parts = append(parts, app.Stakeholders.Names()...)
	return strings.Join(parts, " ")
}

// Matches reports whether app is retained by SearchApplications for query.
func Matches(app *domain.Application, query string) bool {
	return FuzzyMatch(blob(app), query)
}

// SearchApplications keeps the applications whose searchable text fuzzy matches query.
// A blank query returns apps itself. Input order is preserved.
func SearchApplications(apps []*domain.Application, query string) []*domain.Application {
	if strings.TrimSpace(query) == "" {
		return apps
	}
	out := make([]*domain.Application, 0, len(apps))
	for _, app := range apps {
		if Matches(app, query) {
			out = append(out, app)
		}
	}
	return out
}

// Suggestions returns up to MaxSuggestions field values containing query, ignoring case.
// Fields are scanned per application in the order appCode, name, domains, stack.
func Suggestions(apps []*domain.Application, query string) []string {
	if strings.TrimSpace(query) == "" {
		return []string{}
	}
	q := strings.ToLower(query)
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxSuggestions)

	add := func(v string) bool {
		if !strings.Contains(strings.ToLower(v), q) {
			return false
		}
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
		out = append(out, v)
		return len(out) == MaxSuggestions
	}

	for _, app := range apps {
		candidates := make([]string, 0, 2+len(app.FunctionalDomains)+len(app.TechnicalStack))
		candidates = append(candidates, app.AppCode, app.Name)
		candidates = append(candidates, app.FunctionalDomains...)
		candidates = append(candidates, app.TechnicalStack...)
		for _, c := range candidates {
			if add(c) {
				return out
			}
		}
	}
	return out
}
