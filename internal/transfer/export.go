// Package transfer reads and writes application catalog files.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// StakeholderEntry is one role/name pair in an exported record.
type StakeholderEntry struct {
	Role domain.Role `json:"role" yaml:"role"`
	Name string      `json:"name" yaml:"name"`
}

// ExportRecord is an Application with stakeholders flattened to a list.
type ExportRecord struct {
	ID                string             `json:"id" yaml:"id"`
	AppCode           string             `json:"appCode" yaml:"appCode"`
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description" yaml:"description"`
	FunctionalDomains []string           `json:"functionalDomains" yaml:"functionalDomains"`
	TechnicalStack    []string           `json:"technicalStack" yaml:"technicalStack"`
	Status            domain.Status      `json:"status" yaml:"status"`
	RelatedApps       domain.RelatedApps `json:"relatedApps" yaml:"relatedApps"`
	Stakeholders      []StakeholderEntry `json:"stakeholders" yaml:"stakeholders"`
	CreatedAt         time.Time          `json:"createdAt" yaml:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" yaml:"updatedAt"`
}

// Flatten converts apps to export records. Only roles with a name are listed, in role order.
func Flatten(apps []*domain.Application) []ExportRecord {
	out := make([]ExportRecord, 0, len(apps))
	for _, app := range apps {
		entries := make([]StakeholderEntry, 0, len(domain.Roles))
		for _, role := range domain.Roles {
			if name := app.Stakeholders.Get(role); name != "" {
				entries = append(entries, StakeholderEntry{Role: role, Name: name})
			}
		}
		out = append(out, ExportRecord{
			ID:                app.ID,
			AppCode:           app.AppCode,
			Name:              app.Name,
			Description:       app.Description,
			FunctionalDomains: emptyIfNil(app.FunctionalDomains),
			TechnicalStack:    emptyIfNil(app.TechnicalStack),
			Status:            app.Status,
			RelatedApps: domain.RelatedApps{
				Functional: emptyIfNil(app.RelatedApps.Functional),
				Technical:  emptyIfNil(app.RelatedApps.Technical),
			},
			Stakeholders: entries,
			CreatedAt:    app.CreatedAt,
			UpdatedAt:    app.UpdatedAt,
		})
	}
	return out
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// WriteJSON writes apps as an indented JSON array.
func WriteJSON(w io.Writer, apps []*domain.Application) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Flatten(apps)); err != nil {
		return fmt.Errorf("encoding json export: %w", err)
	}
	return nil
}

// WriteYAML writes apps as a YAML sequence.
func WriteYAML(w io.Writer, apps []*domain.Application) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Flatten(apps)); err != nil {
		return fmt.Errorf("encoding yaml export: %w", err)
	}
	return enc.Close()
}

// Write renders apps in format. Unknown formats return ErrInvalidInput.
func Write(w io.Writer, format string, apps []*domain.Application) error {
	switch format {
	case "", FormatJSON:
		return WriteJSON(w, apps)
	case FormatYAML, "yml":
		return WriteYAML(w, apps)
	}
	return fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, format)
}

// Filename returns the download name for an export taken at t, e.g. applications-2024-03-01.json.
func Filename(t time.Time, format string) string {
	ext := FormatJSON
	if format == FormatYAML || format == "yml" {
		ext = FormatYAML
	}
	return fmt.Sprintf("applications-%s.%s", t.Format("2006-01-02"), ext)
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatYAML || format == "yml" {
		return "application/yaml"
	}
	return "application/json"
}
