package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle status of a cataloged application.
type Status string

const (
	StatusActive           Status = "Active"
	StatusInactive         Status = "Inactive"
	StatusDeprecated       Status = "Deprecated"
	StatusUnderDevelopment Status = "Under Development"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusActive, StatusInactive, StatusDeprecated, StatusUnderDevelopment}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeprecated, StatusUnderDevelopment:
		return true
	}
	return false
}

// RelationshipType tags a related application reference.
type RelationshipType string

const (
	RelationshipFunctional RelationshipType = "functional"
	RelationshipTechnical  RelationshipType = "technical"
)

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	return t == RelationshipFunctional || t == RelationshipTechnical
}

// RelatedApps holds soft references to other applications by app code.
// Codes are not enforced and may point to applications that do not exist.
type RelatedApps struct {
	Functional []string `json:"functional" yaml:"functional"`
	Technical  []string `json:"technical" yaml:"technical"`
}

// Application is a catalog entry with its stakeholders and relationships joined in.
type Application struct {
	ID                string       `json:"id"`
	AppCode           string       `json:"appCode"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	FunctionalDomains []string     `json:"functionalDomains"`
	TechnicalStack    []string     `json:"technicalStack"`
	Status            Status       `json:"status"`
	RelatedApps       RelatedApps  `json:"relatedApps"`
	Stakeholders      Stakeholders `json:"stakeholders"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// GetID returns the application id.
func (a *Application) GetID() string { return a.ID }

// GetUpdatedAt returns the last modification time.
func (a *Application) GetUpdatedAt() time.Time { return a.UpdatedAt }

// CreateApplicationRequest is the request body for creating an application.
// An empty AppCode asks the server to generate one.
type CreateApplicationRequest struct {
	AppCode           string        `json:"appCode,omitempty"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	FunctionalDomains []string      `json:"functionalDomains,omitempty"`
	TechnicalStack    []string      `json:"technicalStack,omitempty"`
	Status            Status        `json:"status,omitempty"`
	RelatedApps       *RelatedApps  `json:"relatedApps,omitempty"`
	Stakeholders      *Stakeholders `json:"stakeholders,omitempty"`
}

// UpdateApplicationRequest is the request body for updating an application.
// Nil fields are left unchanged; a nil Stakeholders or RelatedApps keeps the existing child rows.
type UpdateApplicationRequest struct {
	AppCode           *string       `json:"appCode,omitempty"`
	Name              *string       `json:"name,omitempty"`
	Description       *string       `json:"description,omitempty"`
	FunctionalDomains []string      `json:"functionalDomains,omitempty"`
	TechnicalStack    []string      `json:"technicalStack,omitempty"`
	Status            *Status       `json:"status,omitempty"`
	RelatedApps       *RelatedApps  `json:"relatedApps,omitempty"`
	Stakeholders      *Stakeholders `json:"stakeholders,omitempty"`
}

// ApplicationRecord is the applications table row.
type ApplicationRecord struct {
	ID                string    `json:"id"`
	AppCode           string    `json:"app_code"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	FunctionalDomains []string  `json:"functional_domains"`
	TechnicalStack    []string  `json:"technical_stack"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StakeholderAssignment is one application_stakeholders row: a named person in one role for one application.
type StakeholderAssignment struct {
	ID            string    `json:"id" db:"id"`
	ApplicationID string    `json:"application_id" db:"application_id"`
	Role          Role      `json:"role" db:"role"`
	Name          string    `json:"name" db:"name"`
	StakeholderID *string   `json:"stakeholder_id" db:"stakeholder_id"` // directory link, nil when no exact name match
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Relationship is one application_relationships row.
type Relationship struct {
	ID            string           `json:"id" db:"id"`
	SourceAppID   string           `json:"source_app_id" db:"source_app_id"`
	TargetAppCode string           `json:"target_app_code" db:"target_app_code"`
	Type          RelationshipType `json:"relationship_type" db:"relationship_type"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// String implements fmt.Stringer for log output.
func (a *Application) String() string {
	return fmt.Sprintf("%s (%s)", a.AppCode, a.Name)
}
