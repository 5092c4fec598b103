package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role is one of the six fixed stakeholder roles on an application.
type Role string

const (
	RoleApplicationArchitect Role = "applicationArchitect"
	RoleProductOwner         Role = "productOwner"
	RoleLeadDeveloper        Role = "leadDeveloper"
	RoleDevOpsEngineer       Role = "devOpsEngineer"
	RoleSecurityOfficer      Role = "securityOfficer"
	RoleGovernanceManager    Role = "governanceManager"
)

// Roles lists the stakeholder roles in their canonical order.
var Roles = []Role{
	RoleApplicationArchitect,
	RoleProductOwner,
	RoleLeadDeveloper,
	RoleDevOpsEngineer,
	RoleSecurityOfficer,
	RoleGovernanceManager,
}

var roleLabels = map[Role]string{
	RoleApplicationArchitect: "Application Architect",
	RoleProductOwner:         "Product Owner",
	RoleLeadDeveloper:        "Lead Developer",
	RoleDevOpsEngineer:       "DevOps Engineer",
	RoleSecurityOfficer:      "Security Officer",
	RoleGovernanceManager:    "Governance Manager",
}

// ParseRole converts a role key into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleLabels[r]; !ok {
		return "", fmt.Errorf("%w: unknown stakeholder role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Label returns the human readable role name.
func (r Role) Label() string {
	return roleLabels[r]
}

// Stakeholders maps each role to a display name. Empty means unassigned.
type Stakeholders struct {
	ApplicationArchitect string `json:"applicationArchitect" yaml:"applicationArchitect"`
	ProductOwner         string `json:"productOwner" yaml:"productOwner"`
	LeadDeveloper        string `json:"leadDeveloper" yaml:"leadDeveloper"`
	DevOpsEngineer       string `json:"devOpsEngineer" yaml:"devOpsEngineer"`
	SecurityOfficer      string `json:"securityOfficer" yaml:"securityOfficer"`
	GovernanceManager    string `json:"governanceManager" yaml:"governanceManager"`
}

func (s *Stakeholders) field(r Role) *string {
	switch r {
	case RoleApplicationArchitect:
		return &s.ApplicationArchitect
	case RoleProductOwner:
		return &s.ProductOwner
	case RoleLeadDeveloper:
		return &s.LeadDeveloper
	case RoleDevOpsEngineer:
		return &s.DevOpsEngineer
	case RoleSecurityOfficer:
		return &s.SecurityOfficer
	case RoleGovernanceManager:
		return &s.GovernanceManager
	}
	return nil
}

// Get returns the name assigned to r.
func (s Stakeholders) Get(r Role) string {
	if f := s.field(r); f != nil {
		return *f
	}
	return ""
}

// Set assigns name to r.
func (s *Stakeholders) Set(r Role, name string) error {
	f := s.field(r)
	if f == nil {
		return fmt.Errorf("%w: unknown stakeholder role %q", ErrInvalidInput, r)
	}
	*f = name
	return nil
}

// Names returns the six names in canonical role order.
func (s Stakeholders) Names() []string {
	names := make([]string, 0, len(Roles))
	for _, r := range Roles {
		names = append(names, s.Get(r))
	}
	return names
}

// UnmarshalJSON rejects role keys outside the fixed set.
func (s *Stakeholders) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Stakeholders{}
	for key, name := range raw {
		role, err := ParseRole(key)
		if err != nil {
			return err
		}
		_ = out.Set(role, name)
	}
	*s = out
	return nil
}

// Stakeholder is a person in the stakeholder directory.
type Stakeholder struct {
	ID         string             `json:"id" db:"id"`
	Name       string             `json:"name" db:"name"`
	Email      string             `json:"email" db:"email"`
	Department string             `json:"department" db:"department"`
	Position   string             `json:"position" db:"position"`
	Roles      []*StakeholderRole `json:"roles" db:"-"`
	CreatedAt  time.Time          `json:"createdAt" db:"created_at"`
}

// StakeholderRole links a directory stakeholder to an application under a free-text role label.
type StakeholderRole struct {
	ID              string    `json:"id" db:"id"`
	StakeholderID   string    `json:"stakeholderId" db:"stakeholder_id"`
	ApplicationID   string    `json:"applicationId" db:"application_id"`
	ApplicationCode string    `json:"applicationCode,omitempty" db:"application_code"`
	Role            string    `json:"role" db:"role"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// CreateStakeholderRequest is the request body for creating a stakeholder.
type CreateStakeholderRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// UpdateStakeholderRequest is the request body for updating a stakeholder.
type UpdateStakeholderRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
}

// AddStakeholderRoleRequest is the request body for linking a stakeholder to an application.
type AddStakeholderRoleRequest struct {
	ApplicationID string `json:"applicationId"`
	Role          string `json:"role"`
}
