package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bcnelson/app-catalog/internal/domain"
)

func TestValidateAppCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid code", "HR1", false},
		{"valid code zero", "FN0", false},
		{"empty", "", true},
		{"too short", "HR", true},
		{"too long", "HR12", true},
		{"lowercase letters", "hr1", true},
		{"digit first", "1HR", true},
		{"letter last", "HRX", true},
		{"symbol", "H-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAppCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAppCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "jane@example.com", false},
		{"empty", "", true},
		{"missing at", "jane.example.com", true},
		{"at first", "@example.com", true},
		{"at last", "jane@", true},
		{"two ats", "jane@doe@example.com", true},
		{"whitespace", "jane doe@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateApplication(t *testing.T) {
	valid := func() *domain.ApplicationRecord {
		return &domain.ApplicationRecord{
			AppCode:           "HR1",
			Name:              "Employee Management System",
			Status:            domain.StatusActive,
			FunctionalDomains: []string{"Human Resources"},
			TechnicalStack:    []string{"React", "Node.js"},
		}
	}

	tests := []struct {
		name       string
		mutate     func(r *domain.ApplicationRecord)
		wantFields []string
	}{
		{"valid", func(r *domain.ApplicationRecord) {}, nil},
		{"bad code", func(r *domain.ApplicationRecord) { r.AppCode = "H1" }, []string{"appCode"}},
		{"blank name", func(r *domain.ApplicationRecord) { r.Name = "   " }, []string{"name"}},
		{"bad status", func(r *domain.ApplicationRecord) { r.Status = "Retired" }, []string{"status"}},
		{"unknown domain", func(r *domain.ApplicationRecord) { r.FunctionalDomains = []string{"Finance", "Gardening"} }, []string{"functionalDomains[1]"}},
		{"empty stack entry", func(r *domain.ApplicationRecord) { r.TechnicalStack = []string{""} }, []string{"technicalStack[0]"}},
		{"several", func(r *domain.ApplicationRecord) { r.AppCode = ""; r.Name = "" }, []string{"appCode", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			errs := ValidateApplication(rec)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.wantFields))
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
				}
			}
		})
	}
}

func TestValidateStakeholder(t *testing.T) {
	tests := []struct {
		name    string
		s       domain.Stakeholder
		wantErr bool
	}{
		{"valid", domain.Stakeholder{Name: "Sarah Johnson", Email: "sarah@example.com", Department: "Finance"}, false},
		{"empty department allowed", domain.Stakeholder{Name: "Sarah Johnson", Email: "sarah@example.com"}, false},
		{"missing name", domain.Stakeholder{Email: "sarah@example.com"}, true},
		{"bad email", domain.Stakeholder{Name: "Sarah Johnson", Email: "sarah"}, true},
		{"unknown department", domain.Stakeholder{Name: "Sarah Johnson", Email: "sarah@example.com", Department: "Catering"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStakeholder(&tt.s)
			if errs.HasErrors() != tt.wantErr {
				t.Errorf("ValidateStakeholder() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateRelatedApps(t *testing.T) {
	if errs := ValidateRelatedApps(nil); errs.HasErrors() {
		t.Errorf("nil related apps should be valid, got %v", errs)
	}
	rel := &domain.RelatedApps{Functional: []string{"ZZ9"}, Technical: []string{" "}}
	errs := ValidateRelatedApps(rel)
	if len(errs) != 1 || errs[0].Field != "relatedApps.technical[0]" {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateUserRole(t *testing.T) {
	for _, r := range []domain.UserRole{domain.UserRoleUser, domain.UserRoleAdmin} {
		if err := ValidateUserRole(r); err != nil {
			t.Errorf("ValidateUserRole(%q) = %v", r, err)
		}
	}
	if err := ValidateUserRole("owner"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "" {
		t.Errorf("empty errors should have empty message")
	}
	errs.Add("name", "", "name is required")
	errs.Add("appCode", "x", "bad")
	want := "name: name is required (and 1 more errors)"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}

func TestValidationErrorsMatchInvalidInput(t *testing.T) {
	var errs ValidationErrors
	errs.Add("name", "", "name is required")
	errs.Add("functionalDomains", "Space", "unknown functional domain")

	var err error = errs
	if !errors.Is(fmt.Errorf("creating application: %w", err), domain.ErrInvalidInput) {
		t.Errorf("expected validation errors to match ErrInvalidInput")
	}
	if got := strings.Join(errs.Fields(), ","); got != "name,functionalDomains" {
		t.Errorf("Fields() = %q", got)
	}
	want := "name: name is required, functionalDomains: unknown functional domain"
	if errs.Summary() != want {
		t.Errorf("Summary() = %q, want %q", errs.Summary(), want)
	}
}
