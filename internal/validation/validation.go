// Package validation provides field validation for catalog entities.
// Functions return plain errors for a single value or ValidationErrors for a whole entity.
package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// isAlpha returns true if the byte is an ASCII letter.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isUpper returns true if the byte is an uppercase ASCII letter.
func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// ValidateAppCode validates an application code.
// Codes are two uppercase letters followed by one digit, e.g. "HR1".
func ValidateAppCode(code string) error {
	if code == "" {
		return fmt.Errorf("app code must not be empty")
	}
	if len(code) != 3 {
		return fmt.Errorf("app code must be exactly 3 characters")
	}
	if !isAlpha(code[0]) || !isAlpha(code[1]) {
		return fmt.Errorf("app code must start with two letters")
	}
	if !isUpper(code[0]) || !isUpper(code[1]) {
		return fmt.Errorf("app code letters must be uppercase")
	}
	if !isNum(code[2]) {
		return fmt.Errorf("app code must end with a digit")
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email must not be empty")
	}
	if strings.ContainsAny(email, " \t\n") {
		return fmt.Errorf("email must not contain whitespace")
	}
	atIndex := strings.Index(email, "@")
	if atIndex < 1 {
		return fmt.Errorf("email must contain '@' after at least one character")
	}
	if atIndex == len(email)-1 {
		return fmt.Errorf("email must have domain after '@'")
	}
	if strings.Count(email, "@") > 1 {
		return fmt.Errorf("email must contain a single '@'")
	}
	return nil
}

// ValidateStatus validates an application status.
func ValidateStatus(s domain.Status) error {
	if !s.Valid() {
		return fmt.Errorf("status must be one of Active, Inactive, Deprecated, Under Development")
	}
	return nil
}

// ValidateFunctionalDomain validates a functional domain tag.
func ValidateFunctionalDomain(d string) error {
	if !domain.IsFunctionalDomain(d) {
		return fmt.Errorf("unknown functional domain")
	}
	return nil
}

// ValidateApplication checks an application row before it is written.
func ValidateApplication(rec *domain.ApplicationRecord) ValidationErrors {
	var errs ValidationErrors
	if err := ValidateAppCode(rec.AppCode); err != nil {
		errs.Add("appCode", rec.AppCode, err.Error())
	}
	if strings.TrimSpace(rec.Name) == "" {
		errs.Add("name", rec.Name, "name is required")
	}
	if err := ValidateStatus(rec.Status); err != nil {
		errs.Add("status", string(rec.Status), err.Error())
	}
	for i, d := range rec.FunctionalDomains {
		if err := ValidateFunctionalDomain(d); err != nil {
			errs.Add(fmt.Sprintf("functionalDomains[%d]", i), d, err.Error())
		}
	}
	for i, s := range rec.TechnicalStack {
		if strings.TrimSpace(s) == "" {
			errs.Add(fmt.Sprintf("technicalStack[%d]", i), s, "stack entry must not be empty")
		}
	}
	return errs
}

// ValidateRelatedApps checks that every related code is non-empty.
// Codes are soft references and are not checked for existence.
func ValidateRelatedApps(rel *domain.RelatedApps) ValidationErrors {
	var errs ValidationErrors
	if rel == nil {
		return errs
	}
	for i, code := range rel.Functional {
		if strings.TrimSpace(code) == "" {
			errs.Add(fmt.Sprintf("relatedApps.functional[%d]", i), code, "related app code must not be empty")
		}
	}
	for i, code := range rel.Technical {
		if strings.TrimSpace(code) == "" {
			errs.Add(fmt.Sprintf("relatedApps.technical[%d]", i), code, "related app code must not be empty")
		}
	}
	return errs
}

// ValidateStakeholder checks a directory stakeholder before it is written.
func ValidateStakeholder(s *domain.Stakeholder) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(s.Name) == "" {
		errs.Add("name", s.Name, "name is required")
	}
	if err := ValidateEmail(s.Email); err != nil {
		errs.Add("email", s.Email, err.Error())
	}
	if s.Department != "" && !domain.IsDepartment(s.Department) {
		errs.Add("department", s.Department, "unknown department")
	}
	return errs
}

// ValidateUserRole validates a user role.
func ValidateUserRole(r domain.UserRole) error {
	if !r.Valid() {
		return fmt.Errorf("role must be 'user' or 'admin'")
	}
	return nil
}

// ValidatePassword enforces a minimum password length.
func ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
