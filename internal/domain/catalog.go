package domain

import (
	"fmt"
	"math/rand"
)

// DefaultDepartment is used when a stakeholder has no department.
const DefaultDepartment = "General"

// FunctionalDomains is the closed list of business capability tags.
var FunctionalDomains = []string{
	"Human Resources",
	"Finance",
	"Marketing",
	"Sales",
	"IT Operations",
	"Customer Service",
	"Supply Chain",
	"Analytics",
	"Security",
	"Compliance",
}

// TechnicalStacks lists the common technology tags. Stack entries are free-form; this is the suggested set.
var TechnicalStacks = []string{
	"React", "Angular", "Vue.js", "Node.js", "Java", "Python", "C#", ".NET",
	"Spring Boot", "Express.js", "PostgreSQL", "MongoDB", "Redis", "Docker",
	"Kubernetes", "AWS", "Azure", "GCP", "Microservices", "REST API", "GraphQL",
}

// Departments lists the stakeholder departments.
var Departments = append(append([]string{}, FunctionalDomains...), "IT Development", "Executive", DefaultDepartment)

// IsFunctionalDomain reports whether d is in FunctionalDomains.
func IsFunctionalDomain(d string) bool {
	for _, fd := range FunctionalDomains {
		if fd == d {
			return true
		}
	}
	return false
}

// IsDepartment reports whether d is in Departments.
func IsDepartment(d string) bool {
	for _, dep := range Departments {
		if dep == d {
			return true
		}
	}
	return false
}

// Catalog describes the enumerations clients build forms from.
type Catalog struct {
	FunctionalDomains []string          `json:"functionalDomains"`
	TechnicalStacks   []string          `json:"technicalStacks"`
	Departments       []string          `json:"departments"`
	Statuses          []Status          `json:"statuses"`
	StakeholderRoles  map[string]string `json:"stakeholderRoles"`
}

// CatalogInfo returns the enumerations.
func CatalogInfo() *Catalog {
	roles := make(map[string]string, len(Roles))
	for _, r := range Roles {
		roles[string(r)] = r.Label()
	}
	return &Catalog{
		FunctionalDomains: FunctionalDomains,
		TechnicalStacks:   TechnicalStacks,
		Departments:       Departments,
		Statuses:          Statuses,
		StakeholderRoles:  roles,
	}
}

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// GenerateAppCode returns a random code of two uppercase letters and one digit, e.g. "QK7".
func GenerateAppCode() string {
	return fmt.Sprintf("%c%c%c",
		codeLetters[rand.Intn(len(codeLetters))],
		codeLetters[rand.Intn(len(codeLetters))],
		codeDigits[rand.Intn(len(codeDigits))])
}
