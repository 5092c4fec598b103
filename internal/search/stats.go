package search

import "github.com/bcnelson/app-catalog/internal/domain"

// Stats summarises the catalog for the admin dashboard.
type Stats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	InDevelopment int `json:"inDevelopment"`
	Deprecated    int `json:"deprecated"`
	Domains       int `json:"domains"`
	Technologies  int `json:"technologies"`
}

// ComputeStats counts applications by status and the distinct domains and technologies in use.
func ComputeStats(apps []*domain.Application) *Stats {
	st := &Stats{Total: len(apps)}
	domains := make(map[string]struct{})
	tech := make(map[string]struct{})

	for _, app := range apps {
		switch app.Status {
		case domain.StatusActive:
			st.Active++
		case domain.StatusUnderDevelopment:
			st.InDevelopment++
		case domain.StatusDeprecated:
			st.Deprecated++
		}
		for _, d := range app.FunctionalDomains {
			domains[d] = struct{}{}
		}
		for _, t := range app.TechnicalStack {
			tech[t] = struct{}{}
		}
	}

	st.Domains = len(domains)
	st.Technologies = len(tech)
	return st
}
