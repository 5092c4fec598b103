package search

import (
	"sort"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// ApplyFilters keeps applications that pass both the domain and the status filter.
// Within a filter any selected value matches; an empty selection disables that filter.
func ApplyFilters(apps []*domain.Application, f domain.FilterState) []*domain.Application {
	if f.IsEmpty() {
		return apps
	}

	domains := make(map[string]struct{}, len(f.Domains))
	for _, d := range f.Domains {
		domains[d] = struct{}{}
	}
	statuses := make(map[domain.Status]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = struct{}{}
	}

	out := make([]*domain.Application, 0, len(apps))
	for _, app := range apps {
		if len(domains) > 0 && !anyIn(app.FunctionalDomains, domains) {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[app.Status]; !ok {
				continue
			}
		}
		out = append(out, app)
	}
	return out
}

func anyIn(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// Visible runs the text search and then the filters, the derived list a client renders.
func Visible(apps []*domain.Application, query string, f domain.FilterState) []*domain.Application {
	return ApplyFilters(SearchApplications(apps, query), f)
}

// FacetCount is the number of applications carrying one filter value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetSet holds the counts shown next to each filter option.
type FacetSet struct {
	Domains  []FacetCount `json:"domains"`
	Statuses []FacetCount `json:"statuses"`
}

// Facets counts applications per functional domain and per status.
// Every enumerated domain and status is listed, including zero counts.
func Facets(apps []*domain.Application) *FacetSet {
	domainCounts := make(map[string]int)
	statusCounts := make(map[domain.Status]int)
	for _, app := range apps {
		for _, d := range app.FunctionalDomains {
			domainCounts[d]++
		}
		statusCounts[app.Status]++
	}

	fs := &FacetSet{}
	for _, d := range domain.FunctionalDomains {
		fs.Domains = append(fs.Domains, FacetCount{Value: d, Count: domainCounts[d]})
		delete(domainCounts, d)
	}
	// Domains outside the enumerated list (legacy rows) come last, alphabetically.
	extra := make([]string, 0, len(domainCounts))
	for d := range domainCounts {
		extra = append(extra, d)
	}
	sort.Strings(extra)
	for _, d := range extra {
		fs.Domains = append(fs.Domains, FacetCount{Value: d, Count: domainCounts[d]})
	}

	for _, s := range domain.Statuses {
		fs.Statuses = append(fs.Statuses, FacetCount{Value: string(s), Count: statusCounts[s]})
	}
	return fs
}
