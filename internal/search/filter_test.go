package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/app-catalog/internal/domain"
)

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters domain.FilterState
		want    []string
	}{
		{"no filters", domain.FilterState{}, []string{"HR1", "FN1", "MK2", "FN2"}},
		{"single domain", domain.FilterState{Domains: []string{"Finance"}}, []string{"FN1", "FN2"}},
		{"domains are OR", domain.FilterState{Domains: []string{"Human Resources", "Analytics"}}, []string{"HR1", "MK2"}},
		{"status", domain.FilterState{Statuses: []domain.Status{domain.StatusActive}}, []string{"HR1", "FN1"}},
		{"domain AND status", domain.FilterState{Domains: []string{"Finance"}, Statuses: []domain.Status{domain.StatusDeprecated}}, []string{"FN2"}},
		{"stakeholders ignored", domain.FilterState{Stakeholders: []string{"Sarah Johnson"}}, []string{"HR1", "FN1", "MK2", "FN2"}},
		{"no match", domain.FilterState{Domains: []string{"Sales"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(ApplyFilters(fixture(), tt.filters)))
		})
	}
}

func TestVisibleFinanceScenario(t *testing.T) {
	apps := []*domain.Application{
		{ID: "1", AppCode: "HR1", Status: domain.StatusActive, FunctionalDomains: []string{"Human Resources"}},
		{ID: "2", AppCode: "FN1", Status: domain.StatusActive, FunctionalDomains: []string{"Finance"}},
	}
	got := Visible(apps, "", domain.FilterState{Domains: []string{"Finance"}})
	assert.Equal(t, []string{"FN1"}, codes(got))
}

func TestVisibleSearchThenFilter(t *testing.T) {
	apps := fixture()
	active := domain.FilterState{Statuses: []domain.Status{domain.StatusActive}}

	got := Visible(apps, "postgresql", active)
	assert.Equal(t, []string{"HR1"}, codes(got))

	got = Visible(apps, "azure", active)
	assert.Empty(t, got)

	want := codes(ApplyFilters(SearchApplications(apps, "react"), active))
	assert.Equal(t, want, codes(Visible(apps, "react", active)))
}

func TestFacets(t *testing.T) {
	apps := append(fixture(), &domain.Application{AppCode: "LG1", FunctionalDomains: []string{"Legacy"}, Status: domain.StatusInactive})
	fs := Facets(apps)

	require.Len(t, fs.Domains, len(domain.FunctionalDomains)+1)
	counts := make(map[string]int)
	for _, fc := range fs.Domains {
		counts[fc.Value] = fc.Count
	}
	assert.Equal(t, 2, counts["Finance"])
	assert.Equal(t, 1, counts["Human Resources"])
	assert.Equal(t, 0, counts["Sales"])
	assert.Equal(t, "Legacy", fs.Domains[len(fs.Domains)-1].Value)

	require.Len(t, fs.Statuses, 4)
	assert.Equal(t, FacetCount{Value: "Active", Count: 2}, fs.Statuses[0])
	assert.Equal(t, FacetCount{Value: "Inactive", Count: 1}, fs.Statuses[1])
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats(fixture())
	assert.Equal(t, &Stats{
		Total:         4,
		Active:        2,
		InDevelopment: 1,
		Deprecated:    1,
		Domains:       5,
		Technologies:  8,
	}, st)
	assert.Equal(t, &Stats{}, ComputeStats(nil))
}

func TestPaginate(t *testing.T) {
	var apps []*domain.Application
	for i := 0; i < 23; i++ {
		apps = append(apps, &domain.Application{ID: string(rune('a' + i))})
	}

	p := Paginate(apps, 1, 0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Items, 10)

	p = Paginate(apps, 3, 10)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, "u", p.Items[0].ID)

	p = Paginate(apps, 99, 10)
	assert.Equal(t, 3, p.Page)

	p = Paginate(apps, -1, 10)
	assert.Equal(t, 1, p.Page)

	p = Paginate(nil, 1, 10)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 1, p.TotalPages)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}
