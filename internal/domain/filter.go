package domain

// FilterState holds the active filter selections. An empty set means no filter.
// Stakeholders is carried for clients but not applied by filtering.
type FilterState struct {
	Domains      []string `json:"domains"`
	Statuses     []Status `json:"statuses"`
	Stakeholders []string `json:"stakeholders"`
}

// IsEmpty reports whether no filter is selected.
func (f FilterState) IsEmpty() bool {
	return len(f.Domains) == 0 && len(f.Statuses) == 0
}
