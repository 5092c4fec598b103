// Package state holds the client session state and the closed set of transitions that change it.
package state

import (
	"github.com/bcnelson/app-catalog/internal/domain"
)

// MaxSearchHistory bounds the search history list.
const MaxSearchHistory = 10

// State is the session state. Values are treated as immutable: transitions return a new State
// and never write through slices shared with the previous one.
type State struct {
	User          *domain.User
	Applications  []*domain.Application
	Filters       domain.FilterState
	SearchQuery   string
	SearchHistory []string
	DarkMode      bool
	SelectedApp   *domain.Application
	IsLoading     bool
}

// Initial returns the empty starting state.
func Initial() State {
	return State{
		Applications:  []*domain.Application{},
		SearchHistory: []string{},
	}
}

// ActionType names a transition.
type ActionType string

const (
	TypeSetUser            ActionType = "SET_USER"
	TypeSetApplications    ActionType = "SET_APPLICATIONS"
	TypeAddApplication     ActionType = "ADD_APPLICATION"
	TypeUpdateApplication  ActionType = "UPDATE_APPLICATION"
	TypeDeleteApplication  ActionType = "DELETE_APPLICATION"
	TypeSetFilters         ActionType = "SET_FILTERS"
	TypeSetSearchQuery     ActionType = "SET_SEARCH_QUERY"
	TypeAddSearchHistory   ActionType = "ADD_SEARCH_HISTORY"
	TypeClearSearchHistory ActionType = "CLEAR_SEARCH_HISTORY"
	TypeToggleDarkMode     ActionType = "TOGGLE_DARK_MODE"
	TypeSetSelectedApp     ActionType = "SET_SELECTED_APP"
	TypeSetLoading         ActionType = "SET_LOADING"
)

// Action is a transition. The set is closed: only this package can implement it.
type Action interface {
	Type() ActionType
	reduce(s State) State
}

// Reduce applies a to s and returns the new state.
func Reduce(s State, a Action) State {
	return a.reduce(s)
}

// SetUser replaces the current user. A nil User signs the session out.
type SetUser struct{ User *domain.User }

func (SetUser) Type() ActionType { return TypeSetUser }
func (a SetUser) reduce(s State) State {
	s.User = a.User
	return s
}

// SetApplications replaces the application list wholesale.
type SetApplications struct{ Applications []*domain.Application }

func (SetApplications) Type() ActionType { return TypeSetApplications }
func (a SetApplications) reduce(s State) State {
	s.Applications = append([]*domain.Application{}, a.Applications...)
	return s
}

// AddApplication appends one application.
type AddApplication struct{ Application *domain.Application }

func (AddApplication) Type() ActionType { return TypeAddApplication }
func (a AddApplication) reduce(s State) State {
	apps := make([]*domain.Application, 0, len(s.Applications)+1)
	apps = append(apps, s.Applications...)
	s.Applications = append(apps, a.Application)
	return s
}

// UpdateApplication replaces the entry with the same ID. Unknown IDs leave the list unchanged.
type UpdateApplication struct{ Application *domain.Application }

func (UpdateApplication) Type() ActionType { return TypeUpdateApplication }
func (a UpdateApplication) reduce(s State) State {
	apps := make([]*domain.Application, len(s.Applications))
	for i, app := range s.Applications {
		if app.ID == a.Application.ID {
			apps[i] = a.Application
		} else {
			apps[i] = app
		}
	}
	s.Applications = apps
	return s
}

// DeleteApplication removes the entry with the given ID.
type DeleteApplication struct{ ID string }

func (DeleteApplication) Type() ActionType { return TypeDeleteApplication }
func (a DeleteApplication) reduce(s State) State {
	apps := make([]*domain.Application, 0, len(s.Applications))
	for _, app := range s.Applications {
		if app.ID != a.ID {
			apps = append(apps, app)
		}
	}
	s.Applications = apps
	return s
}

// SetFilters replaces the filter selections.
type SetFilters struct{ Filters domain.FilterState }

func (SetFilters) Type() ActionType { return TypeSetFilters }
func (a SetFilters) reduce(s State) State {
	s.Filters = domain.FilterState{
		Domains:      append([]string{}, a.Filters.Domains...),
		Statuses:     append([]domain.Status{}, a.Filters.Statuses...),
		Stakeholders: append([]string{}, a.Filters.Stakeholders...),
	}
	return s
}

// SetSearchQuery replaces the search query.
type SetSearchQuery struct{ Query string }

func (SetSearchQuery) Type() ActionType { return TypeSetSearchQuery }
func (a SetSearchQuery) reduce(s State) State {
	s.SearchQuery = a.Query
	return s
}

// AddSearchHistory moves Query to the front of the history, dropping older duplicates
// and anything past MaxSearchHistory.
type AddSearchHistory struct{ Query string }

func (AddSearchHistory) Type() ActionType { return TypeAddSearchHistory }
func (a AddSearchHistory) reduce(s State) State {
	hist := make([]string, 0, MaxSearchHistory)
	hist = append(hist, a.Query)
	for _, q := range s.SearchHistory {
		if len(hist) == MaxSearchHistory {
			break
		}
		if q != a.Query {
			hist = append(hist, q)
		}
	}
	s.SearchHistory = hist
	return s
}

// ClearSearchHistory empties the history.
type ClearSearchHistory struct{}

func (ClearSearchHistory) Type() ActionType { return TypeClearSearchHistory }
func (ClearSearchHistory) reduce(s State) State {
	s.SearchHistory = []string{}
	return s
}

// ToggleDarkMode flips the theme flag.
type ToggleDarkMode struct{}

func (ToggleDarkMode) Type() ActionType { return TypeToggleDarkMode }
func (ToggleDarkMode) reduce(s State) State {
	s.DarkMode = !s.DarkMode
	return s
}

// SetSelectedApp sets the application shown in the detail view. Nil closes it.
type SetSelectedApp struct{ Application *domain.Application }

func (SetSelectedApp) Type() ActionType { return TypeSetSelectedApp }
func (a SetSelectedApp) reduce(s State) State {
	s.SelectedApp = a.Application
	return s
}

// SetLoading sets the loading flag.
type SetLoading struct{ Loading bool }

func (SetLoading) Type() ActionType { return TypeSetLoading }
func (a SetLoading) reduce(s State) State {
	s.IsLoading = a.Loading
	return s
}
