// Package session drives one interactive catalog session: it owns the state store, talks to the
// application gateway and keeps preferences and search history persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/search"
	"github.com/bcnelson/app-catalog/internal/state"
	"github.com/bcnelson/app-catalog/internal/transfer"
)

// listKind sequences every request that replaces the application list.
const listKind = "applications"

// persistTimeout bounds each preference write.
const persistTimeout = 5 * time.Second

// Applications is the gateway surface a session uses. *gateway.Applications satisfies it.
type Applications interface {
	List(ctx context.Context) ([]*domain.Application, error)
	Search(ctx context.Context, query string) ([]*domain.Application, error)
	Get(ctx context.Context, id string) (*domain.Application, error)
	GetByCode(ctx context.Context, appCode string) (*domain.Application, error)
	Create(ctx context.Context, req *domain.CreateApplicationRequest) (*domain.Application, error)
	Update(ctx context.Context, id string, req *domain.UpdateApplicationRequest) (*domain.Application, error)
	Delete(ctx context.Context, id string) error
}

// Options configure a Session. Every field is optional.
type Options struct {
	// Debounce delays Type. Zero uses state.DefaultDebounce.
	Debounce time.Duration
	// Auth, when set, feeds sign in and sign out events into the state.
	Auth *auth.Service
	// CurrentUser resolves the signed-in user during Start.
	CurrentUser func(ctx context.Context) (*domain.User, error)
	// OnSuggestions is called with fresh suggestions after each debounced Type.
	OnSuggestions func(query string, suggestions []string)
}

// Session is a single user's view of the catalog.
type Session struct {
	store    *state.Store
	apps     Applications
	importer *transfer.Importer
	prefs    prefs.Store
	seq      *state.Sequencer
	debounce *state.Debouncer
	opts     Options
	log      zerolog.Logger

	mu          sync.Mutex
	suggestions []string
	unsubscribe []func()
}

// New creates a session. Call Start to load data and Close when done.
func New(apps Applications, store prefs.Store, opts Options, log zerolog.Logger) *Session {
	log = log.With().Str("component", "session").Logger()
	s := &Session{
		store:       state.NewStore(state.Initial(), log),
		apps:        apps,
		importer:    transfer.NewImporter(apps, log),
		prefs:       store,
		seq:         state.NewSequencer(),
		debounce:    state.NewDebouncer(opts.Debounce),
		opts:        opts,
		log:         log,
		suggestions: []string{},
	}
	if opts.Auth != nil {
		s.unsubscribe = append(s.unsubscribe, opts.Auth.Subscribe(func(event auth.Event, user *domain.User) {
			s.log.Debug().Str("event", string(event)).Msg("auth state changed")
			s.store.Dispatch(state.SetUser{User: user})
		}))
	}
	return s
}

// State returns the current state.
func (s *Session) State() state.State {
	return s.store.State()
}

// Subscribe registers l for every state transition.
func (s *Session) Subscribe(l state.Listener) func() {
	return s.store.Subscribe(l)
}

// Start restores preferences and history, resolves the user and loads the application list.
// The loading flag is cleared on every path.
func (s *Session) Start(ctx context.Context) error {
	s.store.Dispatch(state.SetLoading{Loading: true})
	defer s.store.Dispatch(state.SetLoading{Loading: false})

	s.restore(ctx)
	s.mu.Lock()
	s.unsubscribe = append(s.unsubscribe, s.store.Subscribe(s.persist))
	s.mu.Unlock()

	if s.opts.CurrentUser != nil {
		user, err := s.opts.CurrentUser(ctx)
		switch {
		case err == nil:
			s.store.Dispatch(state.SetUser{User: user})
		case errors.Is(err, domain.ErrUnauthorized):
			s.store.Dispatch(state.SetUser{User: nil})
		default:
			s.log.Warn().Err(err).Msg("resolving current user")
		}
	}

	return s.load(ctx, "", false)
}

// restore replays stored preferences and history. Unreadable values are logged and skipped.
func (s *Session) restore(ctx context.Context) {
	p, err := prefs.LoadPreferences(ctx, s.prefs)
	if err != nil {
		s.log.Warn().Err(err).Msg("loading preferences")
	}
	if p.DarkMode != s.store.State().DarkMode {
		s.store.Dispatch(state.ToggleDarkMode{})
	}

	history, err := prefs.LoadHistory(ctx, s.prefs)
	if err != nil {
		s.log.Warn().Err(err).Msg("loading search history")
	}
	if len(history) > state.MaxSearchHistory {
		history = history[:state.MaxSearchHistory]
	}
	// Stored most recent first; replay oldest first so the order survives.
	for i := len(history) - 1; i >= 0; i-- {
		s.store.Dispatch(state.AddSearchHistory{Query: history[i]})
	}
}

// persist writes preferences and history when a transition changed them.
func (s *Session) persist(prev, next state.State) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if prev.DarkMode != next.DarkMode {
		if err := prefs.SavePreferences(ctx, s.prefs, prefs.Preferences{DarkMode: next.DarkMode}); err != nil {
			s.log.Warn().Err(err).Msg("saving preferences")
		}
	}
	if !equalStrings(prev.SearchHistory, next.SearchHistory) {
		if err := prefs.SaveHistory(ctx, s.prefs, next.SearchHistory); err != nil {
			s.log.Warn().Err(err).Msg("saving search history")
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// load fetches the list (or a server search) and commits it only if no newer load started meanwhile.
func (s *Session) load(ctx context.Context, query string, setQuery bool) error {
	tok := s.seq.Next(listKind)

	var (
		apps []*domain.Application
		err  error
	)
	if query == "" {
		apps, err = s.apps.List(ctx)
	} else {
		apps, err = s.apps.Search(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("loading applications: %w", err)
	}

	committed := s.seq.Commit(tok, func() {
		s.store.Dispatch(state.SetApplications{Applications: apps})
		if setQuery {
			s.store.Dispatch(state.SetSearchQuery{Query: query})
		}
	})
	if !committed {
		s.log.Debug().Str("query", query).Msg("discarding superseded response")
	}
	return nil
}

// Refresh reloads the full application list.
func (s *Session) Refresh(ctx context.Context) error {
	s.store.Dispatch(state.SetLoading{Loading: true})
	defer s.store.Dispatch(state.SetLoading{Loading: false})
	return s.load(ctx, "", false)
}

// Type records keystrokes. After the debounce delay the query is committed and suggestions recomputed.
func (s *Session) Type(query string) {
	s.debounce.Trigger(func() {
		next := s.store.Dispatch(state.SetSearchQuery{Query: query})
		sugg := search.Suggestions(next.Applications, query)

		s.mu.Lock()
		s.suggestions = sugg
		s.mu.Unlock()

		if s.opts.OnSuggestions != nil {
			s.opts.OnSuggestions(query, sugg)
		}
	})
}

// Flush runs a pending Type immediately.
func (s *Session) Flush() bool {
	return s.debounce.Flush()
}

// Submit records query in the history and replaces the list with the server's search results.
// A failed search leaves the list and query untouched.
func (s *Session) Submit(ctx context.Context, query string) error {
	s.debounce.Stop()
	query = strings.TrimSpace(query)
	if query != "" {
		s.store.Dispatch(state.AddSearchHistory{Query: query})
	}

	s.store.Dispatch(state.SetLoading{Loading: true})
	defer s.store.Dispatch(state.SetLoading{Loading: false})
	return s.load(ctx, query, true)
}

// SearchLocal records query in the history and applies it to the cached list without a round trip.
func (s *Session) SearchLocal(query string) {
	s.debounce.Stop()
	query = strings.TrimSpace(query)
	if query != "" {
		s.store.Dispatch(state.AddSearchHistory{Query: query})
	}
	s.store.Dispatch(state.SetSearchQuery{Query: query})
}

// SetFilters replaces the filter selection.
func (s *Session) SetFilters(f domain.FilterState) {
	s.store.Dispatch(state.SetFilters{Filters: f})
}

// Select opens the application with the given id or app code. An empty ref closes the detail view.
func (s *Session) Select(ctx context.Context, ref string) (*domain.Application, error) {
	if ref == "" {
		s.store.Dispatch(state.SetSelectedApp{})
		return nil, nil
	}
	for _, app := range s.store.State().Applications {
		if app.ID == ref || strings.EqualFold(app.AppCode, ref) {
			s.store.Dispatch(state.SetSelectedApp{Application: app})
			return app, nil
		}
	}
	app, err := s.apps.Get(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		app, err = s.apps.GetByCode(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	s.store.Dispatch(state.SetSelectedApp{Application: app})
	return app, nil
}

// ToggleDarkMode flips and persists the theme.
func (s *Session) ToggleDarkMode() bool {
	return s.store.Dispatch(state.ToggleDarkMode{}).DarkMode
}

// ClearHistory empties and persists the search history.
func (s *Session) ClearHistory() {
	s.store.Dispatch(state.ClearSearchHistory{})
}

// Create writes an application and adds it to the list once the gateway accepts it.
func (s *Session) Create(ctx context.Context, req *domain.CreateApplicationRequest) (*domain.Application, error) {
	app, err := s.apps.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store.Dispatch(state.AddApplication{Application: app})
	return app, nil
}

// Update writes changes and replaces the cached copy once the gateway accepts them.
func (s *Session) Update(ctx context.Context, id string, req *domain.UpdateApplicationRequest) (*domain.Application, error) {
	app, err := s.apps.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.store.Dispatch(state.UpdateApplication{Application: app})
	return app, nil
}

// Delete removes an application and drops it from the list once the gateway confirms.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.apps.Delete(ctx, id); err != nil {
		return err
	}
	s.store.Dispatch(state.DeleteApplication{ID: id})
	return nil
}

// Import creates applications from a catalog file and adds the created ones to the list.
func (s *Session) Import(ctx context.Context, data []byte) (*transfer.Result, error) {
	res, err := s.importer.Import(ctx, data)
	if err != nil {
		return nil, err
	}
	for _, app := range res.Created {
		s.store.Dispatch(state.AddApplication{Application: app})
	}
	return res, nil
}

// Export writes every loaded application in format. The search query and filters do not narrow it.
func (s *Session) Export(w io.Writer, format string) error {
	return transfer.Write(w, format, s.store.State().Applications)
}

// Visible is the list after text search and filters.
func (s *Session) Visible() []*domain.Application {
	st := s.store.State()
	return search.Visible(st.Applications, st.SearchQuery, st.Filters)
}

// Suggestions returns the suggestions computed by the last debounced Type.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggestions...)
}

// Close cancels pending input and detaches listeners.
func (s *Session) Close() {
	s.debounce.Stop()
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}
