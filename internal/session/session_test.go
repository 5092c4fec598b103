package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/state"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
)

var errBackend = errors.New("backend down")

func seeded(t *testing.T) *gateway.Applications {
	t.Helper()
	g := gateway.NewApplications(memory.New(), zerolog.Nop())
	ctx := context.Background()
	for _, req := range []*domain.CreateApplicationRequest{
		{AppCode: "HR1", Name: "Employee Management System", FunctionalDomains: []string{"Human Resources"}},
		{AppCode: "FN1", Name: "Ledger", FunctionalDomains: []string{"Finance"}},
		{AppCode: "FN2", Name: "Payroll", FunctionalDomains: []string{"Finance", "Human Resources"}},
	} {
		_, err := g.Create(ctx, req)
		require.NoError(t, err)
	}
	return g
}

// stubApps lets a test fail or hold individual calls.
type stubApps struct {
	Applications

	mu      sync.Mutex
	listErr error
	gates   map[string]chan struct{}
	entered chan string
}

func (s *stubApps) List(ctx context.Context) ([]*domain.Application, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Applications.List(ctx)
}

func (s *stubApps) Search(ctx context.Context, q string) ([]*domain.Application, error) {
	s.mu.Lock()
	gate := s.gates[q]
	s.mu.Unlock()
	if gate != nil {
		s.entered <- q
		<-gate
	}
	return s.Applications.Search(ctx, q)
}

func newSession(t *testing.T, apps Applications, store prefs.Store, opts Options) *Session {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 10 * time.Millisecond
	}
	s := New(apps, store, opts, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func TestStartRestoresPreferences(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	require.NoError(t, prefs.SavePreferences(ctx, store, prefs.Preferences{DarkMode: true}))
	require.NoError(t, prefs.SaveHistory(ctx, store, []string{"newest", "older", "oldest"}))

	user := &domain.User{ID: "u1", Email: "a@corp.io"}
	s := newSession(t, seeded(t), store, Options{
		CurrentUser: func(context.Context) (*domain.User, error) { return user, nil },
	})
	require.NoError(t, s.Start(ctx))

	st := s.State()
	assert.True(t, st.DarkMode)
	assert.Equal(t, []string{"newest", "older", "oldest"}, st.SearchHistory)
	assert.Equal(t, user, st.User)
	assert.Len(t, st.Applications, 3)
	assert.False(t, st.IsLoading)
}

func TestStartFailureResetsLoading(t *testing.T) {
	apps := &stubApps{Applications: seeded(t), listErr: errBackend}
	s := newSession(t, apps, prefs.NewMemoryStore(), Options{
		CurrentUser: func(context.Context) (*domain.User, error) { return nil, domain.ErrUnauthorized },
	})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, errBackend)

	st := s.State()
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Applications)
	assert.Nil(t, st.User)
}

func TestSubmitPersistsHistory(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	s := newSession(t, seeded(t), store, Options{})
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.Submit(ctx, "  ledger "))

	st := s.State()
	assert.Equal(t, "ledger", st.SearchQuery)
	require.Len(t, st.Applications, 1)
	assert.Equal(t, "FN1", st.Applications[0].AppCode)

	history, err := prefs.LoadHistory(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger"}, history)

	s.ClearHistory()
	history, err = prefs.LoadHistory(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSubmitFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	base := seeded(t)
	s := newSession(t, base, prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(ctx))

	s.apps = failingSearch{base}

	err := s.Submit(ctx, "ledger")
	assert.ErrorIs(t, err, errBackend)

	st := s.State()
	assert.Len(t, st.Applications, 3)
	assert.Empty(t, st.SearchQuery)
	assert.False(t, st.IsLoading)
	assert.Equal(t, []string{"ledger"}, st.SearchHistory)
}

type failingSearch struct{ Applications }

func (failingSearch) Search(context.Context, string) ([]*domain.Application, error) {
	return nil, errBackend
}

func TestLatestSearchWins(t *testing.T) {
	ctx := context.Background()
	slow := make(chan struct{})
	apps := &stubApps{
		Applications: seeded(t),
		gates:        map[string]chan struct{}{"ledger": slow},
		entered:      make(chan string, 1),
	}
	s := newSession(t, apps, prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(ctx))

	done := make(chan error)
	go func() { done <- s.Submit(ctx, "ledger") }()

	// The slow search has taken its token once it reaches the gateway.
	assert.Equal(t, "ledger", <-apps.entered)
	require.NoError(t, s.Submit(ctx, "payroll"))

	close(slow)
	require.NoError(t, <-done)

	st := s.State()
	assert.Equal(t, "payroll", st.SearchQuery)
	require.Len(t, st.Applications, 1)
	assert.Equal(t, "FN2", st.Applications[0].AppCode)
}

func TestTypeIsDebounced(t *testing.T) {
	ctx := context.Background()
	var (
		mu    sync.Mutex
		calls []string
	)
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{
		Debounce: 20 * time.Millisecond,
		OnSuggestions: func(q string, _ []string) {
			mu.Lock()
			calls = append(calls, q)
			mu.Unlock()
		},
	})
	require.NoError(t, s.Start(ctx))

	s.Type("f")
	s.Type("fi")
	s.Type("fin")

	require.Eventually(t, func() bool { return s.State().SearchQuery == "fin" }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"fin"}, calls)
	mu.Unlock()
	assert.Equal(t, []string{"Finance"}, s.Suggestions())
	assert.Len(t, s.Visible(), 2)
}

func TestFlushRunsPendingType(t *testing.T) {
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{Debounce: time.Hour})
	require.NoError(t, s.Start(context.Background()))

	s.Type("employee")
	assert.Empty(t, s.State().SearchQuery)
	assert.True(t, s.Flush())
	assert.Equal(t, "employee", s.State().SearchQuery)
	require.Len(t, s.Visible(), 1)
	assert.Equal(t, "HR1", s.Visible()[0].AppCode)
}

func TestFiltersAndSelect(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(ctx))

	s.SetFilters(domain.FilterState{Domains: []string{"Finance"}})
	assert.Len(t, s.Visible(), 2)

	app, err := s.Select(ctx, "fn1")
	require.NoError(t, err)
	assert.Equal(t, "Ledger", app.Name)
	assert.Equal(t, app, s.State().SelectedApp)

	_, err = s.Select(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Select(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, s.State().SelectedApp)
}

func TestMutationsDispatchAfterSuccess(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(ctx))

	_, err := s.Create(ctx, &domain.CreateApplicationRequest{AppCode: "bad", Name: "x"})
	assert.Error(t, err)
	assert.Len(t, s.State().Applications, 3)

	app, err := s.Create(ctx, &domain.CreateApplicationRequest{AppCode: "MK1", Name: "Campaigns"})
	require.NoError(t, err)
	assert.Len(t, s.State().Applications, 4)

	name := "Campaign Hub"
	_, err = s.Update(ctx, app.ID, &domain.UpdateApplicationRequest{Name: &name})
	require.NoError(t, err)
	_, err = s.Select(ctx, "MK1")
	require.NoError(t, err)
	assert.Equal(t, "Campaign Hub", s.State().SelectedApp.Name)

	_, err = s.Update(ctx, "missing", &domain.UpdateApplicationRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, app.ID))
	assert.Len(t, s.State().Applications, 3)
}

func TestImportAndExport(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(ctx))

	res, err := s.Import(ctx, []byte(`[{"appCode":"SC1","name":"Shipping"},{"name":"no code"}]`))
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	assert.Len(t, res.Failed, 1)
	assert.Len(t, s.State().Applications, 4)

	s.SetFilters(domain.FilterState{Domains: []string{"Finance"}})
	s.SearchLocal("ledger")
	require.Len(t, s.Visible(), 1)

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf, "json"))
	for _, code := range []string{"HR1", "FN1", "FN2", "SC1"} {
		assert.Contains(t, buf.String(), `"`+code+`"`)
	}
}

func TestToggleDarkModePersists(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	s := newSession(t, seeded(t), store, Options{})
	require.NoError(t, s.Start(ctx))

	assert.True(t, s.ToggleDarkMode())
	p, err := prefs.LoadPreferences(ctx, store)
	require.NoError(t, err)
	assert.True(t, p.DarkMode)
}

func TestAuthEventsSetUser(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(memory.New(), &auth.LocalAuthenticator{Cost: bcrypt.MinCost}, auth.Options{DemoEnabled: true}, zerolog.Nop())
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{Auth: svc})

	var seen []state.ActionType
	s.Subscribe(func(prev, next state.State) {
		if prev.User != next.User {
			seen = append(seen, state.TypeSetUser)
		}
	})

	user, err := svc.DemoSignIn(ctx, &domain.DemoSignInRequest{Email: "ann@corp.io"})
	require.NoError(t, err)
	require.NotNil(t, s.State().User)
	assert.Equal(t, user.ID, s.State().User.ID)

	svc.SignOut(ctx, user)
	assert.Nil(t, s.State().User)
	assert.Len(t, seen, 2)
}

func TestSearchLocal(t *testing.T) {
	s := newSession(t, seeded(t), prefs.NewMemoryStore(), Options{})
	require.NoError(t, s.Start(context.Background()))

	s.SearchLocal("payroll")
	st := s.State()
	assert.Equal(t, "payroll", st.SearchQuery)
	assert.Equal(t, []string{"payroll"}, st.SearchHistory)
	assert.Len(t, st.Applications, 3)
	require.Len(t, s.Visible(), 1)
	assert.Equal(t, "FN2", s.Visible()[0].AppCode)
}
