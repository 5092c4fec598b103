package state

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/app-catalog/internal/domain"
)

func apps(ids ...string) []*domain.Application {
	out := make([]*domain.Application, 0, len(ids))
	for _, id := range ids {
		out = append(out, &domain.Application{ID: id, AppCode: "AB1", Name: "App " + id})
	}
	return out
}

func ids(list []*domain.Application) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestReduceApplications(t *testing.T) {
	s := Reduce(Initial(), SetApplications{Applications: apps("1", "2")})
	assert.Equal(t, []string{"1", "2"}, ids(s.Applications))

	s = Reduce(s, AddApplication{Application: &domain.Application{ID: "3"}})
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Applications))

	updated := &domain.Application{ID: "2", Name: "Renamed"}
	s = Reduce(s, UpdateApplication{Application: updated})
	assert.Same(t, updated, s.Applications[1])

	s = Reduce(s, DeleteApplication{ID: "1"})
	assert.Equal(t, []string{"2", "3"}, ids(s.Applications))
}

func TestReduceUpdateUnknownID(t *testing.T) {
	before := Reduce(Initial(), SetApplications{Applications: apps("1", "2")})
	after := Reduce(before, UpdateApplication{Application: &domain.Application{ID: "zzz"}})
	assert.Equal(t, before.Applications, after.Applications)
}

func TestReduceDoesNotAlias(t *testing.T) {
	input := apps("1", "2")
	s := Reduce(Initial(), SetApplications{Applications: input})
	input[0] = &domain.Application{ID: "mutated"}
	assert.Equal(t, "1", s.Applications[0].ID)

	before := Reduce(s, AddSearchHistory{Query: "a"})
	after := Reduce(before, AddSearchHistory{Query: "b"})
	assert.Equal(t, []string{"a"}, before.SearchHistory)
	assert.Equal(t, []string{"b", "a"}, after.SearchHistory)

	prev := Reduce(s, AddApplication{Application: &domain.Application{ID: "3"}})
	_ = Reduce(prev, DeleteApplication{ID: "3"})
	assert.Equal(t, []string{"1", "2", "3"}, ids(prev.Applications))
}

func TestReduceSearchHistory(t *testing.T) {
	s := Initial()
	for _, q := range []string{"hr", "finance", "hr"} {
		s = Reduce(s, AddSearchHistory{Query: q})
	}
	assert.Equal(t, []string{"hr", "finance"}, s.SearchHistory)

	s = Initial()
	for i := 0; i < 11; i++ {
		s = Reduce(s, AddSearchHistory{Query: fmt.Sprintf("q%d", i)})
	}
	require.Len(t, s.SearchHistory, MaxSearchHistory)
	assert.Equal(t, "q10", s.SearchHistory[0])
	assert.Equal(t, "q1", s.SearchHistory[9])

	s = Reduce(s, ClearSearchHistory{})
	assert.Empty(t, s.SearchHistory)
	assert.NotNil(t, s.SearchHistory)
}

func TestReduceScalars(t *testing.T) {
	s := Initial()
	user := &domain.User{ID: "u1", Email: "a@example.com"}

	s = Reduce(s, SetUser{User: user})
	assert.Same(t, user, s.User)
	s = Reduce(s, SetUser{})
	assert.Nil(t, s.User)

	s = Reduce(s, SetSearchQuery{Query: "react"})
	assert.Equal(t, "react", s.SearchQuery)

	s = Reduce(s, ToggleDarkMode{})
	assert.True(t, s.DarkMode)
	s = Reduce(s, ToggleDarkMode{})
	assert.False(t, s.DarkMode)

	s = Reduce(s, SetLoading{Loading: true})
	assert.True(t, s.IsLoading)

	app := &domain.Application{ID: "x"}
	s = Reduce(s, SetSelectedApp{Application: app})
	assert.Same(t, app, s.SelectedApp)

	f := domain.FilterState{Domains: []string{"Finance"}, Statuses: []domain.Status{domain.StatusActive}}
	s = Reduce(s, SetFilters{Filters: f})
	f.Domains[0] = "Sales"
	assert.Equal(t, []string{"Finance"}, s.Filters.Domains)
}

func TestStoreDispatchNotifies(t *testing.T) {
	st := NewStore(Initial(), zerolog.Nop())

	var got []string
	var prevQueries []string
	unsubscribe := st.Subscribe(func(prev, next State) {
		got = append(got, next.SearchQuery)
		prevQueries = append(prevQueries, prev.SearchQuery)
	})

	st.Dispatch(SetSearchQuery{Query: "a"})
	st.Dispatch(SetSearchQuery{Query: "b"})
	unsubscribe()
	st.Dispatch(SetSearchQuery{Query: "c"})

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []string{"", "a"}, prevQueries)
	assert.Equal(t, "c", st.State().SearchQuery)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	st := NewStore(Initial(), zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st.Dispatch(AddApplication{Application: &domain.Application{ID: fmt.Sprint(i)}})
		}(i)
	}
	wg.Wait()
	assert.Len(t, st.State().Applications, 50)
}

func TestSequencerLatestWins(t *testing.T) {
	seq := NewSequencer()
	first := seq.Next("search")
	second := seq.Next("search")
	other := seq.Next("load")

	assert.False(t, seq.IsLatest(first))
	assert.True(t, seq.IsLatest(second))
	assert.True(t, seq.IsLatest(other))

	var committed []string
	assert.True(t, seq.Commit(second, func() { committed = append(committed, "second") }))
	assert.False(t, seq.Commit(first, func() { committed = append(committed, "first") }))
	assert.Equal(t, []string{"second"}, committed)
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Value

	for _, q := range []string{"r", "re", "rea"} {
		q := q
		d.Trigger(func() {
			calls.Add(1)
			last.Store(q)
		})
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "rea", last.Load())
}

func TestDebouncerFlushAndStop(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.True(t, ran)
	assert.False(t, d.Flush())

	d.Trigger(func() { t.Error("stopped call ran") })
	d.Stop()
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())
}

func TestNewDebouncerDefault(t *testing.T) {
	assert.Equal(t, DefaultDebounce, NewDebouncer(0).delay)
}
