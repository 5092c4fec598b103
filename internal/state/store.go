package state

import (
	"sync"

	"github.com/rs/zerolog"
)

// Listener is notified after every transition with the previous and the new state.
// Listeners run synchronously inside Dispatch and must not call back into the Store.
type Listener func(prev, next State)

// Store is an observable State container. Dispatch is the only way to change it.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	log       zerolog.Logger
}

// NewStore creates a store holding initial.
func NewStore(initial State, logger zerolog.Logger) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
		log:       logger,
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and notifies listeners. Transitions are applied one at a time.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = Reduce(prev, a)
	s.log.Debug().Str("action", string(a.Type())).Msg("state transition")

	for _, id := range s.sortedListenerIDs() {
		s.listeners[id](prev, s.state)
	}
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// sortedListenerIDs returns listener ids in subscription order.
func (s *Store) sortedListenerIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if _, ok := s.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
