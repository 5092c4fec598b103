package state

import "sync"

// Token identifies one in-flight request of a given kind.
type Token struct {
	kind string
	seq  uint64
}

// Sequencer hands out increasing tokens per request kind so that only the
// response to the most recent request is committed.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer creates an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Next issues a token for kind, superseding every earlier token of that kind.
func (s *Sequencer) Next(kind string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[kind]++
	return Token{kind: kind, seq: s.latest[kind]}
}

// IsLatest reports whether t is still the newest token of its kind.
func (s *Sequencer) IsLatest(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[t.kind] == t.seq
}

// Commit runs fn only when t is still the newest token. It reports whether fn ran.
// The check and fn run under the sequencer lock so a newer Next cannot interleave.
func (s *Sequencer) Commit(t Token, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[t.kind] != t.seq {
		return false
	}
	fn()
	return true
}
