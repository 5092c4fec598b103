// Package prefs persists client preferences and search history under two string keys.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// Storage keys.
const (
	KeyPreferences   = "app_directory_preferences"
	KeySearchHistory = "app_directory_search_history"
)

// Store is a string key/value store. Get returns domain.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Preferences is the value stored under KeyPreferences.
type Preferences struct {
	DarkMode bool `json:"darkMode"`
}

// LoadPreferences reads preferences. A missing key yields the zero value.
func LoadPreferences(ctx context.Context, s Store) (Preferences, error) {
	var p Preferences
	raw, err := s.Get(ctx, KeyPreferences)
	if errors.Is(err, domain.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("reading preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preferences{}, fmt.Errorf("parsing preferences: %w", err)
	}
	return p, nil
}

// SavePreferences writes p.
func SavePreferences(ctx context.Context, s Store, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	if err := s.Set(ctx, KeyPreferences, string(data)); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}

// LoadHistory reads the search history, most recent first. A missing key yields an empty list.
func LoadHistory(ctx context.Context, s Store) ([]string, error) {
	raw, err := s.Get(ctx, KeySearchHistory)
	if errors.Is(err, domain.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return []string{}, fmt.Errorf("reading search history: %w", err)
	}
	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return []string{}, fmt.Errorf("parsing search history: %w", err)
	}
	if history == nil {
		history = []string{}
	}
	return history, nil
}

// SaveHistory writes the search history as a JSON array.
func SaveHistory(ctx context.Context, s Store, history []string) error {
	if history == nil {
		history = []string{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshaling search history: %w", err)
	}
	if err := s.Set(ctx, KeySearchHistory, string(data)); err != nil {
		return fmt.Errorf("writing search history: %w", err)
	}
	return nil
}

// MemoryStore keeps values in a map. Used in tests and when persistence is disabled.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error { return nil }
