package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// FileStore keeps every key in one JSON object on disk.
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	log      zerolog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by filePath. The file is created on first write.
func NewFileStore(filePath string, log zerolog.Logger) *FileStore {
	return &FileStore{filePath: filePath, log: log}
}

// DefaultPath returns the preferences file under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "app-catalog", "preferences.json")
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading preferences file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing preferences file: %w", err)
	}
	return values, nil
}

// Get returns the value stored under key.
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// Set stores value under key, rewriting the whole file.
func (f *FileStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling preferences file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.filePath), 0o755); err != nil {
		return fmt.Errorf("creating preferences directory: %w", err)
	}
	if err := os.WriteFile(f.filePath, data, 0o644); err != nil {
		return fmt.Errorf("writing preferences file: %w", err)
	}

	f.log.Debug().Str("path", f.filePath).Str("key", key).Msg("preference written")
	return nil
}

func (f *FileStore) Close() error { return nil }
