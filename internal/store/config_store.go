package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"questionnaire/api/internal/jsondoc"
)

// ConfigStore keeps a single JSON document on disk. Every Write replaces the
// whole document.
type ConfigStore struct {
	path string
	opts Options
	mu   sync.RWMutex
}

func OpenConfigStore(path string, opts Options) (*ConfigStore, error) {
	if err := ensureFile(path); err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	return &ConfigStore{path: path, opts: opts}, nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

// Read returns the stored document, or an empty array when nothing has been
// written yet.
func (s *ConfigStore) Read() (any, error) {
	s.mu.RLock()
	raw, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []any{}, nil
		}
		return nil, ioError("read", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []any{}, nil
	}
	value, err := jsondoc.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: stored config: %w", ErrMalformedInput, err)
	}
	return value, nil
}

// Write validates raw and replaces the stored document with its indented
// form, which is returned.
func (s *ConfigStore) Write(raw []byte) ([]byte, error) {
	value, err := jsondoc.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	pretty, err := jsondoc.Pretty(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := syncedWriteFile(s.path, append(pretty, '\n'), 0o644, s.opts.SyncWrites); err != nil {
		return nil, ioError("write", s.path, err)
	}
	return pretty, nil
}

func (s *ConfigStore) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statFile(s.path)
}

func (s *ConfigStore) Close() error {
	return nil
}
