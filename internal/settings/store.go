package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"introspect/internal/domain"
)

// Store holds the user settings and persists them as YAML. An empty path
// keeps settings in memory only.
type Store struct {
	path string

	mu      sync.RWMutex
	current domain.Settings
}

// Open loads settings from path. A missing file yields the defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: domain.DefaultSettings()}
	if path == "" {
		return s, nil
	}

	loaded, err := loadFromFile(path)
	if err != nil {
		return nil, err
	}
	s.current = loaded
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Current() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates next, fills unset fields with defaults and persists it.
func (s *Store) Update(next domain.Settings) (domain.Settings, error) {
	if err := withDefaults(&next); err != nil {
		return domain.Settings{}, err
	}
	if err := next.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		if err := saveToFile(s.path, next); err != nil {
			return domain.Settings{}, err
		}
	}
	s.current = next
	return next, nil
}

func withDefaults(s *domain.Settings) error {
	if err := mergo.Merge(s, domain.DefaultSettings()); err != nil {
		return fmt.Errorf("cannot apply default settings: %w", err)
	}
	return nil
}

func loadFrom(r io.Reader) (domain.Settings, error) {
	var s domain.Settings
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return domain.Settings{}, err
	}
	if err := withDefaults(&s); err != nil {
		return domain.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return s, nil
}

func loadFromFile(fn string) (domain.Settings, error) {
	contents, err := os.ReadFile(fn)
	if os.IsNotExist(err) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("cannot open settings file %q: %w", fn, err)
	}

	s, err := loadFrom(bytes.NewReader(contents))
	if err != nil {
		return domain.Settings{}, fmt.Errorf("cannot load settings file %q: %w", fn, err)
	}
	return s, nil
}

func saveTo(w io.Writer, s domain.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func saveToFile(fn string, s domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(fn), 0o700); err != nil {
		return fmt.Errorf("cannot create settings dir: %w", err)
	}

	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("cannot open settings file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := saveTo(f, s); err != nil {
		return fmt.Errorf("cannot write file %q: %w", fn, err)
	}
	return nil
}
