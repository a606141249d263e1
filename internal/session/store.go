// Package session holds the bearer token used against the backup API.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName = "backupdash"
	sessionFile   = "session.yaml"
)

// ErrNoSession is returned when an operation needs a token and none is set.
var ErrNoSession = errors.New("no session")

type file struct {
	Token   string    `yaml:"token"`
	SavedAt time.Time `yaml:"saved_at"`
}

// Store keeps the current token in memory and, when it has a path, on disk.
type Store struct {
	path string

	mu    sync.RWMutex
	token string
}

// DefaultPath returns ~/.config/backupdash/session.yaml, honoring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, configDirName, sessionFile), nil
}

// Open loads the token saved at path, if any. An empty path gives a
// memory-only store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	s.token = strings.TrimSpace(f.Token)
	return s, nil
}

// Token returns the current token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is present. The token itself is
// not checked against the backend.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Use sets the token for this process without persisting it.
func (s *Store) Use(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// Save sets and persists the token.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("save session: %w", ErrNoSession)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		data, err := yaml.Marshal(file{Token: token, SavedAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		if err := os.WriteFile(s.path, data, 0600); err != nil {
			return fmt.Errorf("write session file: %w", err)
		}
	}
	s.token = token
	return nil
}

// Clear logs out: the token is dropped and the session file removed.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
