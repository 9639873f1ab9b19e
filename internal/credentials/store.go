// Package credentials stores the Linear API key under a single well-known key.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// APIKeyName is the well-known key the token is stored under.
const APIKeyName = "linear.apiKey"

// Store is an opaque key-value store for the API token. Get returns an
// empty string when no token is stored.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// fileContents is the on-disk layout of a FileStore.
type fileContents struct {
	Secrets map[string]string `yaml:"secrets"`
}

// FileStore keeps the token in a YAML file readable only by the current user.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored token or "" when none is stored.
func (s *FileStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return "", err
	}
	return contents.Secrets[APIKeyName], nil
}

// Set stores token.
func (s *FileStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	contents.Secrets[APIKeyName] = token
	return s.write(contents)
}

// Delete removes the token. Deleting a missing token is not an error.
func (s *FileStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := contents.Secrets[APIKeyName]; !ok {
		return nil
	}
	delete(contents.Secrets, APIKeyName)
	return s.write(contents)
}

func (s *FileStore) read() (fileContents, error) {
	contents := fileContents{Secrets: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contents, nil
		}
		return contents, fmt.Errorf("read credentials file: %w", err)
	}
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return contents, fmt.Errorf("parse credentials file: %w", err)
	}
	if contents.Secrets == nil {
		contents.Secrets = map[string]string{}
	}
	return contents, nil
}

func (s *FileStore) write(contents fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	data, err := yaml.Marshal(contents)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store, used by tests and headless runs that
// take the token from the environment.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a store pre-populated with token (may be empty).
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Set(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
