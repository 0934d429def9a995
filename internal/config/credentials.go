package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/waabox/ghauth/internal/domain"
)

// CredentialStore reads and writes the cached credential record for one configName.
type CredentialStore struct {
	path string
}

// NewCredentialStore returns a store for configName at the platform default location.
func NewCredentialStore(configName string) *CredentialStore {
	return NewCredentialStoreAt(filepath.Join(Dir(configName), "config.json"))
}

// NewCredentialStoreAt returns a store backed by an explicit file path.
func NewCredentialStoreAt(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Path returns the file backing the store.
func (s *CredentialStore) Path() string {
	return s.path
}

// Read returns the cached record. A missing file yields (nil, nil).
func (s *CredentialStore) Read() (*domain.TokenData, error) {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	var data domain.TokenData
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", s.path, err)
	}
	return &data, nil
}

// Write replaces the cached record wholesale. The directory is created 0700
// and the file is written 0600.
func (s *CredentialStore) Write(data domain.TokenData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening credentials file: %w", err)
	}
	// an existing file keeps its old mode on O_TRUNC
	if err := f.Chmod(0600); err != nil {
		f.Close()
		return fmt.Errorf("restricting credentials file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	return f.Close()
}

// Remove deletes the cached record. Removing a missing record is not an error.
func (s *CredentialStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}
