package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Credentials holds the settings needed to reach the remote sync document:
// the opaque document (gist) ID and the bearer token authorizing access.
// Sync is considered configured iff both are non-empty. The token is never
// transmitted anywhere except to the remote API itself.
type Credentials struct {
	GistID string `json:"gist_id"`
	Token  string `json:"token"`
}

// Configured reports whether both settings are present.
func (c Credentials) Configured() bool {
	return c.GistID != "" && c.Token != ""
}

// CredentialStore defines the interface for persisting sync credentials.
// Version: 1.0
type CredentialStore interface {
	// Load returns the saved credentials, or ErrCredentialsNotFound if
	// none have been saved yet.
	Load(ctx context.Context) (Credentials, error)

	// Save persists the given credentials, replacing any previous ones.
	Save(ctx context.Context, creds Credentials) error
}

// FileCredentialStore persists sync credentials as a small JSON blob,
// written with 0600 permissions since it contains a bearer token.
type FileCredentialStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCredentialStore creates a credential store backed by the file at
// path. The file is not required to exist yet.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Load returns the saved credentials.
func (s *FileCredentialStore) Load(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, ErrCredentialsNotFound
		}
		return Credentials{}, fmt.Errorf("%w: reading %s: %v", ErrStorageFailed, s.path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	return creds, nil
}

// Save persists the given credentials.
func (s *FileCredentialStore) Save(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding credentials: %v", ErrStorageFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorageFailed, dir, err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorageFailed, s.path, err)
	}

	return nil
}
