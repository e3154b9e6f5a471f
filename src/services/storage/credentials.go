// Package storage persists authentication credentials between runs. The
// backend contract keeps two independent credential pairs: by_token/by_user
// for the user surface and admin_token/admin_user for the admin console.
// Tokens are re-read from disk on every request so that a logout performed by
// another process is observed on the next call rather than at restart.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"scanchat/src/models"
	"scanchat/src/types"
)

// CredStore stores one token/user pair as a JSON file under the config dir.
type CredStore struct {
	mu       sync.Mutex
	file     string
	tokenKey string
	userKey  string
}

// NewCredStore returns the store for the user-surface credential pair.
func NewCredStore(dir string) *CredStore {
	return &CredStore{
		file:     filepath.Join(dir, "credentials.json"),
		tokenKey: "by_token",
		userKey:  "by_user",
	}
}

// NewAdminCredStore returns the store for the separate admin credential pair.
func NewAdminCredStore(dir string) *CredStore {
	return &CredStore{
		file:     filepath.Join(dir, "admin_credentials.json"),
		tokenKey: "admin_token",
		userKey:  "admin_user",
	}
}

func (s *CredStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save persists the token and serialized user, creating the config dir if
// needed. The file is written 0600 since it holds a bearer token.
func (s *CredStore) Save(token string, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.file), 0755); err != nil {
		return &models.StorageError{Message: "creating config dir", Err: err}
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return &models.StorageError{Message: "encoding user", Err: err}
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return &models.StorageError{Message: "encoding token", Err: err}
	}
	entries := map[string]json.RawMessage{
		s.tokenKey: tokenJSON,
		s.userKey:  userJSON,
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &models.StorageError{Message: "encoding credentials", Err: err}
	}
	return os.WriteFile(s.file, data, 0600)
}

// Token returns the stored bearer token, or "" when logged out. It reads the
// file on every call by design; see the package comment.
func (s *CredStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return ""
	}
	var token string
	if raw, ok := entries[s.tokenKey]; ok {
		if err := json.Unmarshal(raw, &token); err != nil {
			return ""
		}
	}
	return token
}

// User returns the stored user, or nil when logged out.
func (s *CredStore) User() *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil
	}
	raw, ok := entries[s.userKey]
	if !ok {
		return nil
	}
	var user types.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	return &user
}

// Clear wipes the stored credentials. Called on explicit logout and on
// authentication failures from the backend.
func (s *CredStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.file); err != nil && !os.IsNotExist(err) {
		return &models.StorageError{Message: "clearing credentials", Err: err}
	}
	return nil
}
