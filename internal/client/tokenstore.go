package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// StoredSession is what survives between CLI invocations
type StoredSession struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	Email       string `json:"email,omitempty"`
}

// Expired reports whether the token is past its expiry
func (s *StoredSession) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

// TokenStore persists the access token
type TokenStore interface {
	Load() (*StoredSession, error) // nil, nil when nothing is stored
	Save(*StoredSession) error
	Clear() error
}

// FileTokenStore keeps the session in a JSON file readable only by its owner
type FileTokenStore struct {
	Path string
}

// DefaultSessionPath is ~/.money42/session.json
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".money42", "session.json")
	}
	return filepath.Join(home, ".money42", "session.json")
}

func (f *FileTokenStore) Load() (*StoredSession, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s StoredSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *FileTokenStore) Save(s *StoredSession) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileTokenStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
