package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/yogamaster/yoga-client/internal/models"
)

// SessionCache persists the identity session across restarts so the
// client can rehydrate at startup without a provider round-trip.
type SessionCache struct {
	path string
}

func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// Load returns the cached session, or nil when none is cached.
func (c *SessionCache) Load() (*models.IdentitySession, error) {
	if c == nil || c.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session cache: %w", err)
	}

	var session models.IdentitySession
	if err := json.Unmarshal(data, &session); err != nil {
		_ = os.Remove(c.path)
		return nil, nil
	}
	if session.Email == "" {
		return nil, nil
	}
	return &session, nil
}

func (c *SessionCache) Save(session *models.IdentitySession) error {
	if c == nil || c.path == "" || session == nil {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace session cache: %w", err)
	}
	return nil
}

func (c *SessionCache) Clear() error {
	if c == nil || c.path == "" {
		return nil
	}
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session cache: %w", err)
	}
	return nil
}
