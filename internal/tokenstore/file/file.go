package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/tokenstore"
)

// FileTokenStore implements tokenstore.Store on a JSON file so the
// token survives client restarts within the same profile directory.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) tokenstore.Store {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Get(_ context.Context) (*models.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token models.Token
	if err := json.Unmarshal(data, &token); err != nil {
		// An unreadable token is as good as no token; drop it.
		_ = os.Remove(s.path)
		return nil, nil
	}
	if token.Value == "" {
		return nil, nil
	}
	return &token, nil
}

func (s *FileTokenStore) Set(_ context.Context, token *models.Token) error {
	if token == nil || token.Value == "" {
		return errors.New("invalid token: value must be set")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn token file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
