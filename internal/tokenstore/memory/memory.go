package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/yogamaster/yoga-client/internal/models"
)

// MemoryTokenStore implements tokenstore.Store in process memory.
// Used in tests and as the fallback when no state directory exists.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token *models.Token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get(_ context.Context) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	copy := *s.token
	return &copy, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, token *models.Token) error {
	if token == nil || token.Value == "" {
		return errors.New("invalid token: value must be set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *token
	s.token = &copy
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}
