package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/models"
)

// MockIdentityClient is a mock implementation of identity.Client. Its
// listener plumbing is real so bridge tests can drive session-changed
// events through Emit.
type MockIdentityClient struct {
	mock.Mock

	mu        sync.Mutex
	listeners []identity.SessionListener
	current   *models.IdentitySession
}

var _ identity.Client = (*MockIdentityClient)(nil)

func (m *MockIdentityClient) SignUpWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*models.IdentitySession)
	return session, args.Error(1)
}

func (m *MockIdentityClient) SignInWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*models.IdentitySession)
	if session != nil && args.Error(1) == nil {
		m.Emit(session)
	}
	return session, args.Error(1)
}

func (m *MockIdentityClient) ProviderAuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityClient) CompleteProviderSignIn(ctx context.Context, code string) (*models.IdentitySession, error) {
	args := m.Called(ctx, code)
	session, _ := args.Get(0).(*models.IdentitySession)
	if session != nil && args.Error(1) == nil {
		m.Emit(session)
	}
	return session, args.Error(1)
}

func (m *MockIdentityClient) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	m.Emit(nil)
	return args.Error(0)
}

func (m *MockIdentityClient) OnSessionChange(fn identity.SessionListener) func() {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	idx := len(m.listeners) - 1
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.listeners[idx] = nil
		m.mu.Unlock()
	}
}

func (m *MockIdentityClient) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityClient) Current() *models.IdentitySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Emit delivers a session-changed event to all listeners.
func (m *MockIdentityClient) Emit(session *models.IdentitySession) {
	m.mu.Lock()
	m.current = session
	fns := make([]identity.SessionListener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		if fn != nil {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}
