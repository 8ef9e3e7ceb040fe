package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExchanger is a mock implementation of session.Exchanger.
type MockExchanger struct {
	mock.Mock
}

func (m *MockExchanger) ExchangeToken(ctx context.Context, email, name string) (string, error) {
	args := m.Called(ctx, email, name)
	return args.String(0), args.Error(1)
}
