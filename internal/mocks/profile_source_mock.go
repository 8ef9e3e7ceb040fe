package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yogamaster/yoga-client/internal/models"
)

// MockProfileSource is a mock implementation of profile.Source.
type MockProfileSource struct {
	mock.Mock
}

func (m *MockProfileSource) GetUser(ctx context.Context, email string) (*models.UserProfile, error) {
	args := m.Called(ctx, email)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}
