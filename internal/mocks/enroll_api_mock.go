package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yogamaster/yoga-client/internal/models"
)

// MockEnrollAPI is a mock implementation of service.EnrollAPI.
type MockEnrollAPI struct {
	mock.Mock
}

func (m *MockEnrollAPI) GetClass(ctx context.Context, id string) (*models.Class, error) {
	args := m.Called(ctx, id)
	class, _ := args.Get(0).(*models.Class)
	return class, args.Error(1)
}

func (m *MockEnrollAPI) AddToCart(ctx context.Context, item models.AddToCartRequest) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}

func (m *MockEnrollAPI) GetCartItem(ctx context.Context, classID, email string) (*models.CartItem, error) {
	args := m.Called(ctx, classID, email)
	item, _ := args.Get(0).(*models.CartItem)
	return item, args.Error(1)
}

func (m *MockEnrollAPI) DeleteCartItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRoleVerifier is a mock implementation of service.RoleVerifier.
type MockRoleVerifier struct {
	mock.Mock
}

func (m *MockRoleVerifier) VerifyRole(ctx context.Context, email string) (models.Role, error) {
	args := m.Called(ctx, email)
	role, _ := args.Get(0).(models.Role)
	return role, args.Error(1)
}
