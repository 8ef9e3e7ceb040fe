package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/mocks"
	"github.com/yogamaster/yoga-client/internal/models"
)

func newTestResolver(source *mocks.MockProfileSource) *Resolver {
	r := NewResolver(source, 5*time.Minute, 2)
	r.retryDelay = time.Millisecond
	return r
}

func aliceSession() *models.IdentitySession {
	return &models.IdentitySession{
		SubjectID:   "sub-1",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		PhotoURL:    "https://img.example.com/alice.png",
	}
}

func TestResolver_CachesWithinFreshnessWindow(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(&models.UserProfile{Email: "alice@example.com", Role: models.RoleUser}, nil).
		Once()

	resolver := newTestResolver(source)

	first, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)

	// Second call inside the window hits the cache, not the backend.
	second, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	assert.Same(t, first, second)
	source.AssertExpectations(t)
}

func TestResolver_RefetchBypassesCache(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(&models.UserProfile{Email: "alice@example.com", Role: models.RoleUser}, nil).
		Once()
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(&models.UserProfile{Email: "alice@example.com", Role: models.RoleInstructor}, nil).
		Once()

	resolver := newTestResolver(source)

	first, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, first.Role)

	updated, err := resolver.Refetch(ctx, aliceSession())
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, updated.Role)
	source.AssertExpectations(t)
}

func TestResolver_InvalidateDropsCachedProfile(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(&models.UserProfile{Email: "alice@example.com"}, nil).
		Twice()

	resolver := newTestResolver(source)

	_, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)

	resolver.Invalidate("alice@example.com")

	_, err = resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	source.AssertExpectations(t)
}

func TestResolver_SynthesizesAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(nil, errors.New("connection refused")).
		Times(3)

	resolver := newTestResolver(source)

	profile, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	assert.True(t, profile.Synthesized)
	assert.Equal(t, models.RoleUser, profile.Role)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "https://img.example.com/alice.png", profile.PhotoURL)
	assert.Empty(t, profile.EnrolledClasses)
	source.AssertExpectations(t)
}

func TestResolver_NotFoundSynthesizesWithoutRetry(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(nil, api.ErrNotFound).
		Once()

	resolver := newTestResolver(source)

	profile, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	assert.True(t, profile.Synthesized)
	source.AssertExpectations(t)
}

func TestResolver_AuthorizationErrorNotRetried(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "alice@example.com").
		Return(nil, &api.AuthorizationError{StatusCode: 401}).
		Once()

	resolver := newTestResolver(source)

	profile, err := resolver.Resolve(ctx, aliceSession())
	require.NoError(t, err)
	assert.True(t, profile.Synthesized)
	source.AssertExpectations(t)
}

func TestResolver_SynthesizedNameFallsBack(t *testing.T) {
	ctx := context.Background()
	source := new(mocks.MockProfileSource)
	source.On("GetUser", mock.Anything, "bare@example.com").
		Return(nil, api.ErrNotFound)

	resolver := newTestResolver(source)

	profile, err := resolver.Resolve(ctx, &models.IdentitySession{Email: "bare@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "User", profile.Name)
}

func TestResolver_RejectsAnonymousSession(t *testing.T) {
	resolver := newTestResolver(new(mocks.MockProfileSource))

	_, err := resolver.Resolve(context.Background(), nil)
	assert.Error(t, err)

	_, err = resolver.Resolve(context.Background(), &models.IdentitySession{})
	assert.Error(t, err)
}

func TestResolver_VerifyRole(t *testing.T) {
	ctx := context.Background()

	t.Run("BypassesCache", func(t *testing.T) {
		source := new(mocks.MockProfileSource)
		source.On("GetUser", mock.Anything, "alice@example.com").
			Return(&models.UserProfile{Email: "alice@example.com", Role: models.RoleUser}, nil).
			Once()
		source.On("GetUser", mock.Anything, "alice@example.com").
			Return(&models.UserProfile{Email: "alice@example.com", Role: models.RoleAdmin}, nil).
			Once()

		resolver := newTestResolver(source)
		_, err := resolver.Resolve(ctx, aliceSession())
		require.NoError(t, err)

		role, err := resolver.VerifyRole(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)
		source.AssertExpectations(t)
	})

	t.Run("ErrorsThroughWithoutSynthesizing", func(t *testing.T) {
		source := new(mocks.MockProfileSource)
		source.On("GetUser", mock.Anything, "alice@example.com").
			Return(nil, errors.New("connection refused"))

		resolver := newTestResolver(source)
		_, err := resolver.VerifyRole(ctx, "alice@example.com")
		assert.Error(t, err)
	})
}
