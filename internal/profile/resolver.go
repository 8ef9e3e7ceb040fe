package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/models"
)

// Source fetches the authoritative user record from the backend.
// Implemented by the API client.
type Source interface {
	GetUser(ctx context.Context, email string) (*models.UserProfile, error)
}

// Resolver resolves the application-level user profile for an identity
// session, with a freshness window and a synthesized fallback.
//
// A synthesized profile (role=user, no enrollments, name and photo
// taken from the identity session) is returned when the backend record
// cannot be fetched. It carries Synthesized=true and its role must not
// be trusted for privileged decisions; VerifyRole always asks the
// server.
type Resolver struct {
	source     Source
	cache      *gocache.Cache
	maxRetries int
	retryDelay time.Duration
}

func NewResolver(source Source, freshness time.Duration, maxRetries int) *Resolver {
	return &Resolver{
		source:     source,
		cache:      gocache.New(freshness, 2*freshness),
		maxRetries: maxRetries,
		retryDelay: 250 * time.Millisecond,
	}
}

// Resolve returns the profile for the session's email. Within the
// freshness window repeated calls return the cached record without a
// network call.
func (r *Resolver) Resolve(ctx context.Context, session *models.IdentitySession) (*models.UserProfile, error) {
	if session == nil || session.Email == "" {
		return nil, errors.New("cannot resolve profile without a signed-in session")
	}

	if cached, ok := r.cache.Get(session.Email); ok {
		return cached.(*models.UserProfile), nil
	}

	profile := r.fetch(ctx, session)
	r.cache.SetDefault(session.Email, profile)
	return profile, nil
}

// Refetch bypasses the freshness window and resolves again.
func (r *Resolver) Refetch(ctx context.Context, session *models.IdentitySession) (*models.UserProfile, error) {
	if session != nil {
		r.cache.Delete(session.Email)
	}
	return r.Resolve(ctx, session)
}

// Invalidate drops the cached profile for an email, used on sign-out.
func (r *Resolver) Invalidate(email string) {
	r.cache.Delete(email)
}

// VerifyRole fetches the role directly from the server, bypassing the
// cache and never synthesizing. Enrollment-mutating actions call this
// instead of trusting a possibly stale or synthesized cached role.
func (r *Resolver) VerifyRole(ctx context.Context, email string) (models.Role, error) {
	profile, err := r.source.GetUser(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to verify role: %w", err)
	}
	return profile.Role, nil
}

func (r *Resolver) fetch(ctx context.Context, session *models.IdentitySession) *models.UserProfile {
	attempts := r.maxRetries + 1
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(r.retryDelay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				return synthesize(session)
			}
		}

		profile, err := r.source.GetUser(ctx, session.Email)
		if err == nil {
			return profile
		}
		lastErr = err

		// A missing record or a rejected credential will not change on
		// retry; only transient failures are retried.
		if errors.Is(err, api.ErrNotFound) {
			log.Warn().Str("email", session.Email).Msg("No backend record for user, synthesizing default profile")
			return synthesize(session)
		}
		var authErr *api.AuthorizationError
		if errors.As(err, &authErr) {
			break
		}
	}

	log.Error().Err(lastErr).Str("email", session.Email).Msg("Profile fetch failed after retries, synthesizing default profile")
	return synthesize(session)
}

func synthesize(session *models.IdentitySession) *models.UserProfile {
	name := session.DisplayName
	if name == "" {
		name = "User"
	}
	return &models.UserProfile{
		Email:           session.Email,
		Name:            name,
		PhotoURL:        session.PhotoURL,
		Role:            models.RoleUser,
		EnrolledClasses: []string{},
		Synthesized:     true,
	}
}
