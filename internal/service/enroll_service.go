package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/models"
)

var (
	ErrNotSignedIn      = errors.New("sign in to enroll in a class")
	ErrRoleCannotEnroll = errors.New("admins and instructors cannot enroll in classes")
	ErrNoSeats          = errors.New("no seats available for this class")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this class")
	ErrClassNotFound    = errors.New("class not found")
	ErrNotInCart        = errors.New("class is not in the cart")
)

// EnrollAPI is the slice of the backend client the enroll service uses.
type EnrollAPI interface {
	GetClass(ctx context.Context, id string) (*models.Class, error)
	AddToCart(ctx context.Context, item models.AddToCartRequest) (string, error)
	GetCartItem(ctx context.Context, classID, email string) (*models.CartItem, error)
	DeleteCartItem(ctx context.Context, id string) error
}

// RoleVerifier re-checks the user's role against the server. Cached or
// synthesized roles are advisory only; mutations go through this.
type RoleVerifier interface {
	VerifyRole(ctx context.Context, email string) (models.Role, error)
}

// EnrollService performs the cart-based enrollment flow.
type EnrollService struct {
	api      EnrollAPI
	verifier RoleVerifier
}

func NewEnrollService(backend EnrollAPI, verifier RoleVerifier) *EnrollService {
	return &EnrollService{api: backend, verifier: verifier}
}

// Enroll places a class in the user's cart. The caller passes the
// profile it rendered with; its role and enrollment list are used for
// the cheap early checks, but the role is re-verified server-side
// before the mutation because the rendered profile may be synthesized
// or stale.
func (s *EnrollService) Enroll(ctx context.Context, session *models.IdentitySession, profile *models.UserProfile, classID string) (string, error) {
	if session == nil || session.Email == "" {
		return "", ErrNotSignedIn
	}

	if profile != nil {
		if !profile.CanEnroll() && !profile.Synthesized {
			return "", ErrRoleCannotEnroll
		}
		if profile.IsEnrolled(classID) {
			return "", ErrAlreadyEnrolled
		}
	}

	class, err := s.api.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return "", ErrClassNotFound
		}
		return "", fmt.Errorf("failed to load class: %w", err)
	}
	if class.SeatsLeft() <= 0 {
		return "", ErrNoSeats
	}

	role, err := s.verifier.VerifyRole(ctx, session.Email)
	if err != nil {
		// Fail closed: without an authoritative role, no mutation.
		return "", fmt.Errorf("could not confirm enrollment permission: %w", err)
	}
	if role != models.RoleUser {
		return "", ErrRoleCannotEnroll
	}

	if existing, err := s.api.GetCartItem(ctx, classID, session.Email); err == nil && existing != nil {
		return "", ErrAlreadyEnrolled
	}

	insertedID, err := s.api.AddToCart(ctx, models.AddToCartRequest{
		ClassID:         classID,
		Name:            class.Name,
		Price:           class.Price,
		UserMail:        session.Email,
		InstructorEmail: class.InstructorEmail,
		Image:           class.Image,
	})
	if err != nil {
		return "", fmt.Errorf("failed to add class to cart: %w", err)
	}

	log.Info().Str("classId", classID).Str("email", session.Email).Msg("Class added to cart")
	return insertedID, nil
}

// Unenroll removes a pending enrollment: the cart row is looked up by
// class and email, then deleted by its id.
func (s *EnrollService) Unenroll(ctx context.Context, session *models.IdentitySession, classID string) error {
	if session == nil || session.Email == "" {
		return ErrNotSignedIn
	}

	item, err := s.api.GetCartItem(ctx, classID, session.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return ErrNotInCart
		}
		return fmt.Errorf("failed to look up cart item: %w", err)
	}

	if err := s.api.DeleteCartItem(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	log.Info().Str("classId", classID).Str("email", session.Email).Msg("Class removed from cart")
	return nil
}
