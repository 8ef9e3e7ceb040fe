package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/api"
	"github.com/yogamaster/yoga-client/internal/middleware"
	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/service"
)

// ProfileResolver is the slice of the profile resolver the guarded
// pages use.
type ProfileResolver interface {
	Resolve(ctx context.Context, session *models.IdentitySession) (*models.UserProfile, error)
	Refetch(ctx context.Context, session *models.IdentitySession) (*models.UserProfile, error)
}

// StalenessChecker discards results that resolve after the session
// they belong to has been replaced or signed out.
type StalenessChecker interface {
	StaleFor(email string) bool
}

// DashboardHandler serves the guarded profile and dashboard views and
// the enrollment actions.
type DashboardHandler struct {
	profiles ProfileResolver
	enroll   *service.EnrollService
	bridge   StalenessChecker
}

func NewDashboardHandler(profiles ProfileResolver, enroll *service.EnrollService, bridge StalenessChecker) *DashboardHandler {
	return &DashboardHandler{profiles: profiles, enroll: enroll, bridge: bridge}
}

type profileView struct {
	Identity *models.IdentitySession `json:"identity"`
	Profile  *models.UserProfile     `json:"profile"`
	// Synthesized warns the view that the profile is a local fallback
	// and its role is not authoritative.
	Synthesized bool `json:"synthesized"`
}

type dashboardView struct {
	View    string              `json:"view"`
	Profile *models.UserProfile `json:"profile"`
}

// Profile renders the signed-in user's profile.
func (h *DashboardHandler) Profile(c echo.Context) error {
	state, ok := middleware.StateFromContext(c)
	if !ok || state.Identity == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	resolver := h.profiles.Resolve
	if c.QueryParam("refetch") != "" {
		resolver = h.profiles.Refetch
	}

	profile, err := resolver(c.Request().Context(), state.Identity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}

	// The fetch may have raced a sign-out; never render a result for a
	// session that is no longer current.
	if h.bridge.StaleFor(state.Identity.Email) {
		log.Info().Str("email", state.Identity.Email).Msg("Discarding profile fetched for a superseded session")
		return c.Redirect(http.StatusFound, "/login")
	}

	return c.JSON(http.StatusOK, profileView{
		Identity:    state.Identity,
		Profile:     profile,
		Synthesized: profile.Synthesized,
	})
}

// Dashboard selects the role-specific dashboard view.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	state, ok := middleware.StateFromContext(c)
	if !ok || state.Identity == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	profile, err := h.profiles.Resolve(c.Request().Context(), state.Identity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
	if h.bridge.StaleFor(state.Identity.Email) {
		return c.Redirect(http.StatusFound, "/login")
	}

	view := "user-dashboard"
	switch profile.Role {
	case models.RoleInstructor:
		view = "instructor-dashboard"
	case models.RoleAdmin:
		view = "admin-dashboard"
	}
	// A synthesized profile renders the plain user dashboard; the
	// privileged views require an authoritative role.
	if profile.Synthesized {
		view = "user-dashboard"
	}

	return c.JSON(http.StatusOK, dashboardView{View: view, Profile: profile})
}

type enrollRequest struct {
	ClassID string `json:"classId" form:"classId"`
}

// Enroll places a class in the cart.
func (h *DashboardHandler) Enroll(c echo.Context) error {
	state, ok := middleware.StateFromContext(c)
	if !ok || state.Identity == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	var req enrollRequest
	if err := c.Bind(&req); err != nil || req.ClassID == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "classId is required"})
	}

	profile, _ := h.profiles.Resolve(c.Request().Context(), state.Identity)

	insertedID, err := h.enroll.Enroll(c.Request().Context(), state.Identity, profile, req.ClassID)
	if err != nil {
		return h.enrollError(c, err)
	}
	return c.JSON(http.StatusCreated, models.InsertResponse{InsertedID: insertedID})
}

// Unenroll removes a pending enrollment from the cart.
func (h *DashboardHandler) Unenroll(c echo.Context) error {
	state, ok := middleware.StateFromContext(c)
	if !ok || state.Identity == nil {
		return c.Redirect(http.StatusFound, "/login")
	}

	var req enrollRequest
	if err := c.Bind(&req); err != nil || req.ClassID == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "classId is required"})
	}

	if err := h.enroll.Unenroll(c.Request().Context(), state.Identity, req.ClassID); err != nil {
		return h.enrollError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// enrollError maps enrollment failures onto responses. Authorization
// failures redirect to sign-in; the authorized client has already
// cleared the token and signed the identity out by the time the error
// reaches here.
func (h *DashboardHandler) enrollError(c echo.Context, err error) error {
	var authErr *api.AuthorizationError
	if errors.As(err, &authErr) {
		return c.Redirect(http.StatusFound, "/login")
	}

	switch {
	case errors.Is(err, service.ErrNotSignedIn):
		return c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, service.ErrClassNotFound), errors.Is(err, service.ErrNotInCart):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrRoleCannotEnroll),
		errors.Is(err, service.ErrNoSeats),
		errors.Is(err, service.ErrAlreadyEnrolled):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	}

	log.Error().Err(err).Msg("Enrollment action failed")
	return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "enrollment action failed"})
}
