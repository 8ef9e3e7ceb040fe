package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/config"
	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/models"
)

// OAuthHandler drives the federated "popup" sign-in as an
// authorization-code flow completed on the local callback route.
type OAuthHandler struct {
	identity  identity.Client
	registrar UserRegistrar
	cfg       *config.Config
}

func NewOAuthHandler(identityClient identity.Client, registrar UserRegistrar, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{identity: identityClient, registrar: registrar, cfg: cfg}
}

// Login redirects the browser to the provider's consent page.
func (h *OAuthHandler) Login(c echo.Context) error {
	state := uuid.NewString()

	authURL, err := h.identity.ProviderAuthURL(state)
	if err != nil {
		if errors.Is(err, identity.ErrProviderDisabled) {
			return c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	// The post-sign-in destination rides along in a second cookie so
	// the callback can resume navigation.
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.StateCookieName + "_redirect",
		Value:    safeRedirect(c.QueryParam("redirect")),
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	log.Info().Msg("Redirecting user to federated provider")
	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles the redirect back from the provider.
func (h *OAuthHandler) Callback(c echo.Context) error {
	queryState := c.QueryParam("state")
	cookieState := h.readAndClearCookie(c, h.cfg.StateCookieName)
	redirect := safeRedirect(h.readAndClearCookie(c, h.cfg.StateCookieName+"_redirect"))

	if queryState == "" {
		log.Warn().Msg("Callback error: state parameter missing")
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "state parameter missing"})
	}
	if cookieState == "" {
		log.Warn().Msg("Callback error: state cookie missing or expired")
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "state cookie missing or expired"})
	}
	if queryState != cookieState {
		log.Warn().Str("query", queryState).Msg("Callback error: state mismatch")
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid state parameter"})
	}

	code := c.QueryParam("code")
	if code == "" {
		// The provider reported an error instead of a code. A user
		// closing the consent screen is informational, not an error.
		switch c.QueryParam("error") {
		case "access_denied":
			log.Info().Msg("Provider sign-in cancelled by the user")
			return c.Redirect(http.StatusSeeOther, "/login")
		case "interaction_required", "login_required":
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: identity.ErrPopupBlocked.Error()})
		}
		log.Warn().Str("error", c.QueryParam("error")).Str("description", c.QueryParam("error_description")).
			Msg("Callback error: authorization code missing")
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "authorization code missing"})
	}

	session, err := h.identity.CompleteProviderSignIn(c.Request().Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to complete provider sign-in")
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to complete provider sign-in"})
	}
	log.Info().Str("email", session.Email).Msg("Federated sign-in successful")

	// First federated sign-in: record the backend user. The backend
	// upserts, so repeats are harmless.
	go h.registerBackendUser(session)

	return c.Redirect(http.StatusSeeOther, redirect)
}

func (h *OAuthHandler) registerBackendUser(session *models.IdentitySession) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := h.registrar.CreateUser(ctx, models.NewUserRequest{
		Name:      session.DisplayName,
		Email:     session.Email,
		PhotoURL:  session.PhotoURL,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("email", session.Email).Msg("Failed to record federated user with backend")
	}
}

// readAndClearCookie returns the cookie value and expires it.
func (h *OAuthHandler) readAndClearCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	value := ""
	if err == nil {
		value = cookie.Value
	}
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return value
}
