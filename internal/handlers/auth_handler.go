package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/models"
)

// UserRegistrar records a new user with the marketplace backend.
type UserRegistrar interface {
	CreateUser(ctx context.Context, user models.NewUserRequest) (string, error)
}

// AuthHandler serves the credential sign-in and sign-up forms.
type AuthHandler struct {
	identity  identity.Client
	registrar UserRegistrar
}

func NewAuthHandler(identityClient identity.Client, registrar UserRegistrar) *AuthHandler {
	return &AuthHandler{identity: identityClient, registrar: registrar}
}

const loginForm = `<!DOCTYPE html>
<html><head><title>Sign in</title></head><body>
<h1>Sign in</h1>
<form method="post" action="/login">
<input type="hidden" name="redirect" value="%s">
<label>Email <input type="email" name="email"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Sign in</button>
</form>
<p><a href="/login/google?redirect=%s">Sign in with Google</a></p>
<p><a href="/register">Create an account</a></p>
</body></html>`

const registerForm = `<!DOCTYPE html>
<html><head><title>Register</title></head><body>
<h1>Create an account</h1>
<form method="post" action="/register">
<label>Name <input type="text" name="name"></label>
<label>Email <input type="email" name="email"></label>
<label>Password <input type="password" name="password"></label>
<button type="submit">Register</button>
</form>
</body></html>`

// Login renders the sign-in form.
func (h *AuthHandler) Login(c echo.Context) error {
	redirect := safeRedirect(c.QueryParam("redirect"))
	return c.HTML(http.StatusOK, formatLoginForm(redirect))
}

// SubmitLogin handles the credential sign-in form.
func (h *AuthHandler) SubmitLogin(c echo.Context) error {
	email := c.FormValue("email")
	password := c.FormValue("password")
	redirect := safeRedirect(c.FormValue("redirect"))

	_, err := h.identity.SignInWithCredentials(c.Request().Context(), email, password)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Credential sign-in failed")
		return c.JSON(identityErrorStatus(err), models.ErrorResponse{Error: err.Error()})
	}

	return c.Redirect(http.StatusSeeOther, redirect)
}

// Register renders the sign-up form.
func (h *AuthHandler) Register(c echo.Context) error {
	return c.HTML(http.StatusOK, registerForm)
}

// SubmitRegister creates the identity account, records the backend
// user, and signs the user in.
func (h *AuthHandler) SubmitRegister(c echo.Context) error {
	name := c.FormValue("name")
	email := c.FormValue("email")
	password := c.FormValue("password")

	session, err := h.identity.SignUpWithCredentials(c.Request().Context(), email, password)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Sign-up failed")
		return c.JSON(identityErrorStatus(err), models.ErrorResponse{Error: err.Error()})
	}

	// Record the application-level user. Failure is logged, not fatal;
	// the profile resolver synthesizes until the record exists.
	go h.registerBackendUser(name, session)

	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout signs the user out and returns to the sign-in entry.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.identity.SignOut(c.Request().Context()); err != nil {
		log.Warn().Err(err).Msg("Sign-out reported an error, session cleared locally anyway")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) registerBackendUser(name string, session *models.IdentitySession) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if name == "" {
		name = session.DisplayName
	}
	_, err := h.registrar.CreateUser(ctx, models.NewUserRequest{
		Name:      name,
		Email:     session.Email,
		PhotoURL:  session.PhotoURL,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("email", session.Email).Msg("Failed to record new user with backend")
	}
}

// identityErrorStatus maps identity sentinels onto response codes.
func identityErrorStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentialsFormat),
		errors.Is(err, identity.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, identity.ErrNetwork):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func formatLoginForm(redirect string) string {
	return fmt.Sprintf(loginForm, template.HTMLEscapeString(redirect), url.QueryEscape(redirect))
}

// safeRedirect keeps redirects inside the application.
func safeRedirect(target string) string {
	if target == "" || target[0] != '/' || (len(target) > 1 && target[1] == '/') {
		return "/"
	}
	return target
}
