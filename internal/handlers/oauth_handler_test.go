package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yogamaster/yoga-client/internal/config"
	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/mocks"
	"github.com/yogamaster/yoga-client/internal/models"
)

const testStateCookie = "oauthstate"

func newOAuthFixture(identityClient *mocks.MockIdentityClient, registrar UserRegistrar) *OAuthHandler {
	cfg := &config.Config{StateCookieName: testStateCookie}
	return NewOAuthHandler(identityClient, registrar, cfg)
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestOAuthHandler_Login(t *testing.T) {
	e := echo.New()

	t.Run("RedirectsToProvider", func(t *testing.T) {
		identityClient := new(mocks.MockIdentityClient)
		identityClient.On("ProviderAuthURL", mock.AnythingOfType("string")).
			Return("https://accounts.example.com/auth?state=abc", nil)
		handler := newOAuthFixture(identityClient, newRecordingRegistrar())

		req := httptest.NewRequest(http.MethodGet, "/login/google?redirect=%2Fdashboard", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Login(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, "https://accounts.example.com/auth?state=abc", rec.Header().Get("Location"))

		state := cookieByName(rec, testStateCookie)
		require.NotNil(t, state)
		assert.NotEmpty(t, state.Value)
		assert.True(t, state.HttpOnly)

		redirect := cookieByName(rec, testStateCookie+"_redirect")
		require.NotNil(t, redirect)
		assert.Equal(t, "/dashboard", redirect.Value)
	})

	t.Run("ProviderDisabled", func(t *testing.T) {
		identityClient := new(mocks.MockIdentityClient)
		identityClient.On("ProviderAuthURL", mock.AnythingOfType("string")).
			Return("", identity.ErrProviderDisabled)
		handler := newOAuthFixture(identityClient, newRecordingRegistrar())

		req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Login(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func callbackRequest(target, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: testStateCookie, Value: cookieState})
	}
	return req
}

func TestOAuthHandler_Callback(t *testing.T) {
	e := echo.New()

	t.Run("Success", func(t *testing.T) {
		identityClient := new(mocks.MockIdentityClient)
		identityClient.On("CompleteProviderSignIn", mock.Anything, "auth-code").
			Return(&models.IdentitySession{SubjectID: "sub-1", Email: "alice@example.com", DisplayName: "Alice"}, nil)
		registrar := newRecordingRegistrar()
		handler := newOAuthFixture(identityClient, registrar)

		req := callbackRequest("/oauth/callback?state=abc&code=auth-code", "abc")
		req.AddCookie(&http.Cookie{Name: testStateCookie + "_redirect", Value: "/dashboard"})
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

		// Both cookies are expired on the way out.
		state := cookieByName(rec, testStateCookie)
		require.NotNil(t, state)
		assert.Empty(t, state.Value)

		recorded := registrar.wait(t)
		assert.Equal(t, "alice@example.com", recorded.Email)
		identityClient.AssertExpectations(t)
	})

	t.Run("StateParameterMissing", func(t *testing.T) {
		handler := newOAuthFixture(new(mocks.MockIdentityClient), newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?code=auth-code", "abc")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("StateCookieMissing", func(t *testing.T) {
		handler := newOAuthFixture(new(mocks.MockIdentityClient), newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?state=abc&code=auth-code", "")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("StateMismatch", func(t *testing.T) {
		identityClient := new(mocks.MockIdentityClient)
		handler := newOAuthFixture(identityClient, newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?state=forged&code=auth-code", "abc")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		identityClient.AssertNotCalled(t, "CompleteProviderSignIn", mock.Anything, mock.Anything)
	})

	t.Run("UserCancelledConsent", func(t *testing.T) {
		handler := newOAuthFixture(new(mocks.MockIdentityClient), newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?state=abc&error=access_denied", "abc")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("PopupBlocked", func(t *testing.T) {
		handler := newOAuthFixture(new(mocks.MockIdentityClient), newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?state=abc&error=interaction_required", "abc")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), identity.ErrPopupBlocked.Error())
	})

	t.Run("ExchangeFailure", func(t *testing.T) {
		identityClient := new(mocks.MockIdentityClient)
		identityClient.On("CompleteProviderSignIn", mock.Anything, "bad-code").
			Return(nil, assert.AnError)
		handler := newOAuthFixture(identityClient, newRecordingRegistrar())

		req := callbackRequest("/oauth/callback?state=abc&code=bad-code", "abc")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Callback(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
