package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/yogamaster/yoga-client/internal/models"
)

// SessionStateKey is the echo context key the guard stores the
// SessionState snapshot under for downstream handlers.
const SessionStateKey = "sessionState"

// loadingPlaceholder is the neutral page shown while the session is
// still resolving; it retries shortly and never leaks protected
// content.
const loadingPlaceholder = `<!DOCTYPE html>
<html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading...</p></body></html>`

// SessionSource supplies the current session state snapshot.
type SessionSource interface {
	State() models.SessionState
}

// RouteGuard gates protected routes on the session state. The decision
// is taken from a single snapshot per request:
//
//   - resolving: render the loading placeholder, no redirect, and the
//     protected handler never runs (no flash-then-redirect race);
//   - anonymous: redirect to the sign-in entry, recording the
//     originally requested location so sign-in can return there;
//   - authenticated: run the protected handler with the snapshot
//     stored in the request context.
func RouteGuard(source SessionSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := source.State()

			switch state.Phase {
			case models.PhaseResolving:
				return c.HTML(http.StatusOK, loadingPlaceholder)
			case models.PhaseAuthenticated:
				c.Set(SessionStateKey, state)
				return next(c)
			default:
				target := "/login?redirect=" + url.QueryEscape(c.Request().RequestURI)
				return c.Redirect(http.StatusFound, target)
			}
		}
	}
}

// StateFromContext returns the guard's SessionState snapshot.
func StateFromContext(c echo.Context) (models.SessionState, bool) {
	state, ok := c.Get(SessionStateKey).(models.SessionState)
	return state, ok
}
