package identity

import (
	"context"

	"github.com/yogamaster/yoga-client/internal/models"
)

// SessionListener receives the current identity session on every
// change. A nil session means signed out.
type SessionListener func(session *models.IdentitySession)

// Client wraps the third-party identity provider.
//
// Exactly one canonical current session exists at a time. Concurrent
// sign-in attempts race and the last callback to fire wins; callers
// that care about ordering must rely on the session bridge's
// supersession sequence, not on promise resolution order.
type Client interface {
	// SignUpWithCredentials creates an account and signs it in.
	SignUpWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error)
	// SignInWithCredentials authenticates with email and password.
	SignInWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error)
	// ProviderAuthURL returns the federated provider's consent URL for
	// the given CSRF state. The flow completes on the local callback
	// route via CompleteProviderSignIn.
	ProviderAuthURL(state string) (string, error)
	// CompleteProviderSignIn exchanges the callback's authorization
	// code, verifies the ID token and signs the principal in.
	CompleteProviderSignIn(ctx context.Context, code string) (*models.IdentitySession, error)
	// SignOut clears the local session. It is idempotent and always
	// succeeds locally even if the provider round-trip fails.
	SignOut(ctx context.Context) error
	// OnSessionChange registers a listener. Start delivers the
	// rehydrated session (possibly nil) to all listeners once, and
	// every subsequent change is delivered in order. The returned
	// function unsubscribes.
	OnSessionChange(fn SessionListener) (unsubscribe func())
	// Start rehydrates the persisted session and emits the initial
	// session-changed event.
	Start(ctx context.Context) error
	// Current returns the current session, nil while signed out.
	Current() *models.IdentitySession
}
