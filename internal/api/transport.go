package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/tokenstore"
)

// authTransport attaches the stored bearer token to every outgoing
// request. The store is read per request, never cached, so a token
// written a moment ago is attached to the very next call.
//
// currentEmail, when set, supplies the live session's email; a stored
// token issued for a different email is stale, cleared, and the
// request goes out unauthenticated.
type authTransport struct {
	base         http.RoundTripper
	store        tokenstore.Store
	currentEmail func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.store.Get(req.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read token store, sending unauthenticated")
		token = nil
	}

	if token != nil && t.currentEmail != nil {
		if email := t.currentEmail(); email != "" && !token.MatchesEmail(email) {
			log.Warn().Str("tokenEmail", token.IssuedForEmail).Str("sessionEmail", email).
				Msg("Stored token does not match active session, clearing")
			_ = t.store.Clear(context.Background())
			token = nil
		}
	}

	if token != nil {
		// Clone before mutating; RoundTrippers must not modify the
		// caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token.Value)
	}

	return t.base.RoundTrip(req)
}
