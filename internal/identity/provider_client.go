package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/yogamaster/yoga-client/internal/config"
	"github.com/yogamaster/yoga-client/internal/models"
)

// ProviderClient implements Client against an identity-toolkit style
// REST surface for credential auth and an OIDC provider for federated
// sign-in.
type ProviderClient struct {
	cfg        config.IdentityConfig
	oauthCfg   *oauth2.Config
	httpClient *http.Client
	cache      *SessionCache

	mu        sync.Mutex
	current   *models.IdentitySession
	listeners map[int]SessionListener
	nextID    int
}

var _ Client = (*ProviderClient)(nil)

// NewProviderClient creates a ProviderClient. oauthCfg may be nil when
// no federated provider is configured; federated sign-in then fails
// with ErrProviderDisabled.
func NewProviderClient(cfg config.IdentityConfig, oauthCfg *oauth2.Config, cache *SessionCache) *ProviderClient {
	return &ProviderClient{
		cfg:        cfg,
		oauthCfg:   oauthCfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		listeners:  make(map[int]SessionListener),
	}
}

// credentialRequest is the identity-toolkit body shared by the sign-in
// and sign-up endpoints.
type credentialRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type credentialResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

type providerErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ProviderClient) SignUpWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error) {
	session, err := c.credentialCall(ctx, c.cfg.SignUpURL, email, password)
	if err != nil {
		return nil, err
	}
	c.emit(session)
	return session, nil
}

func (c *ProviderClient) SignInWithCredentials(ctx context.Context, email, password string) (*models.IdentitySession, error) {
	session, err := c.credentialCall(ctx, c.cfg.SignInURL, email, password)
	if err != nil {
		return nil, err
	}
	c.emit(session)
	return session, nil
}

func (c *ProviderClient) credentialCall(ctx context.Context, endpoint, email, password string) (*models.IdentitySession, error) {
	if email == "" || password == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCredentialsFormat
	}

	body, err := json.Marshal(credentialRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential request: %w", err)
	}

	url := endpoint
	if c.cfg.APIKey != "" {
		url = endpoint + "?key=" + c.cfg.APIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build credential request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Identity provider unreachable")
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, mapProviderError(resp.StatusCode, data)
	}

	var cred credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential response: %w", err)
	}

	return &models.IdentitySession{
		SubjectID:   cred.LocalID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
		PhotoURL:    cred.PhotoURL,
	}, nil
}

// mapProviderError translates identity-toolkit error codes onto the
// package sentinels. Unknown codes surface as-is so the caller can log
// them.
func mapProviderError(status int, body []byte) error {
	var perr providerErrorResponse
	_ = json.Unmarshal(body, &perr)

	code := perr.Error.Message
	switch {
	case strings.HasPrefix(code, "EMAIL_NOT_FOUND"):
		return ErrUserNotFound
	case strings.HasPrefix(code, "INVALID_PASSWORD"), strings.HasPrefix(code, "INVALID_LOGIN_CREDENTIALS"):
		return ErrWrongPassword
	case strings.HasPrefix(code, "EMAIL_EXISTS"):
		return ErrEmailInUse
	case strings.HasPrefix(code, "WEAK_PASSWORD"):
		return ErrWeakPassword
	case strings.HasPrefix(code, "INVALID_EMAIL"), strings.HasPrefix(code, "MISSING_PASSWORD"), strings.HasPrefix(code, "MISSING_EMAIL"):
		return ErrInvalidCredentialsFormat
	}
	return fmt.Errorf("identity provider returned status %d: %s", status, code)
}

func (c *ProviderClient) ProviderAuthURL(state string) (string, error) {
	if c.oauthCfg == nil || c.oauthCfg.ClientID == "" {
		return "", ErrProviderDisabled
	}
	return c.oauthCfg.AuthCodeURL(state), nil
}

func (c *ProviderClient) CompleteProviderSignIn(ctx context.Context, code string) (*models.IdentitySession, error) {
	if c.oauthCfg == nil || c.oauthCfg.ClientID == "" {
		return nil, ErrProviderDisabled
	}

	token, err := c.oauthCfg.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Error exchanging OAuth code for token")
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if !token.Valid() {
		log.Warn().Msg("Received invalid OAuth token after exchange")
		return nil, errors.New("received invalid token")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		log.Warn().Msg("ID token missing from OAuth token response")
		return nil, errors.New("id_token missing from response")
	}

	provider, err := oidc.NewProvider(ctx, c.cfg.Issuer)
	if err != nil {
		log.Error().Err(err).Str("issuer", c.cfg.Issuer).Msg("Failed to create OIDC provider")
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: c.oauthCfg.ClientID})

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to verify ID token")
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	log.Info().Str("issuer", idToken.Issuer).Str("subject", idToken.Subject).Msg("ID token verified successfully")

	session := &models.IdentitySession{
		SubjectID:     idToken.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
		EmailVerified: claims.EmailVerified,
	}
	c.emit(session)
	return session, nil
}

// SignOut clears the local session. Local clearing takes precedence
// over any provider round-trip, so this never fails.
func (c *ProviderClient) SignOut(_ context.Context) error {
	if err := c.cache.Clear(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear session cache on sign-out")
	}
	c.dispatch(nil)
	return nil
}

func (c *ProviderClient) OnSessionChange(fn SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Start rehydrates the persisted session and delivers the initial
// session-changed event, nil when no session was cached.
func (c *ProviderClient) Start(_ context.Context) error {
	session, err := c.cache.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to rehydrate session cache, starting signed out")
		session = nil
	}
	c.dispatch(session)
	return nil
}

func (c *ProviderClient) Current() *models.IdentitySession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// emit persists the new session and notifies listeners.
func (c *ProviderClient) emit(session *models.IdentitySession) {
	if err := c.cache.Save(session); err != nil {
		log.Warn().Err(err).Msg("Failed to persist session cache")
	}
	c.dispatch(session)
}

// dispatch replaces the current session and invokes listeners in
// registration order. Last write wins when sign-ins race.
func (c *ProviderClient) dispatch(session *models.IdentitySession) {
	c.mu.Lock()
	c.current = session
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]SessionListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}
