package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/tokenstore"
)

// AuthFailureHook runs when an authorized call comes back 401 or 403,
// before the error is returned to the caller. Typical wiring:
// best-effort identity sign-out, token clear, redirect to sign-in.
type AuthFailureHook func(statusCode int)

// Client talks to the marketplace backend. Authorized calls go through
// a transport that attaches the stored bearer token per request; the
// exchange call and public catalog reads are sent unauthenticated.
type Client struct {
	baseURL    string
	authorized *http.Client
	plain      *http.Client

	mu     sync.Mutex
	hook   AuthFailureHook
	closed bool
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	currentEmail func() string
	timeout      time.Duration
}

// WithCurrentEmail supplies the live session email used to detect and
// clear tokens issued for a previous user.
func WithCurrentEmail(fn func() string) Option {
	return func(o *clientOptions) { o.currentEmail = fn }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func NewClient(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	options := clientOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		authorized: &http.Client{
			Timeout: options.timeout,
			Transport: &authTransport{
				base:         http.DefaultTransport,
				store:        store,
				currentEmail: options.currentEmail,
			},
		},
		plain: &http.Client{Timeout: options.timeout},
	}
}

// OnAuthFailure registers the hook fired on 401/403 responses.
func (c *Client) OnAuthFailure(hook AuthFailureHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = hook
}

// Close detaches the auth-failure hook so no handler fires against a
// torn-down scope. In-flight requests still complete and return their
// errors; only the hook is released.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = nil
	c.closed = true
}

func (c *Client) fireAuthFailure(status int) {
	c.mu.Lock()
	hook := c.hook
	closed := c.closed
	c.mu.Unlock()

	if closed || hook == nil {
		return
	}
	hook(status)
}

// do sends a request and decodes the JSON response into out (when out
// is non-nil). 401/403 on the authorized client runs the auth-failure
// hook and returns an AuthorizationError; plain network errors and
// 5xx pass through untouched — retry policy belongs to the caller.
func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if client == c.authorized {
			log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Authorized request rejected")
			c.fireAuthFailure(resp.StatusCode)
		}
		return &AuthorizationError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// ExchangeToken swaps {email, name} for a server-issued bearer token.
// This is the one backend call that never carries an Authorization
// header.
func (c *Client) ExchangeToken(ctx context.Context, email, name string) (string, error) {
	var resp models.TokenExchangeResponse
	req := models.TokenExchangeRequest{Email: email, Name: name}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api-set-token", req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("exchange response contained no token")
	}
	return resp.Token, nil
}

// GetUser fetches the application-level user record for an email.
func (c *Client) GetUser(ctx context.Context, email string) (*models.UserProfile, error) {
	var profile models.UserProfile
	path := "/user/" + url.PathEscape(email)
	if err := c.do(ctx, c.authorized, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateUser registers a new user record, used after sign-up and after
// a first federated sign-in.
func (c *Client) CreateUser(ctx context.Context, user models.NewUserRequest) (string, error) {
	var resp models.InsertResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/new-user", user, &resp); err != nil {
		return "", err
	}
	return resp.InsertedID, nil
}

// AddToCart places a class into the user's cart.
func (c *Client) AddToCart(ctx context.Context, item models.AddToCartRequest) (string, error) {
	var resp models.InsertResponse
	if err := c.do(ctx, c.authorized, http.MethodPost, "/add-to-cart", item, &resp); err != nil {
		return "", err
	}
	return resp.InsertedID, nil
}

// GetCartItem looks up the cart row for a class and user email.
func (c *Client) GetCartItem(ctx context.Context, classID, email string) (*models.CartItem, error) {
	var item models.CartItem
	path := "/cart-item/" + url.PathEscape(classID) + "?email=" + url.QueryEscape(email)
	if err := c.do(ctx, c.authorized, http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteCartItem removes a cart row by its id.
func (c *Client) DeleteCartItem(ctx context.Context, id string) error {
	path := "/delete-cart-item/" + url.PathEscape(id)
	return c.do(ctx, c.authorized, http.MethodDelete, path, nil, nil)
}

// ListClasses returns the public class catalog.
func (c *Client) ListClasses(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := c.do(ctx, c.plain, http.MethodGet, "/classes", nil, &classes); err != nil {
		return nil, err
	}
	return classes, nil
}

// GetClass returns a single class by id.
func (c *Client) GetClass(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := c.do(ctx, c.plain, http.MethodGet, "/class/"+url.PathEscape(id), nil, &class); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListInstructors returns the public instructor directory.
func (c *Client) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	var instructors []models.Instructor
	if err := c.do(ctx, c.plain, http.MethodGet, "/instructors", nil, &instructors); err != nil {
		return nil, err
	}
	return instructors, nil
}
