package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/tokenstore/memory"
)

type capturedRequest struct {
	mu      sync.Mutex
	headers []http.Header
	paths   []string
}

func (c *capturedRequest) record(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers = append(c.headers, r.Header.Clone())
	c.paths = append(c.paths, r.URL.RequestURI())
}

func (c *capturedRequest) last() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers[len(c.headers)-1]
}

func TestClient_AttachesStoredToken(t *testing.T) {
	ctx := context.Background()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		json.NewEncoder(w).Encode(models.UserProfile{Email: "alice@example.com", Role: models.RoleUser})
	}))
	defer server.Close()

	store := memory.NewMemoryTokenStore()
	client := NewClient(server.URL, store)

	t.Run("NoTokenSendsUnauthenticated", func(t *testing.T) {
		_, err := client.GetUser(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Empty(t, captured.last().Get("Authorization"))
	})

	t.Run("TokenWrittenThenAttached", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, &models.Token{Value: "tok123", IssuedForEmail: "alice@example.com"}))
		_, err := client.GetUser(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok123", captured.last().Get("Authorization"))
	})

	t.Run("ClearedTokenNotAttached", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		_, err := client.GetUser(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Empty(t, captured.last().Get("Authorization"))
	})
}

func TestClient_ClearsTokenForDifferentUser(t *testing.T) {
	ctx := context.Background()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		json.NewEncoder(w).Encode(models.UserProfile{})
	}))
	defer server.Close()

	store := memory.NewMemoryTokenStore()
	require.NoError(t, store.Set(ctx, &models.Token{Value: "old-tok", IssuedForEmail: "old@example.com"}))

	client := NewClient(server.URL, store, WithCurrentEmail(func() string { return "new@example.com" }))

	_, err := client.GetUser(ctx, "new@example.com")
	require.NoError(t, err)

	// The mismatched token must not be sent, and must be gone from the store.
	assert.Empty(t, captured.last().Get("Authorization"))
	stored, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestClient_AuthFailureRunsHook(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := memory.NewMemoryTokenStore()
	require.NoError(t, store.Set(ctx, &models.Token{Value: "expired", IssuedForEmail: "alice@example.com"}))

	client := NewClient(server.URL, store)
	var hookStatus int
	client.OnAuthFailure(func(status int) {
		hookStatus = status
		store.Clear(ctx)
	})

	_, err := client.GetUser(ctx, "alice@example.com")

	// The hook ran, and the caller still sees the failure.
	assert.Equal(t, http.StatusUnauthorized, hookStatus)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	stored, getErr := store.Get(ctx)
	require.NoError(t, getErr)
	assert.Nil(t, stored)
}

func TestClient_ForbiddenRunsHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())
	var hookStatus int
	client.OnAuthFailure(func(status int) { hookStatus = status })

	_, err := client.GetUser(context.Background(), "alice@example.com")

	assert.Equal(t, http.StatusForbidden, hookStatus)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestClient_CloseDetachesHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())
	hookRan := false
	client.OnAuthFailure(func(int) { hookRan = true })
	client.Close()

	_, err := client.GetUser(context.Background(), "alice@example.com")

	assert.False(t, hookRan)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestClient_ServerErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())
	hookRan := false
	client.OnAuthFailure(func(int) { hookRan = true })

	_, err := client.GetUser(context.Background(), "alice@example.com")

	assert.False(t, hookRan)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())
	_, err := client.GetUser(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_ExchangeToken(t *testing.T) {
	ctx := context.Background()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		var req models.TokenExchangeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice@example.com", req.Email)
		json.NewEncoder(w).Encode(models.TokenExchangeResponse{Token: "issued-tok"})
	}))
	defer server.Close()

	store := memory.NewMemoryTokenStore()
	require.NoError(t, store.Set(ctx, &models.Token{Value: "leftover", IssuedForEmail: "alice@example.com"}))

	client := NewClient(server.URL, store)
	token, err := client.ExchangeToken(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "issued-tok", token)

	// The exchange endpoint is unauthenticated even with a stored token.
	assert.Empty(t, captured.last().Get("Authorization"))
}

func TestClient_ExchangeTokenEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.TokenExchangeResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())
	_, err := client.ExchangeToken(context.Background(), "alice@example.com", "Alice")
	assert.Error(t, err)
}

func TestClient_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add-to-cart", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.InsertResponse{InsertedID: "cart-1"})
	})
	mux.HandleFunc("GET /cart-item/{classId}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice@example.com", r.URL.Query().Get("email"))
		json.NewEncoder(w).Encode(models.CartItem{ID: "cart-1", ClassID: r.PathValue("classId")})
	})
	mux.HandleFunc("DELETE /delete-cart-item/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"deletedCount": 1})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, memory.NewMemoryTokenStore())

	id, err := client.AddToCart(ctx, models.AddToCartRequest{ClassID: "c1", UserMail: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cart-1", id)

	item, err := client.GetCartItem(ctx, "c1", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", item.ID)
	assert.Equal(t, "c1", item.ClassID)

	require.NoError(t, client.DeleteCartItem(ctx, "cart-1"))
}
