package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yogamaster/yoga-client/internal/identity"
	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/tokenstore"
)

// Exchanger swaps an identity session for a server-issued bearer token.
// Implemented by the API client's unauthenticated exchange call.
type Exchanger interface {
	ExchangeToken(ctx context.Context, email, name string) (string, error)
}

// StateListener observes published session states.
type StateListener func(state models.SessionState)

// Bridge is the single writer of SessionState. It consumes identity
// session-changed events, exchanges each signed-in session for a
// server token, reconciles the token store, and publishes the unified
// state to guards and pages.
//
// Supersession: every session-changed event bumps a sequence number;
// an exchange response that lands after a newer event is discarded, so
// the stored token always belongs to the most recent session.
type Bridge struct {
	exchanger       Exchanger
	store           tokenstore.Store
	exchangeTimeout time.Duration

	mu        sync.Mutex
	state     models.SessionState
	seq       uint64
	listeners map[int]StateListener
	nextID    int

	// exchangeDone is signalled after each exchange attempt settles,
	// exported to tests via WaitExchange.
	exchangeDone chan struct{}
}

func NewBridge(exchanger Exchanger, store tokenstore.Store) *Bridge {
	return &Bridge{
		exchanger:       exchanger,
		store:           store,
		exchangeTimeout: 30 * time.Second,
		state:           models.SessionState{Phase: models.PhaseResolving},
		listeners:       make(map[int]StateListener),
		exchangeDone:    make(chan struct{}, 1),
	}
}

// Attach subscribes the bridge to the identity client's events. The
// returned function detaches it again.
func (b *Bridge) Attach(client identity.Client) (detach func()) {
	return client.OnSessionChange(b.handleSessionChange)
}

// State returns a snapshot of the current session state.
func (b *Bridge) State() models.SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers a listener for state changes. The returned
// function unsubscribes.
func (b *Bridge) Subscribe(fn StateListener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// StaleFor reports whether a result obtained for the given email no
// longer belongs to the current session. Pages use it to discard
// in-flight responses that resolve after a sign-out or user switch.
func (b *Bridge) StaleFor(email string) bool {
	return b.State().Email() != email
}

func (b *Bridge) handleSessionChange(s *models.IdentitySession) {
	ctx := context.Background()

	b.mu.Lock()
	b.seq++
	seq := b.seq

	if s == nil {
		b.state = models.SessionState{Phase: models.PhaseAnonymous}
		if err := b.store.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to clear token store on sign-out")
		}
		b.mu.Unlock()
		b.notify()
		return
	}

	// Authenticated immediately, tokenless until the exchange lands;
	// navigation never blocks on the exchange round-trip.
	b.state = models.SessionState{Phase: models.PhaseAuthenticated, Identity: s}
	if err := b.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clear stale token before exchange")
	}
	b.mu.Unlock()
	b.notify()

	if s.Email == "" {
		log.Warn().Str("subject", s.SubjectID).Msg("Identity session has no email, skipping token exchange")
		return
	}
	go b.exchange(seq, s)
}

func (b *Bridge) exchange(seq uint64, s *models.IdentitySession) {
	defer b.signalExchangeDone()

	ctx, cancel := context.WithTimeout(context.Background(), b.exchangeTimeout)
	defer cancel()

	value, err := b.exchanger.ExchangeToken(ctx, s.Email, s.DisplayName)

	b.mu.Lock()
	if b.seq != seq || b.state.Email() != s.Email {
		b.mu.Unlock()
		log.Info().Str("email", s.Email).Msg("Discarding superseded token exchange result")
		return
	}

	if err != nil {
		// Degraded: stay authenticated without a token; privileged
		// calls will fail and be handled by the authorized client.
		if clearErr := b.store.Clear(ctx); clearErr != nil {
			log.Warn().Err(clearErr).Msg("Failed to clear token store after exchange failure")
		}
		b.state.Token = nil
		b.mu.Unlock()
		log.Error().Err(err).Str("email", s.Email).Msg("Token exchange failed, continuing without token")
		b.notify()
		return
	}

	token := &models.Token{Value: value, IssuedForEmail: s.Email}
	if storeErr := b.store.Set(ctx, token); storeErr != nil {
		log.Error().Err(storeErr).Msg("Failed to persist exchanged token")
	}
	b.state.Token = token
	b.mu.Unlock()
	log.Info().Str("email", s.Email).Msg("Token exchange succeeded")
	b.notify()
}

func (b *Bridge) notify() {
	b.mu.Lock()
	state := b.state
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]StateListener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (b *Bridge) signalExchangeDone() {
	select {
	case b.exchangeDone <- struct{}{}:
	default:
	}
}

// WaitExchange blocks until an in-flight exchange attempt settles or
// the timeout elapses. Intended for tests and shutdown paths.
func (b *Bridge) WaitExchange(timeout time.Duration) bool {
	select {
	case <-b.exchangeDone:
		return true
	case <-time.After(timeout):
		return false
	}
}
