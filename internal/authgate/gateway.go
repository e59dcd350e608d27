// Package authgate gates the protected application behind a resolved
// session. Resolution asks the identity-check collaborator exactly once
// (plus one retry on transport error); an already-populated session store or
// an explicitly trusted identity cache short-circuits the network call.
package authgate

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/api"
	"github.com/rapscallion45/tradernet/internal/domain/identity"
	"github.com/rapscallion45/tradernet/internal/metrics"
	"github.com/rapscallion45/tradernet/internal/session"
)

// State is the gateway resolution state. Resolving is the only transient
// state; once a terminal state is reached there is no re-validation.
type State int

const (
	StateResolving State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "invalid"
}

// ErrResolutionInFlight is returned when Resolve is called while another
// resolution is still outstanding; only one runs at a time.
var ErrResolutionInFlight = errors.New("session resolution already in flight")

// SessionChecker is the identity-check collaborator contract.
type SessionChecker interface {
	GetSession(ctx context.Context) (identity.Identity, error)
}

// Router provides the redirect primitive; it is not specified further.
type Router interface {
	// RedirectToLogin navigates to the login route, preserving the
	// originally requested location.
	RedirectToLogin(from string)
}

// IdentityCache is the opt-in local fast path: an identity accepted without
// server validation. Only wire one in for non-sensitive contexts.
type IdentityCache interface {
	Load() (identity.Identity, bool)
}

// Gateway resolves the current session and either admits the caller or
// redirects to login.
type Gateway struct {
	sessions *session.Store
	checker  SessionChecker
	router   Router
	cache    IdentityCache
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	resolving bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Gateway) { g.log = log.With().Str("component", "authgate").Logger() }
}

// WithTrustedCache enables the unvalidated cached-identity fast path.
func WithTrustedCache(cache IdentityCache) Option {
	return func(g *Gateway) { g.cache = cache }
}

// New builds a gateway over the given session store, identity checker and
// router.
func New(sessions *session.Store, checker SessionChecker, router Router, opts ...Option) *Gateway {
	g := &Gateway{
		sessions: sessions,
		checker:  checker,
		router:   router,
		log:      zerolog.Nop(),
		state:    StateResolving,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current resolution state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Resolve determines whether the caller is authenticated. from is the
// originally requested location, handed to the router on redirect. A
// canceled context suppresses every state write from the stale attempt and
// leaves the gateway resolvable again.
func (g *Gateway) Resolve(ctx context.Context, from string) (State, error) {
	g.mu.Lock()
	if g.resolving {
		g.mu.Unlock()
		return StateResolving, ErrResolutionInFlight
	}
	if g.state != StateResolving {
		// Terminal states are sticky: no polling, no re-validation.
		state := g.state
		g.mu.Unlock()
		return state, nil
	}
	g.resolving = true
	g.mu.Unlock()

	state, err := g.resolve(ctx, from)

	g.mu.Lock()
	g.resolving = false
	if err == nil {
		g.state = state
	}
	g.mu.Unlock()
	return state, err
}

func (g *Gateway) resolve(ctx context.Context, from string) (State, error) {
	if !g.sessions.Current().IsZero() {
		g.log.Debug().Msg("session already populated; skipping identity check")
		metrics.RecordResolution("cached_session")
		return StateAuthenticated, nil
	}

	if g.cache != nil {
		if id, ok := g.cache.Load(); ok && !id.IsZero() {
			g.log.Info().Str("username", id.Username).
				Msg("accepting cached identity without server validation")
			if err := ctx.Err(); err != nil {
				return StateResolving, err
			}
			g.sessions.Set(id)
			metrics.RecordResolution("trusted_cache")
			return StateAuthenticated, nil
		}
	}

	id, err := g.check(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The gate went away mid-flight; drop the result on the floor.
		g.log.Debug().Msg("resolution canceled; discarding result")
		return StateResolving, ctxErr
	}

	if err != nil {
		if !errors.Is(err, api.ErrUnauthorized) {
			g.log.Warn().Err(err).Msg("identity check failed")
		}
		g.sessions.Clear()
		metrics.RecordResolution("unauthenticated")
		g.router.RedirectToLogin(from)
		return StateUnauthenticated, nil
	}

	g.sessions.Set(id)
	metrics.RecordResolution("authenticated")
	return StateAuthenticated, nil
}

// check performs the identity request, retrying once on transport errors.
// Explicit unauthorized answers are definitive and never retried.
func (g *Gateway) check(ctx context.Context) (identity.Identity, error) {
	id, err := g.checker.GetSession(ctx)
	if err == nil || errors.Is(err, api.ErrUnauthorized) || ctx.Err() != nil {
		return id, err
	}
	g.log.Debug().Err(err).Msg("identity check transport error; retrying once")
	return g.checker.GetSession(ctx)
}
