package authgate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rapscallion45/tradernet/internal/api"
	"github.com/rapscallion45/tradernet/internal/domain/identity"
	"github.com/rapscallion45/tradernet/internal/session"
)

type fakeChecker struct {
	calls int
	ids   []identity.Identity
	errs  []error
}

func (f *fakeChecker) GetSession(ctx context.Context) (identity.Identity, error) {
	i := f.calls
	f.calls++
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	return f.ids[i], f.errs[i]
}

type fakeRouter struct {
	redirects []string
}

func (f *fakeRouter) RedirectToLogin(from string) {
	f.redirects = append(f.redirects, from)
}

func TestResolveRedirectsOnUnauthorized(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{ids: []identity.Identity{{}}, errs: []error{api.ErrUnauthorized}}
	router := &fakeRouter{}
	g := New(sessions, checker, router)

	state, err := g.Resolve(context.Background(), "/dashboard")
	require.NoError(t, err)
	require.Equal(t, StateUnauthenticated, state)
	require.Equal(t, []string{"/dashboard"}, router.redirects)
	require.True(t, sessions.Current().IsZero())
	require.Equal(t, 1, checker.calls) // 401 is definitive, no retry
}

func TestResolvePassThroughWithPopulatedSession(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	sessions.Set(identity.Identity{Username: "alice"})
	checker := &fakeChecker{ids: []identity.Identity{{}}, errs: []error{api.ErrUnauthorized}}
	router := &fakeRouter{}
	g := New(sessions, checker, router)

	state, err := g.Resolve(context.Background(), "/dashboard")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Zero(t, checker.calls)
	require.Empty(t, router.redirects)
}

func TestResolveAuthenticatesAndPopulatesSession(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{ids: []identity.Identity{{ID: 3, Username: "carol"}}, errs: []error{nil}}
	router := &fakeRouter{}
	g := New(sessions, checker, router)

	state, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Equal(t, "carol", sessions.Current().Username)
	require.Empty(t, router.redirects)
}

func TestResolveRetriesTransportErrorOnce(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{
		ids:  []identity.Identity{{}, {Username: "dave"}},
		errs: []error{errors.New("connection refused"), nil},
	}
	g := New(sessions, checker, &fakeRouter{})

	state, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Equal(t, 2, checker.calls)
}

func TestResolveTransportFailureIsUnauthenticated(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	boom := errors.New("connection refused")
	checker := &fakeChecker{ids: []identity.Identity{{}, {}}, errs: []error{boom, boom}}
	router := &fakeRouter{}
	g := New(sessions, checker, router)

	state, err := g.Resolve(context.Background(), "/orders")
	require.NoError(t, err)
	require.Equal(t, StateUnauthenticated, state)
	require.Equal(t, 2, checker.calls)
	require.Equal(t, []string{"/orders"}, router.redirects)
}

func TestResolveTerminalStateIsSticky(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{ids: []identity.Identity{{Username: "erin"}}, errs: []error{nil}}
	g := New(sessions, checker, &fakeRouter{})

	_, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)

	state, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Equal(t, 1, checker.calls) // no re-validation
}

type cancelingChecker struct {
	cancel context.CancelFunc
}

func (c *cancelingChecker) GetSession(ctx context.Context) (identity.Identity, error) {
	c.cancel()
	return identity.Identity{Username: "stale"}, nil
}

func TestResolveCancellationSuppressesStateWrites(t *testing.T) {
	sessions := session.New(zerolog.Nop())
	router := &fakeRouter{}
	ctx, cancel := context.WithCancel(context.Background())
	g := New(sessions, &cancelingChecker{cancel: cancel}, router)

	state, err := g.Resolve(ctx, "/")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateResolving, state)
	require.Equal(t, StateResolving, g.State())
	require.True(t, sessions.Current().IsZero())
	require.Empty(t, router.redirects)
}

func TestResolveTrustedCacheSkipsValidation(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(filepath.Join(dir, "identity.json"))
	require.NoError(t, cache.Store(identity.Identity{ID: 5, Username: "frank"}))

	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{ids: []identity.Identity{{}}, errs: []error{api.ErrUnauthorized}}
	g := New(sessions, checker, &fakeRouter{}, WithTrustedCache(cache))

	state, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Equal(t, "frank", sessions.Current().Username)
	require.Zero(t, checker.calls)
}

func TestResolveEmptyCacheFallsBackToValidation(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "identity.json"))

	sessions := session.New(zerolog.Nop())
	checker := &fakeChecker{ids: []identity.Identity{{Username: "grace"}}, errs: []error{nil}}
	g := New(sessions, checker, &fakeRouter{}, WithTrustedCache(cache))

	state, err := g.Resolve(context.Background(), "/")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, state)
	require.Equal(t, 1, checker.calls)
}

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "nested", "identity.json"))

	_, ok := cache.Load()
	require.False(t, ok)

	require.NoError(t, cache.Store(identity.Identity{ID: 2, Username: "henry"}))
	id, ok := cache.Load()
	require.True(t, ok)
	require.Equal(t, "henry", id.Username)

	require.NoError(t, cache.Clear())
	require.NoError(t, cache.Clear()) // idempotent
	_, ok = cache.Load()
	require.False(t, ok)
}
