package refresh_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/weeb-client/apimodel"
	weeberrors "github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/token"
	"github.com/jrsteele09/weeb-client/token/refresh"
	tokenrepofake "github.com/jrsteele09/weeb-client/token/repofake"
	"github.com/jrsteele09/weeb-client/users"
)

// fakeRefresher answers refresh calls, optionally holding them until release is closed.
type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	resp    *apimodel.RefreshResponse
	err     error
	gotRef  atomic.Value
	ctxErr  atomic.Value
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, ref string) (*apimodel.RefreshResponse, error) {
	f.calls.Add(1)
	f.gotRef.Store(ref)
	if f.release != nil {
		<-f.release
	}
	f.ctxErr.Store(fmt.Sprint(ctx.Err()))
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type recordingInvalidator struct {
	lock   sync.Mutex
	causes []error
}

func (r *recordingInvalidator) SessionInvalidated(cause error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.causes = append(r.causes, cause)
}

func (r *recordingInvalidator) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.causes)
}

func signedInStore(t *testing.T) *token.Store {
	t.Helper()
	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess("tok1")
	require.NoError(t, store.SetRefresh("ref1"))
	require.NoError(t, store.SetUser(&users.Profile{ID: 1, Email: "a@x.com", IsActive: true}))
	return store
}

func TestRenewStoresNewAccessToken(t *testing.T) {
	store := signedInStore(t)
	refresher := &fakeRefresher{resp: &apimodel.RefreshResponse{Access: "tok2"}}
	c := refresh.NewCoordinator(store, refresher, nil)

	tok, err := c.Renew(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok2", tok)
	require.Equal(t, "ref1", refresher.gotRef.Load())
	require.Equal(t, "tok2", store.GetAccess())
	require.Equal(t, "ref1", store.GetRefresh(), "refresh token kept when the server does not rotate")
	require.False(t, c.InFlight())
}

func TestRenewPersistsRotatedRefreshToken(t *testing.T) {
	store := signedInStore(t)
	refresher := &fakeRefresher{resp: &apimodel.RefreshResponse{Access: "tok2", Refresh: "ref2"}}
	c := refresh.NewCoordinator(store, refresher, nil)

	_, err := c.Renew(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ref2", store.GetRefresh())
}

func TestConcurrentRenewIssuesOneRefresh(t *testing.T) {
	const n = 8
	store := signedInStore(t)
	refresher := &fakeRefresher{
		release: make(chan struct{}),
		resp:    &apimodel.RefreshResponse{Access: "tok2"},
	}
	c := refresh.NewCoordinator(store, refresher, nil)

	tokens := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			tok, err := c.Renew(context.Background())
			tokens[i] = tok
			return err
		})
	}

	// Hold the refresh until every other caller has joined the queue
	require.Eventually(t, func() bool { return c.Pending() == n-1 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, c.InFlight())
	close(refresher.release)

	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, refresher.calls.Load())
	for _, tok := range tokens {
		require.Equal(t, "tok2", tok)
	}
	require.Zero(t, c.Pending())
}

func TestRenewFailureRejectsEveryone(t *testing.T) {
	const n = 4
	store := signedInStore(t)
	invalidator := &recordingInvalidator{}
	refresher := &fakeRefresher{release: make(chan struct{}), err: errors.New("401 token_not_valid")}
	c := refresh.NewCoordinator(store, refresher, invalidator)

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Renew(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return c.Pending() == n-1 }, 2*time.Second, 5*time.Millisecond)
	close(refresher.release)

	for i := 0; i < n; i++ {
		err := <-errs
		require.ErrorIs(t, err, weeberrors.ErrRefreshFailed)
		require.ErrorContains(t, err, "token_not_valid")
	}
	require.EqualValues(t, 1, refresher.calls.Load())
	require.Equal(t, 1, invalidator.count(), "forced logout fires exactly once")
	require.Empty(t, store.GetAccess())
	require.Empty(t, store.GetRefresh())
	require.Nil(t, store.GetUser())
}

func TestRenewWithEmptyAccessTokenFails(t *testing.T) {
	store := signedInStore(t)
	c := refresh.NewCoordinator(store, &fakeRefresher{resp: &apimodel.RefreshResponse{}}, nil)

	_, err := c.Renew(context.Background())
	require.ErrorIs(t, err, weeberrors.ErrRefreshFailed)
	require.ErrorIs(t, err, weeberrors.ErrEmptyToken)
}

func TestRenewWithoutRefreshToken(t *testing.T) {
	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess("tok1")
	invalidator := &recordingInvalidator{}
	refresher := &fakeRefresher{resp: &apimodel.RefreshResponse{Access: "tok2"}}
	c := refresh.NewCoordinator(store, refresher, invalidator)

	_, err := c.Renew(context.Background())
	require.ErrorIs(t, err, weeberrors.ErrNoRefreshCredential)
	require.Zero(t, refresher.calls.Load(), "no refresh attempt without a refresh token")
	require.Equal(t, 1, invalidator.count())
	require.Empty(t, store.GetAccess())

	// Nothing left to invalidate the second time round
	_, err = c.Renew(context.Background())
	require.ErrorIs(t, err, weeberrors.ErrNoRefreshCredential)
	require.Equal(t, 1, invalidator.count())
}

func TestCancelledCallerDoesNotAbortRefresh(t *testing.T) {
	store := signedInStore(t)
	refresher := &fakeRefresher{release: make(chan struct{}), resp: &apimodel.RefreshResponse{Access: "tok2"}}
	c := refresh.NewCoordinator(store, refresher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Renew(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	close(refresher.release)
	require.NoError(t, <-done)
	require.Equal(t, "<nil>", refresher.ctxErr.Load())
	require.Equal(t, "tok2", store.GetAccess())
}

func TestWaiterCanGiveUp(t *testing.T) {
	store := signedInStore(t)
	refresher := &fakeRefresher{release: make(chan struct{}), resp: &apimodel.RefreshResponse{Access: "tok2"}}
	c := refresh.NewCoordinator(store, refresher, nil)

	leader := make(chan error, 1)
	go func() {
		_, err := c.Renew(context.Background())
		leader <- err
	}()
	require.Eventually(t, func() bool { return c.InFlight() }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Renew(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, c.Pending(), "abandoned handle is still settled with the others")

	close(refresher.release)
	require.NoError(t, <-leader)
	require.Zero(t, c.Pending())
}

func TestRefreshResultDiscardedAfterClear(t *testing.T) {
	store := signedInStore(t)
	invalidator := &recordingInvalidator{}
	refresher := &fakeRefresher{release: make(chan struct{}), resp: &apimodel.RefreshResponse{Access: "tok2", Refresh: "ref2"}}
	c := refresh.NewCoordinator(store, refresher, invalidator)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := c.Renew(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return c.Pending() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, store.Clear())
	close(refresher.release)

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-errs, weeberrors.ErrSessionInvalidated)
	}
	require.EqualValues(t, 1, refresher.calls.Load())
	require.Zero(t, invalidator.count(), "logout already happened, nothing to invalidate")
	require.Empty(t, store.GetAccess())
	require.Empty(t, store.GetRefresh())
	require.False(t, store.HasSession())
}

func TestFailedRefreshSparesNewSession(t *testing.T) {
	store := signedInStore(t)
	invalidator := &recordingInvalidator{}
	refresher := &fakeRefresher{release: make(chan struct{}), err: errors.New("401 token_not_valid")}
	c := refresh.NewCoordinator(store, refresher, invalidator)

	done := make(chan error, 1)
	go func() {
		_, err := c.Renew(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return c.InFlight() }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, store.Replace("tok9", "ref9", &users.Profile{ID: 2, Email: "b@x.com"}))
	close(refresher.release)

	require.ErrorIs(t, <-done, weeberrors.ErrSessionInvalidated)
	require.Zero(t, invalidator.count())
	require.Equal(t, "tok9", store.GetAccess())
	require.Equal(t, "ref9", store.GetRefresh())
	require.Equal(t, "b@x.com", store.GetUser().Email)
}
