package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/client"
	"github.com/jrsteele09/weeb-client/internal/errors"
	"github.com/jrsteele09/weeb-client/internal/fakeapi"
	"github.com/jrsteele09/weeb-client/token"
	tokenrepofake "github.com/jrsteele09/weeb-client/token/repofake"
	"github.com/jrsteele09/weeb-client/users"
)

const testEmail = "reader@weeb.test"

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

// signedIn returns a store holding the pair the fake API just issued for testEmail.
func signedIn(t *testing.T, api *fakeapi.Server) (*token.Store, string, string) {
	t.Helper()
	profile := api.AddUser(testEmail, "secret123", true, false)
	access, refresh := api.IssueTokens(testEmail)

	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess(access)
	require.NoError(t, store.SetRefresh(refresh))
	require.NoError(t, store.SetUser(&profile))
	return store, access, refresh
}

func me() *client.Request {
	return client.NewRequest(http.MethodGet, apimodel.RouteAuthMe, nil)
}

func TestSendAttachesCurrentAccessToken(t *testing.T) {
	api := fakeapi.New(t)
	store, access, _ := signedIn(t, api)
	p := client.New(api.URL, store)

	var profile users.Profile
	require.NoError(t, p.Do(context.Background(), me(), &profile))
	require.Equal(t, testEmail, profile.Email)
	require.Equal(t, []string{"Bearer " + access}, api.AuthHeaders(apimodel.RouteAuthMe))
}

func TestSendSetsRequestID(t *testing.T) {
	api := fakeapi.New(t)
	p := client.New(api.URL, token.NewStore(tokenrepofake.NewFakeTokenRepo()))

	resp, err := p.Send(context.Background(), client.NewRequest(http.MethodGet, apimodel.RouteHealth, nil))
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.NotEmpty(t, resp.RequestID)
}

func TestExpiredAccessTokenIsRenewedAndRetried(t *testing.T) {
	api := fakeapi.New(t)
	store, access, refresh := signedIn(t, api)
	require.Equal(t, "tok1", access)
	require.Equal(t, "ref1", refresh)
	api.ExpireAccessTokens()

	p := client.New(api.URL, store)
	var profile users.Profile
	require.NoError(t, p.Do(context.Background(), me(), &profile))

	require.Equal(t, 1, api.Calls(apimodel.RouteAuthRefresh))
	require.Equal(t, []string{"Bearer tok1", "Bearer tok2"}, api.AuthHeaders(apimodel.RouteAuthMe))
	require.Equal(t, "tok2", store.GetAccess())
	require.Equal(t, "ref1", store.GetRefresh())
	require.False(t, p.Coordinator().InFlight())
}

func TestRotatedRefreshTokenIsStored(t *testing.T) {
	api := fakeapi.New(t, fakeapi.WithRotation())
	store, _, refresh := signedIn(t, api)
	api.ExpireAccessTokens()

	p := client.New(api.URL, store)
	require.NoError(t, p.Do(context.Background(), me(), nil))

	require.Equal(t, "ref2", store.GetRefresh())
	require.False(t, api.RefreshTokenValid(refresh))
}

func TestConcurrentUnauthorizedCallsShareOneRefresh(t *testing.T) {
	gate := make(chan struct{})
	api := fakeapi.New(t, fakeapi.WithRefreshGate(gate))
	store, _, _ := signedIn(t, api)
	api.ExpireAccessTokens()
	p := client.New(api.URL, store)

	const callers = 3
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			return p.Do(ctx, me(), nil)
		})
	}

	require.Eventually(t, func() bool {
		return p.Coordinator().Pending() == callers-1
	}, 2*time.Second, 5*time.Millisecond)
	close(gate)

	require.NoError(t, g.Wait())
	require.Equal(t, 1, api.Calls(apimodel.RouteAuthRefresh))
	require.Equal(t, 2*callers, api.Calls(apimodel.RouteAuthMe))
	for _, h := range api.AuthHeaders(apimodel.RouteAuthMe)[callers:] {
		require.Equal(t, "Bearer tok2", h)
	}
}

func TestSecondUnauthorizedIsNotRetried(t *testing.T) {
	var meCalls, refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(apimodel.RouteAuthMe, func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc(apimodel.RouteAuthRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"tok2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess("tok1")
	require.NoError(t, store.SetRefresh("ref1"))

	resp, err := client.New(srv.URL, store).Send(context.Background(), me())
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.EqualValues(t, 2, meCalls.Load())
	require.EqualValues(t, 1, refreshCalls.Load())
}

func TestLateUnauthorizedUsesAlreadyRenewedToken(t *testing.T) {
	var staleCalls, refreshCalls atomic.Int32
	held := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc(apimodel.RouteAuthMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok2" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":1,"email":"reader@weeb.test"}`))
			return
		}
		// The first call made with tok1 is answered only after the token has been renewed.
		if staleCalls.Add(1) == 1 {
			close(held)
			<-release
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc(apimodel.RouteAuthRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"tok2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess("tok1")
	require.NoError(t, store.SetRefresh("ref1"))
	p := client.New(srv.URL, store)

	late := make(chan error, 1)
	go func() {
		late <- p.Do(context.Background(), me(), nil)
	}()
	<-held

	require.NoError(t, p.Do(context.Background(), me(), nil))
	require.Equal(t, "tok2", store.GetAccess())

	close(release)
	require.NoError(t, <-late)
	require.EqualValues(t, 1, refreshCalls.Load(), "a 401 for a replaced token must not refresh again")
}

func TestUnauthorizedWithoutRefreshTokenReturnsOriginalResponse(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser(testEmail, "secret123", true, false)
	access, _ := api.IssueTokens(testEmail)
	api.ExpireAccessTokens()

	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess(access)
	inv := &recordingInvalidator{}
	p := client.New(api.URL, store, client.WithInvalidator(inv))

	resp, err := p.Send(context.Background(), me())
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, api.Calls(apimodel.RouteAuthRefresh))
	require.Empty(t, store.GetAccess())
	require.Equal(t, 1, inv.count())

	err = p.Do(context.Background(), me(), nil)
	require.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestAnonymousUnauthorizedDoesNotInvalidate(t *testing.T) {
	api := fakeapi.New(t)
	inv := &recordingInvalidator{}
	p := client.New(api.URL, token.NewStore(tokenrepofake.NewFakeTokenRepo()), client.WithInvalidator(inv))

	err := p.Do(context.Background(), me(), nil)
	require.True(t, errors.Is(err, errors.ErrUnauthorized))
	require.Zero(t, inv.count())
}

func TestRejectedRefreshForcesLogoutOnce(t *testing.T) {
	gate := make(chan struct{})
	api := fakeapi.New(t, fakeapi.WithRefreshGate(gate))
	store, _, _ := signedIn(t, api)
	api.ExpireAccessTokens()
	api.RevokeRefreshTokens()

	inv := &recordingInvalidator{}
	p := client.New(api.URL, store, client.WithInvalidator(inv))

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = p.Do(context.Background(), me(), nil)
		}(i)
	}

	require.Eventually(t, func() bool {
		return p.Coordinator().Pending() == callers-1
	}, 2*time.Second, 5*time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		require.True(t, errors.Is(err, errors.ErrRefreshFailed), "got %v", err)
	}
	require.Equal(t, 1, api.Calls(apimodel.RouteAuthRefresh))
	require.Equal(t, 1, inv.count())
	require.False(t, store.HasSession())
	require.Empty(t, store.GetRefresh())
}

func TestRefreshRequestIsAnonymous(t *testing.T) {
	api := fakeapi.New(t)
	store, _, _ := signedIn(t, api)
	api.ExpireAccessTokens()

	require.NoError(t, client.New(api.URL, store).Do(context.Background(), me(), nil))
	require.Equal(t, []string{""}, api.AuthHeaders(apimodel.RouteAuthRefresh))
}

func TestStatusErrorMapping(t *testing.T) {
	api := fakeapi.New(t)
	p := client.New(api.URL, token.NewStore(tokenrepofake.NewFakeTokenRepo()))
	ctx := context.Background()

	err := p.Do(ctx, client.NewRequest(http.MethodGet, apimodel.RouteArticles+"99/", nil), nil)
	require.True(t, errors.Is(err, errors.ErrNotFound))
	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Equal(t, "No Article matches the given query.", se.Detail)

	err = p.Do(ctx, &client.Request{
		Method:      http.MethodPost,
		Path:        apimodel.RouteAuthRegister,
		Body:        apimodel.RegisterRequest{FirstName: "A", LastName: "User", Email: "x@weeb.test", Password: "secret123"},
		SkipRefresh: true,
	}, nil)
	require.True(t, errors.Is(err, errors.ErrValidation))
	require.True(t, errors.As(err, &se))
	require.NotNil(t, se.Fields)
	require.NotEmpty(t, se.Fields.First("first_name"))

	err = p.Do(ctx, client.NewRequest(http.MethodPost, apimodel.RoutePredict, map[string]string{}), nil)
	require.True(t, errors.As(err, &se))
	require.Equal(t, "'features'", se.Detail)
}
