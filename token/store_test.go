package token_test

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/weeb-client/token"
	tokenrepofake "github.com/jrsteele09/weeb-client/token/repofake"
	"github.com/jrsteele09/weeb-client/users"
)

func TestAccessTokenIsMemoryOnly(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	store := token.NewStore(repo)

	require.Empty(t, store.GetAccess())
	require.Nil(t, store.AccessToken())

	store.SetAccess("tok1")
	require.Equal(t, "tok1", store.GetAccess())
	require.Equal(t, "Bearer", store.AccessToken().Type())
	require.Zero(t, repo.Len(), "access token must never reach durable storage")

	store.SetAccess("")
	require.Empty(t, store.GetAccess())
}

func TestDurableEntries(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	store := token.NewStore(repo)

	require.Empty(t, store.GetRefresh())
	require.Nil(t, store.GetUser())

	profile := &users.Profile{ID: 1, Email: "a@x.com", IsActive: true, Groups: []users.GroupType{users.GroupModerators}}
	require.NoError(t, store.SetRefresh("ref1"))
	require.NoError(t, store.SetUser(profile))
	require.Equal(t, "ref1", store.GetRefresh())
	require.Equal(t, profile, store.GetUser())

	require.NoError(t, store.SetRefresh(""))
	require.NoError(t, store.SetUser(nil))
	require.Zero(t, repo.Len())
}

func TestClear(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	store := token.NewStore(repo)
	store.SetAccess("tok1")
	require.NoError(t, store.SetRefresh("ref1"))
	require.NoError(t, store.SetUser(&users.Profile{Email: "a@x.com"}))

	require.NoError(t, store.Clear())
	require.Empty(t, store.GetAccess())
	require.Empty(t, store.GetRefresh())
	require.Nil(t, store.GetUser())
	require.Zero(t, repo.Len())
}

func TestCorruptProfileReadsAsAbsent(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	require.NoError(t, repo.Save(token.UserKey, []byte("{not json")))
	require.Nil(t, token.NewStore(repo).GetUser())
}

func TestSaveFailureIsReturned(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	repo.SaveErr = errors.New("disk full")
	store := token.NewStore(repo)

	require.EqualError(t, store.SetRefresh("ref1"), "disk full")
	require.Empty(t, store.GetRefresh())
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		ExpiresAt: jwtlib.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := token.AccessExpiry(raw)
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	store.SetAccess(raw)
	require.True(t, exp.Equal(store.AccessToken().Expiry))

	_, ok = token.AccessExpiry("opaque-token")
	require.False(t, ok)
}

func TestReplaceStartsNewGeneration(t *testing.T) {
	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	gen := store.Generation()

	require.NoError(t, store.Replace("tok1", "ref1", &users.Profile{ID: 1, Email: "a@x.com"}))
	require.Equal(t, "tok1", store.GetAccess())
	require.Equal(t, "ref1", store.GetRefresh())
	require.NotEqual(t, gen, store.Generation())
}

func TestReplaceFailureKeepsPreviousSession(t *testing.T) {
	repo := tokenrepofake.NewFakeTokenRepo()
	store := token.NewStore(repo)
	require.NoError(t, store.Replace("tok1", "ref1", &users.Profile{ID: 1, Email: "old@x.com"}))
	gen := store.Generation()

	repo.SaveErr = errors.New("disk full")
	repo.SaveErrKey = token.RefreshTokenKey
	require.EqualError(t, store.Replace("tok9", "ref9", &users.Profile{ID: 2, Email: "new@x.com"}), "disk full")

	require.Equal(t, "tok1", store.GetAccess())
	require.Equal(t, "ref1", store.GetRefresh())
	require.Equal(t, "old@x.com", store.GetUser().Email)
	require.Equal(t, gen, store.Generation())
}

func TestUpdateIfCurrent(t *testing.T) {
	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	require.NoError(t, store.Replace("tok1", "ref1", &users.Profile{ID: 1}))
	gen := store.Generation()

	applied, err := store.UpdateIfCurrent(gen, "tok2", "")
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "tok2", store.GetAccess())
	require.Equal(t, "ref1", store.GetRefresh())

	require.NoError(t, store.Clear())
	applied, err = store.UpdateIfCurrent(gen, "tok3", "ref3")
	require.NoError(t, err)
	require.False(t, applied)
	require.Empty(t, store.GetAccess())
	require.Empty(t, store.GetRefresh())
}

func TestClearIfCurrentSparesNewerSession(t *testing.T) {
	store := token.NewStore(tokenrepofake.NewFakeTokenRepo())
	require.NoError(t, store.Replace("tok1", "ref1", &users.Profile{ID: 1}))
	stale := store.Generation()
	require.NoError(t, store.Replace("tok2", "ref2", &users.Profile{ID: 1}))

	cleared, err := store.ClearIfCurrent(stale)
	require.NoError(t, err)
	require.False(t, cleared)
	require.Equal(t, "tok2", store.GetAccess())

	cleared, err = store.ClearIfCurrent(store.Generation())
	require.NoError(t, err)
	require.True(t, cleared)
	require.False(t, store.HasSession())
}
