package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/internal/apitest"
	errs "github.com/jrsteele09/go-tourbook/internal/errors"
	"github.com/jrsteele09/go-tourbook/session"
	"github.com/jrsteele09/go-tourbook/session/storefake"
)

// testFixture wires a Manager to the fake backend through a real Client so
// the 401 recovery path is exercised end to end.
type testFixture struct {
	backend *apitest.Backend
	store   *storefake.FakeTokenStore
	client  *api.Client
	manager *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := apitest.New()
	t.Cleanup(backend.Close)

	client := api.New(backend.URL(), 5*time.Second, api.WithRefreshPath(session.RefreshPath))
	store := storefake.NewFakeTokenStore()

	manager, err := session.NewManager(client, store)
	require.NoError(t, err)

	return &testFixture{
		backend: backend,
		store:   store,
		client:  client,
		manager: manager,
	}
}

func (f *testFixture) login(t *testing.T) *session.Session {
	t.Helper()

	loggedIn, err := f.manager.Login(context.Background(), apitest.UserEmail, apitest.UserPassword)
	require.NoError(t, err)
	require.True(t, loggedIn.Valid())
	return loggedIn
}

func TestNewManager_MissingDependencies(t *testing.T) {
	_, err := session.NewManager(nil, storefake.NewFakeTokenStore())
	require.Error(t, err)

	_, err = session.NewManager(api.New("http://localhost", time.Second), nil)
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)

	loggedIn := f.login(t)
	require.Equal(t, apitest.UserEmail, loggedIn.User.Email)
	require.Equal(t, f.backend.AccessToken(), loggedIn.AccessToken)
	require.Equal(t, f.backend.RefreshToken(), loggedIn.RefreshToken)

	// All three entries are persisted.
	access, err := f.store.Get(session.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, loggedIn.AccessToken, access)
	refresh, err := f.store.Get(session.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, loggedIn.RefreshToken, refresh)
	user, err := f.store.Get(session.KeyUser)
	require.NoError(t, err)
	require.Contains(t, user, apitest.UserEmail)
}

func TestLogin_InvalidPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Login(context.Background(), apitest.UserEmail, "wrong-password")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
	require.Contains(t, err.Error(), "Invalid email or password")

	// A failed login leaves no session state behind, in memory or storage.
	require.Nil(t, f.manager.Current())
	require.Zero(t, f.store.Len())
}

func TestLogin_NetworkFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Close()

	_, err := f.manager.Login(context.Background(), apitest.UserEmail, apitest.UserPassword)
	require.ErrorIs(t, err, errs.ErrNetwork)
	require.Nil(t, f.manager.Current())
}

func TestRegister_Success(t *testing.T) {
	f := setupTestFixture(t)

	registered, err := f.manager.Register(context.Background(), "jane.doe@example.com", "password456", "Jane", "Doe")
	require.NoError(t, err)
	require.True(t, registered.Valid())
	require.Equal(t, "jane.doe@example.com", registered.User.Email)
	require.Equal(t, 3, f.store.Len())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Register(context.Background(), apitest.UserEmail, "password456", "John", "Doe")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, err.Error(), "Email already registered")
	require.Nil(t, f.manager.Current())
}

func TestGoogleSignIn_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetGoogleIDToken("verified-google-token")

	claims := session.ProfileClaims{Subject: "google-123", Email: apitest.UserEmail, GivenName: "John", FamilyName: "Doe"}
	signedIn, err := f.manager.GoogleSignIn(context.Background(), "verified-google-token", claims)
	require.NoError(t, err)
	require.True(t, signedIn.Valid())
	require.Equal(t, 3, f.store.Len())
}

func TestGoogleSignIn_EmptyTokenFailsLocally(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Close() // no network call may happen

	_, err := f.manager.GoogleSignIn(context.Background(), "", session.ProfileClaims{})
	require.ErrorIs(t, err, errs.ErrMissingIdentityToken)
}

func TestGoogleSignIn_RejectedToken(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetGoogleIDToken("verified-google-token")

	_, err := f.manager.GoogleSignIn(context.Background(), "forged-token", session.ProfileClaims{})
	require.ErrorIs(t, err, errs.ErrAuthProviderRejected)
	require.Nil(t, f.manager.Current())
}

func TestLogout_ClearsSessionAndStorage(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.manager.Logout()
	require.Nil(t, f.manager.Current())
	require.Empty(t, f.manager.AccessToken())
	require.Empty(t, f.manager.RefreshToken())
	require.Zero(t, f.store.Len())
}

func TestLogout_StorageFailureStillClearsMemory(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.store.RemoveErr = errs.ErrNetwork

	f.manager.Logout()
	require.Nil(t, f.manager.Current())
}

func TestLoadStoredSession_AllKeysPresent(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(session.KeyAccessToken, apitest.MintAccessToken(time.Hour)))
	require.NoError(t, f.store.Set(session.KeyRefreshToken, "stored-refresh"))
	require.NoError(t, f.store.Set(session.KeyUser, `{"id":"user-1","email":"john.doe@example.com","role":"USER"}`))

	loaded := f.manager.LoadStoredSession()
	require.NotNil(t, loaded)
	require.True(t, loaded.Valid())
	require.Equal(t, "john.doe@example.com", loaded.User.Email)
	require.Equal(t, "stored-refresh", f.manager.RefreshToken())
}

func TestLoadStoredSession_MissingKeyYieldsNoSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(session.KeyAccessToken, apitest.MintAccessToken(time.Hour)))
	require.NoError(t, f.store.Set(session.KeyUser, `{"id":"user-1"}`))

	require.Nil(t, f.manager.LoadStoredSession())
	require.Nil(t, f.manager.Current())
	// Loading never mutates storage.
	require.Equal(t, 2, f.store.Len())
}

func TestLoadStoredSession_MalformedUserYieldsNoSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(session.KeyAccessToken, apitest.MintAccessToken(time.Hour)))
	require.NoError(t, f.store.Set(session.KeyRefreshToken, "stored-refresh"))
	require.NoError(t, f.store.Set(session.KeyUser, "{not json"))

	require.Nil(t, f.manager.LoadStoredSession())
	require.Nil(t, f.manager.Current())
}

func TestLoadStoredSession_StorageReadFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.store.GetErr = errs.ErrNetwork

	require.Nil(t, f.manager.LoadStoredSession())
}

func TestRefreshAccessToken_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	before := f.manager.AccessToken()

	token, err := f.manager.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, before, token)
	require.Equal(t, f.backend.AccessToken(), token)
	require.Equal(t, token, f.manager.AccessToken())

	stored, err := f.store.Get(session.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, token, stored)
}

func TestRefreshAccessToken_RotatedRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetRotateRefresh(true)
	before := f.manager.RefreshToken()

	_, err := f.manager.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, before, f.manager.RefreshToken())
	require.Equal(t, f.backend.RefreshToken(), f.manager.RefreshToken())

	stored, err := f.store.Get(session.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, f.backend.RefreshToken(), stored)
}

func TestRefreshAccessToken_RejectedLogsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.SetFailRefresh(true)

	_, err := f.manager.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, errs.ErrSessionExpired)

	// Rejection invalidates everything: memory and storage.
	require.Nil(t, f.manager.Current())
	require.Zero(t, f.store.Len())
}

func TestRefreshAccessToken_NoRefreshToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, errs.ErrNoRefreshToken)
}

func TestRefreshAccessToken_NetworkFailureKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	loggedIn := f.login(t)
	f.backend.Close()

	_, err := f.manager.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, errs.ErrNetwork)

	// A transport blip must not destroy the session.
	require.NotNil(t, f.manager.Current())
	require.Equal(t, loggedIn.RefreshToken, f.manager.RefreshToken())
	require.Equal(t, 3, f.store.Len())
}

func TestExpiredToken_RecoveredTransparently(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	// Invalidate the held access token server-side; the next authenticated
	// request 401s, refreshes and replays without the caller noticing.
	f.backend.ExpireAccessToken()

	var profile session.UserProfile
	err := f.client.Get(context.Background(), session.ProfilePath, &profile)
	require.NoError(t, err)
	require.Equal(t, apitest.UserEmail, profile.Email)
	require.Equal(t, 1, f.backend.RefreshCalls())
	require.Equal(t, f.backend.AccessToken(), f.manager.AccessToken())
}

func TestPersistent401_SingleRefreshAndReplay(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	// The endpoint rejects even a freshly refreshed token. The client must
	// refresh once, replay once, then surface the second 401.
	f.backend.ForceUnauthorized(session.ProfilePath)

	var profile session.UserProfile
	err := f.client.Get(context.Background(), session.ProfilePath, &profile)
	require.Error(t, err)
	require.Equal(t, 401, api.StatusCode(err))
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestConcurrent401s_SingleRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.ExpireAccessToken()
	f.backend.SetRefreshDelay(150 * time.Millisecond)

	const workers = 8
	var wg sync.WaitGroup
	errsCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var profile session.UserProfile
			errsCh <- f.client.Get(context.Background(), session.ProfilePath, &profile)
		}()
	}
	wg.Wait()
	close(errsCh)

	for err := range errsCh {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestVerifySession(t *testing.T) {
	f := setupTestFixture(t)

	// Logged out: nothing to verify.
	require.False(t, f.manager.VerifySession(context.Background()))

	f.login(t)
	require.True(t, f.manager.VerifySession(context.Background()))

	// Stale access token: one refresh recovers the probe.
	f.backend.ExpireAccessToken()
	require.True(t, f.manager.VerifySession(context.Background()))
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestVerifySession_DeadRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	f.backend.ExpireAccessToken()
	f.backend.SetFailRefresh(true)

	require.False(t, f.manager.VerifySession(context.Background()))
	require.Nil(t, f.manager.Current())
}

func TestVerifySession_NetworkFailureIsNotInvalid(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Close()

	// A liveness probe that cannot reach the backend proves nothing about the
	// credentials.
	require.True(t, f.manager.VerifySession(context.Background()))
	require.NotNil(t, f.manager.Current())
}

func TestLogin_StorageWriteFailureStillHoldsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetErr = errs.ErrNetwork

	loggedIn, err := f.manager.Login(context.Background(), apitest.UserEmail, apitest.UserPassword)
	require.NoError(t, err)
	require.True(t, loggedIn.Valid())
	require.NotNil(t, f.manager.Current())
	require.Zero(t, f.store.Len())
}
