package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tourbook/api"
	errs "github.com/jrsteele09/go-tourbook/internal/errors"
)

const (
	staleToken = "stale-access-token"
	freshToken = "fresh-access-token"
)

// stubAuthority is a minimal api.TokenAuthority. Refreshing swaps the access
// token for nextToken, or fails with refreshErr.
type stubAuthority struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	nextToken    string
	refreshErr   error
	refreshCalls int
	loggedOut    bool
}

func (s *stubAuthority) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *stubAuthority) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

func (s *stubAuthority) RefreshAccessToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.accessToken = s.nextToken
	return s.accessToken, nil
}

func (s *stubAuthority) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = true
	s.accessToken = ""
	s.refreshToken = ""
}

func (s *stubAuthority) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// newTestClient wires a Client to a handler and binds the given authority.
func newTestClient(t *testing.T, handler http.HandlerFunc, authority api.TokenAuthority) *api.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.New(server.URL, 5*time.Second)
	if authority != nil {
		client.Bind(authority)
	}
	return client
}

func TestClient_TransparentRecovery(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken, refreshToken: "refresh-1", nextToken: freshToken}

	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") != "Bearer "+freshToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid or expired token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}, authority)

	var out struct {
		Status string `json:"status"`
	}
	err := client.Get(context.Background(), "/health", &out)
	require.NoError(t, err)
	require.Equal(t, "ok", out.Status)
	require.Equal(t, 1, authority.calls())
	require.Equal(t, 2, requests)
	require.False(t, authority.loggedOut)
}

func TestClient_SingleRetry(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken, refreshToken: "refresh-1", nextToken: freshToken}

	// The endpoint 401s regardless of the token. The client must refresh and
	// replay exactly once, then surface the second 401 as-is.
	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	}, authority)

	err := client.Get(context.Background(), "/bookings/user-bookings", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
	require.Equal(t, 1, authority.calls())
	require.Equal(t, 2, requests)
}

func TestClient_RefreshPath401NotRecovered(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken, refreshToken: "refresh-1", nextToken: freshToken}

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid refresh token"}`))
	}, authority)

	err := client.Post(context.Background(), "/auth/refresh", map[string]string{"refresh_token": "refresh-1"}, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
	require.Zero(t, authority.calls())
}

func TestClient_NoRefreshToken_LogsOutAndPropagates(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken}

	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	}, authority)

	err := client.Get(context.Background(), "/auth/profile", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
	require.True(t, authority.loggedOut)
	require.Zero(t, authority.calls())
	require.Equal(t, 1, requests)
}

func TestClient_RefreshFailurePropagated(t *testing.T) {
	authority := &stubAuthority{
		accessToken:  staleToken,
		refreshToken: "refresh-1",
		refreshErr:   errs.ErrSessionExpired,
	}

	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}, authority)

	err := client.Get(context.Background(), "/auth/profile", nil)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.Equal(t, 1, authority.calls())
	require.Equal(t, 1, requests)
}

func TestClient_NoAuthorityBound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	err := client.Get(context.Background(), "/auth/profile", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestClient_Non401NeverRetried(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken, refreshToken: "refresh-1", nextToken: freshToken}

	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Package not found"}`))
	}, authority)

	err := client.Get(context.Background(), "/packages/missing", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, api.StatusCode(err))
	require.Equal(t, "Package not found", api.Message(err, ""))
	require.Zero(t, authority.calls())
	require.Equal(t, 1, requests)
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := api.New(server.URL, time.Second)
	err := client.Get(context.Background(), "/health", nil)
	require.ErrorIs(t, err, errs.ErrNetwork)
}

func TestClient_BearerInjection(t *testing.T) {
	authority := &stubAuthority{accessToken: freshToken, refreshToken: "refresh-1"}

	var header string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}, authority)

	require.NoError(t, client.Get(context.Background(), "/auth/profile", nil))
	require.Equal(t, "Bearer "+freshToken, header)
}

func TestClient_NoBearerWhenLoggedOut(t *testing.T) {
	authority := &stubAuthority{}

	var header string
	var present bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header, present = r.Header.Get("Authorization"), r.Header.Get("Authorization") != ""
		_, _ = w.Write([]byte(`{}`))
	}, authority)

	require.NoError(t, client.Get(context.Background(), "/packages", nil))
	require.False(t, present, "unexpected Authorization header %q", header)
}

func TestClient_ReplayReusesIdenticalBody(t *testing.T) {
	authority := &stubAuthority{accessToken: staleToken, refreshToken: "refresh-1", nextToken: freshToken}

	var bodies []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(payload))

		if r.Header.Get("Authorization") != "Bearer "+freshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"booking-1"}`))
	}, authority)

	body := map[string]any{"packageId": "pkg-1", "guests": 2}
	var out struct {
		ID string `json:"id"`
	}
	err := client.Post(context.Background(), "/bookings", body, &out)
	require.NoError(t, err)
	require.Equal(t, "booking-1", out.ID)
	require.Len(t, bodies, 2)
	require.Equal(t, bodies[0], bodies[1])
}

func TestClient_ServerMessageFallsBackToErrorKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"limit must be positive"}`))
	}, nil)

	err := client.Get(context.Background(), "/packages", nil)
	require.Error(t, err)
	require.Equal(t, "limit must be positive", api.Message(err, ""))
}

func TestClient_ServerMessageFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	}, nil)

	err := client.Get(context.Background(), "/packages", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, api.StatusCode(err))
	require.NotEmpty(t, api.Message(err, "fallback"))
}
