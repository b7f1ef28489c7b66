package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAppliance implements just enough of the admin API to exercise the
// client: realm_auth issues numbered tokens, the configuration probe
// accepts the current token, and /api/v1/things answers with a
// programmable status sequence.
type fakeAppliance struct {
	mu            sync.Mutex
	logins        int
	probes        int
	businessCalls int
	currentToken  string
	failLogin     bool
	probeStatus   int
	// businessStatuses is consumed one status per call; when exhausted
	// the appliance answers 200.
	businessStatuses []int
}

func newFakeAppliance() *fakeAppliance {
	return &fakeAppliance{probeStatus: http.StatusOK}
}

func (f *fakeAppliance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/realm_auth":
		f.logins++
		if f.failLogin {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Realm string `json:"realm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Realm == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.currentToken = fmt.Sprintf("token-%d", f.logins)
		json.NewEncoder(w).Encode(map[string]string{"api_key": f.currentToken})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/configuration/":
		f.probes++
		token, _, _ := r.BasicAuth()
		if token != f.currentToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(f.probeStatus)

	case r.URL.Path == "/api/v1/things":
		f.businessCalls++
		status := http.StatusOK
		if len(f.businessStatuses) > 0 {
			status = f.businessStatuses[0]
			f.businessStatuses = f.businessStatuses[1:]
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call": %d}`, f.businessCalls)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeAppliance) stats() (logins, probes, businessCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.probes, f.businessCalls
}

func newTestClient(t *testing.T, appliance *fakeAppliance, store *Store) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(appliance)
	t.Cleanup(server.Close)

	c, err := New(context.Background(), "appliance.test", "admin", "secret", Options{
		Store:   store,
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return c, server
}

func TestNewLogsInOnce(t *testing.T) {
	appliance := newFakeAppliance()
	c, _ := newTestClient(t, appliance, NewStore())

	logins, _, _ := appliance.stats()
	assert.Equal(t, 1, logins)
	assert.Equal(t, "token-1", c.Token())

	resp, err := c.Get(context.Background(), "/api/v1/things", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	logins, _, calls := appliance.stats()
	assert.Equal(t, 1, logins, "a successful call must not trigger another login")
	assert.Equal(t, 1, calls)
}

func TestSuccessfulResponsePassesThroughUnchanged(t *testing.T) {
	appliance := newFakeAppliance()
	c, _ := newTestClient(t, appliance, NewStore())

	resp, err := c.Get(context.Background(), "/api/v1/things", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"call": 1}`, string(resp.Body))

	_, _, calls := appliance.stats()
	assert.Equal(t, 1, calls, "no retry on success")
}

func TestRetryOnExpiredSession(t *testing.T) {
	appliance := newFakeAppliance()
	appliance.businessStatuses = []int{http.StatusForbidden}
	c, _ := newTestClient(t, appliance, NewStore())

	resp, err := c.Get(context.Background(), "/api/v1/things", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	logins, _, calls := appliance.stats()
	assert.Equal(t, 2, logins, "exactly one re-login")
	assert.Equal(t, 2, calls, "exactly one retry")
	assert.Equal(t, "token-2", c.Token(), "token replaced in place")
}

func TestRetriedResponseReturnedRegardlessOfStatus(t *testing.T) {
	appliance := newFakeAppliance()
	appliance.businessStatuses = []int{http.StatusForbidden, http.StatusForbidden, http.StatusForbidden}
	c, _ := newTestClient(t, appliance, NewStore())

	resp, err := c.Get(context.Background(), "/api/v1/things", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	logins, _, calls := appliance.stats()
	assert.Equal(t, 2, logins, "no second re-login")
	assert.Equal(t, 2, calls, "no infinite retry loop")
}

func TestEveryExpiryStatusTriggersRetry(t *testing.T) {
	for _, status := range []int{401, 402, 403, 404} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			appliance := newFakeAppliance()
			appliance.businessStatuses = []int{status}
			c, _ := newTestClient(t, appliance, NewStore())

			resp, err := c.Get(context.Background(), "/api/v1/things", nil)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			logins, _, calls := appliance.stats()
			assert.Equal(t, 2, logins)
			assert.Equal(t, 2, calls)
		})
	}
}

func TestSequentialClientsShareSession(t *testing.T) {
	appliance := newFakeAppliance()
	store := NewStore()
	server := httptest.NewServer(appliance)
	defer server.Close()

	opts := Options{Store: store, BaseURL: server.URL}
	ctx := context.Background()

	first, err := New(ctx, "appliance.test", "admin", "secret", opts)
	require.NoError(t, err)

	second, err := New(ctx, "appliance.test", "admin", "secret", opts)
	require.NoError(t, err)

	logins, probes, _ := appliance.stats()
	assert.Equal(t, 1, logins, "second construction must reuse the cached token")
	assert.Equal(t, 1, probes, "reuse is decided by one validity probe")
	assert.Equal(t, first.Token(), second.Token())
	assert.Equal(t, 1, store.Len())
}

func TestInvalidCachedTokenTriggersRelogin(t *testing.T) {
	appliance := newFakeAppliance()
	store := NewStore()
	server := httptest.NewServer(appliance)
	defer server.Close()

	opts := Options{Store: store, BaseURL: server.URL}
	ctx := context.Background()

	_, err := New(ctx, "appliance.test", "admin", "secret", opts)
	require.NoError(t, err)

	// Invalidate the token server-side, as an idle timeout would.
	appliance.mu.Lock()
	appliance.currentToken = "revoked"
	appliance.mu.Unlock()

	c, err := New(ctx, "appliance.test", "admin", "secret", opts)
	require.NoError(t, err)

	logins, _, _ := appliance.stats()
	assert.Equal(t, 2, logins)
	assert.Equal(t, "token-2", c.Token())
	assert.Equal(t, 1, store.Len(), "renewal must not grow the store")
}

func TestDistinctIdentitiesGetDistinctSessions(t *testing.T) {
	appliance := newFakeAppliance()
	store := NewStore()
	server := httptest.NewServer(appliance)
	defer server.Close()

	ctx := context.Background()
	_, err := New(ctx, "appliance-a.test", "admin", "secret", Options{Store: store, BaseURL: server.URL})
	require.NoError(t, err)
	_, err = New(ctx, "appliance-b.test", "admin", "secret", Options{Store: store, BaseURL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
}

func TestLoginFailureReturnsTypedError(t *testing.T) {
	appliance := newFakeAppliance()
	appliance.failLogin = true
	server := httptest.NewServer(appliance)
	defer server.Close()

	_, err := New(context.Background(), "appliance.test", "admin", "secret", Options{
		Store:   NewStore(),
		BaseURL: server.URL,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestLoginTransportFailureReturnsError(t *testing.T) {
	server := httptest.NewServer(newFakeAppliance())
	server.Close() // connection refused from here on

	_, err := New(context.Background(), "appliance.test", "admin", "secret", Options{
		Store:   NewStore(),
		BaseURL: server.URL,
	})
	require.Error(t, err)
}

func TestTokenValidatorTruthTable(t *testing.T) {
	appliance := newFakeAppliance()
	c, _ := newTestClient(t, appliance, NewStore())
	ctx := context.Background()

	for _, tc := range []struct {
		status int
		valid  bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusCreated, false},
		{http.StatusUnauthorized, false},
		{http.StatusInternalServerError, false},
	} {
		appliance.mu.Lock()
		appliance.probeStatus = tc.status
		appliance.mu.Unlock()

		assert.Equal(t, tc.valid, c.IsTokenValid(ctx, c.Token()), "probe status %d", tc.status)
	}
}

func TestTokenValidatorTransportFailureIsInvalid(t *testing.T) {
	appliance := newFakeAppliance()
	c, server := newTestClient(t, appliance, NewStore())

	token := c.Token()
	server.Close()
	assert.False(t, c.IsTokenValid(context.Background(), token))
}

func TestUnsupportedMethodIsRejected(t *testing.T) {
	appliance := newFakeAppliance()
	c, _ := newTestClient(t, appliance, NewStore())

	_, err := c.Do(context.Background(), http.MethodPatch, "/api/v1/things", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	_, _, calls := appliance.stats()
	assert.Zero(t, calls, "no request may reach the appliance")
}

func TestConcurrentConstructionLogsInOnce(t *testing.T) {
	appliance := newFakeAppliance()
	store := NewStore()
	server := httptest.NewServer(appliance)
	defer server.Close()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = New(context.Background(), "appliance.test", "admin", "secret", Options{
				Store:   store,
				BaseURL: server.URL,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	logins, _, _ := appliance.stats()
	assert.Equal(t, 1, logins, "concurrent constructions for one identity must share a single login")
	assert.Equal(t, 1, store.Len())
}
