package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/shravan4518/ppsrest/pkg/config"
)

const (
	// APIVersion is the versioned prefix for all appliance admin API paths
	APIVersion = "/api/v1"
	// DefaultRealm is the admin authentication realm checked at login
	DefaultRealm = "Admin Users"
	// DefaultTimeout bounds every HTTP call against the appliance
	DefaultTimeout = 10 * time.Second

	loginPath = APIVersion + "/realm_auth"
	probePath = APIVersion + "/configuration/"
)

var (
	// ErrAuthFailed is returned when the realm_auth handshake does not yield an api_key
	ErrAuthFailed = errors.New("authentication failed")
	// ErrUnsupportedMethod is returned for request methods other than GET, POST, PUT, DELETE
	ErrUnsupportedMethod = errors.New("unsupported request method")
)

// expiredStatuses are the response codes the appliance emits once a
// session's api_key is no longer accepted. A response with one of these
// triggers a single re-login and retry.
var expiredStatuses = map[int]bool{
	http.StatusUnauthorized:    true,
	http.StatusPaymentRequired: true,
	http.StatusForbidden:       true,
	http.StatusNotFound:        true,
}

// Response is the outcome of one admin API call. The body is fully read
// so callers can decode it more than once.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Options adjusts client construction. The zero value selects the
// defaults used against a stock appliance.
type Options struct {
	// Realm selects the authentication realm; empty means DefaultRealm.
	Realm string
	// Timeout bounds each HTTP call; zero means DefaultTimeout.
	Timeout time.Duration
	// InsecureSkipTLS accepts the appliance's self-signed certificate.
	InsecureSkipTLS bool
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	// Store overrides the process-wide session cache, mainly for tests.
	Store *Store
	// BaseURL overrides the https://{host} scheme and host, mainly for tests.
	BaseURL string
}

// Client issues authenticated calls against one appliance's admin REST
// API, transparently renewing its session when the appliance reports the
// api_key expired.
type Client struct {
	host       string
	baseURL    string
	realm      string
	session    *Session
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a client for the given appliance and admin credentials,
// authenticating immediately unless the session store already holds a
// working token for this identity.
func New(ctx context.Context, host, username, password string, opts Options) (*Client, error) {
	if opts.Realm == "" {
		opts.Realm = DefaultRealm
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	store := opts.Store
	if store == nil {
		store = DefaultStore
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://" + host
	}

	transport := http.DefaultTransport
	if opts.InsecureSkipTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c := &Client{
		host:    host,
		baseURL: baseURL,
		realm:   opts.Realm,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: limiter,
	}

	sess, _ := store.getOrCreate(host, username, password)
	c.session = sess

	// The login-or-reuse decision is made under the session mutex so
	// concurrent constructions for one identity perform a single login:
	// whoever wins the lock authenticates, the rest find a token.
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.token != "" {
		if c.probeToken(ctx, sess.token) {
			log.Printf("client: reusing cached session for %s@%s", username, host)
			return c, nil
		}
		log.Printf("client: cached token for %s@%s is no longer valid, logging in again", username, host)
	}

	if err := c.loginLocked(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewForDevice builds a client for a device entry from the loaded
// configuration. Device 1 is the entry named "device".
func NewForDevice(ctx context.Context, cfg *config.Config, deviceID int) (*Client, error) {
	dev, err := cfg.Device(deviceID)
	if err != nil {
		return nil, err
	}
	return New(ctx, dev.Management, dev.RestAdmin.Username, dev.RestAdmin.Password, Options{
		Realm:             cfg.Client.Realm,
		Timeout:           cfg.Client.Timeout,
		InsecureSkipTLS:   cfg.Client.InsecureSkipTLS,
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
	})
}

// Host returns the appliance address this client talks to.
func (c *Client) Host() string {
	return c.host
}

// Token returns the session's current api_key.
func (c *Client) Token() string {
	return c.session.Token()
}

// loginLocked performs the realm_auth handshake and replaces the session
// token. The caller must hold the session mutex.
func (c *Client) loginLocked(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"realm": c.realm})
	if err != nil {
		return fmt.Errorf("encoding login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.SetBasicAuth(c.session.Username, c.session.password)
	setJSONHeaders(req)

	log.Printf("client: logging in to %s as %s (realm %q)", c.host, c.session.Username, c.realm)

	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("login request to %s: %w", c.host, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading login response from %s: %w", c.host, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrAuthFailed, c.host, resp.StatusCode)
	}

	var loginResp struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return fmt.Errorf("%w: decoding login response: %v", ErrAuthFailed, err)
	}
	if loginResp.APIKey == "" {
		return fmt.Errorf("%w: login response from %s carried no api_key", ErrAuthFailed, c.host)
	}

	c.session.token = loginResp.APIKey
	log.Printf("client: session established for %s@%s", c.session.Username, c.host)
	return nil
}

// relogin renews the session token under the session mutex.
func (c *Client) relogin(ctx context.Context) error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	return c.loginLocked(ctx)
}

// IsTokenValid reports whether the given api_key still authenticates
// against this appliance. A transport failure counts as invalid; the
// caller cannot tell an expired token from an unreachable appliance.
func (c *Client) IsTokenValid(ctx context.Context, token string) bool {
	return c.probeToken(ctx, token)
}

func (c *Client) probeToken(ctx context.Context, token string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+probePath, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(token, "")
	setJSONHeaders(req)

	resp, err := c.send(req)
	if err != nil {
		log.Printf("client: token probe against %s failed: %v", c.host, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
}

// Do issues one authenticated call against the admin API. resourceURI is
// the full path including the API version prefix. If the appliance
// answers with an auth-failure status the session is renewed once and
// the call retried once; the retried response is returned whatever its
// status.
func (c *Client) Do(ctx context.Context, method, resourceURI string, payload interface{}, params url.Values) (*Response, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	resp, err := c.dispatch(ctx, method, resourceURI, payload, params)
	if err != nil {
		return nil, err
	}

	if !expiredStatuses[resp.StatusCode] {
		return resp, nil
	}

	log.Printf("client: %s %s returned %d, renewing session and retrying once", method, resourceURI, resp.StatusCode)
	if err := c.relogin(ctx); err != nil {
		return nil, fmt.Errorf("renewing session for retry: %w", err)
	}
	return c.dispatch(ctx, method, resourceURI, payload, params)
}

// Get issues an authenticated GET with optional query parameters.
func (c *Client) Get(ctx context.Context, resourceURI string, params url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, resourceURI, nil, params)
}

// Post issues an authenticated POST with a JSON payload.
func (c *Client) Post(ctx context.Context, resourceURI string, payload interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, resourceURI, payload, nil)
}

// Put issues an authenticated PUT with a JSON payload.
func (c *Client) Put(ctx context.Context, resourceURI string, payload interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPut, resourceURI, payload, nil)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, resourceURI string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, resourceURI, nil, nil)
}

func (c *Client) dispatch(ctx context.Context, method, resourceURI string, payload interface{}, params url.Values) (*Response, error) {
	requestURL := c.baseURL + resourceURI
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.SetBasicAuth(c.session.Token(), "")
	setJSONHeaders(req)

	log.Printf("client: %s %s", method, requestURL)

	resp, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, resourceURI, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s %s: %w", method, resourceURI, err)
	}

	log.Printf("client: %s %s -> %d", method, resourceURI, resp.StatusCode)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// send pushes a request through the rate limiter and the HTTP client.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.httpClient.Do(req)
}

func setJSONHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
}
