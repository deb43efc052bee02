// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apiclient is the Go client for the Quill REST API.

Every call carries the stored access token. A 401 triggers one refresh
through /api/auth/refresh-token and the original request is sent again.
When the server refuses the refresh token the session is cleared and each
[LogoutEvent] subscriber is notified once.

Usage:

	client, err := apiclient.New("https://api.quill.blog", apiclient.NewMemoryStore())
	if err != nil {
	    return err
	}
	if err := client.Login(ctx, email, password); err != nil {
	    return err
	}
	me, err := apiclient.Fetch[apiclient.User](ctx, client, "/api/users/me", apiclient.RequestOptions{})

# Concurrency

A [Client] is safe for concurrent use. Concurrent 401s share one refresh
call; a request that was sent with an access token that has since been
replaced skips the refresh and retries with the new one.
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/quill/pkg/pagination"
)

// # Defaults

const (
	// RefreshPath is the token rotation endpoint.
	RefreshPath = "/api/auth/refresh-token"

	DefaultTimeout        = 30 * time.Second
	DefaultRefreshTimeout = 10 * time.Second

	// DefaultRetryLimit is how many times a request is re-sent after a refresh.
	DefaultRetryLimit = 1

	defaultUserAgent = "quill-apiclient"
	maxErrorBytes    = 64 << 10
)

// # Construction

// Client calls the Quill API on behalf of one session.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	store          SessionStore
	retryLimit     int
	refreshTimeout time.Duration
	userAgent      string
	logger         *slog.Logger

	identityRefresh bool
	now            func() time.Time

	refreshGroup singleflight.Group
	subscribers  subscribers
}

// Option customises a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (30s timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithRetryLimit sets how many times a request may be re-sent after a
// refresh. Zero makes every 401 terminal.
func WithRetryLimit(limit int) Option {
	return func(client *Client) { client.retryLimit = max(limit, 0) }
}

// WithRefreshTimeout bounds the refresh call, which is detached from the
// cancellation of the request that triggered it.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(client *Client) { client.refreshTimeout = timeout }
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) { client.logger = logger }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(client *Client) { client.userAgent = userAgent }
}

// WithIdentityRefresh makes [Client.Identity] refresh an expired access token
// instead of ending the session.
func WithIdentityRefresh() Option {
	return func(client *Client) { client.identityRefresh = true }
}

// New returns a client for the API at baseURL. A nil store means a fresh
// [MemoryStore].
func New(baseURL string, store SessionStore, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: invalid base url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be an absolute http(s) url", baseURL)
	}

	if store == nil {
		store = NewMemoryStore()
	}

	client := &Client{
		baseURL:        parsed,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		store:          store,
		retryLimit:     DefaultRetryLimit,
		refreshTimeout: DefaultRefreshTimeout,
		userAgent:      defaultUserAgent,
		logger:         slog.New(slog.DiscardHandler),
		now:            time.Now,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Store returns the session store the client reads and writes.
func (client *Client) Store() SessionStore {
	return client.store
}

// # Requests

// RequestOptions describes one API call.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Query is merged into any query already present in the endpoint.
	Query url.Values

	// Headers override the defaults. Content-Type is always derived from Body.
	Headers http.Header

	// Body is sent as JSON unless it is a [Binary] or a [Form].
	Body any

	// Anonymous sends no bearer token and never refreshes.
	Anonymous bool
}

// Do performs the call and decodes a 2xx body into out. A {"data": ...}
// envelope is unwrapped unless out is a [Page]. out may be nil.
//
// A non-2xx answer is returned as *[Error]. A refused refresh returns an
// error matching [ErrSessionExpired].
func (client *Client) Do(ctx context.Context, endpoint string, options RequestOptions, out any) error {
	payload, contentType, err := encodeBody(options.Body)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		token := ""
		if !options.Anonymous {
			session, err := client.store.Get()
			if err != nil {
				return err
			}
			token = session.Token
		}

		response, err := client.send(ctx, endpoint, options.Method, options.Query, options.Headers, payload, contentType, token)
		if err != nil {
			return err
		}

		if response.StatusCode == http.StatusUnauthorized && token != "" && attempt < client.retryLimit {
			drain(response)

			if err := client.renew(ctx, token); err != nil {
				return err
			}
			continue
		}

		return decodeResponse(response, out)
	}
}

// Fetch is [Client.Do] returning the decoded value.
func Fetch[T any](ctx context.Context, client *Client, endpoint string, options RequestOptions) (T, error) {
	var result T
	err := client.Do(ctx, endpoint, options, &result)
	return result, err
}

// Page is a paginated list. Decoding into a Page keeps the envelope so the
// meta block survives.
type Page[T any] struct {
	Data []T            `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

func (*Page[T]) keepsEnvelope() {}

// RawResponse receives the body verbatim, envelope included.
type RawResponse struct {
	json.RawMessage
}

func (*RawResponse) keepsEnvelope() {}

type envelopeKeeper interface {
	keepsEnvelope()
}

func (client *Client) send(
	ctx context.Context,
	endpoint, method string,
	query url.Values,
	headers http.Header,
	payload []byte,
	contentType, token string,
) (*http.Response, error) {
	target, err := client.resolve(endpoint, query)
	if err != nil {
		return nil, err
	}

	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}

	request.Header.Set("Accept", contentTypeJSON)
	request.Header.Set("User-Agent", client.userAgent)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	for name, values := range headers {
		request.Header.Del(name)
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}
	if payload != nil {
		request.Header.Set("Content-Type", contentType)
	} else {
		request.Header.Del("Content-Type")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, endpoint, err)
	}
	return response, nil
}

func (client *Client) resolve(endpoint string, query url.Values) (string, error) {
	reference, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("apiclient: invalid endpoint %q: %w", endpoint, err)
	}

	target := *client.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(reference.Path, "/")

	merged := reference.Query()
	for key, values := range query {
		for _, value := range values {
			merged.Add(key, value)
		}
	}
	target.RawQuery = merged.Encode()

	return target.String(), nil
}

// # Refresh

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshFlight is the single singleflight key: at most one refresh is in
// flight per client, and each flight decides afresh whether it is needed.
const refreshFlight = "refresh"

// renew makes sure the store holds a newer access token than usedToken.
func (client *Client) renew(ctx context.Context, usedToken string) error {
	result := client.refreshGroup.DoChan(refreshFlight, func() (any, error) {
		return nil, client.refreshIfStale(ctx, usedToken)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case outcome := <-result:
		return outcome.Err
	}
}

// refreshIfStale reads the store inside the flight, so a chain that lost the
// race to an earlier flight sees the replaced token and skips the refresh.
func (client *Client) refreshIfStale(ctx context.Context, usedToken string) error {
	session, err := client.store.Get()
	if err != nil {
		return err
	}

	switch {
	case session.Token != "" && session.Token != usedToken:
		return nil
	case session.Token == "":
		// A concurrent chain already ended the session.
		return ErrSessionExpired
	case session.RefreshToken == "":
		client.teardown(ReasonNoRefreshToken, nil)
		return ErrSessionExpired
	}

	return client.refresh(ctx, session.RefreshToken)
}

// refresh rotates the pair. Any non-2xx answer ends the session.
func (client *Client) refresh(parent context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), client.refreshTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return err
	}

	response, err := client.send(ctx, RefreshPath, http.MethodPost, nil, nil, payload, contentTypeJSON, "")
	if err != nil {
		return fmt.Errorf("apiclient: refresh: %w", err)
	}

	var pair tokenPair
	if err := decodeResponse(response, &pair); err != nil {
		var apiError *Error
		if errors.As(err, &apiError) {
			client.logger.Info("session_refresh_rejected", slog.Int("status", apiError.Status))
			client.teardown(ReasonRefreshFailed, apiError)
			return fmt.Errorf("%w: %w", ErrSessionExpired, apiError)
		}
		return fmt.Errorf("apiclient: refresh: %w", err)
	}

	if err := client.store.SetPair(pair.AccessToken, pair.RefreshToken); err != nil {
		client.teardown(ReasonRefreshFailed, err)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	client.logger.Debug("session_refreshed")
	return nil
}

// # Responses

func decodeResponse(response *http.Response, out any) error {
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return readError(response)
	}

	if out == nil || response.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if _, whole := out.(envelopeKeeper); !whole {
		var envelope map[string]json.RawMessage
		if json.Unmarshal(raw, &envelope) == nil {
			if data, found := envelope["data"]; found {
				raw = data
			}
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

func drain(response *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxErrorBytes))
	_ = response.Body.Close()
}
