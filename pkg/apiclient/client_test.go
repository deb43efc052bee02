// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/pkg/apiclient"
)

// # Fake API

// fakeAPI serves /api/users/me behind a bearer check and rotates pairs on
// /api/auth/refresh-token.
type fakeAPI struct {
	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	nextAccess    string
	nextRefresh   string
	refreshDelay  time.Duration
	refreshStatus int
	rejectAll     bool

	meCalls      atomic.Int32
	refreshCalls atomic.Int32
	refreshSeen  chan struct{}
	release      chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		validAccess:  "fresh-access",
		validRefresh: "refresh-1",
		nextAccess:   "fresh-access",
		nextRefresh:  "refresh-2",
	}
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func (api *fakeAPI) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	switch request.URL.Path {
	case "/api/users/me":
		api.meCalls.Add(1)

		api.mu.Lock()
		valid := !api.rejectAll && request.Header.Get("Authorization") == "Bearer "+api.validAccess
		api.mu.Unlock()

		if !valid {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
			return
		}
		writeJSON(writer, http.StatusOK, map[string]any{"data": map[string]string{"id": "u-1", "email": "ada@quill.blog"}})

	case "/api/auth/refresh-token":
		api.refreshCalls.Add(1)
		if api.refreshSeen != nil {
			api.refreshSeen <- struct{}{}
		}
		if api.release != nil {
			<-api.release
		}
		time.Sleep(api.refreshDelay)

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(request.Body).Decode(&body)

		api.mu.Lock()
		defer api.mu.Unlock()

		if api.refreshStatus != 0 || body.RefreshToken != api.validRefresh {
			status := api.refreshStatus
			if status == 0 {
				status = http.StatusUnauthorized
			}
			writeJSON(writer, status, map[string]string{"error": "Invalid or expired refresh token", "code": "UNAUTHORIZED"})
			return
		}

		api.validAccess, api.validRefresh = api.nextAccess, api.nextRefresh
		writeJSON(writer, http.StatusOK, map[string]any{"data": map[string]string{
			"accessToken":  api.nextAccess,
			"refreshToken": api.nextRefresh,
		}})

	default:
		http.NotFound(writer, request)
	}
}

func newClient(t *testing.T, handler http.Handler, options ...apiclient.Option) (*apiclient.Client, *apiclient.MemoryStore) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := apiclient.NewMemoryStore()
	client, err := apiclient.New(server.URL, store, options...)
	require.NoError(t, err)
	return client, store
}

type eventLog struct {
	mu     sync.Mutex
	events []apiclient.LogoutEvent
}

func (log *eventLog) record(event apiclient.LogoutEvent) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.events = append(log.events, event)
}

func (log *eventLog) snapshot() []apiclient.LogoutEvent {
	log.mu.Lock()
	defer log.mu.Unlock()
	return append([]apiclient.LogoutEvent(nil), log.events...)
}

// # Refresh protocol

func TestDo_ExpiredAccessRefreshesOnceAndRetries(t *testing.T) {
	api := newFakeAPI()
	client, store := newClient(t, api)
	require.NoError(t, store.SetPair("stale-access", "refresh-1"))

	var logouts eventLog
	client.Subscribe(logouts.record)

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "ada@quill.blog", user.Email)
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.meCalls.Load(), "original call plus exactly one retry")

	session, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, apiclient.Session{Token: "fresh-access", RefreshToken: "refresh-2"}, session)
	assert.Empty(t, logouts.snapshot())
}

func TestDo_RefusedRefreshEndsSessionOnce(t *testing.T) {
	api := newFakeAPI()
	client, store := newClient(t, api)
	require.NoError(t, store.SetPair("stale-access", "forged-refresh"))

	var first, second eventLog
	client.Subscribe(first.record)
	client.Subscribe(second.record)

	_, err := client.CurrentUser(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apiclient.ErrSessionExpired))
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
	assert.EqualValues(t, 1, api.meCalls.Load(), "no retry after a refused refresh")

	session, err := store.Get()
	require.NoError(t, err)
	assert.False(t, session.Active())

	for _, log := range []*eventLog{&first, &second} {
		events := log.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, apiclient.ReasonRefreshFailed, events[0].Reason)
	}
}

func TestDo_RefreshServerErrorAlsoEndsSession(t *testing.T) {
	api := newFakeAPI()
	api.refreshStatus = http.StatusInternalServerError
	client, store := newClient(t, api)
	require.NoError(t, store.SetPair("stale-access", "refresh-1"))

	_, err := client.CurrentUser(context.Background())

	assert.True(t, errors.Is(err, apiclient.ErrSessionExpired))
	assert.True(t, apiclient.IsStatus(err, http.StatusInternalServerError))

	session, _ := store.Get()
	assert.False(t, session.Active())
}

func TestDo_ConcurrentExpiredCallsShareOneRefresh(t *testing.T) {
	api := newFakeAPI()
	api.refreshDelay = 50 * time.Millisecond
	client, store := newClient(t, api)
	require.NoError(t, store.SetPair("stale-access", "refresh-1"))

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for index := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[index] = client.CurrentUser(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())
}

// pausingStore blocks the pauseOn-th Get after it has read the session, until
// release is closed.
type pausingStore struct {
	*apiclient.MemoryStore

	calls   atomic.Int32
	pauseOn int32
	paused  chan struct{}
	release chan struct{}
}

func (store *pausingStore) Get() (apiclient.Session, error) {
	session, err := store.MemoryStore.Get()
	if store.calls.Add(1) == store.pauseOn {
		close(store.paused)
		<-store.release
	}
	return session, err
}

/*
TestDo_LateChainSkipsRefreshOfReplacedToken holds one expired call between its
401 and its refresh decision while a second call rotates the pair. The refresh
token is single-use, so refreshing again with the old one would be refused and
wipe the new session.
*/
func TestDo_LateChainSkipsRefreshOfReplacedToken(t *testing.T) {
	api := newFakeAPI()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	store := &pausingStore{
		MemoryStore: apiclient.NewMemoryStore(),
		pauseOn:     2, // the late chain's read after its 401
		paused:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	require.NoError(t, store.SetPair("stale-access", "refresh-1"))

	client, err := apiclient.New(server.URL, store)
	require.NoError(t, err)

	var logouts eventLog
	client.Subscribe(logouts.record)

	late := make(chan error, 1)
	go func() {
		_, err := client.CurrentUser(context.Background())
		late <- err
	}()
	<-store.paused

	early := make(chan error, 1)
	go func() {
		_, err := client.CurrentUser(context.Background())
		early <- err
	}()

	require.Eventually(t, func() bool { return api.meCalls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(store.release)

	require.NoError(t, <-early)
	require.NoError(t, <-late)

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Empty(t, logouts.snapshot())

	session, err := store.MemoryStore.Get()
	require.NoError(t, err)
	assert.Equal(t, apiclient.Session{Token: "fresh-access", RefreshToken: "refresh-2"}, session)
}

func TestDo_RetryBudget(t *testing.T) {
	t.Run("zero_budget_makes_401_terminal", func(t *testing.T) {
		api := newFakeAPI()
		client, store := newClient(t, api, apiclient.WithRetryLimit(0))
		require.NoError(t, store.SetPair("stale-access", "refresh-1"))

		_, err := client.CurrentUser(context.Background())

		assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
		assert.False(t, errors.Is(err, apiclient.ErrSessionExpired))
		assert.Zero(t, api.refreshCalls.Load())

		session, _ := store.Get()
		assert.True(t, session.Active(), "a terminal 401 keeps the session")
	})

	t.Run("still_rejected_after_refresh", func(t *testing.T) {
		api := newFakeAPI()
		api.rejectAll = true
		client, store := newClient(t, api)
		require.NoError(t, store.SetPair("stale-access", "refresh-1"))

		_, err := client.CurrentUser(context.Background())

		assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
		assert.EqualValues(t, 1, api.refreshCalls.Load())
		assert.EqualValues(t, 2, api.meCalls.Load())
	})

	t.Run("anonymous_401_does_not_refresh", func(t *testing.T) {
		api := newFakeAPI()
		client, _ := newClient(t, api)

		var logouts eventLog
		client.Subscribe(logouts.record)

		_, err := client.CurrentUser(context.Background())

		assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
		assert.Zero(t, api.refreshCalls.Load())
		assert.Empty(t, logouts.snapshot())
	})
}

func TestDo_RefreshOutlivesCancelledCaller(t *testing.T) {
	api := newFakeAPI()
	api.refreshSeen = make(chan struct{}, 1)
	api.release = make(chan struct{})
	client, store := newClient(t, api)
	require.NoError(t, store.SetPair("stale-access", "refresh-1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.CurrentUser(ctx)
		done <- err
	}()

	<-api.refreshSeen
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(api.release)
	require.Eventually(t, func() bool {
		session, _ := store.Get()
		return session.Token == "fresh-access"
	}, 2*time.Second, 10*time.Millisecond)
}

// # Request shaping

func TestDo_Headers(t *testing.T) {
	type seenRequest struct {
		contentType string
		accept      string
		trace       string
		auth        string
		body        []byte
	}
	seen := make(chan seenRequest, 1)

	handler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		seen <- seenRequest{
			contentType: request.Header.Get("Content-Type"),
			accept:      request.Header.Get("Accept"),
			trace:       request.Header.Get("X-Trace"),
			auth:        request.Header.Get("Authorization"),
			body:        body,
		}
		writer.WriteHeader(http.StatusNoContent)
	})
	client, store := newClient(t, handler)
	require.NoError(t, store.SetPair("access", "refresh"))

	t.Run("json_content_type_is_forced", func(t *testing.T) {
		err := client.Do(context.Background(), "/api/posts", apiclient.RequestOptions{
			Method: http.MethodPost,
			Body:   map[string]string{"title": "Hello"},
			Headers: http.Header{
				"Content-Type": {"text/plain"},
				"X-Trace":      {"abc"},
				"Accept":       {"application/vnd.quill+json"},
			},
		}, nil)
		require.NoError(t, err)

		request := <-seen
		assert.Equal(t, "application/json", request.contentType)
		assert.Equal(t, "abc", request.trace)
		assert.Equal(t, "application/vnd.quill+json", request.accept)
		assert.Equal(t, "Bearer access", request.auth)
		assert.JSONEq(t, `{"title":"Hello"}`, string(request.body))
	})

	t.Run("binary_keeps_its_type", func(t *testing.T) {
		err := client.Do(context.Background(), "/upload", apiclient.RequestOptions{
			Method: http.MethodPut,
			Body:   apiclient.Binary{Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"},
		}, nil)
		require.NoError(t, err)

		request := <-seen
		assert.Equal(t, "image/png", request.contentType)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, request.body)
	})

	t.Run("form_is_multipart", func(t *testing.T) {
		err := client.Do(context.Background(), "/upload", apiclient.RequestOptions{
			Method: http.MethodPut,
			Body: apiclient.Form{
				Fields: map[string]string{"caption": "sunset"},
				Files:  []apiclient.FormFile{{Field: "file", FileName: "cover.png", Data: []byte("png-bytes")}},
			},
		}, nil)
		require.NoError(t, err)

		request := <-seen
		assert.Contains(t, request.contentType, "multipart/form-data; boundary=")
		assert.Contains(t, string(request.body), `name="caption"`)
		assert.Contains(t, string(request.body), `filename="cover.png"`)
		assert.Contains(t, string(request.body), "png-bytes")
	})

	t.Run("anonymous_sends_no_bearer", func(t *testing.T) {
		err := client.Do(context.Background(), "/api/auth/login", apiclient.RequestOptions{
			Method:    http.MethodPost,
			Anonymous: true,
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, (<-seen).auth)
	})

	t.Run("bodyless_request_has_no_content_type", func(t *testing.T) {
		err := client.Do(context.Background(), "/api/posts", apiclient.RequestOptions{
			Headers: http.Header{"Content-Type": {"text/plain"}},
		}, nil)
		require.NoError(t, err)

		request := <-seen
		assert.Empty(t, request.contentType)
		assert.Empty(t, request.body)
	})
}

// # Response decoding

func TestDo_Decoding(t *testing.T) {
	handler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/wrapped":
			writeJSON(writer, http.StatusOK, map[string]any{"data": map[string]string{"slug": "hello"}})
		case "/bare":
			writeJSON(writer, http.StatusOK, map[string]string{"slug": "bare"})
		case "/empty":
			writer.WriteHeader(http.StatusNoContent)
		case "/page":
			writeJSON(writer, http.StatusOK, map[string]any{
				"data": []map[string]string{{"slug": "a"}, {"slug": "b"}},
				"meta": map[string]int{"page": 2, "limit": 2, "total": 5, "totalPages": 3},
			})
		case "/validation":
			writeJSON(writer, http.StatusBadRequest, map[string]any{
				"error":   "Validation failed",
				"code":    "VALIDATION_ERROR",
				"details": []map[string]string{{"field": "title", "message": "is required"}},
			})
		case "/message":
			writeJSON(writer, http.StatusNotFound, map[string]string{"message": "Post not found"})
		default:
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte("<html>upstream down</html>"))
		}
	})
	client, _ := newClient(t, handler)
	ctx := context.Background()

	type slugged struct {
		Slug string `json:"slug"`
	}

	wrapped, err := apiclient.Fetch[slugged](ctx, client, "/wrapped", apiclient.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", wrapped.Slug)

	bare, err := apiclient.Fetch[slugged](ctx, client, "/bare", apiclient.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "bare", bare.Slug)

	empty, err := apiclient.Fetch[slugged](ctx, client, "/empty", apiclient.RequestOptions{})
	require.NoError(t, err)
	assert.Zero(t, empty)

	page, err := apiclient.Fetch[apiclient.Page[slugged]](ctx, client, "/page", apiclient.RequestOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 5, page.Meta.Total)
	assert.Equal(t, 3, page.Meta.TotalPages)

	_, err = apiclient.Fetch[slugged](ctx, client, "/validation", apiclient.RequestOptions{})
	var apiError *apiclient.Error
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, http.StatusBadRequest, apiError.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiError.Code)
	assert.Equal(t, "Validation failed", apiError.Message)
	assert.Equal(t, []apiclient.FieldError{{Field: "title", Message: "is required"}}, apiError.Details)

	_, err = apiclient.Fetch[slugged](ctx, client, "/message", apiclient.RequestOptions{})
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, "Post not found", apiError.Message)

	_, err = apiclient.Fetch[slugged](ctx, client, "/broken", apiclient.RequestOptions{})
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, "request failed", apiError.Message)
	assert.Contains(t, err.Error(), "status 502")
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := apiclient.New("localhost:8080", nil)
	assert.Error(t, err)

	client, err := apiclient.New("http://localhost:8080/", nil)
	require.NoError(t, err)
	assert.NotNil(t, client.Store())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	api := newFakeAPI()
	client, store := newClient(t, api)

	var kept, dropped eventLog
	client.Subscribe(kept.record)
	unsubscribe := client.Subscribe(dropped.record)
	unsubscribe()
	unsubscribe()

	require.NoError(t, store.SetPair("stale-access", "forged"))
	_, _ = client.CurrentUser(context.Background())

	assert.Len(t, kept.snapshot(), 1)
	assert.Empty(t, dropped.snapshot())
}
