// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"log/slog"
	"sync"
	"time"
)

// LogoutReason says why the session ended.
type LogoutReason string

const (
	// ReasonRefreshFailed: the server refused the refresh token.
	ReasonRefreshFailed LogoutReason = "refresh_failed"

	// ReasonNoRefreshToken: a 401 arrived and there was nothing to refresh with.
	ReasonNoRefreshToken LogoutReason = "no_refresh_token"

	// ReasonInvalidToken: the stored access token could not be decoded or had expired.
	ReasonInvalidToken LogoutReason = "invalid_token"

	// ReasonSignedOut: the user logged out.
	ReasonSignedOut LogoutReason = "signed_out"

	// ReasonPasswordChanged: the server ended every session after a password change.
	ReasonPasswordChanged LogoutReason = "password_changed"
)

// LogoutEvent is published after the session has been cleared.
type LogoutEvent struct {
	Reason LogoutReason
	At     time.Time
	Err    error
}

type subscribers struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(LogoutEvent)
}

// Subscribe registers handler for logout events and returns a function that
// removes it. Handlers run synchronously on the goroutine that ended the
// session, in no particular order.
func (client *Client) Subscribe(handler func(LogoutEvent)) (unsubscribe func()) {
	registry := &client.subscribers

	registry.mu.Lock()
	if registry.handlers == nil {
		registry.handlers = make(map[int]func(LogoutEvent))
	}
	id := registry.nextID
	registry.nextID++
	registry.handlers[id] = handler
	registry.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			registry.mu.Lock()
			delete(registry.handlers, id)
			registry.mu.Unlock()
		})
	}
}

func (client *Client) publish(event LogoutEvent) {
	registry := &client.subscribers

	registry.mu.Lock()
	handlers := make([]func(LogoutEvent), 0, len(registry.handlers))
	for _, handler := range registry.handlers {
		handlers = append(handlers, handler)
	}
	registry.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// teardown clears the stored session and notifies subscribers.
func (client *Client) teardown(reason LogoutReason, cause error) {
	if err := client.store.Clear(); err != nil {
		client.logger.Warn("session_clear_failed", slog.Any("error", err))
	}
	client.publish(LogoutEvent{Reason: reason, At: client.now(), Err: cause})
}
