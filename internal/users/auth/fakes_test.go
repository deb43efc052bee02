// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
)

// memoryUsers is an in-memory UserRepository.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
	fail  error

	// gate, when set, holds every lookup until all expected callers arrive.
	gate *sync.WaitGroup
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*auth.User)}
}

func (store *memoryUsers) find(match func(*auth.User) bool) (*auth.User, error) {
	if store.gate != nil {
		store.gate.Done()
		store.gate.Wait()
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.fail != nil {
		return nil, store.fail
	}
	for _, user := range store.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	return store.find(func(u *auth.User) bool { return u.ID == id })
}

func (store *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return store.find(func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (store *memoryUsers) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	return store.find(func(u *auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (store *memoryUsers) Create(_ context.Context, user *auth.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	copied := *user
	store.users[user.ID] = &copied
	return nil
}

func (store *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, found := store.users[id]
	if !found {
		return apperr.NotFound("User")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (store *memoryUsers) delete(id string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.users, id)
}

// memoryRevocations is an in-memory RevocationStore.
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	cutoffs map[string]time.Time
	fail    error

	// failClaim fails Claim alone.
	failClaim error
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]time.Time), cutoffs: make(map[string]time.Time)}
}

func (store *memoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fail != nil {
		return store.fail
	}
	store.revoked[tokenID] = until
	return nil
}

func (store *memoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fail != nil {
		return false, store.fail
	}
	_, found := store.revoked[tokenID]
	return found, nil
}

func (store *memoryRevocations) Claim(_ context.Context, tokenID string, until time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fail != nil {
		return false, store.fail
	}
	if store.failClaim != nil {
		return false, store.failClaim
	}
	if _, found := store.revoked[tokenID]; found {
		return false, nil
	}
	store.revoked[tokenID] = until
	return true, nil
}

func (store *memoryRevocations) RevokeBefore(_ context.Context, userID string, cutoff, _ time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fail != nil {
		return store.fail
	}
	store.cutoffs[userID] = cutoff
	return nil
}

func (store *memoryRevocations) RevokedBefore(_ context.Context, userID string) (time.Time, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.fail != nil {
		return time.Time{}, store.fail
	}
	return store.cutoffs[userID], nil
}

func (store *memoryRevocations) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.revoked)
}

// clock is a settable time source for token issuance and verification.
type clock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

var errStoreDown = errors.New("connection refused")

type fixture struct {
	service     *auth.Service
	tokens      *sec.TokenService
	users       *memoryUsers
	revocations *memoryRevocations
	clock       *clock
}

func newFixture(t *testing.T, options auth.Options) *fixture {
	t.Helper()

	c := &clock{current: time.Now()}
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     7 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "quill.test",
		Now:           c.now,
	})
	require.NoError(t, err)

	if options.Now == nil {
		options.Now = c.now
	}

	users := newMemoryUsers()
	revocations := newMemoryRevocations()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		service:     auth.NewService(users, revocations, tokens, options, logger),
		tokens:      tokens,
		users:       users,
		revocations: revocations,
		clock:       c,
	}
}

// seedUser stores an account with a real bcrypt hash of password.
func (f *fixture) seedUser(t *testing.T, id, email, password string) *auth.User {
	t.Helper()

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		ID:           id,
		Email:        email,
		Username:     strings.Split(email, "@")[0],
		PasswordHash: hash,
		Role:         sec.RoleMember,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}
