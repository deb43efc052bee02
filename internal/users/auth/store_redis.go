// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/quill/internal/platform/constants"
)

// minRevocationTTL keeps a key around even for tokens already at expiry, so
// clock skew between nodes cannot reopen a window.
const minRevocationTTL = time.Minute

// RedisRevocationStore implements [RevocationStore] with expiring keys.
type RedisRevocationStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRevocationStore creates a Redis-backed denylist.
func NewRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func revocationKey(tokenID string) string {
	return constants.RedisPrefixRevokedToken + tokenID
}

func cutoffKey(userID string) string {
	return constants.RedisPrefixSessionCutoff + userID
}

func (store *RedisRevocationStore) ttl(until time.Time) time.Duration {
	return max(until.Sub(store.now()), minRevocationTTL)
}

// Revoke denylists tokenID until the given time.
func (store *RedisRevocationStore) Revoke(context context.Context, tokenID string, until time.Time) error {
	if err := store.client.Set(context, revocationKey(tokenID), 1, store.ttl(until)).Err(); err != nil {
		return fmt.Errorf("redis_revocation_set_failed: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (store *RedisRevocationStore) IsRevoked(context context.Context, tokenID string) (bool, error) {
	count, err := store.client.Exists(context, revocationKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_check_failed: %w", err)
	}
	return count > 0, nil
}

// Claim denylists tokenID with SET NX; only the first caller gets true.
func (store *RedisRevocationStore) Claim(context context.Context, tokenID string, until time.Time) (bool, error) {
	claimed, err := store.client.SetNX(context, revocationKey(tokenID), 1, store.ttl(until)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_revocation_claim_failed: %w", err)
	}
	return claimed, nil
}

// RevokeBefore stores cutoff as unix seconds.
func (store *RedisRevocationStore) RevokeBefore(context context.Context, userID string, cutoff, until time.Time) error {
	if err := store.client.Set(context, cutoffKey(userID), cutoff.Unix(), store.ttl(until)).Err(); err != nil {
		return fmt.Errorf("redis_cutoff_set_failed: %w", err)
	}
	return nil
}

// RevokedBefore reads the cutoff written by [RedisRevocationStore.RevokeBefore].
func (store *RedisRevocationStore) RevokedBefore(context context.Context, userID string) (time.Time, error) {
	seconds, err := store.client.Get(context, cutoffKey(userID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, fmt.Errorf("redis_cutoff_get_failed: %w", err)
	}
	return time.Unix(seconds, 0), nil
}
