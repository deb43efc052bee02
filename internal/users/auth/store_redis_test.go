// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/testutil"
	"github.com/taibuivan/quill/internal/users/auth"
)

func TestRedisRevocationStore(t *testing.T) {
	client := testutil.StartRedis(t)
	store := auth.NewRevocationStore(client)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, "auth:revoked:jti-1").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	// Already-expired tokens still get a short-lived entry.
	require.NoError(t, store.Revoke(ctx, "jti-2", time.Now().Add(-time.Hour)))
	ttl, err = client.TTL(ctx, "auth:revoked:jti-2").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisRevocationStore_ClaimIsExclusive(t *testing.T) {
	client := testutil.StartRedis(t)
	store := auth.NewRevocationStore(client)
	ctx := context.Background()
	until := time.Now().Add(time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	var winners atomic.Int32

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.Claim(ctx, "jti-claim", until)
			assert.NoError(t, err)
			if claimed {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())

	revoked, err := store.IsRevoked(ctx, "jti-claim")
	require.NoError(t, err)
	assert.True(t, revoked)

	// A token revoked by logout can no longer be claimed.
	require.NoError(t, store.Revoke(ctx, "jti-logged-out", until))
	claimed, err := store.Claim(ctx, "jti-logged-out", until)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRedisRevocationStore_Cutoff(t *testing.T) {
	client := testutil.StartRedis(t)
	store := auth.NewRevocationStore(client)
	ctx := context.Background()

	cutoff, err := store.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())

	changedAt := time.Unix(1_780_000_000, 0)
	require.NoError(t, store.RevokeBefore(ctx, "user-1", changedAt, time.Now().Add(24*time.Hour)))

	cutoff, err = store.RevokedBefore(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, changedAt.Equal(cutoff))

	ttl, err := client.TTL(ctx, "auth:cutoff:user-1").Result()
	require.NoError(t, err)
	assert.InDelta(t, (24 * time.Hour).Seconds(), ttl.Seconds(), 5)

	other, err := store.RevokedBefore(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}
