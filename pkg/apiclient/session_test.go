// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/pkg/apiclient"
)

func TestSessionStores(t *testing.T) {
	stores := map[string]func(t *testing.T) apiclient.SessionStore{
		"memory": func(*testing.T) apiclient.SessionStore { return apiclient.NewMemoryStore() },
		"file": func(t *testing.T) apiclient.SessionStore {
			return apiclient.NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			store := build(t)

			empty, err := store.Get()
			require.NoError(t, err)
			assert.False(t, empty.Active())

			require.NoError(t, store.SetPair("access", "refresh"))
			session, err := store.Get()
			require.NoError(t, err)
			assert.Equal(t, apiclient.Session{Token: "access", RefreshToken: "refresh"}, session)

			assert.ErrorIs(t, store.SetPair("access-only", ""), apiclient.ErrIncompleteSession)
			session, _ = store.Get()
			assert.Equal(t, "access", session.Token, "a rejected pair leaves the old one in place")

			require.NoError(t, store.Clear())
			require.NoError(t, store.Clear())
			session, err = store.Get()
			require.NoError(t, err)
			assert.False(t, session.Active())
		})
	}
}

func TestFileStore_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := apiclient.NewFileStore(path)

	require.NoError(t, store.SetPair("access", "refresh"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"access","refreshToken":"refresh"}`, string(raw))

	// A second process reading the same file sees the session.
	session, err := apiclient.NewFileStore(path).Get()
	require.NoError(t, err)
	assert.True(t, session.Active())

	t.Run("half_a_pair_is_no_session", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`{"token":"access"}`), 0o600))
		session, err := store.Get()
		require.NoError(t, err)
		assert.False(t, session.Active())
	})

	t.Run("corrupt_file_is_an_error", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
		_, err := store.Get()
		assert.Error(t, err)
	})
}
