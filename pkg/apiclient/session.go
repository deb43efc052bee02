// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrIncompleteSession is returned when a pair is stored with a missing half.
var ErrIncompleteSession = errors.New("apiclient: access and refresh tokens must be set together")

// Session is the client-side credential pair. Both tokens are present or
// neither is.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Active reports whether the session holds a usable pair.
func (session Session) Active() bool {
	return session.Token != "" && session.RefreshToken != ""
}

// SessionStore persists the token pair between requests.
//
// Implementations must be safe for concurrent use. SetPair replaces both
// tokens in one step.
type SessionStore interface {
	Get() (Session, error)
	SetPair(token, refreshToken string) error
	Clear() error
}

// # In-memory store

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (store *MemoryStore) Get() (Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.session, nil
}

func (store *MemoryStore) SetPair(token, refreshToken string) error {
	if token == "" || refreshToken == "" {
		return ErrIncompleteSession
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.session = Session{Token: token, RefreshToken: refreshToken}
	return nil
}

func (store *MemoryStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.session = Session{}
	return nil
}

// # File store

// FileStore keeps the session as a JSON file readable only by its owner.
//
// A file holding only one of the two tokens is treated as no session.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first SetPair.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (store *FileStore) Path() string {
	return store.path
}

func (store *FileStore) Get() (Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("apiclient: read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("apiclient: parse session %s: %w", store.path, err)
	}
	if !session.Active() {
		return Session{}, nil
	}
	return session, nil
}

func (store *FileStore) SetPair(token, refreshToken string) error {
	if token == "" || refreshToken == "" {
		return ErrIncompleteSession
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	data, err := json.MarshalIndent(Session{Token: token, RefreshToken: refreshToken}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("apiclient: create session dir: %w", err)
	}

	// Write then rename so a reader never sees half a file.
	tempPath := store.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("apiclient: write session: %w", err)
	}
	if err := os.Rename(tempPath, store.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("apiclient: replace session: %w", err)
	}
	return nil
}

func (store *FileStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("apiclient: clear session: %w", err)
	}
	return nil
}
