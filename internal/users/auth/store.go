// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository is the credential store consulted by the auth flows.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - error: apperr NOT_FOUND when no account matches
	*/
	FindByID(context context.Context, id string) (*User, error)

	// FindByEmail matches case-insensitively.
	FindByEmail(context context.Context, email string) (*User, error)

	// FindByUsername matches case-insensitively.
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		Create persists a new account.

		Returns:
		  - error: apperr CONFLICT when the email or username is taken
	*/
	Create(context context.Context, user *User) error

	// UpdatePassword replaces the hash; NOT_FOUND when the account is gone.
	UpdatePassword(context context.Context, id, passwordHash string) error
}

// # Revocation

// RevocationStore is a denylist of token IDs (jti).
//
// Entries only need to live until the token would have expired on its own;
// after that, signature verification rejects it anyway.
type RevocationStore interface {
	Revoke(context context.Context, tokenID string, until time.Time) error
	IsRevoked(context context.Context, tokenID string) (bool, error)

	// Claim denylists tokenID only if it is not listed yet, and reports
	// whether this call did it. Exactly one concurrent caller wins.
	Claim(context context.Context, tokenID string, until time.Time) (bool, error)

	// RevokeBefore voids every token of userID issued before cutoff. The
	// marker lives until the longest-lived token issued before it expires.
	RevokeBefore(context context.Context, userID string, cutoff, until time.Time) error

	// RevokedBefore returns the cutoff for userID, or the zero time.
	RevokedBefore(context context.Context, userID string) (time.Time, error)
}
