// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements identity: account registration, credential checks,
token issuance and rotation, revocation, and the bearer verification used by
the authentication middleware.

# Architecture

  - Service: Signup, Login, Refresh, Logout, VerifyAccess.
  - Repository: users.account in Postgres, revoked token IDs in Redis.
  - Security: bcrypt password hashes, HS256 tokens from [sec.TokenService].
*/
package auth

import (
	"time"

	"github.com/taibuivan/quill/internal/platform/sec"
)

// # Domain Entities

// User is a registered account.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	DisplayName  string       `json:"displayName"`
	Bio          string       `json:"bio"`
	Role         sec.UserRole `json:"role"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Principal builds the request identity for this user from verified claims.
func (user *User) Principal(claims *sec.Claims) *sec.Principal {
	principal := &sec.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	}
	if claims != nil {
		principal.TokenID = claims.ID
		if claims.ExpiresAt != nil {
			principal.TokenExpiresAt = claims.ExpiresAt.Unix()
		}
	}
	return principal
}

// # Field Identifiers

const (
	FieldEmail        = "email"
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldRefreshToken = "refreshToken"
	FieldUser         = "user"
)
