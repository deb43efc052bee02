// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles profile management for the signed-in user and the
admin-only user directory.

# Architecture

  - Entities: the [auth.User] record owned by the auth package.
  - Domain: public profiles, profile edits, listing, and role assignment.
  - Security: role changes are admin-only and can never target the caller.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
	"github.com/taibuivan/quill/pkg/pagination"
)

// # Public View

// Profile is the public face of an account, as shown on author pages. It
// never carries the email address.
type Profile struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"displayName"`
	Bio         string       `json:"bio"`
	Role        sec.UserRole `json:"role"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NewProfile projects an account onto its public fields.
func NewProfile(user *auth.User) *Profile {
	return &Profile{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
	}
}

// # Domain Inputs

// UpdateProfileInput carries a partial profile update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Username    *string
	DisplayName *string
	Bio         *string
}

// ListFilter narrows the admin user directory.
type ListFilter struct {
	// Query matches email or username, case-insensitively.
	Query string
	// Role, when set, keeps only accounts with exactly that role.
	Role sec.UserRole
}

// # Repository Contracts

// AccountRepository defines the persistence contract for account management.
type AccountRepository interface {
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		Update writes the mutable profile fields (username, display name, bio).

		Returns:
		  - error: CONFLICT when the username is taken, NOT_FOUND for a missing account
	*/
	Update(context context.Context, user *auth.User) error

	// UpdateRole sets the role and returns the updated account.
	UpdateRole(context context.Context, id string, role sec.UserRole) (*auth.User, error)

	// List returns one page of accounts and the total match count.
	List(context context.Context, filter ListFilter, page pagination.Params) ([]*auth.User, int, error)
}
