// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Full control, including role assignment.
	RoleAdmin UserRole = "admin"

	// Moderates comments and any post, manages categories and tags.
	RoleModerator UserRole = "moderator"

	// Writes and publishes their own posts.
	RoleAuthor UserRole = "author"

	// Default role for new accounts; may comment.
	RoleMember UserRole = "member"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 40
	case RoleModerator:
		return 30
	case RoleAuthor:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}

// Principal is the authenticated identity attached to a request.
//
// It is resolved from the user store on every request, so role changes and
// deleted accounts take effect without waiting for token expiry.
type Principal struct {
	UserID   string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`

	// TokenID is the jti of the access token that authenticated the request.
	TokenID string `json:"-"`
	// TokenExpiresAt is the access token expiry, used to bound revocation entries.
	TokenExpiresAt int64 `json:"-"`
}

// Can reports whether the principal meets the target role.
func (p *Principal) Can(target UserRole) bool {
	return p != nil && p.Role.AtLeast(target)
}

// Owns reports whether the principal is the owner, or a moderator acting on any resource.
func (p *Principal) Owns(ownerID string) bool {
	if p == nil {
		return false
	}
	return p.UserID == ownerID || p.Role.AtLeast(RoleModerator)
}
