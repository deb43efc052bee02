// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds table and column identifiers for hand-written SQL.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table        string
	ID           string
	Email        string
	Username     string
	PasswordHash string
	DisplayName  string
	Bio          string
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	Email:        "email",
	Username:     "username",
	PasswordHash: "password_hash",
	DisplayName:  "display_name",
	Bio:          "bio",
	Role:         "role",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}

// Columns returns every column in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Username, t.PasswordHash, t.DisplayName,
		t.Bio, t.Role, t.CreatedAt, t.UpdatedAt,
	}
}

// Unique index names used to tell conflicts apart.
const (
	UserAccountEmailKey    = "account_email_key"
	UserAccountUsernameKey = "account_username_key"
)
