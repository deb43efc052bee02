// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] on users.account.
type PostgresUserRepository struct {
	db postgres.DBTX
}

// NewUserRepository accepts a pool or a transaction.
func NewUserRepository(db postgres.DBTX) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var userColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// ScanUser reads one users.account row selected with the full column list.
func ScanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Bio,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (repository *PostgresUserRepository) findOne(context context.Context, action, where string, arg any) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIMIT 1`, userColumns, schema.UserAccount.Table, where)

	user, err := ScanUser(repository.db.QueryRow(context, query, arg))
	if err != nil {
		return nil, dberr.NotFound(err, action, "User")
	}
	return user, nil
}

// FindByID retrieves an account by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, "find_user_by_id", schema.UserAccount.ID+" = $1", id)
}

// FindByEmail retrieves an account by email, ignoring case.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, "find_user_by_email",
		fmt.Sprintf("lower(%s) = lower($1)", schema.UserAccount.Email), email)
}

// FindByUsername retrieves an account by username, ignoring case.
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	return repository.findOne(context, "find_user_by_username",
		fmt.Sprintf("lower(%s) = lower($1)", schema.UserAccount.Username), username)
}

/*
Create inserts a new account, stamping CreatedAt/UpdatedAt when unset.

Returns:
  - error: CONFLICT naming the taken field, or a wrapped database error
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		schema.UserAccount.Table, userColumns,
	)

	_, err := repository.db.Exec(context, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.Bio,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)

	switch {
	case err == nil:
		return nil
	case dberr.IsUniqueViolation(err, schema.UserAccountEmailKey):
		return apperr.Conflict("Email is already registered").WithCause(err)
	case dberr.IsUniqueViolation(err, schema.UserAccountUsernameKey):
		return apperr.Conflict("Username is already taken").WithCause(err)
	default:
		return dberr.Wrap(err, "create_user")
	}
}

// UpdatePassword stores a new bcrypt hash and bumps updated_at.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.PasswordHash, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, id, passwordHash, time.Now().UTC())
	switch {
	case err != nil:
		return dberr.Wrap(err, "update_password")
	case tag.RowsAffected() == 0:
		return apperr.NotFound("User")
	}
	return nil
}
