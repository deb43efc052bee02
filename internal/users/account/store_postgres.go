// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/auth"
	"github.com/taibuivan/quill/pkg/pagination"
)

// PostgresAccountRepository implements [AccountRepository] on users.account.
type PostgresAccountRepository struct {
	db postgres.DBTX
}

// NewAccountRepository accepts a pool or a transaction.
func NewAccountRepository(db postgres.DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

var accountColumns = strings.Join(schema.UserAccount.Columns(), ", ")

// FindByID retrieves one account.
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*auth.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		accountColumns, schema.UserAccount.Table, schema.UserAccount.ID)

	user, err := auth.ScanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.NotFound(err, "find_account", "User")
	}
	return user, nil
}

// Update writes username, display name and bio, and bumps updated_at.
func (repository *PostgresAccountRepository) Update(context context.Context, user *auth.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.Username, schema.UserAccount.DisplayName,
		schema.UserAccount.Bio, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query,
		user.ID, user.Username, user.DisplayName, user.Bio, user.UpdatedAt)

	switch {
	case dberr.IsUniqueViolation(err, schema.UserAccountUsernameKey):
		return apperr.Conflict("Username is already taken").WithCause(err)
	case err != nil:
		return dberr.Wrap(err, "update_account")
	case tag.RowsAffected() == 0:
		return apperr.NotFound("User")
	}
	return nil
}

// UpdateRole sets the role of one account.
func (repository *PostgresAccountRepository) UpdateRole(context context.Context, id string, role sec.UserRole) (*auth.User, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = now()
		WHERE %s = $1
		RETURNING %s`,
		schema.UserAccount.Table,
		schema.UserAccount.Role, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
		accountColumns,
	)

	user, err := auth.ScanUser(repository.db.QueryRow(context, query, id, role))
	if err != nil {
		return nil, dberr.NotFound(err, "update_account_role", "User")
	}
	return user, nil
}

// List pages through accounts ordered by newest first.
func (repository *PostgresAccountRepository) List(context context.Context, filter ListFilter, page pagination.Params) ([]*auth.User, int, error) {
	var (
		conditions []string
		args       []any
	)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s ILIKE $%d)",
			schema.UserAccount.Email, len(args), schema.UserAccount.Username, len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.UserAccount.Role, len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, schema.UserAccount.Table, where)
	if err := repository.db.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_accounts")
	}

	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(`
		SELECT %s FROM %s %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		accountColumns, schema.UserAccount.Table, where,
		schema.UserAccount.CreatedAt, len(args)-1, len(args),
	)

	rows, err := repository.db.Query(context, listQuery, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_accounts")
	}
	defer rows.Close()

	users := make([]*auth.User, 0, page.Limit)
	for rows.Next() {
		user, err := auth.ScanUser(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_account")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_accounts")
	}

	return users, total, nil
}
