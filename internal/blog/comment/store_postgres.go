// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

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
	"github.com/taibuivan/quill/pkg/pagination"
)

type PostgresRepository struct {
	db postgres.DBTX
}

func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var columns = strings.Join(schema.BlogComment.Columns(), ", ")

func scanComment(row pgx.Row, extra ...any) (*Comment, error) {
	c := &Comment{}
	targets := append([]any{&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return c, nil
}

func (repository *PostgresRepository) ListByPost(context context.Context, postID string, includeHidden bool, page pagination.Params) ([]*Comment, int, error) {
	where := fmt.Sprintf("WHERE %s = $1", schema.BlogComment.PostID)
	args := []any{postID}
	if !includeHidden {
		where += fmt.Sprintf(" AND %s = $2", schema.BlogComment.Status)
		args = append(args, string(StatusVisible))
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, schema.BlogComment.Table, where)
	if err := repository.db.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_comments")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s ASC, %s ASC LIMIT $%d OFFSET $%d`,
		columns, schema.BlogComment.Table, where,
		schema.BlogComment.CreatedAt, schema.BlogComment.ID,
		len(args)+1, len(args)+2)

	rows, err := repository.db.Query(context, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_comments")
	}
	defer rows.Close()

	comments := make([]*Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_comment")
		}
		comments = append(comments, c)
	}
	return comments, total, dberr.Wrap(rows.Err(), "list_comments")
}

func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Comment, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, columns, schema.BlogComment.Table, schema.BlogComment.ID)

	c, err := scanComment(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.NotFound(err, "find_comment", "Comment")
	}
	return c, nil
}

func (repository *PostgresRepository) Create(context context.Context, comment *Comment) error {
	now := time.Now().UTC()
	comment.CreatedAt, comment.UpdatedAt = now, now

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`, schema.BlogComment.Table, columns)

	_, err := repository.db.Exec(context, query,
		comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.Status, comment.CreatedAt, comment.UpdatedAt)
	return dberr.Wrap(err, "create_comment")
}

func (repository *PostgresRepository) SetStatus(context context.Context, id string, status Status) (*Comment, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 RETURNING %s`,
		schema.BlogComment.Table, schema.BlogComment.Status, schema.BlogComment.UpdatedAt, schema.BlogComment.ID, columns)

	c, err := scanComment(repository.db.QueryRow(context, query, id, status, time.Now().UTC()))
	if err != nil {
		return nil, dberr.NotFound(err, "moderate_comment", "Comment")
	}
	return c, nil
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BlogComment.Table, schema.BlogComment.ID)

	result, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_comment")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Comment")
	}
	return nil
}
