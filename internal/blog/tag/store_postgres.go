// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

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

type PostgresRepository struct {
	db postgres.DBTX
}

func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var columns = strings.Join(schema.BlogTag.Columns(), ", ")

func scanTag(row pgx.Row) (*Tag, error) {
	t := &Tag{}
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (repository *PostgresRepository) List(context context.Context) ([]*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`, columns, schema.BlogTag.Table, schema.BlogTag.Name)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tags")
	}
	defer rows.Close()

	tags := make([]*Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_tag")
		}
		tags = append(tags, t)
	}
	return tags, dberr.Wrap(rows.Err(), "list_tags")
}

func (repository *PostgresRepository) GetByID(context context.Context, id string) (*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, columns, schema.BlogTag.Table, schema.BlogTag.ID)

	t, err := scanTag(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.NotFound(err, "get_tag_by_id", "Tag")
	}
	return t, nil
}

func (repository *PostgresRepository) GetBySlug(context context.Context, slug string) (*Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, columns, schema.BlogTag.Table, schema.BlogTag.Slug)

	t, err := scanTag(repository.db.QueryRow(context, query, slug))
	if err != nil {
		return nil, dberr.NotFound(err, "get_tag_by_slug", "Tag")
	}
	return t, nil
}

func (repository *PostgresRepository) Create(context context.Context, tag *Tag) error {
	tag.CreatedAt = time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4)`, schema.BlogTag.Table, columns)

	_, err := repository.db.Exec(context, query, tag.ID, tag.Name, tag.Slug, tag.CreatedAt)
	if dberr.IsUniqueViolation(err, "") {
		return apperr.Conflict("A tag with this name already exists").WithCause(err)
	}
	return dberr.Wrap(err, "create_tag")
}

func (repository *PostgresRepository) Rename(context context.Context, id, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`, schema.BlogTag.Table, schema.BlogTag.Name, schema.BlogTag.ID)

	result, err := repository.db.Exec(context, query, id, name)
	if err != nil {
		return dberr.Wrap(err, "rename_tag")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Tag")
	}
	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BlogTag.Table, schema.BlogTag.ID)

	result, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_tag")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Tag")
	}
	return nil
}
