// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package category

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

var columns = strings.Join(schema.BlogCategory.Columns(), ", ")

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (repository *PostgresRepository) List(context context.Context) ([]*Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		columns, schema.BlogCategory.Table, schema.BlogCategory.Name)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_categories")
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_category")
		}
		categories = append(categories, c)
	}
	return categories, dberr.Wrap(rows.Err(), "list_categories")
}

func (repository *PostgresRepository) GetByID(context context.Context, id string) (*Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		columns, schema.BlogCategory.Table, schema.BlogCategory.ID)

	c, err := scanCategory(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.NotFound(err, "get_category_by_id", "Category")
	}
	return c, nil
}

func (repository *PostgresRepository) GetBySlug(context context.Context, slug string) (*Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		columns, schema.BlogCategory.Table, schema.BlogCategory.Slug)

	c, err := scanCategory(repository.db.QueryRow(context, query, slug))
	if err != nil {
		return nil, dberr.NotFound(err, "get_category_by_slug", "Category")
	}
	return c, nil
}

func (repository *PostgresRepository) Create(context context.Context, category *Category) error {
	now := time.Now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6)`,
		schema.BlogCategory.Table, columns)

	_, err := repository.db.Exec(context, query,
		category.ID, category.Name, category.Slug, category.Description, category.CreatedAt, category.UpdatedAt)
	if dberr.IsUniqueViolation(err, "") {
		return apperr.Conflict("A category with this slug already exists").WithCause(err)
	}
	return dberr.Wrap(err, "create_category")
}

func (repository *PostgresRepository) Update(context context.Context, category *Category) error {
	category.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, %s = $4 WHERE %s = $1`,
		schema.BlogCategory.Table,
		schema.BlogCategory.Name, schema.BlogCategory.Description, schema.BlogCategory.UpdatedAt,
		schema.BlogCategory.ID)

	tag, err := repository.db.Exec(context, query, category.ID, category.Name, category.Description, category.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "update_category")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Category")
	}
	return nil
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BlogCategory.Table, schema.BlogCategory.ID)

	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_category")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Category")
	}
	return nil
}
