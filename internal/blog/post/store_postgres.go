// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/quill/internal/blog/category"
	"github.com/taibuivan/quill/internal/blog/tag"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/pkg/pagination"
)

// # PostgreSQL Repository

// PostgresRepository implements [Repository] and [RelationLoader] with pgx.
type PostgresRepository struct {
	db postgres.DBTX
}

// NewPostgresRepository constructs a PostgreSQL backed post store.
func NewPostgresRepository(db postgres.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// selectColumns lists every post column prefixed with alias, in scan order.
func selectColumns(alias string) string {
	columns := schema.BlogPost.Columns()
	for i, column := range columns {
		columns[i] = alias + "." + column
	}
	return strings.Join(columns, ", ")
}

func scanPost(row pgx.Row, extra ...any) (*Post, error) {
	post := &Post{}
	targets := append([]any{
		&post.ID, &post.AuthorID, &post.CategoryID, &post.Title, &post.Slug, &post.Excerpt, &post.Body,
		&post.Status, &post.CoverKey, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt,
	}, extra...)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return post, nil
}

/*
List returns one page of posts matching filter, newest first, and the total
match count.

The count comes from a COUNT(*) OVER() window on the same query. A page past
the end has no rows to carry it, so the total is then counted separately.
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter, page pagination.Params) ([]*Post, int, error) {
	where, args := filter.Where("p", 1)

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s p
		%s
		ORDER BY COALESCE(p.%s, p.%s) DESC, p.%s DESC
		LIMIT $%d OFFSET $%d`,
		selectColumns("p"),
		schema.BlogPost.Table,
		where,
		schema.BlogPost.PublishedAt, schema.BlogPost.CreatedAt, schema.BlogPost.ID,
		len(args)+1, len(args)+2,
	)

	rows, err := repository.db.Query(context, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_posts")
	}
	defer rows.Close()

	posts := make([]*Post, 0, page.Limit)
	var total int
	for rows.Next() {
		post, err := scanPost(rows, &total)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_post")
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_posts")
	}

	if len(posts) == 0 && page.Offset() > 0 {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s p %s`, schema.BlogPost.Table, where)
		if err := repository.db.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, dberr.Wrap(err, "count_posts")
		}
	}

	return posts, total, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Post, error) {
	return repository.findOne(context, "find_post_by_id", schema.BlogPost.ID, id)
}

func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*Post, error) {
	return repository.findOne(context, "find_post_by_slug", schema.BlogPost.Slug, slug)
}

func (repository *PostgresRepository) findOne(context context.Context, action, column, value string) (*Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s p WHERE p.%s = $1`, selectColumns("p"), schema.BlogPost.Table, column)

	post, err := scanPost(repository.db.QueryRow(context, query, value))
	if err != nil {
		return nil, dberr.NotFound(err, action, "Post")
	}
	return post, nil
}

// Create inserts the post and its tag links atomically.
func (repository *PostgresRepository) Create(context context.Context, post *Post, tagIDs []string) error {
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		schema.BlogPost.Table, strings.Join(schema.BlogPost.Columns(), ", "))

	return postgres.InTx(context, repository.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(context, query,
			post.ID, post.AuthorID, post.CategoryID, post.Title, post.Slug, post.Excerpt, post.Body,
			post.Status, post.CoverKey, post.PublishedAt, post.CreatedAt, post.UpdatedAt,
		)
		if dberr.IsUniqueViolation(err, schema.BlogPostSlugKey) {
			return ErrSlugTaken
		}
		if err != nil {
			return dberr.Wrap(err, "create_post")
		}

		return linkTags(context, tx, post.ID, tagIDs)
	})
}

func (repository *PostgresRepository) Update(context context.Context, post *Post, tagIDs []string) error {
	post.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $1`,
		schema.BlogPost.Table,
		schema.BlogPost.CategoryID,
		schema.BlogPost.Title,
		schema.BlogPost.Excerpt,
		schema.BlogPost.Body,
		schema.BlogPost.Status,
		schema.BlogPost.CoverKey,
		schema.BlogPost.PublishedAt,
		schema.BlogPost.UpdatedAt,
		schema.BlogPost.ID,
	)

	return postgres.InTx(context, repository.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(context, query,
			post.ID, post.CategoryID, post.Title, post.Excerpt, post.Body,
			post.Status, post.CoverKey, post.PublishedAt, post.UpdatedAt,
		)
		if err != nil {
			return dberr.Wrap(err, "update_post")
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound("Post")
		}

		if tagIDs == nil {
			return nil
		}

		unlink := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BlogPostTag.Table, schema.BlogPostTag.PostID)
		if _, err := tx.Exec(context, unlink, post.ID); err != nil {
			return dberr.Wrap(err, "unlink_post_tags")
		}
		return linkTags(context, tx, post.ID, tagIDs)
	})
}

func linkTags(context context.Context, tx pgx.Tx, postID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s, %s) SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`,
		schema.BlogPostTag.Table, schema.BlogPostTag.PostID, schema.BlogPostTag.TagID)

	_, err := tx.Exec(context, query, postID, tagIDs)
	return dberr.Wrap(err, "link_post_tags")
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.BlogPost.Table, schema.BlogPost.ID)

	result, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_post")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Post")
	}
	return nil
}

// # Relation Loading

func (repository *PostgresRepository) Authors(context context.Context, authorIDs []string) (map[string]*Author, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = ANY($1::uuid[])`,
		schema.UserAccount.ID, schema.UserAccount.Username, schema.UserAccount.DisplayName,
		schema.UserAccount.Table, schema.UserAccount.ID)

	rows, err := repository.db.Query(context, query, authorIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "load_post_authors")
	}
	defer rows.Close()

	authors := make(map[string]*Author, len(authorIDs))
	for rows.Next() {
		author := &Author{}
		if err := rows.Scan(&author.ID, &author.Username, &author.DisplayName); err != nil {
			return nil, dberr.Wrap(err, "scan_post_author")
		}
		authors[author.ID] = author
	}
	return authors, dberr.Wrap(rows.Err(), "load_post_authors")
}

func (repository *PostgresRepository) Categories(context context.Context, categoryIDs []string) (map[string]*category.Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ANY($1::uuid[])`,
		strings.Join(schema.BlogCategory.Columns(), ", "), schema.BlogCategory.Table, schema.BlogCategory.ID)

	rows, err := repository.db.Query(context, query, categoryIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "load_post_categories")
	}
	defer rows.Close()

	categories := make(map[string]*category.Category, len(categoryIDs))
	for rows.Next() {
		c := &category.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_post_category")
		}
		categories[c.ID] = c
	}
	return categories, dberr.Wrap(rows.Err(), "load_post_categories")
}

func (repository *PostgresRepository) Tags(context context.Context, postIDs []string) (map[string][]*tag.Tag, error) {
	query := fmt.Sprintf(`
		SELECT pt.%s, t.%s, t.%s, t.%s, t.%s
		FROM %s pt
		JOIN %s t ON t.%s = pt.%s
		WHERE pt.%s = ANY($1::uuid[])
		ORDER BY t.%s`,
		schema.BlogPostTag.PostID, schema.BlogTag.ID, schema.BlogTag.Name, schema.BlogTag.Slug, schema.BlogTag.CreatedAt,
		schema.BlogPostTag.Table,
		schema.BlogTag.Table, schema.BlogTag.ID, schema.BlogPostTag.TagID,
		schema.BlogPostTag.PostID,
		schema.BlogTag.Name,
	)

	rows, err := repository.db.Query(context, query, postIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "load_post_tags")
	}
	defer rows.Close()

	tags := make(map[string][]*tag.Tag, len(postIDs))
	for rows.Next() {
		var postID string
		t := &tag.Tag{}
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_post_tag")
		}
		tags[postID] = append(tags[postID], t)
	}
	return tags, dberr.Wrap(rows.Err(), "load_post_tags")
}

// Comments loads visible comments only, oldest first.
func (repository *PostgresRepository) Comments(context context.Context, postIDs []string) (map[string][]*Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ANY($1::uuid[]) AND %s = 'visible'
		ORDER BY %s ASC`,
		schema.BlogComment.PostID, schema.BlogComment.ID, schema.BlogComment.AuthorID, schema.BlogComment.Body, schema.BlogComment.CreatedAt,
		schema.BlogComment.Table,
		schema.BlogComment.PostID, schema.BlogComment.Status,
		schema.BlogComment.CreatedAt,
	)

	rows, err := repository.db.Query(context, query, postIDs)
	if err != nil {
		return nil, dberr.Wrap(err, "load_post_comments")
	}
	defer rows.Close()

	comments := make(map[string][]*Comment, len(postIDs))
	for rows.Next() {
		var postID string
		c := &Comment{}
		if err := rows.Scan(&postID, &c.ID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_post_comment")
		}
		comments[postID] = append(comments[postID], c)
	}
	return comments, dberr.Wrap(rows.Err(), "load_post_comments")
}
