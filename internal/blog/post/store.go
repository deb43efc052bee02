// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"errors"

	"github.com/taibuivan/quill/internal/blog/category"
	"github.com/taibuivan/quill/internal/blog/tag"
	"github.com/taibuivan/quill/pkg/pagination"
)

// ErrSlugTaken is returned by [Repository.Create] when the slug is already used.
var ErrSlugTaken = errors.New("post: slug already taken")

// Repository persists posts and their tag links.
type Repository interface {
	List(context context.Context, filter Filter, page pagination.Params) ([]*Post, int, error)
	FindByID(context context.Context, id string) (*Post, error)
	FindBySlug(context context.Context, slug string) (*Post, error)

	// Create inserts the post and links tagIDs in one transaction.
	Create(context context.Context, post *Post, tagIDs []string) error
	// Update saves the post. A non-nil tagIDs replaces the tag links.
	Update(context context.Context, post *Post, tagIDs []string) error
	Delete(context context.Context, id string) error
}

// RelationLoader batch-loads the relations selected by an [Include].
// Every method takes the ids of many posts and returns maps keyed by id.
type RelationLoader interface {
	Authors(context context.Context, authorIDs []string) (map[string]*Author, error)
	Categories(context context.Context, categoryIDs []string) (map[string]*category.Category, error)
	Tags(context context.Context, postIDs []string) (map[string][]*tag.Tag, error)
	Comments(context context.Context, postIDs []string) (map[string][]*Comment, error)
}
