// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package post is the core of the blog: articles, their lifecycle, and how they
are listed and read.

# Visibility

  - Published posts are public.
  - Drafts are visible to their author and to moderators. Everyone else gets
    404, so draft slugs do not leak.

# Relations

Posts are stored flat. Author, category, tags and comments are loaded on
demand through the include list ("?include=author,tags") and attached after
the main query.
*/
package post

import (
	"time"

	"github.com/taibuivan/quill/internal/blog/category"
	"github.com/taibuivan/quill/internal/blog/tag"
)

// # Domain Enums

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// # Entities

// Post is a blog article.
type Post struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"authorId"`
	CategoryID  *string    `json:"categoryId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	Status      Status     `json:"status"`
	CoverKey    *string    `json:"-"`
	CoverURL    string     `json:"coverUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Relations, present only when requested through [Include].
	Author   *Author            `json:"author,omitempty"`
	Category *category.Category `json:"category,omitempty"`
	Tags     []*tag.Tag         `json:"tags,omitempty"`
	Comments []*Comment         `json:"comments,omitempty"`
}

// Published reports whether the post is publicly visible.
func (post *Post) Published() bool {
	return post.Status == StatusPublished
}

// Author is the public projection of a user account.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Comment is the embedded projection of a visible comment.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// # Field Names

const (
	FieldTitle      = "title"
	FieldBody       = "body"
	FieldExcerpt    = "excerpt"
	FieldStatus     = "status"
	FieldCategoryID = "categoryId"
	FieldTagIDs     = "tagIds"
	FieldAuthor     = "author"
	FieldFile       = "file"
)

const (
	maxTitleLength   = 200
	maxExcerptLength = 500
	maxBodyLength    = 100_000
	maxTags          = 10
)
