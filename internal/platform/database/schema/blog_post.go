// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// BlogPostTable represents the 'blog.post' table
type BlogPostTable struct {
	Table       string
	ID          string
	AuthorID    string
	CategoryID  string
	Title       string
	Slug        string
	Excerpt     string
	Body        string
	Status      string
	CoverKey    string
	PublishedAt string
	CreatedAt   string
	UpdatedAt   string
}

// BlogPost is the schema definition for blog.post
var BlogPost = BlogPostTable{
	Table:       "blog.post",
	ID:          "id",
	AuthorID:    "author_id",
	CategoryID:  "category_id",
	Title:       "title",
	Slug:        "slug",
	Excerpt:     "excerpt",
	Body:        "body",
	Status:      "status",
	CoverKey:    "cover_key",
	PublishedAt: "published_at",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

// Columns returns every column in scan order.
func (t BlogPostTable) Columns() []string {
	return []string{
		t.ID, t.AuthorID, t.CategoryID, t.Title, t.Slug, t.Excerpt, t.Body,
		t.Status, t.CoverKey, t.PublishedAt, t.CreatedAt, t.UpdatedAt,
	}
}

// BlogPostSlugKey is the unique constraint on post slugs.
const BlogPostSlugKey = "post_slug_key"

// BlogPostTagTable represents the 'blog.post_tag' join table
type BlogPostTagTable struct {
	Table  string
	PostID string
	TagID  string
}

// BlogPostTag is the schema definition for blog.post_tag
var BlogPostTag = BlogPostTagTable{
	Table:  "blog.post_tag",
	PostID: "post_id",
	TagID:  "tag_id",
}
