// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package category manages the single-level taxonomy a post can be filed under.
package category

import "time"

// Category groups posts under one heading.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	FieldName        = "name"
	FieldSlug        = "slug"
	FieldDescription = "description"
)
