// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import "time"

// Tag is a free-form label. A post carries any number of tags.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	FieldName = "name"
	FieldSlug = "slug"

	maxNameLength = 40
)
