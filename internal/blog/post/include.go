// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"strings"

	"github.com/taibuivan/quill/pkg/query"
)

// Relation names accepted by the include query parameter.
const (
	IncludeAuthor   = "author"
	IncludeCategory = "category"
	IncludeTags     = "tags"
	IncludeComments = "comments"
)

// Include selects which relations are attached to a post.
type Include struct {
	Author   bool
	Category bool
	Tags     bool
	Comments bool
}

/*
ParseInclude reads a comma-separated relation list such as "author,tags".

Names are case-insensitive, duplicates collapse, and unknown names are
ignored so older clients keep working when relations are renamed.
*/
func ParseInclude(raw string) Include {
	var include Include
	for _, name := range query.Lowered(raw) {
		switch name {
		case IncludeAuthor:
			include.Author = true
		case IncludeCategory:
			include.Category = true
		case IncludeTags:
			include.Tags = true
		case IncludeComments:
			include.Comments = true
		}
	}
	return include
}

// IncludeAll requests every relation.
func IncludeAll() Include {
	return Include{Author: true, Category: true, Tags: true, Comments: true}
}

// Empty reports whether no relation is requested.
func (include Include) Empty() bool {
	return include == Include{}
}

// String renders the canonical form, in a fixed order.
func (include Include) String() string {
	names := make([]string, 0, 4)
	if include.Author {
		names = append(names, IncludeAuthor)
	}
	if include.Category {
		names = append(names, IncludeCategory)
	}
	if include.Tags {
		names = append(names, IncludeTags)
	}
	if include.Comments {
		names = append(names, IncludeComments)
	}
	return strings.Join(names, ",")
}
