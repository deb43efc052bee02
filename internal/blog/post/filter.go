// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/uuid"
)

// AuthorSelf is the author filter value that means "the caller".
const AuthorSelf = "me"

// Filter narrows a post listing. The zero value matches every post.
type Filter struct {
	Query        string
	Status       Status
	CategorySlug string
	TagSlug      string
	AuthorID     string

	// PublishedOnly is the visibility rule, applied on top of Status.
	PublishedOnly bool
}

/*
ParseFilter turns list query parameters into a [Filter] for the caller.

Recognised keys: q, status, category (slug), tag (slug) and author (user id
or "me").

Visibility:
  - Moderators see every post.
  - "author=me" shows the caller's own posts in any status.
  - Everyone else only sees published posts.

Returns:
  - Filter: ready for [Filter.Where]
  - error: 400 on a malformed value, 401 for "author=me" without a session
*/
func ParseFilter(values url.Values, principal *sec.Principal) (Filter, error) {
	filter := Filter{
		Query:        strings.TrimSpace(values.Get("q")),
		Status:       Status(strings.ToLower(strings.TrimSpace(values.Get("status")))),
		CategorySlug: strings.TrimSpace(values.Get("category")),
		TagSlug:      strings.TrimSpace(values.Get("tag")),
	}

	validator := &validate.Validator{}
	if filter.Status != "" {
		validator.OneOf(FieldStatus, string(filter.Status), string(StatusDraft), string(StatusPublished))
	}

	author := strings.TrimSpace(values.Get("author"))
	switch {
	case author == "":
	case strings.EqualFold(author, AuthorSelf):
		if principal == nil {
			return Filter{}, apperr.Unauthorized("Authentication required")
		}
		filter.AuthorID = principal.UserID
	default:
		validator.Custom(FieldAuthor, !uuid.Valid(author), "Must be a user id or \"me\"")
		filter.AuthorID = author
	}

	if err := validator.Err(); err != nil {
		return Filter{}, err
	}

	ownPosts := principal != nil && filter.AuthorID == principal.UserID
	filter.PublishedOnly = !principal.Can(sec.RoleModerator) && !ownPosts

	return filter, nil
}

/*
Where renders the filter as a SQL condition over the post table aliased as
alias. Placeholders are numbered from firstArg.

Returns:
  - string: "WHERE ..." or "" when the filter is empty
  - []any: the positional arguments, in placeholder order
*/
func (filter Filter) Where(alias string, firstArg int) (string, []any) {
	var conditions []string
	var args []any

	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", firstArg+len(args)-1)
	}
	column := func(name string) string {
		return alias + "." + name
	}

	if filter.PublishedOnly {
		conditions = append(conditions, fmt.Sprintf("%s = %s", column(schema.BlogPost.Status), next(string(StatusPublished))))
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("%s = %s", column(schema.BlogPost.Status), next(string(filter.Status))))
	}

	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("%s = %s", column(schema.BlogPost.AuthorID), next(filter.AuthorID)))
	}

	if filter.Query != "" {
		placeholder := next("%" + escapeLike(filter.Query) + "%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE %s OR %s ILIKE %s)",
			column(schema.BlogPost.Title), placeholder, column(schema.BlogPost.Body), placeholder))
	}

	if filter.CategorySlug != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s c WHERE c.%s = %s AND c.%s = %s)",
			schema.BlogCategory.Table, schema.BlogCategory.ID, column(schema.BlogPost.CategoryID),
			schema.BlogCategory.Slug, next(filter.CategorySlug),
		))
	}

	if filter.TagSlug != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s pt JOIN %s t ON t.%s = pt.%s WHERE pt.%s = %s AND t.%s = %s)",
			schema.BlogPostTag.Table, schema.BlogTag.Table, schema.BlogTag.ID, schema.BlogPostTag.TagID,
			schema.BlogPostTag.PostID, column(schema.BlogPost.ID),
			schema.BlogTag.Slug, next(filter.TagSlug),
		))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
