// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/blog/post"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
)

const authorID = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6b"

func TestParseFilter_Visibility(t *testing.T) {
	member := &sec.Principal{UserID: "0190a3c4-0000-7000-8000-000000000001", Role: sec.RoleMember}
	author := &sec.Principal{UserID: authorID, Role: sec.RoleAuthor}
	moderator := &sec.Principal{UserID: "0190a3c4-0000-7000-8000-000000000003", Role: sec.RoleModerator}

	tests := []struct {
		name          string
		query         string
		principal     *sec.Principal
		publishedOnly bool
		authorID      string
	}{
		{"anonymous", "", nil, true, ""},
		{"member", "", member, true, ""},
		{"moderator", "", moderator, false, ""},
		{"author_me", "author=me", author, false, authorID},
		{"author_me_uppercase", "author=ME", author, false, authorID},
		{"author_by_id_self", "author=" + authorID, author, false, authorID},
		{"author_by_id_other", "author=" + authorID, member, true, authorID},
		{"moderator_other_author", "author=" + authorID, moderator, false, authorID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			filter, err := post.ParseFilter(values, tt.principal)
			require.NoError(t, err)
			assert.Equal(t, tt.publishedOnly, filter.PublishedOnly)
			assert.Equal(t, tt.authorID, filter.AuthorID)
		})
	}
}

func TestParseFilter_Rejects(t *testing.T) {
	_, err := post.ParseFilter(url.Values{"author": {"me"}}, nil)
	assert.True(t, apperr.HasStatus(err, http.StatusUnauthorized))

	_, err = post.ParseFilter(url.Values{"author": {"bob"}}, nil)
	assert.True(t, apperr.HasStatus(err, http.StatusBadRequest))

	_, err = post.ParseFilter(url.Values{"status": {"archived"}}, nil)
	assert.True(t, apperr.HasStatus(err, http.StatusBadRequest))
}

func TestFilter_Where(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		clause, args := post.Filter{}.Where("p", 1)
		assert.Empty(t, clause)
		assert.Empty(t, args)
	})

	t.Run("all_conditions", func(t *testing.T) {
		filter := post.Filter{
			PublishedOnly: true,
			Status:        post.StatusPublished,
			AuthorID:      authorID,
			Query:         "50%_off",
			CategorySlug:  "golang",
			TagSlug:       "concurrency",
		}

		clause, args := filter.Where("p", 3)

		assert.Equal(t,
			"WHERE p.status = $3 AND p.status = $4 AND p.author_id = $5"+
				" AND (p.title ILIKE $6 OR p.body ILIKE $6)"+
				" AND EXISTS (SELECT 1 FROM blog.category c WHERE c.id = p.category_id AND c.slug = $7)"+
				" AND EXISTS (SELECT 1 FROM blog.post_tag pt JOIN blog.tag t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND t.slug = $8)",
			clause)
		assert.Equal(t, []any{"published", "published", authorID, `%50\%\_off%`, "golang", "concurrency"}, args)
	})

	t.Run("values_never_inlined", func(t *testing.T) {
		clause, args := post.Filter{Query: "'; DROP TABLE blog.post; --"}.Where("p", 1)
		assert.NotContains(t, clause, "DROP")
		assert.Len(t, args, 1)
	})
}
