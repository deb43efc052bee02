// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/quill/internal/blog/post"
)

func TestParseInclude(t *testing.T) {
	tests := []struct {
		raw  string
		want post.Include
	}{
		{"", post.Include{}},
		{"author", post.Include{Author: true}},
		{"Author, TAGS", post.Include{Author: true, Tags: true}},
		{"tags,tags,,tags", post.Include{Tags: true}},
		{"comments,unknown,category", post.Include{Comments: true, Category: true}},
		{"author,category,tags,comments", post.IncludeAll()},
		{"password,body", post.Include{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, post.ParseInclude(tt.raw))
		})
	}
}

func TestInclude_String(t *testing.T) {
	assert.Equal(t, "", post.Include{}.String())
	assert.True(t, post.Include{}.Empty())
	assert.Equal(t, "author,tags", post.ParseInclude("tags, author").String())
	assert.Equal(t, "author,category,tags,comments", post.IncludeAll().String())
}
