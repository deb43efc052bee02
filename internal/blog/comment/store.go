// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"

	"github.com/taibuivan/quill/internal/blog/post"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
)

type Repository interface {
	// ListByPost returns comments oldest first. Hidden ones only with includeHidden.
	ListByPost(context context.Context, postID string, includeHidden bool, page pagination.Params) ([]*Comment, int, error)
	FindByID(context context.Context, id string) (*Comment, error)
	Create(context context.Context, comment *Comment) error
	SetStatus(context context.Context, id string, status Status) (*Comment, error)
	Delete(context context.Context, id string) error
}

// PostResolver finds a post the caller may read. [post.Service] implements it.
type PostResolver interface {
	Visible(context context.Context, principal *sec.Principal, ref string) (*post.Post, error)
}
