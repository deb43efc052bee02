// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import "context"

type Repository interface {
	List(context context.Context) ([]*Tag, error)
	GetByID(context context.Context, id string) (*Tag, error)
	GetBySlug(context context.Context, slug string) (*Tag, error)
	Create(context context.Context, tag *Tag) error
	Rename(context context.Context, id, name string) error
	Delete(context context.Context, id string) error
}
