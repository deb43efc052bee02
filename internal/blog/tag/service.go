// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/slug"
	"github.com/taibuivan/quill/pkg/uuid"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (service *Service) ListTags(context context.Context) ([]*Tag, error) {
	return service.repo.List(context)
}

// GetTag resolves a tag by id or slug.
func (service *Service) GetTag(context context.Context, ref string) (*Tag, error) {
	if uuid.Valid(ref) {
		return service.repo.GetByID(context, ref)
	}
	return service.repo.GetBySlug(context, ref)
}

func (service *Service) CreateTag(context context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	tagSlug := slug.From(name)

	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, maxNameLength).
		Custom(FieldSlug, name != "" && tagSlug == "", "Name must contain at least one letter or digit")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	tag := &Tag{ID: uuid.New(), Name: name, Slug: tagSlug}
	if err := service.repo.Create(context, tag); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "tag_created", slog.String("slug", tag.Slug))
	return tag, nil
}

func (service *Service) RenameTag(context context.Context, ref, name string) (*Tag, error) {
	tag, err := service.GetTag(context, ref)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, maxNameLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.Rename(context, tag.ID, name); err != nil {
		return nil, err
	}
	tag.Name = name
	return tag, nil
}

func (service *Service) DeleteTag(context context.Context, ref string) error {
	tag, err := service.GetTag(context, ref)
	if err != nil {
		return err
	}

	if err := service.repo.Delete(context, tag.ID); err != nil {
		return err
	}

	service.logger.WarnContext(context, "tag_deleted", slog.String("tag_id", tag.ID))
	return nil
}
