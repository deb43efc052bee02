// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package category

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pointer"
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

type CreateInput struct {
	Name        string
	Slug        string
	Description string
}

type UpdateInput struct {
	Name        *string
	Description *string
}

func (service *Service) List(context context.Context) ([]*Category, error) {
	return service.repo.List(context)
}

// Get resolves a category by id or slug.
func (service *Service) Get(context context.Context, ref string) (*Category, error) {
	if uuid.Valid(ref) {
		return service.repo.GetByID(context, ref)
	}
	return service.repo.GetBySlug(context, ref)
}

// Create derives the slug from the name unless one is given explicitly.
func (service *Service) Create(context context.Context, input CreateInput) (*Category, error) {
	name := strings.TrimSpace(input.Name)
	categorySlug := input.Slug
	if categorySlug == "" {
		categorySlug = slug.From(name)
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, 80).
		Required(FieldSlug, categorySlug).Slug(FieldSlug, categorySlug).
		MaxLen(FieldDescription, input.Description, 500)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	category := &Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        categorySlug,
		Description: input.Description,
	}
	if err := service.repo.Create(context, category); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "category_created", slog.String("slug", category.Slug))
	return category, nil
}

// Update never changes the slug, so published links keep working.
func (service *Service) Update(context context.Context, ref string, input UpdateInput) (*Category, error) {
	category, err := service.Get(context, ref)
	if err != nil {
		return nil, err
	}

	pointer.Apply(&category.Name, input.Name)
	pointer.Apply(&category.Description, input.Description)
	category.Name = strings.TrimSpace(category.Name)

	validator := &validate.Validator{}
	validator.Required(FieldName, category.Name).MaxLen(FieldName, category.Name, 80).
		MaxLen(FieldDescription, category.Description, 500)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.Update(context, category); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "category_updated", slog.String("category_id", category.ID))
	return category, nil
}

// Delete detaches posts from the category rather than deleting them.
func (service *Service) Delete(context context.Context, ref string) error {
	category, err := service.Get(context, ref)
	if err != nil {
		return err
	}

	if err := service.repo.Delete(context, category.ID); err != nil {
		return err
	}

	service.logger.WarnContext(context, "category_deleted", slog.String("category_id", category.ID))
	return nil
}
