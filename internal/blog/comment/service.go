// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pagination"
	"github.com/taibuivan/quill/pkg/uuid"
)

type Service struct {
	repo   Repository
	posts  PostResolver
	logger *slog.Logger
}

func NewService(repo Repository, posts PostResolver, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		posts:  posts,
		logger: logger,
	}
}

// List returns the discussion of a post. Moderators also see hidden comments.
func (service *Service) List(context context.Context, principal *sec.Principal, postRef string, page pagination.Params) ([]*Comment, int, error) {
	post, err := service.posts.Visible(context, principal, postRef)
	if err != nil {
		return nil, 0, err
	}

	comments, total, err := service.repo.ListByPost(context, post.ID, principal.Can(sec.RoleModerator), page)
	if err != nil {
		return nil, 0, fmt.Errorf("comment_service_list_failed: %w", err)
	}
	return comments, total, nil
}

// Create adds a comment by the caller. Only published posts accept comments.
func (service *Service) Create(context context.Context, principal *sec.Principal, postRef, body string) (*Comment, error) {
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	post, err := service.posts.Visible(context, principal, postRef)
	if err != nil {
		return nil, err
	}
	if !post.Published() {
		return nil, apperr.Unprocessable("Comments open once the post is published")
	}

	body = strings.TrimSpace(body)
	validator := &validate.Validator{}
	validator.Required(FieldBody, body).MaxLen(FieldBody, body, maxBodyLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:       uuid.New(),
		PostID:   post.ID,
		AuthorID: principal.UserID,
		Body:     body,
		Status:   StatusVisible,
	}
	if err := service.repo.Create(context, comment); err != nil {
		return nil, fmt.Errorf("comment_service_create_failed: %w", err)
	}

	service.logger.InfoContext(context, "comment_created",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", post.ID),
	)
	return comment, nil
}

// Delete removes a comment. Only its author or a moderator may do so.
func (service *Service) Delete(context context.Context, principal *sec.Principal, id string) error {
	comment, err := service.find(context, id)
	if err != nil {
		return err
	}

	if !principal.Owns(comment.AuthorID) {
		return apperr.Forbidden("You can only delete your own comments")
	}

	if err := service.repo.Delete(context, comment.ID); err != nil {
		return fmt.Errorf("comment_service_delete_failed: %w", err)
	}

	service.logger.InfoContext(context, "comment_deleted",
		slog.String("comment_id", comment.ID),
		slog.String("actor_id", principal.UserID),
	)
	return nil
}

// Moderate hides or restores a comment.
func (service *Service) Moderate(context context.Context, principal *sec.Principal, id string, status Status) (*Comment, error) {
	if !principal.Can(sec.RoleModerator) {
		return nil, apperr.Forbidden("Insufficient permissions")
	}
	if !status.Valid() {
		return nil, validate.RequiredError(FieldStatus, "Must be one of: visible, hidden")
	}

	if _, err := service.find(context, id); err != nil {
		return nil, err
	}

	comment, err := service.repo.SetStatus(context, id, status)
	if err != nil {
		return nil, fmt.Errorf("comment_service_moderate_failed: %w", err)
	}

	service.logger.WarnContext(context, "comment_moderated",
		slog.String("comment_id", comment.ID),
		slog.String("status", string(status)),
		slog.String("actor_id", principal.UserID),
	)
	return comment, nil
}

func (service *Service) find(context context.Context, id string) (*Comment, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound("Comment")
	}
	return service.repo.FindByID(context, id)
}
