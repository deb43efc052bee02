// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/objectstore"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pagination"
	"github.com/taibuivan/quill/pkg/pointer"
	"github.com/taibuivan/quill/pkg/slug"
	"github.com/taibuivan/quill/pkg/uuid"
)

// slugAttempts bounds how many suffixed slugs Create tries after a collision.
const slugAttempts = 3

// Options tunes the post service.
type Options struct {
	// CoverURLTTL is the lifetime of presigned cover URLs.
	CoverURLTTL time.Duration
}

// Service implements the post use cases.
type Service struct {
	repo      Repository
	relations RelationLoader
	covers    objectstore.Store
	options   Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a new [Service].
func NewService(repo Repository, relations RelationLoader, covers objectstore.Store, options Options, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		relations: relations,
		covers:    covers,
		options:   options,
		logger:    logger,
		now:       time.Now,
	}
}

// # Reading

// List returns one page of posts visible to the caller under filter.
func (service *Service) List(context context.Context, filter Filter, include Include, page pagination.Params) ([]*Post, int, error) {
	posts, total, err := service.repo.List(context, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("post_service_list_failed: %w", err)
	}

	if err := service.hydrate(context, posts, include); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Get resolves a post by id or slug and attaches the included relations.
func (service *Service) Get(context context.Context, principal *sec.Principal, ref string, include Include) (*Post, error) {
	post, err := service.Visible(context, principal, ref)
	if err != nil {
		return nil, err
	}

	if err := service.hydrate(context, []*Post{post}, include); err != nil {
		return nil, err
	}
	return post, nil
}

// Visible resolves a post the caller is allowed to read. A draft the caller
// does not own is reported as not found.
func (service *Service) Visible(context context.Context, principal *sec.Principal, ref string) (*Post, error) {
	post, err := service.find(context, ref)
	if err != nil {
		return nil, err
	}

	if !post.Published() && !principal.Owns(post.AuthorID) {
		return nil, apperr.NotFound("Post")
	}
	return post, nil
}

func (service *Service) find(context context.Context, ref string) (*Post, error) {
	if uuid.Valid(ref) {
		return service.repo.FindByID(context, ref)
	}
	return service.repo.FindBySlug(context, ref)
}

// editable resolves a post the caller may modify: its author or a moderator.
func (service *Service) editable(context context.Context, principal *sec.Principal, ref string) (*Post, error) {
	post, err := service.Visible(context, principal, ref)
	if err != nil {
		return nil, err
	}

	if !principal.Owns(post.AuthorID) {
		return nil, apperr.Forbidden("You can only modify your own posts")
	}
	return post, nil
}

/*
hydrate attaches the relations selected by include to every post.

Each relation is one batched query, and the queries run concurrently. The
first failure cancels the rest.
*/
func (service *Service) hydrate(ctx context.Context, posts []*Post, include Include) error {
	service.attachCoverURLs(ctx, posts)

	if len(posts) == 0 || include.Empty() {
		return nil
	}

	postIDs := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	var categoryIDs []string
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
		authorIDs = append(authorIDs, post.AuthorID)
		if post.CategoryID != nil {
			categoryIDs = append(categoryIDs, *post.CategoryID)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if include.Author {
		group.Go(func() error {
			authors, err := service.relations.Authors(groupCtx, authorIDs)
			if err != nil {
				return err
			}
			for _, post := range posts {
				post.Author = authors[post.AuthorID]
			}
			return nil
		})
	}

	if include.Category && len(categoryIDs) > 0 {
		group.Go(func() error {
			categories, err := service.relations.Categories(groupCtx, categoryIDs)
			if err != nil {
				return err
			}
			for _, post := range posts {
				if post.CategoryID != nil {
					post.Category = categories[*post.CategoryID]
				}
			}
			return nil
		})
	}

	if include.Tags {
		group.Go(func() error {
			tags, err := service.relations.Tags(groupCtx, postIDs)
			if err != nil {
				return err
			}
			for _, post := range posts {
				post.Tags = tags[post.ID]
			}
			return nil
		})
	}

	if include.Comments {
		group.Go(func() error {
			comments, err := service.relations.Comments(groupCtx, postIDs)
			if err != nil {
				return err
			}
			for _, post := range posts {
				post.Comments = comments[post.ID]
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("post_service_hydrate_failed: %w", err)
	}
	return nil
}

// attachCoverURLs presigns cover links. A failure leaves the URL empty.
func (service *Service) attachCoverURLs(context context.Context, posts []*Post) {
	for _, post := range posts {
		if post.CoverKey == nil {
			continue
		}

		url, err := service.covers.PresignGet(context, *post.CoverKey, service.options.CoverURLTTL)
		if err != nil {
			if !errors.Is(err, objectstore.ErrDisabled) {
				service.logger.WarnContext(context, "cover_presign_failed",
					slog.String("post_id", post.ID), slog.Any("error", err))
			}
			continue
		}
		post.CoverURL = url
	}
}

// # Writing

// CreateInput holds the fields of a new post.
type CreateInput struct {
	Title      string
	Body       string
	Excerpt    string
	CategoryID string
	TagIDs     []string
	Status     Status
}

/*
Create stores a new post owned by the caller.

The slug is derived from the title. On a collision a random suffix is added
and the insert retried.

Returns:
  - *Post: the stored post
  - error: 400 on invalid input, 422 when a category or tag does not exist
*/
func (service *Service) Create(context context.Context, principal *sec.Principal, input CreateInput) (*Post, error) {
	if !principal.Can(sec.RoleAuthor) {
		return nil, apperr.Forbidden("Only authors can write posts")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Excerpt = strings.TrimSpace(input.Excerpt)
	if input.Status == "" {
		input.Status = StatusDraft
	}
	tagIDs := dedupe(input.TagIDs)

	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, maxTitleLength).
		Required(FieldBody, input.Body).MaxLen(FieldBody, input.Body, maxBodyLength).
		MaxLen(FieldExcerpt, input.Excerpt, maxExcerptLength).
		Custom(FieldStatus, !input.Status.Valid(), "Must be one of: draft, published")
	validateReferences(validator, input.CategoryID, tagIDs)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	post := &Post{
		ID:       uuid.New(),
		AuthorID: principal.UserID,
		Title:    input.Title,
		Excerpt:  input.Excerpt,
		Body:     input.Body,
		Status:   input.Status,
	}
	if input.CategoryID != "" {
		post.CategoryID = pointer.To(input.CategoryID)
	}
	if post.Published() {
		post.PublishedAt = pointer.To(service.now().UTC())
	}

	base := slug.From(post.Title)
	if base == "" {
		base = "post"
	}
	post.Slug = base

	for attempt := 0; ; attempt++ {
		err := service.repo.Create(context, post, tagIDs)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugTaken) {
			return nil, fmt.Errorf("post_service_create_failed: %w", err)
		}
		if attempt == slugAttempts {
			return nil, apperr.Conflict("Could not allocate a unique slug")
		}
		post.Slug = slug.WithSuffix(base)
	}

	service.logger.InfoContext(context, "post_created",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("status", string(post.Status)),
	)
	return post, nil
}

// UpdateInput is a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Title   *string
	Body    *string
	Excerpt *string
	// CategoryID set to "" detaches the post from its category.
	CategoryID *string
	TagIDs     *[]string
}

// Update edits a post. The slug never changes, so shared links stay valid.
func (service *Service) Update(context context.Context, principal *sec.Principal, ref string, input UpdateInput) (*Post, error) {
	post, err := service.editable(context, principal, ref)
	if err != nil {
		return nil, err
	}

	pointer.Apply(&post.Title, input.Title)
	pointer.Apply(&post.Body, input.Body)
	pointer.Apply(&post.Excerpt, input.Excerpt)
	post.Title = strings.TrimSpace(post.Title)
	post.Excerpt = strings.TrimSpace(post.Excerpt)

	if input.CategoryID != nil {
		post.CategoryID = nil
		if *input.CategoryID != "" {
			post.CategoryID = pointer.To(*input.CategoryID)
		}
	}

	var tagIDs []string
	if input.TagIDs != nil {
		tagIDs = dedupe(*input.TagIDs)
		if tagIDs == nil {
			tagIDs = []string{}
		}
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, post.Title).MaxLen(FieldTitle, post.Title, maxTitleLength).
		Required(FieldBody, post.Body).MaxLen(FieldBody, post.Body, maxBodyLength).
		MaxLen(FieldExcerpt, post.Excerpt, maxExcerptLength)
	validateReferences(validator, pointer.Val(post.CategoryID), tagIDs)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.Update(context, post, tagIDs); err != nil {
		return nil, fmt.Errorf("post_service_update_failed: %w", err)
	}

	service.logger.InfoContext(context, "post_updated", slog.String("post_id", post.ID))
	service.attachCoverURLs(context, []*Post{post})
	return post, nil
}

// Delete removes a post with its comments, tag links and cover image.
func (service *Service) Delete(context context.Context, principal *sec.Principal, ref string) error {
	post, err := service.editable(context, principal, ref)
	if err != nil {
		return err
	}

	if err := service.repo.Delete(context, post.ID); err != nil {
		return fmt.Errorf("post_service_delete_failed: %w", err)
	}

	if post.CoverKey != nil {
		service.removeCover(context, *post.CoverKey)
	}

	service.logger.WarnContext(context, "post_deleted",
		slog.String("post_id", post.ID),
		slog.String("actor_id", principal.UserID),
	)
	return nil
}

// Publish makes a draft public. Publishing a published post is a no-op.
func (service *Service) Publish(context context.Context, principal *sec.Principal, ref string) (*Post, error) {
	return service.transition(context, principal, ref, StatusPublished)
}

// Unpublish returns a post to draft.
func (service *Service) Unpublish(context context.Context, principal *sec.Principal, ref string) (*Post, error) {
	return service.transition(context, principal, ref, StatusDraft)
}

func (service *Service) transition(context context.Context, principal *sec.Principal, ref string, target Status) (*Post, error) {
	post, err := service.editable(context, principal, ref)
	if err != nil {
		return nil, err
	}

	if post.Status != target {
		post.Status = target
		post.PublishedAt = nil
		if target == StatusPublished {
			post.PublishedAt = pointer.To(service.now().UTC())
		}

		if err := service.repo.Update(context, post, nil); err != nil {
			return nil, fmt.Errorf("post_service_transition_failed: %w", err)
		}

		service.logger.InfoContext(context, "post_"+string(target),
			slog.String("post_id", post.ID),
			slog.String("actor_id", principal.UserID),
		)
	}

	service.attachCoverURLs(context, []*Post{post})
	return post, nil
}

// # Cover Images

// CoverUpload is an image received from a client.
type CoverUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

/*
SetCover stores an image as the post cover, replacing any previous one.

Returns:
  - *Post: the post with a fresh presigned coverUrl
  - error: 413 over the size limit, 415 for non-image content, 503 when
    object storage is not configured
*/
func (service *Service) SetCover(context context.Context, principal *sec.Principal, ref string, upload CoverUpload, maxBytes int64) (*Post, error) {
	post, err := service.editable(context, principal, ref)
	if err != nil {
		return nil, err
	}

	if upload.Size > maxBytes {
		return nil, apperr.PayloadTooLarge(fmt.Sprintf("Cover images are limited to %d MB", maxBytes>>20))
	}

	extension, ok := imageExtensions[upload.ContentType]
	if !ok {
		return nil, apperr.UnsupportedMediaType("Cover must be a JPEG, PNG, GIF or WebP image")
	}

	key := fmt.Sprintf("covers/%s/%s%s", post.ID, uuid.New(), extension)
	if err := service.covers.Put(context, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		if errors.Is(err, objectstore.ErrDisabled) {
			return nil, apperr.ServiceUnavailable("Image uploads are not configured").WithCause(err)
		}
		return nil, fmt.Errorf("post_service_cover_upload_failed: %w", err)
	}

	previous := post.CoverKey
	post.CoverKey = &key
	if err := service.repo.Update(context, post, nil); err != nil {
		service.removeCover(context, key)
		return nil, fmt.Errorf("post_service_cover_save_failed: %w", err)
	}

	if previous != nil {
		service.removeCover(context, *previous)
	}

	service.logger.InfoContext(context, "post_cover_updated",
		slog.String("post_id", post.ID),
		slog.Int64("size", upload.Size),
	)
	service.attachCoverURLs(context, []*Post{post})
	return post, nil
}

func (service *Service) removeCover(context context.Context, key string) {
	if err := service.covers.Delete(context, key); err != nil {
		service.logger.WarnContext(context, "cover_delete_failed", slog.String("key", key), slog.Any("error", err))
	}
}

// imageExtensions maps accepted sniffed content types to object key suffixes.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SniffContentType detects the media type from the first bytes of body and
// returns a reader that still yields the whole content.
func SniffContentType(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), body), nil
}

// # Helpers

func validateReferences(validator *validate.Validator, categoryID string, tagIDs []string) {
	if categoryID != "" {
		validator.UUID(FieldCategoryID, categoryID)
	}
	validator.Custom(FieldTagIDs, len(tagIDs) > maxTags, fmt.Sprintf("At most %d tags", maxTags))
	for _, id := range tagIDs {
		if !uuid.Valid(id) {
			validator.Custom(FieldTagIDs, true, "Every tag id must be a valid UUID")
			break
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var result []string
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
