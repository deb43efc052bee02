// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pagination"
)

// multipartOverhead is the room left for form boundaries and headers around
// the cover file itself.
const multipartOverhead = 64 << 10

// # Handler Implementation

// Handler implements the /api/posts endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new post [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the post endpoints to router.
//
// # Access
//
//   - Reading is public, subject to draft visibility.
//   - Writing a post needs the author role.
//   - Changing a post needs its author or a moderator (checked by the service).
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listPosts)
	router.Get("/{post}", handler.getPost)

	router.With(middleware.RequireRole(sec.RoleAuthor)).Post("/", handler.createPost)

	router.Group(func(owner chi.Router) {
		owner.Use(middleware.RequireAuth)

		owner.Patch("/{post}", handler.updatePost)
		owner.Delete("/{post}", handler.deletePost)
		owner.Post("/{post}/publish", handler.publishPost)
		owner.Post("/{post}/unpublish", handler.unpublishPost)
		owner.Put("/{post}/cover", handler.uploadCover)
	})
}

// # Request Payloads

type createRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Body       string   `json:"body" validate:"required"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	CategoryID string   `json:"categoryId" validate:"omitempty,uuid"`
	TagIDs     []string `json:"tagIds" validate:"max=10,dive,uuid"`
	Status     string   `json:"status" validate:"omitempty,oneof=draft published"`
}

// updateRequest fields left out (or null) are not changed. An empty
// categoryId removes the category.
type updateRequest struct {
	Title      *string   `json:"title" validate:"omitempty,max=200"`
	Body       *string   `json:"body"`
	Excerpt    *string   `json:"excerpt" validate:"omitempty,max=500"`
	CategoryID *string   `json:"categoryId"`
	TagIDs     *[]string `json:"tagIds" validate:"omitempty,max=10"`
}

// # Reading

/*
GET /api/posts

Request:
  - q, status, category, tag, author: see [ParseFilter]
  - include: author,category,tags,comments
  - page, limit

Response:
  - 200: {"data": []Post, "meta": pagination.Meta}
  - 400: Malformed filter value
*/
func (handler *Handler) listPosts(writer http.ResponseWriter, request *http.Request) {
	queryParams := request.URL.Query()

	filter, err := ParseFilter(queryParams, requestutil.Principal(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)
	posts, total, err := handler.service.List(request.Context(), filter, ParseInclude(queryParams.Get("include")), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, pagination.NewMeta(page, total))
}

// GET /api/posts/{post}?include=...
func (handler *Handler) getPost(writer http.ResponseWriter, request *http.Request) {
	include := ParseInclude(request.URL.Query().Get("include"))

	post, err := handler.service.Get(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"), include)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, post)
}

// # Writing

func (handler *Handler) createPost(writer http.ResponseWriter, request *http.Request) {
	var input createRequest
	if err := requestutil.Bind(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.Create(request.Context(), requestutil.Principal(request), CreateInput{
		Title:      input.Title,
		Body:       input.Body,
		Excerpt:    input.Excerpt,
		CategoryID: input.CategoryID,
		TagIDs:     input.TagIDs,
		Status:     Status(input.Status),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, post)
}

func (handler *Handler) updatePost(writer http.ResponseWriter, request *http.Request) {
	var input updateRequest
	if err := requestutil.Bind(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.service.Update(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"), UpdateInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, post)
}

func (handler *Handler) deletePost(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) publishPost(writer http.ResponseWriter, request *http.Request) {
	post, err := handler.service.Publish(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, post)
}

func (handler *Handler) unpublishPost(writer http.ResponseWriter, request *http.Request) {
	post, err := handler.service.Unpublish(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, post)
}

/*
PUT /api/posts/{post}/cover

Request:
  - multipart/form-data with a "file" part (JPEG, PNG, GIF or WebP, at most 5 MB)

Response:
  - 200: Post with a presigned coverUrl
  - 413: File too large
  - 415: Not an accepted image format
  - 503: Object storage is not configured
*/
func (handler *Handler) uploadCover(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxCoverBytes+multipartOverhead)

	if err := request.ParseMultipartForm(constants.MaxCoverBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			respond.Error(writer, request, apperr.PayloadTooLarge("Cover images are limited to 5 MB"))
			return
		}
		respond.Error(writer, request, apperr.BadRequest("Expected a multipart form"))
		return
	}
	defer func() { _ = request.MultipartForm.RemoveAll() }()

	file, header, err := request.FormFile(FieldFile)
	if err != nil {
		respond.Error(writer, request, validate.RequiredError(FieldFile, "An image file is required"))
		return
	}
	defer file.Close()

	contentType, body, err := SniffContentType(file)
	if err != nil {
		respond.Error(writer, request, apperr.BadRequest("Could not read the uploaded file"))
		return
	}

	post, err := handler.service.SetCover(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"), CoverUpload{
		Body:        body,
		Size:        header.Size,
		ContentType: contentType,
	}, constants.MaxCoverBytes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, post)
}
