// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/quill/internal/platform/middleware"
	requestutil "github.com/taibuivan/quill/internal/platform/request"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPostRoutes serves the discussion of one post, mounted under
// /api/posts/{post}/comments.
func (handler *Handler) RegisterPostRoutes(router chi.Router) {
	router.Get("/", handler.listComments)
	router.With(middleware.RequireAuth).Post("/", handler.createComment)
}

// RegisterRoutes serves /api/comments.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.With(middleware.RequireAuth).Delete("/{comment}", handler.deleteComment)
	router.With(middleware.RequireRole(sec.RoleModerator)).Patch("/{comment}/moderation", handler.moderateComment)
}

type createRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type moderationRequest struct {
	Status string `json:"status" validate:"required,oneof=visible hidden"`
}

func (handler *Handler) listComments(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	comments, total, err := handler.service.List(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, comments, pagination.NewMeta(page, total))
}

func (handler *Handler) createComment(writer http.ResponseWriter, request *http.Request) {
	var input createRequest
	if err := requestutil.Bind(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.service.Create(request.Context(), requestutil.Principal(request), requestutil.Param(request, "post"), input.Body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, comment)
}

func (handler *Handler) deleteComment(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), requestutil.Principal(request), requestutil.Param(request, "comment")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) moderateComment(writer http.ResponseWriter, request *http.Request) {
	var input moderationRequest
	if err := requestutil.Bind(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	comment, err := handler.service.Moderate(request.Context(), requestutil.Principal(request), requestutil.Param(request, "comment"), Status(input.Status))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, comment)
}
