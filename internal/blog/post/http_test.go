// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/blog/post"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
)

func (f *fixture) serve(principal *sec.Principal, request *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if principal != nil {
				request = request.WithContext(ctxutil.WithPrincipal(request.Context(), principal))
			}
			next.ServeHTTP(writer, request)
		})
	})
	router.Route("/api/posts", post.NewHandler(f.service).RegisterRoutes)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func (f *fixture) call(principal *sec.Principal, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return f.serve(principal, httptest.NewRequest(method, path, reader))
}

func TestHTTP_CreateAndRead(t *testing.T) {
	f := newFixture(t)

	forbidden := f.call(mallory, http.MethodPost, "/api/posts", `{"title":"Hi","body":"x"}`)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	invalid := f.call(alice, http.MethodPost, "/api/posts", `{"title":"","body":"x","tagIds":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	created := f.call(alice, http.MethodPost, "/api/posts",
		`{"title":"Go Generics","body":"Type parameters","status":"published","tagIds":["`+golangTagID+`"]}`)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	read := f.call(nil, http.MethodGet, "/api/posts/go-generics?include=tags,AUTHOR,bogus", "")
	require.Equal(t, http.StatusOK, read.Code)

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(read.Body.Bytes(), &body))
	assert.Equal(t, "Go Generics", body.Data["title"])
	assert.Equal(t, "published", body.Data["status"])
	assert.Contains(t, body.Data, "tags")
	assert.Contains(t, body.Data, "author")
	assert.NotContains(t, body.Data, "comments")
	assert.NotContains(t, body.Data, "coverKey")
}

func TestHTTP_ListFilters(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated, f.call(alice, http.MethodPost, "/api/posts", `{"title":"Public","body":"x","status":"published"}`).Code)
	require.Equal(t, http.StatusCreated, f.call(alice, http.MethodPost, "/api/posts", `{"title":"Private","body":"x"}`).Code)

	list := func(principal *sec.Principal, query string) (int, []map[string]any, pagination.Meta) {
		recorder := f.call(principal, http.MethodGet, "/api/posts"+query, "")
		var body struct {
			Data []map[string]any `json:"data"`
			Meta pagination.Meta  `json:"meta"`
		}
		if recorder.Code == http.StatusOK {
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		}
		return recorder.Code, body.Data, body.Meta
	}

	status, posts, meta := list(nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, pagination.DefaultLimit, meta.Limit)

	_, posts, _ = list(alice, "?author=me")
	assert.Len(t, posts, 2)

	_, posts, _ = list(bob, "?status=draft")
	assert.Empty(t, posts)

	_, posts, _ = list(moderator, "?status=draft")
	assert.Len(t, posts, 1)

	status, _, _ = list(nil, "?author=me")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _, _ = list(nil, "?status=deleted")
	assert.Equal(t, http.StatusBadRequest, status)
}

func coverRequest(t *testing.T, path string, filename string, data []byte) *http.Request {
	t.Helper()

	var buffer bytes.Buffer
	form := multipart.NewWriter(&buffer)
	part, err := form.CreateFormFile(post.FieldFile, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	request := httptest.NewRequest(http.MethodPut, path, &buffer)
	request.Header.Set("Content-Type", form.FormDataContentType())
	return request
}

func TestHTTP_UploadCover(t *testing.T) {
	f := newFixture(t)

	created := f.call(alice, http.MethodPost, "/api/posts", `{"title":"Cover Story","body":"x"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	anonymous := f.serve(nil, coverRequest(t, "/api/posts/cover-story/cover", "cover.png", pngHeader))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	recorder := f.serve(alice, coverRequest(t, "/api/posts/cover-story/cover", "cover.png", pngHeader))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Contains(t, body.Data["coverUrl"], "https://cdn.test/covers/")

	// The declared filename does not matter, the bytes do.
	disguised := f.serve(alice, coverRequest(t, "/api/posts/cover-story/cover", "evil.png", []byte("<html>not an image</html>")))
	assert.Equal(t, http.StatusUnsupportedMediaType, disguised.Code)

	huge := f.serve(alice, coverRequest(t, "/api/posts/cover-story/cover", "huge.png", append(pngHeader, make([]byte, 6<<20)...)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, huge.Code)

	missing := httptest.NewRequest(http.MethodPut, "/api/posts/cover-story/cover", strings.NewReader("{}"))
	missing.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, f.serve(alice, missing).Code)
}
