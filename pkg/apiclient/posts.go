// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PostsPath is the post collection endpoint.
const PostsPath = "/api/posts"

// Post mirrors the API post representation. Relations are present only when
// requested through PostQuery.Include.
type Post struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"authorId"`
	CategoryID  *string    `json:"categoryId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	CoverURL    string     `json:"coverUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Author *struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
	} `json:"author,omitempty"`
	Category *Term    `json:"category,omitempty"`
	Tags     []Term   `json:"tags,omitempty"`
	Comments []Remark `json:"comments,omitempty"`
}

// Term is a category or a tag.
type Term struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Remark is a comment embedded in a post.
type Remark struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostQuery filters a post listing. Zero fields are omitted.
type PostQuery struct {
	Query    string
	Status   string
	Category string
	Tag      string
	Author   string
	Include  []string
	Page     int
	Limit    int
}

// Values renders the query string understood by GET /api/posts.
func (query PostQuery) Values() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}

	set("q", query.Query)
	set("status", query.Status)
	set("category", query.Category)
	set("tag", query.Tag)
	set("author", query.Author)
	set("include", strings.Join(query.Include, ","))
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	return values
}

// NewPost is the creation payload.
type NewPost struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Excerpt    string   `json:"excerpt,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	TagIDs     []string `json:"tagIds,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// ListPosts returns one page of posts.
func (client *Client) ListPosts(ctx context.Context, query PostQuery) (Page[Post], error) {
	return Fetch[Page[Post]](ctx, client, PostsPath, RequestOptions{Query: query.Values()})
}

// GetPost loads a post by slug or id.
func (client *Client) GetPost(ctx context.Context, ref string, include ...string) (*Post, error) {
	options := RequestOptions{}
	if len(include) > 0 {
		options.Query = url.Values{"include": {strings.Join(include, ",")}}
	}

	post, err := Fetch[Post](ctx, client, PostsPath+"/"+url.PathEscape(ref), options)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost creates a post as the logged-in user.
func (client *Client) CreatePost(ctx context.Context, input NewPost) (*Post, error) {
	post, err := Fetch[Post](ctx, client, PostsPath, RequestOptions{Method: http.MethodPost, Body: input})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UploadCover replaces the cover image of a post.
func (client *Client) UploadCover(ctx context.Context, postID, fileName string, image []byte) (*Post, error) {
	post, err := Fetch[Post](ctx, client, PostsPath+"/"+url.PathEscape(postID)+"/cover", RequestOptions{
		Method: http.MethodPut,
		Body: Form{Files: []FormFile{{
			Field:    "file",
			FileName: fileName,
			Data:     image,
		}}},
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}
