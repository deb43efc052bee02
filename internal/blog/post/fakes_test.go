// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taibuivan/quill/internal/blog/category"
	"github.com/taibuivan/quill/internal/blog/post"
	"github.com/taibuivan/quill/internal/blog/tag"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/objectstore"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
)

// # Post Store

type memoryPosts struct {
	mu         sync.Mutex
	posts      map[string]*post.Post
	postTags   map[string][]string
	tags       map[string]*tag.Tag
	categories map[string]*category.Category
	authors    map[string]*post.Author
	comments   map[string][]*post.Comment
	clock      time.Time

	failRelations error
}

func newMemoryPosts() *memoryPosts {
	return &memoryPosts{
		posts:      make(map[string]*post.Post),
		postTags:   make(map[string][]string),
		tags:       make(map[string]*tag.Tag),
		categories: make(map[string]*category.Category),
		authors:    make(map[string]*post.Author),
		comments:   make(map[string][]*post.Comment),
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func clonePost(p *post.Post) *post.Post {
	copied := *p
	return &copied
}

func (store *memoryPosts) matches(p *post.Post, filter post.Filter) bool {
	if filter.PublishedOnly && p.Status != post.StatusPublished {
		return false
	}
	if filter.Status != "" && p.Status != filter.Status {
		return false
	}
	if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
		return false
	}
	if filter.Query != "" {
		needle := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(p.Title), needle) && !strings.Contains(strings.ToLower(p.Body), needle) {
			return false
		}
	}
	if filter.CategorySlug != "" {
		if p.CategoryID == nil || store.categories[*p.CategoryID] == nil || store.categories[*p.CategoryID].Slug != filter.CategorySlug {
			return false
		}
	}
	if filter.TagSlug != "" {
		found := false
		for _, id := range store.postTags[p.ID] {
			if store.tags[id].Slug == filter.TagSlug {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (store *memoryPosts) List(_ context.Context, filter post.Filter, page pagination.Params) ([]*post.Post, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var matched []*post.Post
	for _, p := range store.posts {
		if store.matches(p, filter) {
			matched = append(matched, clonePost(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return matched[start:end], total, nil
}

func (store *memoryPosts) FindByID(_ context.Context, id string) (*post.Post, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if p, found := store.posts[id]; found {
		return clonePost(p), nil
	}
	return nil, apperr.NotFound("Post")
}

func (store *memoryPosts) FindBySlug(_ context.Context, slug string) (*post.Post, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, p := range store.posts {
		if p.Slug == slug {
			return clonePost(p), nil
		}
	}
	return nil, apperr.NotFound("Post")
}

func (store *memoryPosts) checkReferences(p *post.Post, tagIDs []string) error {
	if p.CategoryID != nil && store.categories[*p.CategoryID] == nil {
		return apperr.Unprocessable("Referenced resource does not exist")
	}
	for _, id := range tagIDs {
		if store.tags[id] == nil {
			return apperr.Unprocessable("Referenced resource does not exist")
		}
	}
	return nil
}

func (store *memoryPosts) Create(_ context.Context, p *post.Post, tagIDs []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.posts {
		if existing.Slug == p.Slug {
			return post.ErrSlugTaken
		}
	}
	if err := store.checkReferences(p, tagIDs); err != nil {
		return err
	}

	store.clock = store.clock.Add(time.Minute)
	p.CreatedAt, p.UpdatedAt = store.clock, store.clock
	store.posts[p.ID] = clonePost(p)
	store.postTags[p.ID] = tagIDs
	return nil
}

func (store *memoryPosts) Update(_ context.Context, p *post.Post, tagIDs []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, found := store.posts[p.ID]; !found {
		return apperr.NotFound("Post")
	}
	if err := store.checkReferences(p, tagIDs); err != nil {
		return err
	}

	store.posts[p.ID] = clonePost(p)
	if tagIDs != nil {
		store.postTags[p.ID] = tagIDs
	}
	return nil
}

func (store *memoryPosts) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, found := store.posts[id]; !found {
		return apperr.NotFound("Post")
	}
	delete(store.posts, id)
	delete(store.postTags, id)
	return nil
}

// # Relations

func (store *memoryPosts) Authors(_ context.Context, ids []string) (map[string]*post.Author, error) {
	if store.failRelations != nil {
		return nil, store.failRelations
	}
	result := make(map[string]*post.Author)
	for _, id := range ids {
		if author, found := store.authors[id]; found {
			result[id] = author
		}
	}
	return result, nil
}

func (store *memoryPosts) Categories(_ context.Context, ids []string) (map[string]*category.Category, error) {
	if store.failRelations != nil {
		return nil, store.failRelations
	}
	result := make(map[string]*category.Category)
	for _, id := range ids {
		if c, found := store.categories[id]; found {
			result[id] = c
		}
	}
	return result, nil
}

func (store *memoryPosts) Tags(_ context.Context, postIDs []string) (map[string][]*tag.Tag, error) {
	if store.failRelations != nil {
		return nil, store.failRelations
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	result := make(map[string][]*tag.Tag)
	for _, postID := range postIDs {
		for _, tagID := range store.postTags[postID] {
			result[postID] = append(result[postID], store.tags[tagID])
		}
	}
	return result, nil
}

func (store *memoryPosts) Comments(_ context.Context, postIDs []string) (map[string][]*post.Comment, error) {
	if store.failRelations != nil {
		return nil, store.failRelations
	}
	result := make(map[string][]*post.Comment)
	for _, postID := range postIDs {
		result[postID] = store.comments[postID]
	}
	return result, nil
}

// # Object Store

type memoryObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	disabled bool
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: make(map[string][]byte)}
}

func (store *memoryObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if store.disabled {
		return objectstore.ErrDisabled
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.objects[key] = data
	return nil
}

func (store *memoryObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if store.disabled {
		return "", objectstore.ErrDisabled
	}
	return "https://cdn.test/" + key, nil
}

func (store *memoryObjects) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, found := store.objects[key]; !found {
		return errors.New("no such key")
	}
	delete(store.objects, key)
	store.deleted = append(store.deleted, key)
	return nil
}

// # Fixture

var (
	alice     = &sec.Principal{UserID: "0190a3c4-0000-7000-8000-00000000000a", Username: "alice", Role: sec.RoleAuthor}
	bob       = &sec.Principal{UserID: "0190a3c4-0000-7000-8000-00000000000b", Username: "bob", Role: sec.RoleAuthor}
	mallory   = &sec.Principal{UserID: "0190a3c4-0000-7000-8000-00000000000c", Username: "mallory", Role: sec.RoleMember}
	moderator = &sec.Principal{UserID: "0190a3c4-0000-7000-8000-00000000000d", Username: "mod", Role: sec.RoleModerator}
)

const (
	golangTagID   = "0190a3c4-0000-7000-8000-0000000000f1"
	databaseTagID = "0190a3c4-0000-7000-8000-0000000000f2"
	backendCatID  = "0190a3c4-0000-7000-8000-0000000000c1"
)

type fixture struct {
	store   *memoryPosts
	objects *memoryObjects
	service *post.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemoryPosts()
	store.tags[golangTagID] = &tag.Tag{ID: golangTagID, Name: "Go", Slug: "go"}
	store.tags[databaseTagID] = &tag.Tag{ID: databaseTagID, Name: "Databases", Slug: "databases"}
	store.categories[backendCatID] = &category.Category{ID: backendCatID, Name: "Backend", Slug: "backend"}
	store.authors[alice.UserID] = &post.Author{ID: alice.UserID, Username: "alice", DisplayName: "Alice"}
	store.authors[bob.UserID] = &post.Author{ID: bob.UserID, Username: "bob", DisplayName: "Bob"}

	objects := newMemoryObjects()
	service := post.NewService(store, store, objects, post.Options{CoverURLTTL: time.Hour},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &fixture{store: store, objects: objects, service: service}
}
