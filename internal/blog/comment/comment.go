// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package comment handles reader discussion under posts and its moderation.
package comment

import "time"

// Status is the moderation state of a comment.
type Status string

const (
	StatusVisible Status = "visible"
	StatusHidden  Status = "hidden"
)

func (s Status) Valid() bool {
	return s == StatusVisible || s == StatusHidden
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	FieldBody   = "body"
	FieldStatus = "status"

	maxBodyLength = 5000
)
