// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer holds generic helpers for optional (PATCH-style) fields.
package pointer

// To returns a pointer to the provided value.
func To[T any](v T) *T {
	return &v
}

// Val dereferences p, returning the zero value when p is nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Apply assigns *p to target when p is non-nil and reports whether it did.
func Apply[T any](target *T, p *T) bool {
	if p == nil {
		return false
	}
	*target = *p
	return true
}
