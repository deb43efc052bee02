// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII URL slugs from arbitrary Unicode strings.
//
// Slugs identify posts, categories and tags in URLs ("hello-world").
package slug

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds generated slugs, leaving room for a uniqueness suffix.
const MaxLength = 80

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	valid           = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// From converts an arbitrary Unicode string into a URL-safe ASCII slug.
//
// Accents are stripped after NFD decomposition ("Café" → "cafe"), every run
// of other characters becomes a single hyphen, and the result is trimmed to
// [MaxLength] without a trailing hyphen.
func From(s string) string {
	chain := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(chain, s)

	result = strings.ToLower(result)
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxLength {
		result = strings.TrimRight(result[:MaxLength], "-")
	}

	return result
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}

// WithSuffix appends a short random suffix, used after a slug collision.
func WithSuffix(base string) string {
	buffer := make([]byte, 3)
	_, _ = rand.Read(buffer)

	suffix := hex.EncodeToString(buffer)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
