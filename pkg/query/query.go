// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued URL query parameters.
package query

import "strings"

// StringSlice splits a comma-separated query value into trimmed, non-empty
// parts in their original order.
func StringSlice(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			result = append(result, clean)
		}
	}
	return result
}

// Lowered is [StringSlice] with every part lower-cased and duplicates removed.
func Lowered(value string) []string {
	seen := make(map[string]struct{})

	var result []string
	for _, part := range StringSlice(value) {
		part = strings.ToLower(part)
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		result = append(result, part)
	}
	return result
}
