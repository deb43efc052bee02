// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"valid_string", "Quill", false},
		{"empty_string", "", true},
		{"whitespace_only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required("title", tt.value)

			if !tt.hasError {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
				return
			}

			ae := apperr.As(v.Err())
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
			assert.Equal(t, "title", ae.Details[0].Field)
		})
	}
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	err := (&validate.Validator{}).
		Required("username", "").
		MinLen("username", "a", 3).
		Email("email", "not-an-email").
		URL("website", "ftp://example.com").
		Slug("slug", "Not A Slug").
		Err()

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Len(t, ae.Details, 5)
}

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Slug     string `json:"slug,omitempty" validate:"omitempty,slug"`
}

/*
TestStruct_ReportsJSONFieldNames checks tag-driven validation and its error shape.
*/
func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := validate.Struct(signupPayload{Email: "nope", Password: "short", Slug: "Bad Slug"})

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, 400, ae.HTTPStatus)

	fields := map[string]string{}
	for _, detail := range ae.Details {
		fields[detail.Field] = detail.Message
	}

	assert.Equal(t, "Must be a valid email address", fields["email"])
	assert.Equal(t, "Minimum 8 characters", fields["password"])
	assert.Equal(t, "This field is required", fields["username"])
	assert.Contains(t, fields, "slug")
}

func TestStruct_Valid(t *testing.T) {
	err := validate.Struct(signupPayload{Email: "ana@example.com", Password: "longenough", Username: "ana"})
	assert.NoError(t, err)
}
