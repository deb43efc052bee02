// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrSessionExpired reports that the refresh token was refused and the
	// local session has been cleared. Log in again to continue.
	ErrSessionExpired = errors.New("apiclient: session expired")

	// ErrNoSession is returned by calls that need a stored session.
	ErrNoSession = errors.New("apiclient: not logged in")

	// ErrTokenExpired is the cause attached when [Client.Identity] finds the
	// stored access token past its expiry.
	ErrTokenExpired = errors.New("apiclient: access token expired")
)

// defaultErrorMessage is used when the server sent no readable message.
const defaultErrorMessage = "request failed"

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
	Code    string
	Details []FieldError
}

// FieldError is one entry of a VALIDATION_ERROR response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("apiclient: %s (status %d)", e.Message, e.Status)
}

// IsStatus reports whether err carries an API [Error] with the given status.
func IsStatus(err error, status int) bool {
	var apiError *Error
	return errors.As(err, &apiError) && apiError.Status == status
}

// readError turns a failed response into an [Error]. The server message comes
// from "error" first, then "message".
func readError(response *http.Response) *Error {
	apiError := &Error{Status: response.StatusCode, Message: defaultErrorMessage}

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBytes))
	if err != nil || len(raw) == 0 {
		return apiError
	}

	var payload struct {
		Error   string       `json:"error"`
		Message string       `json:"message"`
		Code    string       `json:"code"`
		Details []FieldError `json:"details"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return apiError
	}

	switch {
	case payload.Error != "":
		apiError.Message = payload.Error
	case payload.Message != "":
		apiError.Message = payload.Message
	}
	apiError.Code = payload.Code
	apiError.Details = payload.Details
	return apiError
}
