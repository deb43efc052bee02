// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// Binary is a raw request body sent with its own content type.
type Binary struct {
	Data        []byte
	ContentType string
}

// Form is a multipart/form-data body.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is one file part of a [Form].
type FormFile struct {
	Field    string
	FileName string
	Data     []byte
}

// encodeBody renders a request body once, so a retry can resend the same
// bytes. Anything other than Binary and Form is encoded as JSON.
func encodeBody(body any) ([]byte, string, error) {
	switch value := body.(type) {
	case nil:
		return nil, contentTypeJSON, nil

	case Binary:
		return encodeBinary(value)
	case *Binary:
		return encodeBinary(*value)

	case Form:
		return encodeForm(value)
	case *Form:
		return encodeForm(*value)

	default:
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, "", fmt.Errorf("apiclient: encode body: %w", err)
		}
		return payload, contentTypeJSON, nil
	}
}

func encodeBinary(binary Binary) ([]byte, string, error) {
	contentType := binary.ContentType
	if contentType == "" {
		contentType = contentTypeBinary
	}
	return binary.Data, contentType, nil
}

func encodeForm(form Form) ([]byte, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	for name, value := range form.Fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("apiclient: encode form: %w", err)
		}
	}

	for _, file := range form.Files {
		part, err := writer.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("apiclient: encode form: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("apiclient: encode form: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("apiclient: encode form: %w", err)
	}
	return buffer.Bytes(), writer.FormDataContentType(), nil
}
