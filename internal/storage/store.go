package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ObjectStore is the narrow object-storage contract the upload client needs.
// Put must never overwrite an existing key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Code classifies a storage failure independently of the backend.
type Code string

const (
	CodeBucketNotFound  Code = "bucket_not_found"
	CodeTooLarge        Code = "too_large"
	CodeUnsupportedType Code = "unsupported_type"
	CodeDuplicate       Code = "duplicate"
)

// Error is a backend failure carrying a structured code. Backends return it
// whenever they can recognise the failure; anything else is passed through.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the structured code from err, if any.
func CodeOf(err error) (Code, bool) {
	var se *Error
	if errors.As(err, &se) && se.Code != "" {
		return se.Code, true
	}
	return "", false
}

// mentionsContentType reports whether a provider's invalid-argument message
// is about the declared content type.
func mentionsContentType(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "content-type") || strings.Contains(msg, "content type") ||
		strings.Contains(msg, "contenttype") || strings.Contains(msg, "mime")
}
