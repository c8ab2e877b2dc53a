package upload

import (
	"strings"

	"repair-intake/internal/storage"
)

// Kind is the user-facing category of an upload failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindConfiguration
	KindSizeExceeded
	KindUnsupportedType

	// only used internally to trigger the retry
	kindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindSizeExceeded:
		return "size_exceeded"
	case KindUnsupportedType:
		return "unsupported_type"
	case kindDuplicate:
		return "duplicate"
	default:
		return "generic"
	}
}

const (
	msgConfiguration   = "Storage not configured. Please contact support."
	msgSizeExceeded    = "File too large. Maximum size is 10MB."
	msgUnsupportedType = "File type not supported."
)

// Error is returned by Client.Upload. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(err error) *Error {
	switch k := classify(err); k {
	case KindConfiguration:
		return &Error{Kind: k, Message: msgConfiguration, Err: err}
	case KindSizeExceeded:
		return &Error{Kind: k, Message: msgSizeExceeded, Err: err}
	case KindUnsupportedType:
		return &Error{Kind: k, Message: msgUnsupportedType, Err: err}
	default:
		return &Error{Kind: KindGeneric, Message: "Upload failed: " + err.Error(), Err: err}
	}
}

// classify maps a store failure to a Kind, preferring the structured code
// and falling back to the message text. Order of the text checks matters.
func classify(err error) Kind {
	if code, ok := storage.CodeOf(err); ok {
		switch code {
		case storage.CodeBucketNotFound:
			return KindConfiguration
		case storage.CodeTooLarge:
			return KindSizeExceeded
		case storage.CodeUnsupportedType:
			return KindUnsupportedType
		case storage.CodeDuplicate:
			return kindDuplicate
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "bucket not found"):
		return KindConfiguration
	case strings.Contains(msg, "size"):
		return KindSizeExceeded
	case strings.Contains(msg, "mime"), strings.Contains(msg, "type"):
		return KindUnsupportedType
	case strings.Contains(msg, "duplicate"):
		return kindDuplicate
	default:
		return KindGeneric
	}
}
