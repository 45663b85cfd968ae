package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of a generation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	// KindManifestParse means the manifest is missing, unreadable, malformed,
	// or lacks a functions collection.
	KindManifestParse
	// KindHandlerFileMissing means a handler referenced by the manifest
	// could not be read.
	KindHandlerFileMissing
	// KindAnnotationParse means an @apidoc fragment is present but is not
	// valid structured data.
	KindAnnotationParse
	KindConfig
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindManifestParse:
		return "manifest_parse"
	case KindHandlerFileMissing:
		return "handler_file_missing"
	case KindAnnotationParse:
		return "annotation_parse"
	case KindConfig:
		return "config"
	case KindOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Error is a structured error carrying the stage that produced it.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// Attr attaches an attribute to an error. Errors that are not *Error are
// wrapped as KindInternal first.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: err.Error(), Underlying: err}
	}

	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of the outermost *Error in the chain, or
// KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any *Error in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Underlying
	}
	return false
}

// GetAttributes collects attributes from every *Error in the chain. Outer
// values win over inner ones.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		for k, v := range e.Attributes {
			if _, ok := attrs[k]; !ok {
				attrs[k] = v
			}
		}
		err = e.Underlying
	}
	return attrs
}
