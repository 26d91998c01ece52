// Package apperrors defines the failure taxonomy shared by the ledger,
// the pipelines and the dispatcher.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindMedia         Kind = "media"
	KindSegmentation  Kind = "segmentation"
	KindProvider      Kind = "provider"
	KindStorage       Kind = "storage"
	KindKeyDerivation Kind = "key_derivation"
)

// Error is a classified failure with optional metadata and cause.
type Error struct {
	Kind     Kind
	Op       string
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// WithMetadata attaches a key/value pair and returns the same error.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func newError(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

func Media(op, msg string, cause error) *Error {
	return newError(KindMedia, op, msg, cause)
}

func Segmentation(op, msg string, cause error) *Error {
	return newError(KindSegmentation, op, msg, cause)
}

func Provider(op, msg string, cause error) *Error {
	return newError(KindProvider, op, msg, cause)
}

func Storage(op, msg string, cause error) *Error {
	return newError(KindStorage, op, msg, cause)
}

func KeyDerivation(op, msg string) *Error {
	return newError(KindKeyDerivation, op, msg, nil)
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Retryable reports whether a fresh attempt might succeed without new input.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	switch k {
	case KindSegmentation, KindProvider, KindStorage:
		return true
	default:
		return false
	}
}
