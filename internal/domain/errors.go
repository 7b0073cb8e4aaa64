package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures that handlers translate into HTTP responses
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindConflict
	KindNotFound
)

// Sentinels for errors.Is matching on kind
var (
	ErrValidation   = &Error{Kind: KindValidation, Detail: "validation failed"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Detail: "unauthorized"}
	ErrConflict     = &Error{Kind: KindConflict, Detail: "conflict"}
	ErrNotFound     = &Error{Kind: KindNotFound, Detail: "not found"}
)

// Error is a classified failure carrying a short human-readable detail
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works for every detail
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func Unauthorized(detail string) error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

func Conflict(detail string) error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func NotFound(detail string) error {
	return &Error{Kind: KindNotFound, Detail: detail}
}
