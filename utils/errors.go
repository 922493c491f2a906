package utils

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindConflict          ErrorKind = "conflict"
	KindInvalidState      ErrorKind = "invalid_state"
	KindNotFound          ErrorKind = "not_found"
	KindExpired           ErrorKind = "expired"
	KindAuthorization     ErrorKind = "authorization"
	KindIssuanceExhausted ErrorKind = "issuance_exhausted"
	KindTimeout           ErrorKind = "timeout"
	KindInternal          ErrorKind = "internal"
)

// AppError carries a kind and a client-safe message. Reason is for server-side
// audit logs only and is never rendered in a response.
type AppError struct {
	Kind    ErrorKind
	Message string
	Reason  string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches the kind-only sentinels below, so errors.Is(err, ErrNotFound)
// holds for every not_found error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Message != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation        = &AppError{Kind: KindValidation}
	ErrConflict          = &AppError{Kind: KindConflict}
	ErrInvalidState      = &AppError{Kind: KindInvalidState}
	ErrNotFound          = &AppError{Kind: KindNotFound}
	ErrExpired           = &AppError{Kind: KindExpired}
	ErrAuthorization     = &AppError{Kind: KindAuthorization}
	ErrIssuanceExhausted = &AppError{Kind: KindIssuanceExhausted}
	ErrTimeout           = &AppError{Kind: KindTimeout}
)

func newError(kind ErrorKind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func ConflictError(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

func InvalidStateError(format string, args ...interface{}) error {
	return newError(KindInvalidState, format, args...)
}

func NotFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func ExpiredError(format string, args ...interface{}) error {
	return newError(KindExpired, format, args...)
}

func IssuanceExhaustedError(format string, args ...interface{}) error {
	return newError(KindIssuanceExhausted, format, args...)
}

// AuthorizationError keeps the policy reason for audit logging; the message
// stays generic.
func AuthorizationError(reason string) error {
	return &AppError{Kind: KindAuthorization, Message: "not permitted", Reason: reason}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// WrapDBError translates driver and context errors into the taxonomy. Errors
// that are already AppErrors pass through untouched.
func WrapDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &AppError{Kind: KindNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &AppError{Kind: KindConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &AppError{Kind: KindTimeout, Message: "operation timed out, safe to retry", Err: err}
	}
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}
