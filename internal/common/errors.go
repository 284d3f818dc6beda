package common

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound              = errors.New("requested resource not found")
	ErrUnauthorized          = errors.New("unauthorized access")
	ErrForbidden             = errors.New("forbidden access")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("resource conflict") // e.g., duplicated run guid
	ErrRateLimited           = errors.New("submission gap not elapsed")
	ErrInternalInconsistency = errors.New("internal data inconsistency")
	ErrPersistence           = errors.New("database operation failed")
	ErrFilesystemOperation   = errors.New("filesystem operation failed")
	ErrDispatch              = errors.New("grading dispatch failed")
)

// Caller-visible error codes.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeConflict     = "conflict"
	CodeInternal     = "internal_error"
)

// RateLimitError is returned when a requestor submits again before the
// submission gap has elapsed. It unwraps to ErrRateLimited.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("unable to submit run: you have to wait %d seconds between consecutive submissions", e.Seconds())
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Seconds is the wait rounded up to whole seconds.
func (e *RateLimitError) Seconds() int64 {
	return int64(math.Ceil(e.Wait.Seconds()))
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// ErrorCodeFromError returns the caller-visible code for err.
func ErrorCodeFromError(err error) string {
	switch HTTPStatusFromError(err) {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

// PublicMessage is the message shown to callers. Internal failures are
// reduced to a generic text so storage details do not leak.
func PublicMessage(err error) string {
	if HTTPStatusFromError(err) >= http.StatusInternalServerError {
		switch {
		case errors.Is(err, ErrInternalInconsistency):
			return ErrInternalInconsistency.Error()
		case errors.Is(err, ErrPersistence):
			return ErrPersistence.Error()
		case errors.Is(err, ErrFilesystemOperation):
			return ErrFilesystemOperation.Error()
		case errors.Is(err, ErrDispatch):
			return ErrDispatch.Error()
		}
		return "internal server error"
	}
	return err.Error()
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
