package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrShapeMismatch     = errors.New("unexpected response shape")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrQuotaExceeded     = errors.New("daily quota exceeded")
	ErrTranscriptTooLong = errors.New("transcript too long")

	// ErrStrategyUnavailable marks failures that make the primary listing
	// strategy unusable for this identity, as opposed to transient ones.
	ErrStrategyUnavailable = errors.New("listing strategy unavailable")
)

// ListError carries the listing strategy and page a remote failure belongs to.
type ListError struct {
	Strategy string
	Cursor   string
	Err      error
}

func (e *ListError) Error() string {
	page := "first page"
	if e.Cursor != "" {
		page = "page " + e.Cursor
	}
	return fmt.Sprintf("%s listing (%s): %v", e.Strategy, page, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }
