package errors

import "errors"

// ErrOptimisticLock the record was modified by a concurrent request
var ErrOptimisticLock = errors.New("record was modified by another request, refresh and retry")

// Error categories. Every business error wraps exactly one of them so the
// HTTP layer can map it to a status code with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotFound      = errors.New("not found")
)

// kindError a business error classified under one category
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New creates a business error under the given category.
// Each call returns a distinct value, so sentinels built with New can be
// matched individually as well as by category.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
