package bookinfo

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations. ErrNotFound is a normal refresh
// outcome (the catalog dropped the record), not a failure.
var (
	ErrNotFound    = errors.New("bookinfo: not found")
	ErrRateLimited = errors.New("bookinfo: rate limited by server")
	ErrBadRequest  = errors.New("bookinfo: bad request")
	ErrServer      = errors.New("bookinfo: server error")
	ErrInvalidID   = errors.New("bookinfo: invalid catalog id")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op        string // Operation: "getAuthor", "getBook", "getChanged"
	ForeignID string // If applicable
	Err       error
}

func (e *Error) Error() string {
	if e.ForeignID != "" {
		return fmt.Sprintf("bookinfo %s [%s]: %v", e.Op, e.ForeignID, e.Err)
	}
	return fmt.Sprintf("bookinfo %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, foreignID string, err error) error {
	return &Error{Op: op, ForeignID: foreignID, Err: err}
}
