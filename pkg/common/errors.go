package common

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Match them with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrExtraction      = errors.New("extraction error")
	ErrStoreConnection = errors.New("store connection error")
	ErrPartialWrite    = errors.New("partial write error")
	ErrNotFound        = errors.New("not found")
)

// Error carries the failing operation and the kind of failure together with
// the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error

	// Applied is the number of write statements that succeeded before a
	// partial write failed.
	Applied int
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewValidationError(op string, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Err: errors.New(msg)}
}

func NewExtractionError(op string, err error) error {
	return &Error{Kind: ErrExtraction, Op: op, Err: err}
}

func NewStoreConnectionError(op string, err error) error {
	return &Error{Kind: ErrStoreConnection, Op: op, Err: err}
}

func NewPartialWriteError(op string, applied int, err error) error {
	return &Error{Kind: ErrPartialWrite, Op: op, Err: err, Applied: applied}
}

func NewNotFoundError(op string, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: errors.New(msg)}
}
