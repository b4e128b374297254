package task

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("invalid task")
	ErrNotFound    = errors.New("task not found")
	ErrDuplicateID = errors.New("duplicate task id")
)

// ValidationError reports rejected task input. Nothing is inserted when it is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an operation on an id the store has never held.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q", ErrNotFound, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
