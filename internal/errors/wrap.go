package errors

import (
	"errors"
	"fmt"
)

// Wrapper attaches a module, an operation and a user-facing message to
// errors of one call site.
type Wrapper struct {
	module    string
	operation string
}

// NewWrapper returns a Wrapper for operation in module.
func NewWrapper(module, operation string) Wrapper {
	return Wrapper{module: module, operation: operation}
}

// Wrap returns nil for a nil err.
func (w Wrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{Module: w.module, Operation: w.operation, UserMessage: userMessage, Cause: err}
}

// Wrapf is Wrap with a formatted user message.
func (w Wrapper) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return w.Wrap(err, fmt.Sprintf(format, args...))
}

// WrappedError carries the internal cause and the message shown to users.
// errors.Is and errors.As see through it to Cause.
type WrappedError struct {
	Module      string // e.g. "catalog"
	Operation   string // e.g. "build_snapshot"
	UserMessage string
	Cause       error
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("%s.%s: %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error { return e.Cause }

// GetUserMessage returns the message to show for err: the outermost
// WrappedError's message, else a DatasetMissingError's text, else
// err.Error().
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var wrapped *WrappedError
	if errors.As(err, &wrapped) {
		return wrapped.UserMessage
	}
	var missing *DatasetMissingError
	if errors.As(err, &missing) {
		return missing.Error()
	}
	return err.Error()
}
