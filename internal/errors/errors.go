// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates missing or wrong credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSnapshotUnknown indicates the snapshot identifier is not in the catalog.
	ErrSnapshotUnknown = errors.New("unknown snapshot")

	// ErrDatasetMissing indicates a snapshot exists but lacks the dataset a view needs.
	// Callers surface it as a recoverable message instead of failing the request hard.
	ErrDatasetMissing = errors.New("dataset missing")
)

// IsNotFound reports whether err is or wraps ErrNotFound or ErrSnapshotUnknown.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSnapshotUnknown)
}

// IsRateLimitExceeded reports whether err is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDatasetMissing reports whether err is or wraps ErrDatasetMissing.
func IsDatasetMissing(err error) bool {
	return errors.Is(err, ErrDatasetMissing)
}

// ValidationError represents input validation failures.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is makes validation failures match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DatasetMissingError names the snapshot and dataset a view could not find.
type DatasetMissingError struct {
	SnapshotID string
	Dataset    string // display name of the dataset kind
}

func (e *DatasetMissingError) Error() string {
	return fmt.Sprintf("%s 스냅샷에 %s 데이터가 없습니다", e.SnapshotID, e.Dataset)
}

// Is makes the error match ErrDatasetMissing.
func (e *DatasetMissingError) Is(target error) bool {
	return target == ErrDatasetMissing
}

// NewDatasetMissingError creates a new missing dataset error.
func NewDatasetMissingError(snapshotID, dataset string) *DatasetMissingError {
	return &DatasetMissingError{SnapshotID: snapshotID, Dataset: dataset}
}
