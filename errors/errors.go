// Package errors provides error types and handling for fixture provisioning
// operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a provisioning operation error with context about the
// operation that failed. It wraps the underlying AWS SDK or filesystem error
// with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "fetch", "verify", "list")
	Op string

	// Target is the local fixture path (if applicable)
	Target string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Target != "" && e.Key != "":
		return fmt.Sprintf("fixture.%s %s <- %s/%s: %v", e.Op, e.Target, e.Bucket, e.Key, e.Err)
	case e.Target != "":
		return fmt.Sprintf("fixture.%s %s: %v", e.Op, e.Target, e.Err)
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("fixture.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("fixture.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	default:
		return fmt.Sprintf("fixture.%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithTarget adds local target path context to an existing error.
func (e *Error) WithTarget(target string) *Error {
	e.Target = target
	return e
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewTargetError creates a new Error with target context.
func NewTargetError(op, target string, err error) *Error {
	return &Error{
		Op:     op,
		Target: target,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// NewValidationError creates a new Error for an invalid input with the given
// message.
func NewValidationError(message string) *Error {
	return &Error{
		Op:  "validate",
		Err: fmt.Errorf("%s: %w", message, ErrInvalidInput),
	}
}

// Sentinel errors for common provisioning failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("fixture: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("fixture: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied.
	// For requester-pays buckets this usually means the request payer
	// header was missing.
	ErrAccessDenied = errors.New("fixture: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("fixture: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("fixture: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("fixture: invalid object key")

	// ErrInvalidTargetPath indicates that the local target path is invalid
	ErrInvalidTargetPath = errors.New("fixture: invalid target path")

	// ErrInvalidManifest indicates that the fixture manifest is malformed
	ErrInvalidManifest = errors.New("fixture: invalid manifest")

	// ErrMissingFixture indicates that a declared fixture is absent locally
	ErrMissingFixture = errors.New("fixture: missing local file")

	// ErrChecksumMismatch indicates that a local fixture's checksum does not
	// match the one declared in the manifest
	ErrChecksumMismatch = errors.New("fixture: checksum mismatch")

	// ErrSizeMismatch indicates that a local fixture's size does not match
	// the one declared in the manifest
	ErrSizeMismatch = errors.New("fixture: size mismatch")

	// ErrMediaTypeMismatch indicates that a local fixture's detected media
	// type does not match the one declared in the manifest
	ErrMediaTypeMismatch = errors.New("fixture: media type mismatch")

	// ErrEmptyPrefix indicates that a recursive target matched no remote
	// objects
	ErrEmptyPrefix = errors.New("fixture: remote prefix matched no objects")

	// ErrTimeout indicates that the operation timed out
	ErrTimeout = errors.New("fixture: operation timeout")

	// ErrConnection indicates a connection error
	ErrConnection = errors.New("fixture: connection error")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsChecksumMismatch checks if an error indicates a checksum mismatch.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsChecksumMismatch(err error) bool {
	return errors.Is(err, ErrChecksumMismatch)
}
