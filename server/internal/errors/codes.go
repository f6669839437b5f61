package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for digest operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeExtractionFailed indicates the article source was unreachable,
	// unparseable, or too short to digest.
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ErrCodeLLMCallFailed indicates a network/provider error on an LLM call.
	ErrCodeLLMCallFailed ErrorCode = "LLM_CALL_FAILED"
	// ErrCodeRetrievalFailed indicates the memory backend was unreachable
	// during a prior-knowledge lookup.
	ErrCodeRetrievalFailed ErrorCode = "RETRIEVAL_FAILED"
	// ErrCodeStorageWriteFailed indicates a memory write failure at
	// persistence time.
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	// ErrCodeMalformedLLMOutput indicates a parsing step yielded zero usable
	// items.
	ErrCodeMalformedLLMOutput ErrorCode = "MALFORMED_LLM_OUTPUT"
	// ErrCodeStorageUnavailable indicates the backing store cannot be opened.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// DigestError represents a structured error for digest operations.
type DigestError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DigestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DigestError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *DigestError {
	return &DigestError{Code: ErrCodeUnauthorized, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *DigestError {
	return &DigestError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ExtractionFailed creates an extraction failed error.
func ExtractionFailed(msg string, cause error) *DigestError {
	return &DigestError{Code: ErrCodeExtractionFailed, Message: msg, Cause: cause}
}

// LLMCallFailed creates an LLM call failed error.
func LLMCallFailed(msg string, cause error) *DigestError {
	return &DigestError{Code: ErrCodeLLMCallFailed, Message: msg, Cause: cause}
}

// RetrievalFailed creates a retrieval failed error.
func RetrievalFailed(cause error) *DigestError {
	return &DigestError{Code: ErrCodeRetrievalFailed, Message: "prior knowledge lookup failed", Cause: cause}
}

// StorageWriteFailed creates a storage write failed error.
func StorageWriteFailed(cause error) *DigestError {
	return &DigestError{Code: ErrCodeStorageWriteFailed, Message: "concept memory write failed", Cause: cause}
}

// StorageUnavailable creates a storage unavailable error.
func StorageUnavailable(cause error) *DigestError {
	return &DigestError{Code: ErrCodeStorageUnavailable, Message: "backing store cannot be opened", Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *DigestError {
	return &DigestError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if digestErr, ok := err.(*DigestError); ok {
		return digestErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a DigestError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if digestErr, ok := err.(*DigestError); ok {
		return digestErr.Code
	}
	return defaultCode
}
