// Package errors provides custom error types and error handling utilities.
package errors

import (
	"fmt"
)

// Error codes.
const (
	// Caller errors.
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeMissingGroundTruth = "MISSING_GROUND_TRUTH"
	CodeEmptyEvaluationSet = "EMPTY_EVALUATION_SET"
	CodeRateLimited        = "RATE_LIMITED"

	// Collaborator and internal errors.
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeRetriever   = "RETRIEVER_ERROR"
	CodeEmbed       = "EMBED_ERROR"
	CodeQdrant      = "QDRANT_ERROR"
	CodeDataset     = "DATASET_ERROR"
	CodeIndexing    = "INDEXING_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// MissingGroundTruthError creates an error for a query with no relevance entry.
func MissingGroundTruthError(queryID string) *AppError {
	return New(CodeMissingGroundTruth,
		fmt.Sprintf("no ground truth for query %q", queryID)).
		WithDetail("query_id", queryID)
}

// EmptyEvaluationSetError creates an error for an evaluation over zero queries.
func EmptyEvaluationSetError() *AppError {
	return New(CodeEmptyEvaluationSet, "evaluation set is empty")
}

// RetrieverError wraps a failure from the external retriever.
func RetrieverError(message string, err error) *AppError {
	return Wrap(CodeRetriever, message, err)
}

// EmbedError wraps an embedding service error.
func EmbedError(message string, err error) *AppError {
	return Wrap(CodeEmbed, message, err)
}

// QdrantError wraps a Qdrant error.
func QdrantError(message string, err error) *AppError {
	return Wrap(CodeQdrant, message, err)
}

// DatasetError wraps a dataset loading error.
func DatasetError(message string, err error) *AppError {
	return Wrap(CodeDataset, message, err)
}

// IndexingError wraps an indexing pipeline error.
func IndexingError(message string, err error) *AppError {
	return Wrap(CodeIndexing, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// TimeoutError creates a timeout error for a specific operation.
func TimeoutError(operation string) *AppError {
	message := "operation timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return New(CodeTimeout, message)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// IsCode checks whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return IsCode(err, CodeValidation)
}

// IsMissingGroundTruth checks if error is a missing ground truth error.
func IsMissingGroundTruth(err error) bool {
	return IsCode(err, CodeMissingGroundTruth)
}

// IsEmptyEvaluationSet checks if error is an empty evaluation set error.
func IsEmptyEvaluationSet(err error) bool {
	return IsCode(err, CodeEmptyEvaluationSet)
}
