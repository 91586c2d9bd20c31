// Package domain provides the canonical types shared by the digest service.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable category of a classified failure.
type ErrorCode string

const (
	// ErrorCodeNetwork indicates the upstream could not be reached.
	ErrorCodeNetwork ErrorCode = "NETWORK_ERROR"

	// ErrorCodeAPIKey indicates the credential was rejected or missing.
	ErrorCodeAPIKey ErrorCode = "API_KEY_ERROR"

	// ErrorCodeTimeout indicates the call exceeded its deadline or was aborted.
	ErrorCodeTimeout ErrorCode = "TIMEOUT_ERROR"

	// ErrorCodeQuota indicates rate limiting or an exhausted quota.
	ErrorCodeQuota ErrorCode = "QUOTA_ERROR"

	// ErrorCodeBadRequest indicates the upstream rejected the request shape.
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"

	// ErrorCodeServer indicates an upstream server-side failure.
	ErrorCodeServer ErrorCode = "SERVER_ERROR"

	// ErrorCodeUnknown is the fallback category.
	ErrorCodeUnknown ErrorCode = "UNKNOWN_ERROR"
)

// Retryable reports whether failures of this category are worth another attempt.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrorCodeAPIKey, ErrorCodeBadRequest, ErrorCodeQuota:
		return false
	default:
		return true
	}
}

// ClassifiedError is a user-safe view of a raw failure.
type ClassifiedError struct {
	// Message is the fixed sentence shown to users.
	Message string `json:"message"`

	// Code is the failure category.
	Code ErrorCode `json:"code"`

	// StatusCode is the HTTP status associated with the category.
	StatusCode int `json:"statusCode"`

	// Details carries the raw message for logs. Never shown to users.
	Details string `json:"details,omitempty"`

	cause error
}

// NewClassifiedError creates a classified error wrapping cause.
func NewClassifiedError(code ErrorCode, status int, message string, cause error) *ClassifiedError {
	e := &ClassifiedError{
		Message:    message,
		Code:       code,
		StatusCode: status,
		cause:      cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the raw failure.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *ClassifiedError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// UpstreamError is a non-2xx response from a provider API.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface. The status code is always part of the
// text so message-based classification can see it.
func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error (status %d %s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// HTTPStatusCode returns the upstream status.
func (e *UpstreamError) HTTPStatusCode() int {
	return e.StatusCode
}
