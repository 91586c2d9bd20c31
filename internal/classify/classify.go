// Package classify maps raw failures onto the service's error taxonomy.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

const unexpectedMessage = "An unexpected error occurred"

type rule struct {
	code     domain.ErrorCode
	status   int
	message  string
	patterns []string
}

// Evaluated in order; the first rule with a matching pattern wins.
var rules = []rule{
	{
		code:     domain.ErrorCodeNetwork,
		status:   http.StatusServiceUnavailable,
		message:  "Network connection failed. Please check your internet connection and try again.",
		patterns: []string{"fetch failed", "network", "econnreset", "enotfound", "connection refused"},
	},
	{
		code:     domain.ErrorCodeAPIKey,
		status:   http.StatusUnauthorized,
		message:  "Invalid API key. Please check your API key configuration.",
		patterns: []string{"401", "403", "api key", "unauthorized", "invalid key"},
	},
	{
		code:     domain.ErrorCodeTimeout,
		status:   http.StatusRequestTimeout,
		message:  "Request timed out. Please try again with a shorter transcript.",
		patterns: []string{"timeout", "aborted", "408"},
	},
	{
		code:     domain.ErrorCodeQuota,
		status:   http.StatusTooManyRequests,
		message:  "API quota exceeded. Please try again later.",
		patterns: []string{"quota", "429", "rate limit"},
	},
	{
		code:     domain.ErrorCodeBadRequest,
		status:   http.StatusBadRequest,
		message:  "Invalid request format. Please check your input.",
		patterns: []string{"400", "bad request", "invalid request"},
	},
	{
		code:     domain.ErrorCodeServer,
		status:   http.StatusServiceUnavailable,
		message:  "Server error. Please try again later.",
		patterns: []string{"500", "502", "503", "504", "internal server error"},
	},
}

// Classify converts err into a user-safe ClassifiedError. It is total: a nil
// error or an empty message yields UNKNOWN_ERROR with a generic message.
// An error that is already classified is returned unchanged.
func Classify(err error) *domain.ClassifiedError {
	var ce *domain.ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	raw := ""
	if err != nil {
		raw = err.Error()
	}
	return classifyMessage(raw, err)
}

// Message classifies a bare message string.
func Message(raw string) *domain.ClassifiedError {
	return classifyMessage(raw, nil)
}

func classifyMessage(raw string, cause error) *domain.ClassifiedError {
	lower := strings.ToLower(raw)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return build(r.code, r.status, r.message, raw, cause)
			}
		}
	}

	msg := raw
	if msg == "" {
		msg = unexpectedMessage
	}
	return build(domain.ErrorCodeUnknown, http.StatusInternalServerError, msg, raw, cause)
}

func build(code domain.ErrorCode, status int, message, raw string, cause error) *domain.ClassifiedError {
	ce := domain.NewClassifiedError(code, status, message, cause)
	ce.Details = raw
	return ce
}

// IsRetryable reports whether err belongs to a category that may be retried.
func IsRetryable(err error) bool {
	return Classify(err).Code.Retryable()
}

// Transport normalizes errors returned by an http.Client so that their text
// carries the vocabulary the classifier recognizes. The request URL is
// stripped because it may carry a credential as a query parameter.
func Transport(err error) error {
	if err == nil {
		return nil
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timeout: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("request aborted: %w", err)
	case errors.As(err, &nerr) && nerr.Timeout():
		return fmt.Errorf("request timeout: %w", err)
	default:
		return fmt.Errorf("fetch failed: %w", err)
	}
}
