package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantCode   domain.ErrorCode
		wantStatus int
	}{
		{"fetch failed", "fetch failed", domain.ErrorCodeNetwork, http.StatusServiceUnavailable},
		{"econnreset", "read ECONNRESET", domain.ErrorCodeNetwork, http.StatusServiceUnavailable},
		{"dns", "getaddrinfo ENOTFOUND generativelanguage.googleapis.com", domain.ErrorCodeNetwork, http.StatusServiceUnavailable},
		{"refused", "dial tcp: connection refused", domain.ErrorCodeNetwork, http.StatusServiceUnavailable},
		{"401 wins over later matches", "401 Unauthorized: quota exceeded with status 500", domain.ErrorCodeAPIKey, http.StatusUnauthorized},
		{"forbidden", "status 403", domain.ErrorCodeAPIKey, http.StatusUnauthorized},
		{"api key", "API key not valid. Please pass a valid API key.", domain.ErrorCodeAPIKey, http.StatusUnauthorized},
		{"timeout", "Request Timeout", domain.ErrorCodeTimeout, http.StatusRequestTimeout},
		{"aborted", "The operation was aborted", domain.ErrorCodeTimeout, http.StatusRequestTimeout},
		{"quota", "Resource has been exhausted (e.g. check quota).", domain.ErrorCodeQuota, http.StatusTooManyRequests},
		{"429", "status 429", domain.ErrorCodeQuota, http.StatusTooManyRequests},
		{"rate limit", "Rate limit reached", domain.ErrorCodeQuota, http.StatusTooManyRequests},
		{"bad request", "400 Bad Request", domain.ErrorCodeBadRequest, http.StatusBadRequest},
		{"invalid request", "invalid request payload", domain.ErrorCodeBadRequest, http.StatusBadRequest},
		{"server", "upstream returned 502", domain.ErrorCodeServer, http.StatusServiceUnavailable},
		{"internal server error", "Internal Server Error", domain.ErrorCodeServer, http.StatusServiceUnavailable},
		{"network beats everything", "network error 401 timeout", domain.ErrorCodeNetwork, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.raw))
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.raw, got.Details)
			assert.NotEqual(t, tt.raw, got.Message, "known categories use a fixed message")
		})
	}
}

func TestClassifyUnknownPassesMessageThrough(t *testing.T) {
	got := Classify(errors.New("something odd happened"))
	assert.Equal(t, domain.ErrorCodeUnknown, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Equal(t, "something odd happened", got.Message)
}

func TestClassifyEmpty(t *testing.T) {
	for _, err := range []error{nil, errors.New("")} {
		got := Classify(err)
		assert.Equal(t, domain.ErrorCodeUnknown, got.Code)
		assert.Equal(t, "An unexpected error occurred", got.Message)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	first := Classify(errors.New("401 Unauthorized"))
	second := Classify(fmt.Errorf("wrapped: %w", first))
	assert.Same(t, first, second)
}

func TestClassifyUpstreamError(t *testing.T) {
	err := &domain.UpstreamError{Provider: "gemini", StatusCode: 503, Status: "UNAVAILABLE", Message: "The model is overloaded."}
	got := Classify(err)
	assert.Equal(t, domain.ErrorCodeServer, got.Code)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("fetch failed")))
	assert.True(t, IsRetryable(errors.New("504 gateway timeout")))
	assert.True(t, IsRetryable(errors.New("mystery")))
	assert.False(t, IsRetryable(errors.New("401 Unauthorized")))
	assert.False(t, IsRetryable(errors.New("429 Too Many Requests")))
	assert.False(t, IsRetryable(errors.New("400 Bad Request")))
}

func TestTransport(t *testing.T) {
	secret := "https://example.test/v1/models?key=SECRET"

	t.Run("deadline", func(t *testing.T) {
		err := Transport(&url.Error{Op: "Get", URL: secret, Err: context.DeadlineExceeded})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "SECRET")
		assert.Equal(t, domain.ErrorCodeTimeout, Classify(err).Code)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("dial failure", func(t *testing.T) {
		err := Transport(&url.Error{Op: "Get", URL: secret, Err: errors.New("dial tcp 10.0.0.1:443: i/o error")})
		assert.NotContains(t, err.Error(), "SECRET")
		assert.Equal(t, domain.ErrorCodeNetwork, Classify(err).Code)
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, Transport(nil))
	})
}
