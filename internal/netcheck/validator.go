// Package netcheck validates provider credentials and reachability before any
// generation request is made.
package netcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/api/gemini"
	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// DefaultTimeout bounds a validation request.
const DefaultTimeout = 10 * time.Second

const openAIBaseURL = "https://api.openai.com/v1"

// Validation messages.
const (
	MsgInvalidKey = "Invalid API key or insufficient permissions"
	MsgQuota      = "API quota exceeded"
	MsgNetwork    = "Network connection failed"
	MsgTimeout    = "Connection timeout - check internet connection"
)

// AuthStyle is how the credential is attached to the request.
type AuthStyle int

const (
	// AuthQuery sends the key as the "key" query parameter.
	AuthQuery AuthStyle = iota
	// AuthBearer sends the key as a bearer token.
	AuthBearer
)

// Option configures a Validator.
type Option func(*Validator)

// WithBaseURL sets the API root. The models listing path is appended to it.
func WithBaseURL(baseURL string) Option {
	return func(v *Validator) {
		if baseURL != "" {
			v.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(v *Validator) {
		v.httpClient = httpClient
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		v.timeout = d
	}
}

// WithAuthStyle selects how the key is sent.
func WithAuthStyle(style AuthStyle) Option {
	return func(v *Validator) {
		v.auth = style
	}
}

// Validator issues a single models-listing request to check a credential.
type Validator struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	auth       AuthStyle
}

// New creates a validator against the Gemini API by default.
func New(opts ...Option) *Validator {
	v := &Validator{
		baseURL:    gemini.DefaultBaseURL + "/v1",
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		auth:       AuthQuery,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewForProvider creates a validator matching the configured provider kind.
func NewForProvider(cfg config.ProviderConfig, opts ...Option) *Validator {
	var base []Option
	switch cfg.Kind {
	case "openai":
		base = append(base, WithBaseURL(openAIBaseURL), WithAuthStyle(AuthBearer))
		if cfg.BaseURL != "" {
			base = append(base, WithBaseURL(cfg.BaseURL))
		}
	default:
		if cfg.BaseURL != "" {
			base = append(base, WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")+"/v1"))
		}
	}
	return New(append(base, opts...)...)
}

// PingResult is the raw outcome of a Ping.
type PingResult struct {
	StatusCode int
	StatusText string
	Duration   time.Duration
	// Err is set when no HTTP response was received. It never contains the
	// request URL.
	Err error
}

// OK reports a 2xx response.
func (r PingResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Ping performs the models-listing request and reports what happened. The
// response body is discarded; only the status matters.
func (v *Validator) Ping(ctx context.Context, apiKey string) PingResult {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.modelsURL(apiKey), nil)
	if err != nil {
		return PingResult{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if v.auth == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return PingResult{Duration: time.Since(start), Err: classify.Transport(err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return PingResult{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Duration:   time.Since(start),
	}
}

// Result is the outcome of Validate.
type Result struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// Validate checks apiKey. It never returns an error: every failure is
// reported as an invalid Result with a short reason.
func (v *Validator) Validate(ctx context.Context, apiKey string) Result {
	return Interpret(v.Ping(ctx, apiKey))
}

// Interpret converts a ping into a validation result.
func Interpret(p PingResult) Result {
	if p.Err != nil {
		switch classify.Classify(p.Err).Code {
		case domain.ErrorCodeTimeout:
			return Result{Error: MsgTimeout}
		case domain.ErrorCodeNetwork:
			return Result{Error: MsgNetwork}
		default:
			return Result{Error: p.Err.Error()}
		}
	}

	switch {
	case p.OK():
		return Result{IsValid: true}
	case p.StatusCode == http.StatusUnauthorized || p.StatusCode == http.StatusForbidden:
		return Result{Error: MsgInvalidKey}
	case p.StatusCode == http.StatusTooManyRequests:
		return Result{Error: MsgQuota}
	default:
		return Result{Error: fmt.Sprintf("API returned status %d", p.StatusCode)}
	}
}

func (v *Validator) modelsURL(apiKey string) string {
	u := v.baseURL + "/models"
	if v.auth == AuthQuery {
		u += "?key=" + url.QueryEscape(apiKey)
	}
	return u
}
