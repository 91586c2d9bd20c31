// Package diagnostics runs reachability and credential health checks, either
// on demand or on a fixed schedule.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/meeting-digest/internal/api/gemini"
	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/netcheck"
)

// Check names, in report order.
const (
	CheckInternet  = "Internet Connectivity"
	CheckDNS       = "Google API DNS Resolution"
	CheckAPIKey    = "API Key Validation"
	CheckModelTest = "Gemini Model Test"
)

// Per-check time limits.
const (
	InternetTimeout  = 5 * time.Second
	DNSTimeout       = 5 * time.Second
	APIKeyTimeout    = 10 * time.Second
	ModelTestTimeout = 15 * time.Second
)

// DefaultInternetURL is fetched by the connectivity check.
const DefaultInternetURL = "https://httpbin.org/get"

// ModelTestPrompt is sent by the live generation check.
const ModelTestPrompt = "Hello"

var generalRecommendations = []string{
	"Check your network connection and firewall settings",
	"Verify your Google API key is correct and has proper permissions",
	"Try running the application from a different network",
}

// ProviderForKey builds a real provider bound to apiKey.
type ProviderForKey func(apiKey string) (domain.Provider, error)

// Runner executes one diagnostics pass.
type Runner interface {
	Run(ctx context.Context, apiKey string) domain.NetworkDiagnostics
}

// Checker is the standard Runner.
type Checker struct {
	httpClient  *http.Client
	internetURL string
	providerURL string
	validator   *netcheck.Validator
	providerFor ProviderForKey
	model       string
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHTTPClient sets the client used by the reachability checks.
func WithHTTPClient(c *http.Client) CheckerOption {
	return func(ch *Checker) {
		ch.httpClient = c
	}
}

// WithInternetURL overrides DefaultInternetURL.
func WithInternetURL(u string) CheckerOption {
	return func(ch *Checker) {
		if u != "" {
			ch.internetURL = u
		}
	}
}

// WithProviderURL sets the provider domain resolved by the DNS check.
func WithProviderURL(u string) CheckerOption {
	return func(ch *Checker) {
		if u != "" {
			ch.providerURL = u
		}
	}
}

// WithValidator sets the credential validator.
func WithValidator(v *netcheck.Validator) CheckerOption {
	return func(ch *Checker) {
		ch.validator = v
	}
}

// WithModelTest enables the live generation check for model.
func WithModelTest(fn ProviderForKey, model string) CheckerOption {
	return func(ch *Checker) {
		ch.providerFor = fn
		ch.model = model
	}
}

// NewChecker creates a Checker.
func NewChecker(opts ...CheckerOption) *Checker {
	ch := &Checker{
		httpClient:  http.DefaultClient,
		internetURL: DefaultInternetURL,
		providerURL: gemini.DefaultBaseURL + "/",
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.validator == nil {
		ch.validator = netcheck.New(netcheck.WithHTTPClient(ch.httpClient), netcheck.WithTimeout(APIKeyTimeout))
	}
	return ch
}

type outcome struct {
	result domain.DiagnosticResult
	recs   []string
}

// Run executes the checks concurrently and aggregates them in a fixed order.
// The model test is skipped when apiKey is empty.
func (c *Checker) Run(ctx context.Context, apiKey string) domain.NetworkDiagnostics {
	checks := []func(context.Context) outcome{
		c.checkInternet,
		c.checkDNS,
		func(ctx context.Context) outcome { return c.checkAPIKey(ctx, apiKey) },
	}
	if apiKey != "" && c.providerFor != nil {
		checks = append(checks, func(ctx context.Context) outcome { return c.checkModel(ctx, apiKey) })
	}

	outcomes := make([]outcome, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			outcomes[i] = check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	diag := domain.NetworkDiagnostics{
		Overall:         true,
		Results:         make([]domain.DiagnosticResult, 0, len(outcomes)),
		Recommendations: []string{},
	}
	var recs []string
	for _, o := range outcomes {
		diag.Results = append(diag.Results, o.result)
		diag.Overall = diag.Overall && o.result.Success
		recs = append(recs, o.recs...)
	}
	if !diag.Overall {
		recs = append(recs, generalRecommendations...)
	}
	diag.Recommendations = dedupe(recs)
	return diag
}

func (c *Checker) checkInternet(ctx context.Context) outcome {
	ctx, cancel := context.WithTimeout(ctx, InternetTimeout)
	defer cancel()

	start := time.Now()
	status, err := c.do(ctx, http.MethodGet, c.internetURL)
	if err != nil {
		return outcome{
			result: domain.DiagnosticResult{Name: CheckInternet, Message: err.Error()},
			recs:   []string{"Check your internet connection and firewall settings"},
		}
	}
	duration := time.Since(start).Milliseconds()
	if status < 200 || status >= 300 {
		return outcome{
			result: domain.DiagnosticResult{
				Name:     CheckInternet,
				Message:  fmt.Sprintf("HTTP error: %d", status),
				Duration: duration,
			},
			recs: []string{"Check your internet connection"},
		}
	}
	return outcome{result: domain.DiagnosticResult{
		Name:     CheckInternet,
		Success:  true,
		Message:  "Basic internet connection is working",
		Duration: duration,
	}}
}

// checkDNS only needs a response of any status from the provider domain.
func (c *Checker) checkDNS(ctx context.Context) outcome {
	ctx, cancel := context.WithTimeout(ctx, DNSTimeout)
	defer cancel()

	start := time.Now()
	if _, err := c.do(ctx, http.MethodHead, c.providerURL); err != nil {
		return outcome{
			result: domain.DiagnosticResult{Name: CheckDNS, Message: err.Error()},
			recs:   []string{"Check DNS settings or try using a different DNS server (8.8.8.8)"},
		}
	}
	return outcome{result: domain.DiagnosticResult{
		Name:     CheckDNS,
		Success:  true,
		Message:  "Can reach Google Generative Language API domain",
		Duration: time.Since(start).Milliseconds(),
	}}
}

func (c *Checker) checkAPIKey(ctx context.Context, apiKey string) outcome {
	if apiKey == "" {
		return outcome{
			result: domain.DiagnosticResult{Name: CheckAPIKey, Message: "No API key provided for testing"},
			recs:   []string{"Set GOOGLE_API_KEY environment variable"},
		}
	}

	ping := c.validator.Ping(ctx, apiKey)
	if ping.Err != nil {
		o := outcome{result: domain.DiagnosticResult{Name: CheckAPIKey, Message: ping.Err.Error()}}
		if strings.Contains(strings.ToLower(ping.Err.Error()), "timeout") {
			o.recs = []string{"API requests are timing out - check network stability"}
		}
		return o
	}

	duration := ping.Duration.Milliseconds()
	if ping.OK() {
		return outcome{result: domain.DiagnosticResult{
			Name:     CheckAPIKey,
			Success:  true,
			Message:  "API key is valid and working",
			Duration: duration,
		}}
	}

	o := outcome{result: domain.DiagnosticResult{
		Name:     CheckAPIKey,
		Message:  netcheck.Interpret(ping).Error,
		Duration: duration,
		Details:  statusDetails(ping.StatusCode),
	}}
	switch ping.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		o.recs = []string{
			"Check your Google API key in the environment variables",
			"Ensure the API key has Generative AI permissions enabled",
		}
	case http.StatusTooManyRequests:
		o.recs = []string{"Wait for quota reset or upgrade your API plan"}
	}
	return o
}

func (c *Checker) checkModel(ctx context.Context, apiKey string) outcome {
	ctx, cancel := context.WithTimeout(ctx, ModelTestTimeout)
	defer cancel()

	p, err := c.providerFor(apiKey)
	if err != nil {
		return outcome{result: domain.DiagnosticResult{Name: CheckModelTest, Message: err.Error()}}
	}

	start := time.Now()
	_, err = p.Generate(ctx, &domain.GenerationRequest{Prompt: ModelTestPrompt, Model: c.model})
	duration := time.Since(start).Milliseconds()
	if err == nil {
		return outcome{result: domain.DiagnosticResult{
			Name:     CheckModelTest,
			Success:  true,
			Message:  fmt.Sprintf("%s model is accessible and responding", modelLabel(c.model)),
			Duration: duration,
		}}
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		o := outcome{result: domain.DiagnosticResult{
			Name:     CheckModelTest,
			Message:  fmt.Sprintf("Model test failed with status %d", upstream.StatusCode),
			Duration: duration,
			Details:  statusDetails(upstream.StatusCode),
		}}
		if upstream.StatusCode == http.StatusNotFound {
			o.recs = []string{fmt.Sprintf("%s model may not be available in your region", modelLabel(c.model))}
		}
		return o
	}

	o := outcome{result: domain.DiagnosticResult{Name: CheckModelTest, Message: err.Error()}}
	if classify.Classify(err).Code == domain.ErrorCodeTimeout {
		o.recs = []string{"Gemini API calls are timing out - try reducing content size or increasing timeout"}
	}
	return o
}

// do issues a request and returns the status code. Transport failures are
// returned without the request URL.
func (c *Checker) do(ctx context.Context, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, classify.Transport(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func statusDetails(status int) map[string]any {
	return map[string]any{
		"status":     status,
		"statusText": http.StatusText(status),
	}
}

// modelLabel turns "gemini-2.0-flash" into "Gemini 2.0 Flash".
func modelLabel(model string) string {
	if model == "" {
		return "Configured"
	}
	parts := strings.Split(model, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
