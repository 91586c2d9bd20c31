// Package gemini adapts the Generative Language API client to domain.Provider.
package gemini

import (
	"context"
	"net/http"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/api/gemini"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// DefaultModel is used when a request does not name one.
const DefaultModel = "gemini-2.0-flash"

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithProviderBaseURL sets a custom API endpoint.
func WithProviderBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithProviderHTTPClient sets a custom HTTP client.
func WithProviderHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithDefaultModel overrides DefaultModel.
func WithDefaultModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTimeout bounds unary calls. Streams are bounded by the caller's context.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements domain.Provider on top of the Gemini REST client.
type Provider struct {
	client     *gemini.Client
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
}

// NewProvider creates a new Gemini provider.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []gemini.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, gemini.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, gemini.WithHTTPClient(p.httpClient))
	}

	p.client = gemini.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

func (p *Provider) Generate(ctx context.Context, req *domain.GenerationRequest) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.GenerateContent(ctx, p.modelFor(req), toAPIRequest(req))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *Provider) Stream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.TextChunk, error) {
	stream, err := p.client.StreamGenerateContent(ctx, p.modelFor(req), toAPIRequest(req))
	if err != nil {
		return nil, err
	}

	out := make(chan domain.TextChunk)
	go func() {
		defer close(out)
		for result := range stream {
			var chunk domain.TextChunk
			if result.Err != nil {
				chunk.Err = result.Err
			} else {
				chunk.Text = result.Response.Text()
				if chunk.Text == "" {
					continue
				}
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Err != nil {
				return
			}
		}
	}()

	return out, nil
}

func (p *Provider) modelFor(req *domain.GenerationRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

func toAPIRequest(req *domain.GenerationRequest) *gemini.GenerateContentRequest {
	apiReq := &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  "user",
			Parts: []gemini.Part{{Text: req.Prompt}},
		}},
	}
	if req.MaxOutputTokens > 0 || req.Temperature > 0 {
		cfg := &gemini.GenerationConfig{MaxOutputTokens: req.MaxOutputTokens}
		if req.Temperature > 0 {
			t := req.Temperature
			cfg.Temperature = &t
		}
		apiReq.GenerationConfig = cfg
	}
	return apiReq
}
