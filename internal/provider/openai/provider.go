// Package openai is a domain.Provider for OpenAI and OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// DefaultModel is used when neither config nor request names one.
const DefaultModel = "gpt-4o-mini"

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithProviderBaseURL sets a custom API endpoint, including the /v1 suffix.
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

// WithTimeout bounds unary calls.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements domain.Provider using go-openai.
type Provider struct {
	client     *goopenai.Client
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
}

// NewProvider creates a new OpenAI provider.
func NewProvider(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	if p.httpClient != nil {
		cfg.HTTPClient = p.httpClient
	}
	p.client = goopenai.NewClientWithConfig(cfg)
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

	resp, err := p.client.CreateChatCompletion(ctx, p.toAPIRequest(req))
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Stream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.TextChunk, error) {
	apiReq := p.toAPIRequest(req)
	apiReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, wrapError(err)
	}

	out := make(chan domain.TextChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			var chunk domain.TextChunk
			if err != nil {
				chunk.Err = wrapError(err)
			} else {
				if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
					continue
				}
				chunk.Text = resp.Choices[0].Delta.Content
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

func (p *Provider) toAPIRequest(req *domain.GenerationRequest) goopenai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}
	return goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxOutputTokens,
		Temperature: float32(req.Temperature),
	}
}

// wrapError converts go-openai failures into UpstreamError so the status code
// is visible to the classifier.
func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			Provider:   ProviderType,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &domain.UpstreamError{
			Provider:   ProviderType,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
		}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return classify.Transport(err)
	}

	return fmt.Errorf("openai request failed: %w", err)
}
