// Package mock provides a deterministic, time-delayed stand-in for a real
// provider, used for offline development.
package mock

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/retry"
)

// Delay bounds for simulated latency.
const (
	GenerateMinDelay = 500 * time.Millisecond
	GenerateJitter   = 1000 * time.Millisecond
	ChunkMinDelay    = 50 * time.Millisecond
	ChunkJitter      = 100 * time.Millisecond
)

// Option configures the provider.
type Option func(*Provider)

// WithSleep replaces the latency simulation.
func WithSleep(fn retry.SleepFunc) Option {
	return func(p *Provider) {
		p.sleep = fn
	}
}

// WithRand replaces the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(p *Provider) {
		p.rand = fn
	}
}

// Provider serves the fixed mock summary.
type Provider struct {
	sleep retry.SleepFunc
	rand  func() float64
}

// New creates a mock provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		sleep: retry.Sleep,
		rand:  rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

// Generate waits 500-1500ms once and returns Template().
func (p *Provider) Generate(ctx context.Context, _ *domain.GenerationRequest) (string, error) {
	if err := p.sleep(ctx, p.jitter(GenerateMinDelay, GenerateJitter)); err != nil {
		return "", err
	}
	return Template(), nil
}

// Stream returns a fresh sequence of Chunks, waiting 50-150ms before each one.
// The producer stops when ctx is done.
func (p *Provider) Stream(ctx context.Context, _ *domain.GenerationRequest) (<-chan domain.TextChunk, error) {
	out := make(chan domain.TextChunk)
	go func() {
		defer close(out)
		for _, text := range Chunks {
			if err := p.sleep(ctx, p.jitter(ChunkMinDelay, ChunkJitter)); err != nil {
				return
			}
			select {
			case out <- domain.TextChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Provider) jitter(base, spread time.Duration) time.Duration {
	return base + time.Duration(p.rand()*float64(spread))
}
