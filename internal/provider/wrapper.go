package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/metrics"
	"github.com/tjfontaine/meeting-digest/internal/telemetry"
)

// InstrumentedProvider wraps a provider with a span and an attempt counter per call.
type InstrumentedProvider struct {
	inner domain.Provider
}

// Instrument wraps p. Wrapping an already instrumented provider is a no-op.
func Instrument(p domain.Provider) domain.Provider {
	if _, ok := p.(*InstrumentedProvider); ok {
		return p
	}
	return &InstrumentedProvider{inner: p}
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() domain.Provider {
	return p.inner
}

func (p *InstrumentedProvider) Name() string {
	return p.inner.Name()
}

func (p *InstrumentedProvider) Generate(ctx context.Context, req *domain.GenerationRequest) (string, error) {
	ctx, span := p.start(ctx, "provider.generate")
	defer span.End()

	text, err := p.inner.Generate(ctx, req)
	p.finish(span, err)
	return text, err
}

func (p *InstrumentedProvider) Stream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.TextChunk, error) {
	ctx, span := p.start(ctx, "provider.stream")

	stream, err := p.inner.Stream(ctx, req)
	if err != nil {
		p.finish(span, err)
		span.End()
		return nil, err
	}

	out := make(chan domain.TextChunk)
	go func() {
		defer close(out)
		defer span.End()

		var (
			chunks  int
			lastErr error
		)
		for chunk := range stream {
			if chunk.Err != nil {
				lastErr = chunk.Err
			} else {
				chunks++
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				lastErr = ctx.Err()
				span.SetAttributes(attribute.Int("digest.chunks", chunks))
				p.finish(span, lastErr)
				return
			}
		}
		span.SetAttributes(attribute.Int("digest.chunks", chunks))
		p.finish(span, lastErr)
	}()

	return out, nil
}

func (p *InstrumentedProvider) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(
		attribute.String("digest.provider", p.inner.Name()),
	))
}

func (p *InstrumentedProvider) finish(span trace.Span, err error) {
	if err == nil {
		metrics.RecordProviderAttempt(p.inner.Name(), "")
		return
	}

	classified := classify.Classify(err)
	metrics.RecordProviderAttempt(p.inner.Name(), string(classified.Code))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(classified.Code))
}
