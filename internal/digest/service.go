// Package digest turns meeting transcripts into persisted summaries, either
// in one call or as a stream of events.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/config"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/metrics"
	"github.com/tjfontaine/meeting-digest/internal/provider"
	"github.com/tjfontaine/meeting-digest/internal/retry"
	"github.com/tjfontaine/meeting-digest/internal/storage"
	"github.com/tjfontaine/meeting-digest/internal/telemetry"
	"github.com/tjfontaine/meeting-digest/internal/tokens"
)

// NoResponsePlaceholder is stored when a single-call generation returns no text.
const NoResponsePlaceholder = "No response generated"

// MockFailureMessage is the error event message used when mock mode fails.
const MockFailureMessage = "Failed to generate digest (mock mode)"

var (
	// ErrTranscriptRequired is returned for an empty or whitespace transcript.
	ErrTranscriptRequired = errors.New("transcript is required")

	// ErrTranscriptTooLong is returned when the prompt exceeds the input token limit.
	ErrTranscriptTooLong = errors.New("transcript exceeds the input token limit")

	// ErrNoContent is returned when a stream finishes without any text.
	ErrNoContent = errors.New("no content generated from the model")

	// ErrCredentialMissing is returned when a real provider is needed but no
	// credential is configured.
	ErrCredentialMissing = provider.ErrCredentialMissing

	errSaveDigest = errors.New("Failed to save digest")
)

// ProviderSource chooses the provider for one request.
type ProviderSource interface {
	Select() (provider.Selection, error)
	Settings() config.ProviderConfig
}

// Sink receives the events of one streaming generation.
type Sink interface {
	Send(ev domain.StreamEvent) error
	Close() error
}

// Service generates and stores digests.
type Service struct {
	store          storage.DigestStore
	providers      ProviderSource
	retry          retry.Config
	sleep          retry.SleepFunc
	counter        *tokens.Counter
	maxInputTokens int
	newID          func() string
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRetry sets the retry budget for opening provider streams.
func WithRetry(cfg retry.Config) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithSleep replaces the backoff wait, for tests.
func WithSleep(fn retry.SleepFunc) Option {
	return func(s *Service) {
		s.sleep = fn
	}
}

// WithMaxInputTokens rejects prompts estimated above limit. Zero disables the check.
func WithMaxInputTokens(limit int) Option {
	return func(s *Service) {
		s.maxInputTokens = limit
	}
}

// WithIDGenerator replaces the public id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a digest service.
func NewService(store storage.DigestStore, providers ProviderSource, opts ...Option) *Service {
	s := &Service{
		store:     store,
		providers: providers,
		retry:     retry.DefaultConfig(),
		sleep:     retry.Sleep,
		counter:   tokens.NewCounter(),
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() storage.DigestStore {
	return s.store
}

// Summarize makes a single provider call for transcript.
func (s *Service) Summarize(ctx context.Context, p domain.Provider, transcript string) (string, error) {
	text, err := p.Generate(ctx, s.request(transcript))
	if err != nil {
		return "", err
	}
	if text == "" {
		return NoResponsePlaceholder, nil
	}
	return text, nil
}

// Create generates a digest in one call and persists it.
func (s *Service) Create(ctx context.Context, transcript string) (*domain.Digest, error) {
	if err := s.validate(transcript); err != nil {
		return nil, err
	}
	sel, err := s.providers.Select()
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "digest.create")
	defer span.End()
	span.SetAttributes(attribute.Bool("digest.mock", sel.Mock))

	start := time.Now()
	summary, err := s.Summarize(ctx, sel.Provider, transcript)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	d := &domain.Digest{
		PublicID:           s.newID(),
		OriginalTranscript: transcript,
		Summary:            summary,
	}
	if err := s.store.CreateDigest(ctx, d); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to save digest: %w", err)
	}
	span.SetAttributes(attribute.String("digest.public_id", d.PublicID))
	metrics.RecordGeneration("unary", start)
	metrics.RecordDigestCreated("unary")
	return d, nil
}

// Stream is a validated streaming generation that has not started yet.
type Stream struct {
	svc        *Service
	transcript string
	publicID   string
	sel        provider.Selection
}

// PrepareStream validates transcript and selects a provider. Errors returned
// here occur before any event is produced.
func (s *Service) PrepareStream(ctx context.Context, transcript string) (*Stream, error) {
	if err := s.validate(transcript); err != nil {
		return nil, err
	}
	sel, err := s.providers.Select()
	if err != nil {
		return nil, err
	}
	return &Stream{
		svc:        s,
		transcript: transcript,
		publicID:   s.newID(),
		sel:        sel,
	}, nil
}

// PublicID is the id announced in the start event.
func (st *Stream) PublicID() string {
	return st.publicID
}

// Mock reports whether canned responses are being served.
func (st *Stream) Mock() bool {
	return st.sel.Mock
}

// Run emits start, one chunk per fragment, then exactly one of complete or
// error. The sink is always closed. The returned digest and error describe
// the outcome for the caller's logs; the client has already been told.
func (st *Stream) Run(ctx context.Context, sink Sink) (*domain.Digest, error) {
	defer sink.Close()

	s := st.svc
	ctx, span := telemetry.Tracer().Start(ctx, "digest.stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("digest.public_id", st.publicID),
		attribute.Bool("digest.mock", st.sel.Mock),
	)

	start := time.Now()
	send := func(ev domain.StreamEvent) {
		if err := sink.Send(ev); err != nil {
			s.logger.Debug("failed to send stream event",
				slog.String("public_id", st.publicID),
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}

	send(domain.StreamEvent{Type: domain.EventStart, PublicID: st.publicID})

	d, err := st.generate(ctx, send)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		send(st.errorEvent(err))
		return nil, err
	}

	metrics.RecordGeneration("stream", start)
	metrics.RecordDigestCreated("stream")
	send(domain.StreamEvent{Type: domain.EventComplete, Digest: d})
	return d, nil
}

func (st *Stream) generate(ctx context.Context, send func(domain.StreamEvent)) (*domain.Digest, error) {
	s := st.svc
	req := s.request(st.transcript)
	p := st.sel.Provider

	var (
		chunks <-chan domain.TextChunk
		err    error
	)
	if st.sel.Mock {
		chunks, err = p.Stream(ctx, req)
	} else {
		chunks, err = retry.Do(ctx, s.retry, func(ctx context.Context) (<-chan domain.TextChunk, error) {
			return p.Stream(ctx, req)
		}, retry.WithSleep(s.sleep), retry.WithLogger(s.logger))
	}
	if err != nil {
		return nil, err
	}

	var summary strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		if chunk.Text == "" {
			continue
		}
		summary.WriteString(chunk.Text)
		send(domain.StreamEvent{Type: domain.EventChunk, Content: chunk.Text})
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stream aborted: %w", err)
	}

	full := summary.String()
	if strings.TrimSpace(full) == "" {
		return nil, ErrNoContent
	}

	d := &domain.Digest{
		PublicID:           st.publicID,
		OriginalTranscript: st.transcript,
		Summary:            full,
	}
	if err := s.store.CreateDigest(ctx, d); err != nil {
		return nil, fmt.Errorf("%w: %w", errSaveDigest, err)
	}
	return d, nil
}

func (st *Stream) errorEvent(err error) domain.StreamEvent {
	s := st.svc
	ce := classify.Classify(err)
	if errors.Is(err, errSaveDigest) {
		// Storage errors are logged, never shown.
		ce = classify.Classify(errSaveDigest)
	}

	s.logger.Error("digest generation failed",
		slog.String("public_id", st.publicID),
		slog.Bool("mock", st.sel.Mock),
		slog.String("error_code", string(ce.Code)),
		slog.String("error", err.Error()),
	)

	msg := ce.Message
	if st.sel.Mock {
		msg = MockFailureMessage
	}
	return domain.StreamEvent{Type: domain.EventError, Message: msg, Code: ce.Code}
}

func (s *Service) validate(transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return ErrTranscriptRequired
	}
	if s.maxInputTokens <= 0 {
		return nil
	}
	n, err := s.counter.Count(s.providers.Settings().Model, BuildPrompt(transcript))
	if err != nil {
		s.logger.Warn("failed to estimate prompt tokens", slog.String("error", err.Error()))
		return nil
	}
	if n > s.maxInputTokens {
		return fmt.Errorf("%w: %d > %d", ErrTranscriptTooLong, n, s.maxInputTokens)
	}
	return nil
}

func (s *Service) request(transcript string) *domain.GenerationRequest {
	settings := s.providers.Settings()
	return &domain.GenerationRequest{
		Prompt:          BuildPrompt(transcript),
		Model:           settings.Model,
		MaxOutputTokens: settings.MaxOutputTokens,
		Temperature:     settings.Temperature,
	}
}
