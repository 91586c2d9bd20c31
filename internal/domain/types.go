package domain

import "time"

// Digest is a persisted summary of a meeting transcript.
type Digest struct {
	ID                 string    `json:"id" db:"id"`
	PublicID           string    `json:"publicId" db:"public_id"`
	Summary            string    `json:"summary" db:"summary"`
	OriginalTranscript string    `json:"-" db:"original_transcript"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}

// GenerationRequest is a single text-generation call against a provider.
type GenerationRequest struct {
	Prompt          string
	Model           string
	MaxOutputTokens int
	Temperature     float64
}

// TextChunk is one fragment of a streamed generation. A chunk with Err set is
// terminal.
type TextChunk struct {
	Text string
	Err  error
}

// EventType identifies a streaming event.
type EventType string

const (
	EventStart    EventType = "start"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// StreamEvent is the payload of one server-sent event emitted while a digest
// is being generated.
type StreamEvent struct {
	Type     EventType `json:"type"`
	PublicID string    `json:"publicId,omitempty"`
	Content  string    `json:"content,omitempty"`
	Digest   *Digest   `json:"digest,omitempty"`
	Message  string    `json:"message,omitempty"`
	Code     ErrorCode `json:"code,omitempty"`
}

// DiagnosticResult is the outcome of one diagnostic check.
type DiagnosticResult struct {
	Name     string         `json:"name"`
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Duration int64          `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// NetworkDiagnostics aggregates one diagnostic pass.
type NetworkDiagnostics struct {
	Overall         bool               `json:"overall"`
	Results         []DiagnosticResult `json:"results"`
	Recommendations []string           `json:"recommendations"`
}
