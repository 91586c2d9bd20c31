package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/sse"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func streamHandler(events ...domain.StreamEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sse.SetHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
		for _, ev := range events {
			_ = sse.Encode(w, ev)
		}
	}
}

func TestClient_Create(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/digests" {
			t.Errorf("request = %s %s, want POST /digests", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["transcript"] != "Alice: hello" {
			t.Errorf("transcript = %q", body["transcript"])
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"1","publicId":"pub","summary":"## Meeting Overview"}`)
	})

	d, err := c.Create(context.Background(), "Alice: hello")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.PublicID != "pub" || d.Summary != "## Meeting Overview" {
		t.Errorf("Create() = %+v", d)
	}
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		call        func(*Client) error
		wantStatus  int
		wantMessage string
	}{
		{
			name: "json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"Transcript is required"}`)
			},
			call: func(c *Client) error {
				_, err := c.Create(context.Background(), "")
				return err
			},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Transcript is required",
		},
		{
			name: "plain body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream exploded", http.StatusBadGateway)
			},
			call: func(c *Client) error {
				_, err := c.Get(context.Background(), "x")
				return err
			},
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream exploded",
		},
		{
			name: "stream rejected before start",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"error":"Google API key not configured"}`)
			},
			call: func(c *Client) error {
				_, err := c.Stream(context.Background(), "t", nil)
				return err
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Google API key not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newServer(t, tt.handler))

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: http.StatusBadRequest, Message: "Transcript is required"}
	if got, want := err.Error(), "server returned 400: Transcript is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClient_StreamComplete(t *testing.T) {
	final := &domain.Digest{PublicID: "pub", Summary: "ab"}
	c := newServer(t, streamHandler(
		domain.StreamEvent{Type: domain.EventStart, PublicID: "pub"},
		domain.StreamEvent{Type: domain.EventChunk, Content: "a"},
		domain.StreamEvent{Type: domain.EventChunk, Content: "b"},
		domain.StreamEvent{Type: domain.EventComplete, Digest: final},
	))

	var seen []domain.EventType
	var text string
	d, err := c.Stream(context.Background(), "t", func(ev domain.StreamEvent) error {
		seen = append(seen, ev.Type)
		text += ev.Content
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if d.PublicID != "pub" {
		t.Errorf("PublicID = %q, want pub", d.PublicID)
	}
	if text != "ab" {
		t.Errorf("streamed text = %q, want ab", text)
	}
	want := []domain.EventType{domain.EventStart, domain.EventChunk, domain.EventChunk, domain.EventComplete}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("events = %v, want %v", seen, want)
	}
}

func TestClient_StreamErrorEvent(t *testing.T) {
	c := newServer(t, streamHandler(
		domain.StreamEvent{Type: domain.EventStart, PublicID: "pub"},
		domain.StreamEvent{Type: domain.EventError, Message: "Network connection failed", Code: domain.ErrorCodeNetwork},
	))

	_, err := c.Stream(context.Background(), "t", nil)
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("error = %v, want *StreamError", err)
	}
	if streamErr.PublicID != "pub" || streamErr.Code != domain.ErrorCodeNetwork {
		t.Errorf("StreamError = %+v", streamErr)
	}
	if got, want := streamErr.Error(), "NETWORK_ERROR: Network connection failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClient_StreamIncomplete(t *testing.T) {
	c := newServer(t, streamHandler(domain.StreamEvent{Type: domain.EventStart, PublicID: "pub"}))

	if _, err := c.Stream(context.Background(), "t", nil); !errors.Is(err, ErrIncompleteStream) {
		t.Errorf("error = %v, want ErrIncompleteStream", err)
	}
}

func TestClient_StreamCallbackError(t *testing.T) {
	c := newServer(t, streamHandler(
		domain.StreamEvent{Type: domain.EventStart, PublicID: "pub"},
		domain.StreamEvent{Type: domain.EventChunk, Content: "a"},
	))
	stop := errors.New("stop")

	_, err := c.Stream(context.Background(), "t", func(domain.StreamEvent) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("error = %v, want callback error", err)
	}
}

func TestClient_ListAndQuery(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/digests" || q.Get("limit") != "2" || q.Get("offset") != "1" {
			t.Errorf("request = %s", r.URL)
		}
		_, _ = io.WriteString(w, `[{"publicId":"b"},{"publicId":"a"}]`)
	})

	digests, err := c.List(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(digests) != 2 || digests[0].PublicID != "b" {
		t.Errorf("List() = %+v", digests)
	}
}

func TestClient_GetEscapesID(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.EscapedPath(); got != "/digests/a%2Fb" {
			t.Errorf("path = %q, want /digests/a%%2Fb", got)
		}
		_, _ = io.WriteString(w, `{"publicId":"a/b"}`)
	})

	d, err := c.Get(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.PublicID != "a/b" {
		t.Errorf("PublicID = %q, want a/b", d.PublicID)
	}
}

func TestClient_Diagnostics(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("action"); got != "status" {
			t.Errorf("action = %q, want status", got)
		}
		_, _ = io.WriteString(w, `{"success":true,"isTimerRunning":true,"lastRun":null,"timestamp":"2025-01-01T00:00:00.000Z"}`)
	})

	resp, err := c.Diagnostics(context.Background(), "status")
	if err != nil {
		t.Fatalf("Diagnostics() error = %v", err)
	}
	if !resp.Success || !resp.IsTimerRunning || resp.LastRun != nil {
		t.Errorf("Diagnostics() = %+v", resp)
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	if c := New(""); c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
