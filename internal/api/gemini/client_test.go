package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/testutil"
)

func apiKeyForVCR(t *testing.T) string {
	t.Helper()
	if os.Getenv("VCR_MODE") == "record" {
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			t.Skip("Skipping test: GOOGLE_API_KEY not set")
		}
		return key
	}
	return testutil.TestAPIKey
}

func TestClient_GenerateContent(t *testing.T) {
	recorder, cleanup := testutil.NewVCRRecorder(t, "generate_content")
	defer cleanup()

	c := NewClient(apiKeyForVCR(t), WithHTTPClient(testutil.VCRHTTPClient(recorder)))

	resp, err := c.GenerateContent(context.Background(), "gemini-2.0-flash", &GenerateContentRequest{
		Contents:         []Content{{Role: "user", Parts: []Part{{Text: `Say "Hello from Gemini!"`}}}},
		GenerationConfig: &GenerationConfig{MaxOutputTokens: 64},
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}

	if got := resp.Text(); !strings.Contains(got, "Hello from Gemini!") {
		t.Errorf("Text() = %q, want greeting", got)
	}
	if resp.UsageMetadata == nil || resp.UsageMetadata.TotalTokenCount == 0 {
		t.Error("expected usage metadata")
	}
}

func TestClient_ListModels(t *testing.T) {
	recorder, cleanup := testutil.NewVCRRecorder(t, "list_models")
	defer cleanup()

	c := NewClient(apiKeyForVCR(t), WithHTTPClient(testutil.VCRHTTPClient(recorder)))

	list, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(list.Models) == 0 {
		t.Fatal("expected at least one model")
	}
	if list.Models[0].Name != "models/gemini-2.0-flash" {
		t.Errorf("Models[0].Name = %q", list.Models[0].Name)
	}
}

func TestClient_StreamGenerateContent(t *testing.T) {
	frames := []string{"# Meeting", " Overview\n", "Weekly sync."}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/gemini-2.0-flash:streamGenerateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("alt = %q, want sse", r.URL.Query().Get("alt"))
		}
		if r.Header.Get("x-goog-api-key") != "k" {
			t.Errorf("missing api key header")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}],\"role\":\"model\"}}]}\r\n\r\n", f)
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL))
	stream, err := c.StreamGenerateContent(context.Background(), "models/gemini-2.0-flash", &GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}},
	})
	if err != nil {
		t.Fatalf("StreamGenerateContent() error = %v", err)
	}

	var got []string
	for res := range stream {
		if res.Err != nil {
			t.Fatalf("stream error = %v", res.Err)
		}
		got = append(got, res.Response.Text())
	}

	if strings.Join(got, "") != strings.Join(frames, "") {
		t.Errorf("stream text = %q, want %q", got, frames)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode domain.ErrorCode
	}{
		{
			name:     "invalid key",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantCode: domain.ErrorCodeAPIKey,
		},
		{
			name:     "quota",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`,
			wantCode: domain.ErrorCodeQuota,
		},
		{
			name:     "overloaded",
			status:   http.StatusServiceUnavailable,
			body:     `{"error":{"code":503,"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`,
			wantCode: domain.ErrorCodeServer,
		},
		{
			name:     "plain text body",
			status:   http.StatusBadGateway,
			body:     "upstream connect error",
			wantCode: domain.ErrorCodeServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient("k", WithBaseURL(server.URL))
			_, err := c.StreamGenerateContent(context.Background(), "gemini-2.0-flash", &GenerateContentRequest{})
			if err == nil {
				t.Fatal("expected error")
			}

			var upstream *domain.UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("error %T is not an UpstreamError", err)
			}
			if upstream.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", upstream.StatusCode, tt.status)
			}
			if got := classify.Classify(err).Code; got != tt.wantCode {
				t.Errorf("classified code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	c := NewClient("secret-key", WithBaseURL(baseURL))
	_, err := c.ListModels(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks credential: %v", err)
	}
	if got := classify.Classify(err).Code; got != domain.ErrorCodeNetwork {
		t.Errorf("classified code = %s, want %s", got, domain.ErrorCodeNetwork)
	}
}
