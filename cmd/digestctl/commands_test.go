package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/sse"
)

// fakeService records submitted transcripts and answers like the real API.
type fakeService struct {
	transcripts []string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /digests", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Digest{PublicID: "pub-1", Summary: "## Meeting Overview\nQuick sync."})
	})
	mux.HandleFunc("POST /digests/stream", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		sse.SetHeaders(w.Header())
		for _, ev := range []domain.StreamEvent{
			{Type: domain.EventStart, PublicID: "pub-2"},
			{Type: domain.EventChunk, Content: "## Meeting "},
			{Type: domain.EventChunk, Content: "Overview"},
			{Type: domain.EventComplete, Digest: &domain.Digest{PublicID: "pub-2", Summary: "## Meeting Overview"}},
		} {
			_ = sse.Encode(w, ev)
		}
	})
	mux.HandleFunc("GET /digests", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"publicId":"pub-9","summary":"## Meeting Overview\nPlanning the launch.","createdAt":"2025-02-01T10:00:00Z"}]`)
	})
	mux.HandleFunc("GET /digests/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "pub-9" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Digest not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"publicId":"pub-9","summary":"Full summary"}`)
	})
	mux.HandleFunc("GET /diagnostics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":        true,
			"message":        "Diagnostics timer stopped",
			"isTimerRunning": false,
			"lastRun":        nil,
		})
	})
	return mux
}

func (f *fakeService) record(r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.transcripts = append(f.transcripts, body["transcript"])
}

func run(t *testing.T, stdin string, args ...string) (string, *fakeService, error) {
	t.Helper()
	fake := &fakeService{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out)
	root.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := root.Execute()
	return out.String(), fake, err
}

func wantTranscripts(t *testing.T, fake *fakeService, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(fake.transcripts, want) {
		t.Errorf("transcripts = %q, want %q", fake.transcripts, want)
	}
}

func wantOutput(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(out, f) {
			t.Errorf("output missing %q:\n%s", f, out)
		}
	}
}

func TestSubmit_FromArgs(t *testing.T) {
	out, fake, err := run(t, "", "submit", "Alice:", "ship", "it")
	if err != nil {
		t.Fatalf("submit error = %v", err)
	}
	wantTranscripts(t, fake, "Alice: ship it")
	wantOutput(t, out, "Quick sync.", "Digest pub-1 saved")
}

func TestSubmit_StreamFromStdin(t *testing.T) {
	out, fake, err := run(t, "Bob: notes from stdin", "submit", "--stream")
	if err != nil {
		t.Fatalf("submit error = %v", err)
	}
	wantTranscripts(t, fake, "Bob: notes from stdin")
	if !strings.HasPrefix(out, "## Meeting Overview") {
		t.Errorf("output does not start with streamed text:\n%s", out)
	}
	wantOutput(t, out, "Digest pub-2 saved")
}

func TestSubmit_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standup.txt")
	if err := os.WriteFile(path, []byte("Carol: file transcript"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, fake, err := run(t, "", "submit", "-f", path)
	if err != nil {
		t.Fatalf("submit error = %v", err)
	}
	wantTranscripts(t, fake, "Carol: file transcript")
}

func TestSubmit_EmptyTranscript(t *testing.T) {
	_, fake, err := run(t, "   \n", "submit")
	if err == nil || err.Error() != "transcript is empty" {
		t.Fatalf("submit error = %v, want transcript is empty", err)
	}
	if len(fake.transcripts) != 0 {
		t.Errorf("transcripts = %q, want none sent", fake.transcripts)
	}
}

func TestList(t *testing.T) {
	out, _, err := run(t, "", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	wantOutput(t, out, "pub-9", "Planning the launch.")
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "found", args: []string{"get", "pub-9"}, want: "Full summary\n"},
		{name: "not found", args: []string{"get", "missing"}, wantErr: "Digest not found"},
		{name: "no id", args: []string{"get"}, wantErr: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, "", tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("get error = %v", err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestDiagnostics(t *testing.T) {
	out, _, err := run(t, "", "diagnostics", "stop-timer")
	if err != nil {
		t.Fatalf("diagnostics error = %v", err)
	}
	wantOutput(t, out, "Diagnostics timer stopped", "Timer: stopped")

	if _, _, err := run(t, "", "diagnostics", "explode"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestHeadline(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{name: "first text line", summary: "## Meeting Overview\n\nPlanning.\nMore", want: "Planning."},
		{name: "headings only", summary: "## Only headings", want: ""},
		{name: "truncated", summary: strings.Repeat("x", 80), want: strings.Repeat("x", 57) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headline(tt.summary); got != tt.want {
				t.Errorf("headline() = %q, want %q", got, tt.want)
			}
		})
	}
}
