package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestInitTracer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	shutdown, err := InitTracer("digest-test", &buf, logger)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := Tracer().Start(context.Background(), "digest.test")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "digest.test") {
		t.Errorf("exported spans missing span name: %s", out)
	}
	if !strings.Contains(out, "digest-test") {
		t.Errorf("exported spans missing service name: %s", out)
	}
}
