package sse

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

func TestEncode_Framing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, domain.StreamEvent{Type: domain.EventChunk, Content: "hi"}))
	assert.Equal(t, "data: {\"type\":\"chunk\",\"content\":\"hi\"}\n\n", buf.String())
}

func TestWriter_HeadersAndFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send(domain.StreamEvent{Type: domain.EventStart, PublicID: "abc"}))
	require.NoError(t, w.Send(domain.StreamEvent{Type: domain.EventChunk, Content: "# Title"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)
	assert.Equal(t,
		"data: {\"type\":\"start\",\"publicId\":\"abc\"}\n\ndata: {\"type\":\"chunk\",\"content\":\"# Title\"}\n\n",
		rec.Body.String())
}

func TestWriter_SendAfterClose(t *testing.T) {
	w, err := NewWriter(httptest.NewRecorder())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
	assert.ErrorIs(t, w.Send(domain.StreamEvent{Type: domain.EventChunk}), ErrClosed)
}

type noFlush struct{ http.ResponseWriter }

func TestNewWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(noFlush{httptest.NewRecorder()})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestDecoder_SplitAcrossReads(t *testing.T) {
	dec := NewDecoder()

	got := dec.Feed([]byte("data: {\"type\":\"start\",\"publicId\":\"p1\"}\n\nda"))
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventStart, got[0].Type)
	assert.Equal(t, "p1", got[0].PublicID)
	assert.Equal(t, 2, dec.Pending())

	got = dec.Feed([]byte("ta: {\"type\":\"chunk\",\"con"))
	assert.Empty(t, got)

	got = dec.Feed([]byte("tent\":\"Hello\"}\n\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "Hello", got[0].Content)
	assert.Zero(t, dec.Pending())
}

func TestDecoder_DropsGarbageLines(t *testing.T) {
	dec := NewDecoder()
	got := dec.Feed([]byte(": comment\nevent: x\ndata: {not json}\ndata: {\"type\":\"complete\"}\n"))
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventComplete, got[0].Type)
}

func TestDecoder_CRLF(t *testing.T) {
	got := NewDecoder().Feed([]byte("data: {\"type\":\"error\",\"message\":\"boom\"}\r\n\r\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Message)
}

func TestDecoder_FlushTrailingLine(t *testing.T) {
	dec := NewDecoder()
	assert.Empty(t, dec.Feed([]byte("data: {\"type\":\"complete\"}")))
	got := dec.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventComplete, got[0].Type)
	assert.Empty(t, dec.Flush())
}

func TestReadAll_OneByteAtATime(t *testing.T) {
	var buf bytes.Buffer
	events := []domain.StreamEvent{
		{Type: domain.EventStart, PublicID: "p"},
		{Type: domain.EventChunk, Content: "Résumé ✓ 会議"},
		{Type: domain.EventChunk, Content: "\n\n## Next Steps\n"},
		{Type: domain.EventComplete, Digest: &domain.Digest{PublicID: "p", Summary: "Résumé ✓ 会議\n\n## Next Steps\n"}},
	}
	for _, ev := range events {
		require.NoError(t, Encode(&buf, ev))
	}

	var got []domain.StreamEvent
	err := ReadAll(iotest.OneByteReader(&buf), func(ev domain.StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, len(events))
	assert.Equal(t, "Résumé ✓ 会議", got[1].Content)
	assert.Equal(t, "\n\n## Next Steps\n", got[2].Content)
	require.NotNil(t, got[3].Digest)
	assert.Equal(t, got[1].Content+got[2].Content, got[3].Digest.Summary)
}

func TestReadAll_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	input := strings.Repeat("data: {\"type\":\"chunk\",\"content\":\"x\"}\n\n", 5)

	calls := 0
	err := ReadAll(strings.NewReader(input), func(domain.StreamEvent) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
