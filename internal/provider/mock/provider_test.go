package mock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type virtualClock struct {
	waits []time.Duration
}

func (c *virtualClock) sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	return ctx.Err()
}

func drain(t *testing.T, p *Provider, ctx context.Context) []string {
	t.Helper()
	stream, err := p.Stream(ctx, nil)
	require.NoError(t, err)

	var got []string
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		got = append(got, chunk.Text)
	}
	return got
}

func TestStreamYieldsFixedSequence(t *testing.T) {
	clock := &virtualClock{}
	p := New(WithSleep(clock.sleep), WithRand(func() float64 { return 0.5 }))

	got := drain(t, p, context.Background())

	require.Len(t, got, 19)
	assert.Equal(t, Chunks, got)

	joined := strings.Join(got, "")
	for _, header := range []string{"Key Topics", "Action Items", "Key Decisions", "Next Steps"} {
		assert.Contains(t, joined, header)
	}
	assert.True(t, strings.HasSuffix(joined, Disclaimer))
	assert.Equal(t, Template(), joined)

	require.Len(t, clock.waits, 19, "one wait before every chunk")
	for _, w := range clock.waits {
		assert.Equal(t, 100*time.Millisecond, w)
	}
}

func TestStreamIsFreshPerCall(t *testing.T) {
	p := New(WithSleep((&virtualClock{}).sleep))

	first := drain(t, p, context.Background())
	second := drain(t, p, context.Background())

	assert.Equal(t, first, second)
}

func TestStreamDelayBounds(t *testing.T) {
	for _, r := range []float64{0, 0.999999} {
		clock := &virtualClock{}
		p := New(WithSleep(clock.sleep), WithRand(func() float64 { return r }))
		drain(t, p, context.Background())

		for _, w := range clock.waits {
			assert.GreaterOrEqual(t, w, 50*time.Millisecond)
			assert.Less(t, w, 150*time.Millisecond)
		}
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }))

	stream, err := p.Stream(ctx, nil)
	require.NoError(t, err)

	<-stream
	cancel()

	count := 1
	for range stream {
		count++
	}
	assert.Less(t, count, len(Chunks))
}

func TestGenerate(t *testing.T) {
	clock := &virtualClock{}
	p := New(WithSleep(clock.sleep), WithRand(func() float64 { return 0.25 }))

	got, err := p.Generate(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, Template(), got)
	assert.True(t, strings.HasPrefix(got, "# Meeting Summary"))
	assert.Equal(t, []time.Duration{750 * time.Millisecond}, clock.waits)
}
