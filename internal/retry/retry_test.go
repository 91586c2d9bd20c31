package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestDoSucceedsImmediately(t *testing.T) {
	rec := &recordingSleep{}
	calls := 0

	got, err := Do(context.Background(), DefaultConfig(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, WithSleep(rec.sleep))

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestDoExhaustsRetryableFailures(t *testing.T) {
	rec := &recordingSleep{}
	calls := 0

	_, err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Second}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fetch failed")
	}, WithSleep(rec.sleep))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)

	classified := classify.Classify(err)
	assert.Equal(t, domain.ErrorCodeNetwork, classified.Code)
	assert.Equal(t, 503, classified.StatusCode)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	for _, raw := range []string{"401 Unauthorized", "400 Bad Request", "quota exceeded"} {
		t.Run(raw, func(t *testing.T) {
			rec := &recordingSleep{}
			calls := 0

			_, err := Do(context.Background(), DefaultConfig(), func(context.Context) (int, error) {
				calls++
				return 0, errors.New(raw)
			}, WithSleep(rec.sleep))

			require.Error(t, err)
			assert.Equal(t, raw, err.Error())
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.waits)
		})
	}
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	rec := &recordingSleep{}
	var retried []domain.ErrorCode
	calls := 0

	got, err := Do(context.Background(), Config{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 Service Unavailable")
		}
		return "done", nil
	},
		WithSleep(rec.sleep),
		WithOnRetry(func(_ int, ce *domain.ClassifiedError, _ time.Duration) {
			retried = append(retried, ce.Code)
		}),
	)

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rec.waits)
	assert.Equal(t, []domain.ErrorCode{domain.ErrorCodeServer, domain.ErrorCodeServer}, retried)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Config{}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fetch failed")
	}, WithSleep((&recordingSleep{}).sleep))
	assert.Equal(t, 1, calls)
}

func TestDoStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Do(ctx, Config{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fetch failed")
	})

	require.Error(t, err)
	assert.Equal(t, "fetch failed", err.Error())
	assert.Equal(t, 1, calls)
}

func TestConfigDelay(t *testing.T) {
	cfg := Config{BaseDelay: time.Second}
	assert.Equal(t, time.Second, cfg.Delay(0))
	assert.Equal(t, 2*time.Second, cfg.Delay(1))
	assert.Equal(t, 4*time.Second, cfg.Delay(2))
}
