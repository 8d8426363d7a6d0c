package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

func fastConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:      maxRetries,
		InitialDelay:    time.Millisecond,
		MaxDelay:        10 * time.Millisecond,
		BackoffFactor:   2.0,
		JitterFactor:    0,
		LogRetryAttempt: false,
	}
}

func TestRetry_SuccessOnFirstAttempt_ReturnsResult(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), func() (string, error) {
		calls++
		return "success", nil
	}, fastConfig(3), logging.NewNoOpLogger())

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 1, calls)
}

func TestRetry_SuccessAfterFailures_ReturnsResult(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, fastConfig(5), logging.NewNoOpLogger())

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_AllAttemptsFail_ReturnsWrappedError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), func() (string, error) {
		calls++
		return "", errors.New("boom")
	}, fastConfig(3), logging.NewNoOpLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 3, calls)
}

func TestRetry_ShouldRetryPredicate_StopsEarly(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0

	config := fastConfig(5)
	config.ShouldRetry = func(err error, attempt int) bool {
		return !errors.Is(err, fatal)
	}

	_, err := Retry(context.Background(), func() (string, error) {
		calls++
		return "", fatal
	}, config, logging.NewNoOpLogger())

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "a non-retryable error should stop the loop")
}

func TestRetry_ContextCancelled_ReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, func() (string, error) {
		return "", errors.New("never retried")
	}, fastConfig(3), logging.NewNoOpLogger())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_InvalidConfig_ReturnsError(t *testing.T) {
	config := fastConfig(3)
	config.BackoffFactor = 0.5

	_, err := Retry(context.Background(), func() (string, error) {
		return "unreached", nil
	}, config, logging.NewNoOpLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid retry config")
}

func TestRetryFunc_WrapsErrorOnlyOperations(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, fastConfig(3), logging.NewNoOpLogger())

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCalculateNextDelay_GrowsAndCaps(t *testing.T) {
	tests := []struct {
		name     string
		current  time.Duration
		factor   float64
		max      time.Duration
		expected time.Duration
	}{
		{"doubles below cap", time.Second, 2.0, 30 * time.Second, 2 * time.Second},
		{"caps at max", 20 * time.Second, 2.0, 30 * time.Second, 30 * time.Second},
		{"factor one keeps delay", 5 * time.Second, 1.0, 30 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateNextDelay(tt.current, tt.factor, tt.max)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalculateDelayWithJitter_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond

	for i := 0; i < 20; i++ {
		got := CalculateDelayWithJitter(base, 0.5)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+50*time.Millisecond)
	}

	assert.Equal(t, base, CalculateDelayWithJitter(base, 0))
}

func TestDefaultRetryConfig_Values(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 5, config.MaxRetries)
	assert.Equal(t, time.Second, config.InitialDelay)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.BackoffFactor)
	assert.Equal(t, 0.2, config.JitterFactor)
	assert.True(t, config.LogRetryAttempt)
	assert.NoError(t, config.Validate())
}
