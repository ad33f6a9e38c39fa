package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), nil, 3, 10*time.Millisecond, func(int) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	var seen []int
	err := RetryWithBackoff(context.Background(), nil, 5, time.Millisecond, func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	cause := errors.New("model returned malformed JSON")
	err := RetryWithBackoff(context.Background(), nil, 3, time.Millisecond, func(int) error {
		attempts++
		return cause
	})

	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "extraction attempts exhausted after 3 attempts: model returned malformed JSON")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, nil, 5, time.Millisecond, func(int) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("temporary error")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), nil, 0, time.Millisecond, func(int) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoff_ExponentialDelay(t *testing.T) {
	start := time.Now()
	_ = RetryWithBackoff(context.Background(), nil, 3, 10*time.Millisecond, func(int) error {
		return errors.New("fail")
	})

	// 10ms + 20ms between the three attempts
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
