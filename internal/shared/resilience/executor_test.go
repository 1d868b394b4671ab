package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesRetryableFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())
	var retried []int
	exec.OnRetry = func(_ string, attempt int, _ error) { retried = append(retried, attempt) }

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "reformulate", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []int{1, 2}, retried)
}

func TestExecuteStopsAfterMaxAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "reformulate", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})

	require.ErrorIs(t, err, errTemp)
	require.Equal(t, 3, attempts)
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "reformulate", func(context.Context) error {
		attempts++
		return errPermanent
	}, nil)

	require.ErrorIs(t, err, errPermanent)
	require.Equal(t, 1, attempts)
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "reformulate", func(context.Context) error {
		called = true
		return nil
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "reformulate", func(context.Context) error {
			return errTemp
		}, nil)
		require.ErrorIs(t, err, errTemp)
	}

	err := exec.Execute(context.Background(), "reformulate", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.True(t, IsCircuitOpen(err))
}
