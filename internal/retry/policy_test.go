package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFailsOnExactlyTheLastAttempt(t *testing.T) {
	for _, attempts := range []int{1, 6, 11} {
		t.Run(fmt.Sprintf("attempts=%d", attempts), func(t *testing.T) {
			calls := 0
			err := Policy{MaxAttempts: attempts}.Do(context.Background(), func(context.Context) error {
				calls++
				return fmt.Errorf("attempt %d", calls)
			})
			require.Error(t, err)
			assert.Equal(t, attempts, calls)
			assert.EqualError(t, err, fmt.Sprintf("attempt %d", attempts))
		})
	}
}

func TestPolicySucceedsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Policy{MaxAttempts: 11}.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)

	calls = 0
	require.NoError(t, Policy{MaxAttempts: 6}.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestPolicyZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, Once.Attempts())
}

func TestPolicyBackoffWaitsBetweenAttempts(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Policy{MaxAttempts: 3, Backoff: 10 * time.Millisecond}.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Policy{MaxAttempts: 11, Backoff: time.Hour}.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
