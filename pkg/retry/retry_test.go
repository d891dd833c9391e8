package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		var retried []int
		err := Do(context.Background(), fastConfig(5), "postgres", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, func(attempt int, err error, next time.Duration) {
			retried = append(retried, attempt)
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), "redis", func(ctx context.Context) error {
			calls++
			return errors.New("down")
		}, nil)

		assert.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "redis: max retry attempts (3) exceeded")
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Do(ctx, fastConfig(3), "typesense", func(ctx context.Context) error {
			return nil
		}, nil)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDoPermanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := Do(context.Background(), fastConfig(5), "whatsapp", func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	}, nil)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "whatsapp: bad request", err.Error())
	assert.NoError(t, Permanent(nil))
}
