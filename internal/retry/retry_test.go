package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	sentinel := errors.New("still failing")
	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return sentinel
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableError(t *testing.T) {
	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	fatal := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return fatal
	}, func(err error) bool {
		return false
	})

	require.Error(t, err)
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffFor(t *testing.T) {
	cfg := Config{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     300 * time.Millisecond,
	}

	assert.Equal(t, 100*time.Millisecond, backoffFor(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoffFor(cfg, 2))
	// Capped at MaxBackoff.
	assert.Equal(t, 300*time.Millisecond, backoffFor(cfg, 3))
	assert.Equal(t, 300*time.Millisecond, backoffFor(cfg, 4))
}
