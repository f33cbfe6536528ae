package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/errors"
	"header-rules/internal/common/logging"
)

func testConfig() Config {
	return Config{MaxFailures: 3, Timeout: 50 * time.Millisecond, MaxConcurrentRequests: 1}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("redis", testConfig(), logging.NewNopLogger())
	ctx := context.Background()

	assert.Equal(t, StateClosed, b.State())
	for i := 0; i < 3; i++ {
		err := b.Execute(ctx, func() error { return fmt.Errorf("failure %d", i) })
		assert.Error(t, err)
	}
	assert.True(t, b.IsOpen())

	called := false
	err := b.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.True(t, stderrors.Is(err, ErrOpen))
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := New("redis", testConfig(), logging.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Execute(ctx, func() error { return fmt.Errorf("down") })
	}
	require.True(t, b.IsOpen())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresCallerErrors(t *testing.T) {
	b := New("redis", testConfig(), logging.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := b.Execute(ctx, func() error { return errors.ValidationError("bad input") })
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 5, b.Stats().Successes)
}

func TestBreaker_CancelledContext(t *testing.T) {
	b := New("redis", testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func() error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidConfigUsesDefaults(t *testing.T) {
	b := New("redis", Config{}, logging.NewNopLogger())

	stats := b.Stats()
	assert.Equal(t, "redis", stats.Name)
	assert.Equal(t, "closed", stats.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
