package supervise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceOperationWins(t *testing.T) {
	v, branch, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, BranchOperation, branch)
	assert.Equal(t, 7, v)
}

func TestRaceOperationError(t *testing.T) {
	want := errors.New("boom")
	_, branch, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, want
	})
	assert.Equal(t, BranchOperation, branch)
	assert.ErrorIs(t, err, want)
}

func TestRaceTimerWinsAndCancelsOperation(t *testing.T) {
	cancelled := make(chan struct{})
	v, branch, err := Race(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 1, ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, BranchTimer, branch)
	assert.Zero(t, v)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("losing operation was not cancelled")
	}
}

func TestRaceParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	block := make(chan struct{})
	defer close(block)
	_, branch, err := Race(ctx, time.Minute, func(context.Context) (struct{}, error) {
		<-block
		return struct{}{}, nil
	})
	assert.Equal(t, BranchCancelled, branch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRaceRecoversPanic(t *testing.T) {
	_, branch, err := Race(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	assert.Equal(t, BranchOperation, branch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWithTimeout(t *testing.T) {
	var late atomic.Bool
	_, err := WithTimeout(context.Background(), 30*time.Millisecond, func(ctx context.Context) (string, error) {
		time.Sleep(100 * time.Millisecond)
		late.Store(true)
		return "late", nil
	})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "timeout after 30ms", err.Error())
	assert.False(t, late.Load())

	v, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestTimeoutErrorMessage(t *testing.T) {
	assert.Equal(t, "timeout after 2000ms", (&TimeoutError{Duration: 2 * time.Second}).Error())
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(errors.New("x")))
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
}

func TestBranchString(t *testing.T) {
	assert.Equal(t, "operation", BranchOperation.String())
	assert.Equal(t, "timer", BranchTimer.String())
	assert.Equal(t, "cancelled", BranchCancelled.String())
	assert.Equal(t, "branch(9)", Branch(9).String())
}
