package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunnerCountsOutcomes(t *testing.T) {
	r := New(zaptest.NewLogger(t).Sugar(), 2, 8)

	var ran atomic.Int32
	r.Go("ok", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	r.Go("fails", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	})
	r.Go("panics", func(ctx context.Context) error {
		ran.Add(1)
		panic("unexpected")
	})

	require.NoError(t, r.Shutdown(context.Background()))

	assert.Equal(t, int32(3), ran.Load())
	stats := r.Stats()
	assert.Equal(t, int64(3), stats.Submitted)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestRunnerNeverBlocksWhenQueueIsFull(t *testing.T) {
	r := New(zaptest.NewLogger(t).Sugar(), 1, 0)

	release := make(chan struct{})
	started := make(chan struct{})
	r.Go("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			r.Go("extra", func(ctx context.Context) error { return nil })
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("Go blocked on a busy runner")
	}

	close(release)
	require.NoError(t, r.Shutdown(context.Background()))

	stats := r.Stats()
	assert.Equal(t, int64(6), stats.Completed)
	assert.Positive(t, stats.Overflowed)
}

func TestRunnerShutdown(t *testing.T) {
	t.Run("drains pending work", func(t *testing.T) {
		r := New(zaptest.NewLogger(t).Sugar(), 1, 16)

		var ran atomic.Int32
		for i := 0; i < 10; i++ {
			r.Go("work", func(ctx context.Context) error {
				time.Sleep(time.Millisecond)
				ran.Add(1)
				return nil
			})
		}

		require.NoError(t, r.Shutdown(context.Background()))
		assert.Equal(t, int32(10), ran.Load())
	})

	t.Run("drops work after shutdown", func(t *testing.T) {
		r := New(zaptest.NewLogger(t).Sugar(), 1, 1)
		require.NoError(t, r.Shutdown(context.Background()))
		require.NoError(t, r.Shutdown(context.Background()), "second shutdown is a no-op")

		called := false
		r.Go("late", func(ctx context.Context) error {
			called = true
			return nil
		})

		assert.False(t, called)
		assert.Equal(t, int64(1), r.Stats().Dropped)
	})

	t.Run("gives up when the deadline passes", func(t *testing.T) {
		r := New(zaptest.NewLogger(t).Sugar(), 1, 1)

		cancelled := make(chan struct{})
		r.Go("stuck", func(ctx context.Context) error {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := r.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		select {
		case <-cancelled:
		case <-time.After(2 * time.Second):
			t.Fatal("running task context was not cancelled")
		}
		require.Eventually(t, func() bool {
			return r.Stats().Failed == 1
		}, 2*time.Second, time.Millisecond)
	})
}
