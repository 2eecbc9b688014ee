package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "export"}))
	select {
	case id := <-done:
		assert.Equal(t, "job-1", id)
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueExhaustedWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	exhausted := make(chan error, 1)
	q := NewQueue("test", func(context.Context, Job) error {
		calls.Add(1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: -1,
		OnExhausted: func(_ context.Context, _ Job, err error) {
			exhausted <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))
	select {
	case err := <-exhausted:
		assert.EqualError(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("exhausted hook not called")
	}
	assert.Equal(t, int32(1), calls.Load())
	_, failed := q.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrNotStarted)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "y"}), ErrNotStarted)
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	attempts := make(chan int, 3)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt < 2 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-3"}))
	for want := 0; want <= 2; want++ {
		select {
		case got := <-attempts:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("attempt %d not run", want)
		}
	}
	require.Eventually(t, func() bool {
		processed, failed := q.Stats()
		return processed == 1 && failed == 0
	}, time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "overflow"}), ErrQueueFull)
}
