package patterns

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("trip-test", "test-service")
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, "open", cb.GetState())
	assert.Equal(t, 1, cb.GetStateValue())

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, FormatError("trip-test", err).Error(), "is open")
}

func TestCircuitBreaker_RejectedRequestsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("reject-test", "test-service")
	rejected := errors.Join(ErrRejected, errors.New("400 bad request"))

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, rejected })
		require.ErrorIs(t, err, ErrRejected)
	}

	assert.Equal(t, "closed", cb.GetState())
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(1, "full-test", "test-service")
	b.wait = 20 * time.Millisecond

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.Equal(t, 1, b.InUse())
	err := b.Execute(context.Background(), func() error { return nil })
	close(release)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout acquiring resource")
}

func TestBulkhead_HonoursContext(t *testing.T) {
	b := NewBulkhead(1, "ctx-test", "test-service")
	b.semaphore <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuard_PassesResultThrough(t *testing.T) {
	g := NewGuard("guard-test", "test-service", 2)

	res, err := g.Do(context.Background(), func() (interface{}, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, res)

	status := g.Status()
	assert.Equal(t, "guard-test", status.Name)
	assert.Equal(t, "closed", status.State)
	assert.Equal(t, 0, status.BulkheadInUse)
	assert.Equal(t, 2, status.BulkheadCapacity)
}

func TestTaskRunner_RunsEveryTask(t *testing.T) {
	r := NewTaskRunner(3, 20, time.Second)
	var count atomic.Int32

	for i := 0; i < 20; i++ {
		err := r.Submit(context.Background(), Task{
			Name: "count",
			Run: func(ctx context.Context) error {
				count.Add(1)
				return nil
			},
		})
		require.NoError(t, err)
	}
	r.Wait()

	assert.Equal(t, int32(20), count.Load())
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestTaskRunner_FailuresAndPanicsAreContained(t *testing.T) {
	r := NewTaskRunner(1, 4, time.Second)
	var ran atomic.Int32

	require.NoError(t, r.Submit(context.Background(), Task{Name: "fail", Run: func(ctx context.Context) error {
		return errors.New("nope")
	}}))
	require.NoError(t, r.Submit(context.Background(), Task{Name: "panic", Run: func(ctx context.Context) error {
		panic("kaboom")
	}}))
	require.NoError(t, r.Submit(context.Background(), Task{Name: "after", Run: func(ctx context.Context) error {
		ran.Add(1)
		return nil
	}}))
	r.Wait()

	assert.Equal(t, int32(1), ran.Load())
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestTaskRunner_TaskGetsDeadline(t *testing.T) {
	r := NewTaskRunner(1, 1, 10*time.Millisecond)
	var deadlineErr error

	require.NoError(t, r.Submit(context.Background(), Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		deadlineErr = ctx.Err()
		return deadlineErr
	}}))
	r.Wait()

	assert.ErrorIs(t, deadlineErr, context.DeadlineExceeded)
}

func TestTaskRunner_SubmitAfterShutdown(t *testing.T) {
	r := NewTaskRunner(1, 1, time.Second)
	require.NoError(t, r.Shutdown(context.Background()))

	err := r.Submit(context.Background(), Task{Name: "late", Run: func(ctx context.Context) error { return nil }})

	assert.ErrorIs(t, err, ErrRunnerClosed)
}

func TestTaskRunner_SubmitDoesNotWaitWhenFull(t *testing.T) {
	r := NewTaskRunner(1, 1, time.Second)
	release := make(chan struct{})
	started := make(chan struct{})
	block := func(ctx context.Context) error {
		<-release
		return nil
	}

	require.NoError(t, r.Submit(context.Background(), Task{Name: "busy", Run: func(ctx context.Context) error {
		close(started)
		return block(ctx)
	}}))
	<-started
	require.NoError(t, r.Submit(context.Background(), Task{Name: "queued", Run: block}))

	done := make(chan error, 1)
	go func() {
		done <- r.Submit(context.Background(), Task{Name: "overflow", Run: block})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRunnerFull)
	case <-time.After(time.Second):
		t.Fatal("Submit waited for queue space")
	}

	close(release)
	r.Wait()
	require.NoError(t, r.Shutdown(context.Background()))
}
