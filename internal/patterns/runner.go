package patterns

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/storefront-checkout/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var (
	ErrRunnerClosed = errors.New("task runner is shut down")
	ErrRunnerFull   = errors.New("task runner queue is full")
)

// Task is a unit of background work with an audited outcome
type Task struct {
	Name   string
	Fields log.Fields
	Run    func(ctx context.Context) error
}

// TaskRunner executes tasks on a fixed pool of workers. Every task gets its
// own timeout and its result is logged and counted; callers never see it.
type TaskRunner struct {
	queue   chan Task
	timeout time.Duration
	workers sync.WaitGroup
	pending sync.WaitGroup
	mutex   sync.RWMutex
	closed  bool
}

// NewTaskRunner starts workers goroutines consuming a queue of queueSize tasks
func NewTaskRunner(workers, queueSize int, taskTimeout time.Duration) *TaskRunner {
	if workers < 1 {
		workers = 1
	}
	if taskTimeout <= 0 {
		taskTimeout = SlowServiceTimeout
	}
	r := &TaskRunner{
		queue:   make(chan Task, queueSize),
		timeout: taskTimeout,
	}
	for i := 0; i < workers; i++ {
		r.workers.Add(1)
		go r.work()
	}
	return r
}

// Submit enqueues a task without waiting. A full queue returns ErrRunnerFull.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "dropped").Inc()
		return fmt.Errorf("enqueue %s: %w", task.Name, err)
	}

	r.pending.Add(1)
	select {
	case r.queue <- task:
		metrics.BackgroundQueueDepth.Inc()
		return nil
	default:
		r.pending.Done()
		metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "dropped").Inc()
		return fmt.Errorf("enqueue %s: %w", task.Name, ErrRunnerFull)
	}
}

// Wait blocks until every submitted task has finished
func (r *TaskRunner) Wait() {
	r.pending.Wait()
}

// Shutdown stops accepting tasks and waits for queued ones to drain
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mutex.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *TaskRunner) work() {
	defer r.workers.Done()
	for task := range r.queue {
		metrics.BackgroundQueueDepth.Dec()
		r.run(task)
	}
}

func (r *TaskRunner) run(task Task) {
	defer r.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	entry := log.WithFields(task.Fields).WithField("task", task.Name)
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task panicked: %v", p)
			}
		}()
		return task.Run(ctx)
	}()

	entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "failed").Inc()
		entry.WithError(err).Error("Background task failed")
		return
	}
	metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "succeeded").Inc()
	entry.Info("Background task completed")
}
