package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubJob struct {
	id      string
	err     error
	done    *atomic.Int64
	started chan struct{}
	release chan struct{}
}

func (j *stubJob) Execute(ctx context.Context) error {
	if j.started != nil {
		close(j.started)
	}
	if j.release != nil {
		select {
		case <-j.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if j.done != nil {
		j.done.Add(1)
	}
	return j.err
}

func (j *stubJob) UserID() string      { return j.id }
func (j *stubJob) Description() string { return "stub job " + j.id }

func TestWorkerPool_ProcessesAllJobs(t *testing.T) {
	pool := NewWorkerPool(3, 0, 10, zerolog.Nop())
	pool.Start()

	var done atomic.Int64
	for i := 0; i < 10; i++ {
		if err := pool.Submit(&stubJob{id: "u", done: &done}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	pool.ShutdownWithTimeout(2 * time.Second)

	if got := done.Load(); got != 10 {
		t.Errorf("processed = %d, want 10", got)
	}
}

func TestWorkerPool_FailingJobDoesNotStopWorkers(t *testing.T) {
	pool := NewWorkerPool(1, 0, 10, zerolog.Nop())
	pool.Start()

	var done atomic.Int64
	_ = pool.Submit(&stubJob{id: "bad", err: errors.New("boom")})
	_ = pool.Submit(&stubJob{id: "good", done: &done})

	pool.ShutdownWithTimeout(2 * time.Second)

	if got := done.Load(); got != 1 {
		t.Errorf("subsequent job not processed, done = %d", got)
	}
}

func TestWorkerPool_FullQueueDropsJob(t *testing.T) {
	pool := NewWorkerPool(1, 0, 1, zerolog.Nop())
	pool.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	blocker := &stubJob{id: "blocker", started: started, release: release}
	if err := pool.Submit(blocker); err != nil {
		t.Fatalf("submit blocker: %v", err)
	}

	// Wait until the single worker is busy, then fill the one queue slot.
	<-started
	if err := pool.Submit(&stubJob{id: "queued"}); err != nil {
		t.Fatalf("submit queued: %v", err)
	}

	if err := pool.Submit(&stubJob{id: "dropped"}); err == nil {
		t.Error("expected an error when the queue is full")
	}

	close(release)
	pool.ShutdownWithTimeout(2 * time.Second)
}

func TestWorkerPool_ShutdownWaitsForInFlightJobs(t *testing.T) {
	pool := NewWorkerPool(2, 0, 4, zerolog.Nop())
	pool.Start()

	var done atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 4; i++ {
			_ = pool.Submit(&stubJob{id: "u", done: &done})
		}
	}()
	wg.Wait()

	pool.ShutdownWithTimeout(2 * time.Second)

	if got := done.Load(); got != 4 {
		t.Errorf("in-flight jobs not drained, done = %d", got)
	}
}
