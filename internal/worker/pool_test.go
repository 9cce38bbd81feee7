package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// pageJob stands in for one document analysis
type pageJob struct {
	pages    int
	err      error
	delay    time.Duration
	started  chan<- struct{}
	inFlight *int32
	peak     *int32
}

type pageResult struct {
	pages int
	err   error
}

func (r *pageResult) Err() error { return r.err }

func (j *pageJob) Execute(ctx context.Context) Result {
	if j.inFlight != nil {
		n := atomic.AddInt32(j.inFlight, 1)
		defer atomic.AddInt32(j.inFlight, -1)
		for {
			peak := atomic.LoadInt32(j.peak)
			if n <= peak || atomic.CompareAndSwapInt32(j.peak, peak, n) {
				break
			}
		}
	}
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &pageResult{err: ctx.Err()}
		}
	}
	return &pageResult{pages: j.pages, err: j.err}
}

func TestNewPool_WorkerCount(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{requested: 4, want: 4},
		{requested: 0, want: 1},
		{requested: -3, want: 1},
	}

	for _, tt := range tests {
		p := NewPool(context.Background(), tt.requested)
		if p.workers != tt.want {
			t.Errorf("NewPool(%d): workers = %d, want %d", tt.requested, p.workers, tt.want)
		}
		if cap(p.jobQueue) != tt.want*2 {
			t.Errorf("NewPool(%d): queue capacity = %d, want %d", tt.requested, cap(p.jobQueue), tt.want*2)
		}
	}
}

func TestPool_WaitCollectsEveryResult(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	// 12 jobs fit in the queue, the result buffer and the busy workers
	const docs = 12
	for i := 1; i <= docs; i++ {
		if !pool.Submit(&pageJob{pages: i}) {
			t.Fatalf("Submit %d rejected", i)
		}
	}

	results := pool.Wait()
	if len(results) != docs {
		t.Fatalf("got %d results, want %d", len(results), docs)
	}

	total := 0
	for _, r := range results {
		total += r.(*pageResult).pages
	}
	if want := docs * (docs + 1) / 2; total != want {
		t.Errorf("page total = %d, want %d", total, want)
	}
}

func TestPool_ResultsChannelClosesAfterClose(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	for i := 0; i < 3; i++ {
		if !pool.Submit(&pageJob{pages: 1}) {
			t.Fatal("Submit rejected on a running pool")
		}
	}
	pool.Close()

	var n int
	for range pool.Results() {
		n++
	}
	if n != 3 {
		t.Errorf("got %d results, want 3", n)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 3
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var inFlight, peak int32
	go func() {
		for i := 0; i < 10; i++ {
			pool.Submit(&pageJob{delay: 20 * time.Millisecond, inFlight: &inFlight, peak: &peak})
		}
		pool.Close()
	}()

	var n int
	for range pool.Results() {
		n++
	}
	if n != 10 {
		t.Fatalf("got %d results, want 10", n)
	}
	if peak > workers {
		t.Errorf("peak concurrency %d exceeds %d workers", peak, workers)
	}
	if peak < 2 {
		t.Errorf("peak concurrency %d, expected jobs to overlap", peak)
	}
}

func TestPool_FailedJobsStillDeliverResults(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	broken := errors.New("corrupt document")
	pool.Submit(&pageJob{pages: 2})
	pool.Submit(&pageJob{err: broken})

	var failed int
	for _, r := range pool.Wait() {
		if errors.Is(r.Err(), broken) {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed results, want 1", failed)
	}
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{}, 1)
	pool.Submit(&pageJob{delay: time.Second, started: started})
	<-started
	cancel()

	if pool.Submit(&pageJob{}) {
		t.Error("Submit accepted a job after the parent context was cancelled")
	}

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked after parent cancel")
	}
}

func TestPool_ShutdownRejectsNewJobs(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool, 1)
	go func() { done <- pool.Submit(&pageJob{}) }()

	select {
	case ok := <-done:
		if ok {
			t.Error("Submit accepted a job after Shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}

	if _, open := <-pool.Results(); open {
		t.Error("results channel still open after Shutdown")
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	started := make(chan struct{}, 1)
	pool.Submit(&pageJob{delay: 5 * time.Second, started: started})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown waited for a cancelled job")
	}
}
