package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPool_RunsJobs(t *testing.T) {
	p := newPool(2, 4)
	defer p.close()

	done := make(chan struct{})
	if err := p.submit(func() { close(done) }); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := newPool(1, 1)
	defer p.close()

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("submit blocker: %v", err)
	}
	<-started

	// Worker is occupied; this job sits in the queue buffer.
	if err := p.submit(func() {}); err != nil {
		t.Fatalf("submit queued job: %v", err)
	}
	// Buffer is full; the next submit must shed immediately.
	if err := p.submit(func() {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(release)
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := newPool(1, 1)
	p.close()
	if err := p.submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_RunHonorsCancellation(t *testing.T) {
	p := newPool(1, 1)
	defer p.close()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.run(ctx, func() { <-release })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
