package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(3, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	const tasks = 10
	var done atomic.Int32
	var wg sync.WaitGroup
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		err := p.Submit(func(context.Context) error {
			defer wg.Done()
			done.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if done.Load() != tasks {
		t.Errorf("ran %d tasks, want %d", done.Load(), tasks)
	}
}

func TestPoolSubmitNil(t *testing.T) {
	p := NewPool(1, testLogger())
	if err := p.Submit(nil); err == nil {
		t.Error("Submit(nil) succeeded")
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := NewPool(1, testLogger()) // never started, queue only fills
	var err error
	for i := 0; i < 100; i++ {
		if err = p.Submit(func(context.Context) error { return nil }); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
}

func TestPoolRecoversFromPanic(t *testing.T) {
	p := NewPool(1, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	if err := p.Submit(func(context.Context) error { panic("boom") }); err != nil {
		t.Fatal(err)
	}

	// The worker must survive the panic and keep serving.
	ran := make(chan struct{})
	deadline := time.After(2 * time.Second)
	for {
		err := p.Submit(func(context.Context) error {
			close(ran)
			return nil
		})
		if err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never recovered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	select {
	case <-ran:
	case <-deadline:
		t.Fatal("follow-up task never ran")
	}
}

func TestPoolStop(t *testing.T) {
	p := NewPool(2, testLogger())
	p.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		_ = p.Submit(func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	time.Sleep(50 * time.Millisecond)
	p.Stop() // must not hang
	if ran.Load() == 0 {
		t.Error("no tasks ran before Stop")
	}
}
