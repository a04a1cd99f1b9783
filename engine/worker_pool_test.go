package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/franksops/pixmirror/engine"
)

func TestWorkerPool_Start(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{5, 5},
		{1, 1},
		{0, 1},
		{-3, 1},
	}

	for _, tt := range tests {
		ch := make(engine.TaskChannel)
		pool := engine.NewWorkerPool(context.Background(), ch, func(ctx context.Context, task engine.Task) error {
			return nil
		})
		pool.Start(tt.requested)
		if count := pool.WorkerCount(); count != tt.want {
			t.Errorf("Start(%d): expected %d workers, got %d", tt.requested, tt.want, count)
		}
		close(ch)
		if err := pool.Wait(); err != nil {
			t.Errorf("Start(%d): Wait returned %v", tt.requested, err)
		}
	}
}

func TestWorkerPool_Execution(t *testing.T) {
	ch := make(engine.TaskChannel, 100)

	var processed atomic.Int64
	var ticks atomic.Int64

	handler := func(ctx context.Context, task engine.Task) error {
		processed.Add(1)
		time.Sleep(5 * time.Millisecond) // simulate work
		return nil
	}

	pool := engine.NewWorkerPool(context.Background(), ch, handler)
	pool.OnDone = func(engine.Task) { ticks.Add(1) }
	pool.Start(3)

	for i := 0; i < 10; i++ {
		ch <- engine.Task{SourcePath: fmt.Sprintf("file%d.txt", i)}
	}
	close(ch)

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if processed.Load() != 10 {
		t.Errorf("Expected 10 processed tasks, got %d", processed.Load())
	}
	if ticks.Load() != 10 {
		t.Errorf("Expected 10 completion ticks, got %d", ticks.Load())
	}
}

func TestWorkerPool_FirstFatalErrorWins(t *testing.T) {
	ch := make(engine.TaskChannel, 100)

	errFirst := errors.New("first")
	laterStarted := make(chan struct{})
	release := make(chan struct{})

	handler := func(ctx context.Context, task engine.Task) error {
		switch task.SourcePath {
		case "fail-first":
			<-laterStarted
			return errFirst
		case "fail-later":
			close(laterStarted)
			<-release
			return errors.New("later")
		}
		return nil
	}

	pool := engine.NewWorkerPool(context.Background(), ch, handler)
	var fatalCalls atomic.Int64
	pool.OnFatal = func(error) { fatalCalls.Add(1) }

	ch <- engine.Task{SourcePath: "fail-later"}
	ch <- engine.Task{SourcePath: "fail-first"}
	pool.Start(2)

	select {
	case <-pool.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after a fatal error")
	}
	close(release)

	if err := pool.Wait(); !errors.Is(err, errFirst) {
		t.Errorf("expected first error, got %v", err)
	}
	if fatalCalls.Load() != 1 {
		t.Errorf("expected OnFatal once, got %d", fatalCalls.Load())
	}
}

func TestWorkerPool_GracefulDrain(t *testing.T) {
	ch := make(engine.TaskChannel, 100)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var processed atomic.Int64

	handler := func(ctx context.Context, task engine.Task) error {
		processed.Add(1)
		switch task.SourcePath {
		case "slow":
			close(inFlight)
			<-release
			finished.Store(true)
			return nil
		case "bad":
			<-inFlight
			return errors.New("boom")
		}
		return nil
	}

	pool := engine.NewWorkerPool(context.Background(), ch, handler)
	ch <- engine.Task{SourcePath: "slow"}
	ch <- engine.Task{SourcePath: "bad"}
	for i := 0; i < 20; i++ {
		ch <- engine.Task{SourcePath: "later"}
	}
	pool.Start(2)

	<-pool.Stopped()
	close(release)

	if err := pool.Wait(); err == nil {
		t.Fatal("expected a fatal error")
	}
	if !finished.Load() {
		t.Errorf("in-flight task was not allowed to finish")
	}
	if n := processed.Load(); n > 3 {
		t.Errorf("expected the pool to stop taking tasks, processed %d", n)
	}
}

func TestWorkerPool_PanicIsFatal(t *testing.T) {
	ch := make(engine.TaskChannel, 1)
	var ticks atomic.Int64

	pool := engine.NewWorkerPool(context.Background(), ch, func(ctx context.Context, task engine.Task) error {
		panic("decoder exploded")
	})
	pool.OnDone = func(engine.Task) { ticks.Add(1) }
	pool.Start(1)

	ch <- engine.Task{SourcePath: "x"}
	close(ch)

	err := pool.Wait()
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
	if ticks.Load() != 1 {
		t.Errorf("expected one completion tick, got %d", ticks.Load())
	}
}

func TestWorkerPool_Backpressure(t *testing.T) {
	const capacity = 3
	ch := make(engine.TaskChannel, capacity)

	release := make(chan struct{})
	pool := engine.NewWorkerPool(context.Background(), ch, func(ctx context.Context, task engine.Task) error {
		<-release
		return nil
	})
	pool.Start(1)

	var sent atomic.Int64
	go func() {
		for i := 0; i < 50; i++ {
			ch <- engine.Task{}
			sent.Add(1)
		}
		close(ch)
	}()

	time.Sleep(50 * time.Millisecond)
	// One task held by the worker plus a full queue.
	if n := sent.Load(); n > capacity+1 {
		t.Errorf("producer ran ahead of the queue: %d sent", n)
	}
	if len(ch) > capacity {
		t.Errorf("queue holds %d tasks, capacity %d", len(ch), capacity)
	}

	close(release)
	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if sent.Load() != 50 {
		t.Errorf("expected all 50 tasks sent, got %d", sent.Load())
	}
}

func TestWorkerPool_ContextCancel(t *testing.T) {
	ch := make(engine.TaskChannel)
	ctx, cancel := context.WithCancel(context.Background())

	pool := engine.NewWorkerPool(ctx, ch, func(ctx context.Context, task engine.Task) error { return nil })
	pool.Start(4)
	cancel()

	if err := pool.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWorkerPool_Stop(t *testing.T) {
	ch := make(engine.TaskChannel, 1)
	started := make(chan struct{})

	pool := engine.NewWorkerPool(context.Background(), ch, func(ctx context.Context, task engine.Task) error {
		close(started)
		<-ctx.Done()
		return nil
	})
	pool.Start(2)
	ch <- engine.Task{SourcePath: "blocked"}
	<-started

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	if err := pool.Err(); err != nil {
		t.Errorf("expected no fatal error, got %v", err)
	}
}

func TestFatalCell(t *testing.T) {
	var cell engine.FatalCell
	if cell.Err() != nil {
		t.Fatal("expected empty cell")
	}
	if cell.Set(nil) {
		t.Error("nil must not be recorded")
	}

	first := errors.New("first")
	var wg sync.WaitGroup
	var wins atomic.Int64
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := first
			if i > 0 {
				err = fmt.Errorf("other %d", i)
				time.Sleep(time.Millisecond)
			}
			if cell.Set(err) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
	if cell.Err() == nil {
		t.Error("expected an error to be recorded")
	}
}
