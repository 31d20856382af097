package challenge

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestInline_QueuesReentrantDispatch(t *testing.T) {
	t.Parallel()
	d := &Inline{}
	var order []int
	d.Dispatch(func() {
		order = append(order, 1)
		d.Dispatch(func() { order = append(order, 3) })
		order = append(order, 2)
	})
	if !slices.Equal(order, []int{1, 2, 3}) {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestLoop_RunsInOrder(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop()
	go func() { _ = l.Run(ctx) }()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 100 {
		l.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	if err := l.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("ran %d functions, want 100", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d", i, v)
		}
	}
}

func TestLoop_CallAfterStop(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	err := l.Call(context.Background(), func() { t.Error("fn ran after stop") })
	if !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Call() = %v, want ErrLoopStopped", err)
	}
}
