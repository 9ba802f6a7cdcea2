package proc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// echoBehavior replies to calls with the request and records casts in order
type echoBehavior struct {
	mu    sync.Mutex
	casts []any
	infos []any
}

func (e *echoBehavior) HandleCast(msg any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.casts = append(e.casts, msg)
}

func (e *echoBehavior) HandleCall(ctx context.Context, req any) (any, error) {
	return req, nil
}

func (e *echoBehavior) HandleInfo(msg any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.infos = append(e.infos, msg)
}

func (e *echoBehavior) castCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.casts)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Condition not met within deadline")
}

func TestSpawnNilBehavior(t *testing.T) {
	_, err := Spawn("node-1", nil)
	if err != ErrNilBehavior {
		t.Errorf("Expected ErrNilBehavior, got %v", err)
	}
}

func TestCastOrderPreserved(t *testing.T) {
	b := &echoBehavior{}
	ref, err := Spawn("node-1", b)
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}
	defer ref.Stop()

	for i := 0; i < 100; i++ {
		if err := ref.Cast(i); err != nil {
			t.Fatalf("Cast failed: %v", err)
		}
	}

	waitFor(t, func() bool { return b.castCount() == 100 })

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, msg := range b.casts {
		if msg != i {
			t.Fatalf("Expected message %d at position %d, got %v", i, i, msg)
		}
	}
}

func TestCallEcho(t *testing.T) {
	ref, err := Spawn("node-1", &echoBehavior{})
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}
	defer ref.Stop()

	reply, err := ref.Call(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply != "ping" {
		t.Errorf("Expected 'ping', got %v", reply)
	}
}

func TestCallContextCancellation(t *testing.T) {
	// Behavior that blocks until its context expires
	b := BehaviorFuncs{
		Call: func(ctx context.Context, req any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	ref, err := Spawn("node-1", b)
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}
	defer ref.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = ref.Call(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestStopRejectsFurtherMessages(t *testing.T) {
	ref, err := Spawn("node-1", &echoBehavior{})
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}

	ref.Stop()
	<-ref.Done()

	if ref.IsAlive() {
		t.Error("Expected process to be stopped")
	}
	if err := ref.Cast("late"); err != ErrStopped {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if _, err := ref.Call(context.Background(), "late"); err != ErrStopped {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if ref.ExitReason() != nil {
		t.Errorf("Expected nil exit reason for normal stop, got %v", ref.ExitReason())
	}
}

func TestKillSetsExitReason(t *testing.T) {
	ref, err := Spawn("node-1", &echoBehavior{})
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}

	boom := errors.New("boom")
	ref.Kill(boom)
	<-ref.Done()

	if !errors.Is(ref.ExitReason(), boom) {
		t.Errorf("Expected exit reason 'boom', got %v", ref.ExitReason())
	}
}

func TestWatchDeliversExitEvent(t *testing.T) {
	ref, err := Spawn("node-1", &echoBehavior{})
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}

	watch := ref.Watch()
	boom := errors.New("boom")
	ref.Kill(boom)

	select {
	case ev := <-watch:
		if !errors.Is(ev.Reason, boom) {
			t.Errorf("Expected reason 'boom', got %v", ev.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for exit event")
	}

	// Watching an already-dead process delivers immediately
	select {
	case ev := <-ref.Watch():
		if !errors.Is(ev.Reason, boom) {
			t.Errorf("Expected reason 'boom', got %v", ev.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for immediate exit event")
	}
}

// terminatingBehavior records its termination reason
type terminatingBehavior struct {
	echoBehavior
	mu     sync.Mutex
	reason error
	called bool
}

func (tb *terminatingBehavior) Terminate(reason error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.called = true
	tb.reason = reason
}

func TestTerminateHook(t *testing.T) {
	tb := &terminatingBehavior{}
	ref, err := Spawn("node-1", tb)
	if err != nil {
		t.Fatalf("Failed to spawn: %v", err)
	}

	boom := errors.New("boom")
	ref.Kill(boom)
	<-ref.Done()

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if !tb.called {
		t.Fatal("Terminate hook was not called")
	}
	if !errors.Is(tb.reason, boom) {
		t.Errorf("Expected terminate reason 'boom', got %v", tb.reason)
	}
}
