package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// countingFacility wraps a directory and counts every facility call, so
// tests can assert a lookup path was never taken.
type countingFacility struct {
	dir   *naming.Directory
	calls atomic.Int32
}

func (f *countingFacility) Register(name string, h proc.Handle) (*naming.Registration, error) {
	f.calls.Add(1)
	return f.dir.Register(name, h)
}

func (f *countingFacility) Lookup(name string) proc.Handle {
	f.calls.Add(1)
	return f.dir.Lookup(name)
}

func (f *countingFacility) Deregister(name string) {
	f.calls.Add(1)
	f.dir.Deregister(name)
}

func TestResolveNilShortCircuit(t *testing.T) {
	fac := &countingFacility{dir: naming.NewDirectory("node-1")}
	r := New("node-1", fac)

	ctx := context.Background()
	h, err := r.Resolve(ctx, nil)
	if err != nil {
		t.Fatalf("Resolve(nil) failed: %v", err)
	}
	if h != nil {
		t.Errorf("Expected nil handle, got %v", h)
	}
	if n := fac.calls.Load(); n != 0 {
		t.Errorf("Expected zero facility calls, got %d", n)
	}
}

func TestResolveHandlePassthrough(t *testing.T) {
	fac := &countingFacility{dir: naming.NewDirectory("node-1")}
	r := New("node-1", fac)
	worker, _ := spawnWorker(t, "node-1")

	h, err := r.Resolve(context.Background(), proc.Handle(worker))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if h.ID() != worker.ID() {
		t.Error("Handle did not pass through unchanged")
	}
	if n := fac.calls.Load(); n != 0 {
		t.Errorf("Expected zero facility calls for a handle key, got %d", n)
	}
}

func TestResolveName(t *testing.T) {
	r, _ := newTestRegistry(t, "node-1")
	worker, probe := spawnWorker(t, "node-1")

	p, err := r.AdoptUnder("cache-1", worker)
	if err != nil {
		t.Fatalf("AdoptUnder failed: %v", err)
	}
	t.Cleanup(p.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, key := range []any{Name("cache-1"), "cache-1"} {
		h, err := r.Resolve(ctx, key)
		if err != nil {
			t.Fatalf("Resolve(%v) failed: %v", key, err)
		}
		if h.ID() != worker.ID() {
			t.Errorf("Resolve(%v) returned the wrong handle", key)
		}
	}
	if probe.sawGetHandle.Load() {
		t.Error("Worker observed the reserved request during resolution")
	}
}

func TestResolveMissingName(t *testing.T) {
	r, _ := newTestRegistry(t, "node-1")

	_, err := r.Resolve(context.Background(), "missing")
	if !errors.Is(err, ErrNoSuchRegistration) {
		t.Errorf("Expected ErrNoSuchRegistration, got %v", err)
	}
}

func TestResolveUnsupportedKey(t *testing.T) {
	r, _ := newTestRegistry(t, "node-1")

	_, err := r.Resolve(context.Background(), 42)
	if !errors.Is(err, ErrNoSuchRegistration) {
		t.Errorf("Expected ErrNoSuchRegistration, got %v", err)
	}
}

func TestResolveAfterProxyStopped(t *testing.T) {
	r, _ := newTestRegistry(t, "node-1")
	worker, _ := spawnWorker(t, "node-1")

	p, err := r.AdoptUnder("cache-1", worker)
	if err != nil {
		t.Fatalf("AdoptUnder failed: %v", err)
	}
	p.Stop()
	<-p.Done()

	_, err = r.Resolve(context.Background(), "cache-1")
	if !errors.Is(err, ErrNoSuchRegistration) {
		t.Errorf("Expected ErrNoSuchRegistration after stop, got %v", err)
	}
}
