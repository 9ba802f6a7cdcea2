package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// crossNodeFacility is a local directory that falls back to peer
// directories on lookup, approximating the cluster-wide namespace for
// tests running several nodes in one process.
type crossNodeFacility struct {
	local *naming.Directory
	peers []*naming.Directory
}

func (f *crossNodeFacility) Register(name string, h proc.Handle) (*naming.Registration, error) {
	return f.local.Register(name, h)
}

func (f *crossNodeFacility) Lookup(name string) proc.Handle {
	if h := f.local.Lookup(name); h != nil {
		return h
	}
	for _, peer := range f.peers {
		if h := peer.Lookup(name); h != nil {
			return h
		}
	}
	return nil
}

func (f *crossNodeFacility) Deregister(name string) {
	f.local.Deregister(name)
}

func TestRaceLoserYieldsEndToEnd(t *testing.T) {
	dirA := naming.NewDirectory("node-a")
	dirB := naming.NewDirectory("node-b")
	regA := New("node-a", &crossNodeFacility{local: dirA, peers: []*naming.Directory{dirB}})
	regB := New("node-b", &crossNodeFacility{local: dirB, peers: []*naming.Directory{dirA}})

	w1, _ := spawnWorker(t, "node-a")
	pA, err := regA.StartUnder("cache-1", StartSpec{
		Factory: func(args ...any) (proc.Handle, error) { return w1, nil },
	})
	require.NoError(t, err)
	t.Cleanup(pA.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	h, err := regB.Resolve(ctx, "cache-1")
	require.NoError(t, err)
	require.Equal(t, w1.ID(), h.ID(), "resolution from the peer node must reach the started worker")

	// A second node claims the same name during the race window. Its
	// local registration succeeds; the namespace then reports the clash.
	w2, _ := spawnWorker(t, "node-b")
	pB, err := regB.StartUnder("cache-1", StartSpec{
		Factory: func(args ...any) (proc.Handle, error) { return w2, nil },
	})
	require.NoError(t, err)

	require.True(t, dirB.NotifyConflict("cache-1", "node-a"))

	select {
	case <-pB.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Losing proxy never terminated")
	}
	require.ErrorIs(t, pB.ExitReason(), ErrConflictShutdown)

	select {
	case <-w2.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Losing worker never stopped")
	}

	// The winner is untouched and resolution converges on it from
	// either node.
	require.Equal(t, StateActive, pA.State())
	for _, reg := range []*Registry{regA, regB} {
		h, err := reg.Resolve(ctx, "cache-1")
		require.NoError(t, err)
		require.Equal(t, w1.ID(), h.ID())
	}
}

func TestRaceBothYield(t *testing.T) {
	dirA := naming.NewDirectory("node-a")
	dirB := naming.NewDirectory("node-b")
	regA := New("node-a", &crossNodeFacility{local: dirA, peers: []*naming.Directory{dirB}})
	regB := New("node-b", &crossNodeFacility{local: dirB, peers: []*naming.Directory{dirA}})

	wA, _ := spawnWorker(t, "node-a")
	wB, _ := spawnWorker(t, "node-b")

	pA, err := regA.AdoptUnder("cache-1", wA)
	require.NoError(t, err)
	pB, err := regB.AdoptUnder("cache-1", wB)
	require.NoError(t, err)

	// Conflict delivery may reach both racers; both yielding is safe
	// and leaves the name briefly unclaimed.
	require.True(t, dirA.NotifyConflict("cache-1", "node-b"))
	require.True(t, dirB.NotifyConflict("cache-1", "node-a"))

	for _, p := range []*Proxy{pA, pB} {
		select {
		case <-p.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("Yielding proxy never terminated")
		}
		require.ErrorIs(t, p.ExitReason(), ErrConflictShutdown)
	}

	_, err = regA.Resolve(context.Background(), "cache-1")
	require.True(t, errors.Is(err, ErrNoSuchRegistration))
}
