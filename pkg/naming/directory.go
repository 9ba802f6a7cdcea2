package naming

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// conflictBuffer bounds the per-registration conflict channel. A proxy
// terminates on the first conflict, so anything past a few is noise.
const conflictBuffer = 4

type entry struct {
	handle    proc.Handle
	regID     string
	claimedAt int64 // unix nanoseconds, tie-break component
	conflicts chan Conflict
}

// Directory is the in-process name table: logical name -> handle.
// It is the whole facility on a single node and the local half of the
// networked Announcer.
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Lookups use RLock for concurrent reads
// 3. Conflict delivery never blocks (bounded channel, drop on overflow)
type Directory struct {
	node            string
	entries         map[string]*entry
	mu              sync.RWMutex
	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryLogger sets the logger used for registration events.
func WithDirectoryLogger(l logging.Logger) DirectoryOption {
	return func(d *Directory) { d.logger = l }
}

// WithDirectoryMetrics sets the metrics registry.
func WithDirectoryMetrics(m *metrics.Registry) DirectoryOption {
	return func(d *Directory) { d.metricsRegistry = m }
}

// NewDirectory creates an empty name table for the given node.
func NewDirectory(node string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		node:            node,
		entries:         make(map[string]*entry),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Node returns the node this directory belongs to.
func (d *Directory) Node() string { return d.node }

// Register claims a logical name for the given handle.
func (d *Directory) Register(name string, h proc.Handle) (*Registration, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if h == nil {
		return nil, ErrNilHandle
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[name]; exists {
		if d.metricsRegistry != nil {
			d.metricsRegistry.RecordRegistration("already_registered")
		}
		return nil, ErrNameTaken
	}

	e := &entry{
		handle:    h,
		regID:     uuid.NewString(),
		claimedAt: time.Now().UnixNano(),
		conflicts: make(chan Conflict, conflictBuffer),
	}
	d.entries[name] = e

	if d.metricsRegistry != nil {
		d.metricsRegistry.RecordRegistration("ok")
		d.metricsRegistry.SetNamesRegistered(len(d.entries))
	}

	return &Registration{
		Name:      name,
		ID:        e.regID,
		Conflicts: e.conflicts,
	}, nil
}

// Lookup resolves a logical name to its registered handle, or nil.
func (d *Directory) Lookup(name string) proc.Handle {
	d.mu.RLock()
	e, ok := d.entries[name]
	d.mu.RUnlock()

	if d.metricsRegistry != nil {
		d.metricsRegistry.RecordResolve(ok)
	}
	if !ok {
		return nil
	}
	return e.handle
}

// Deregister releases a logical name. Unknown names are ignored.
func (d *Directory) Deregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[name]; !ok {
		return
	}
	delete(d.entries, name)

	if d.metricsRegistry != nil {
		d.metricsRegistry.SetNamesRegistered(len(d.entries))
	}
}

// NotifyConflict delivers a conflict notification to the local
// registrant of name, if any. Delivery never blocks; a full channel
// drops the notification, which is safe because one is enough.
func (d *Directory) NotifyConflict(name, peer string) bool {
	d.mu.RLock()
	e, ok := d.entries[name]
	d.mu.RUnlock()

	if !ok {
		return false
	}

	select {
	case e.conflicts <- Conflict{Name: name, Peer: peer}:
	default:
	}
	return true
}

// claimInfo returns the tie-break data for a locally held name.
func (d *Directory) claimInfo(name string) (regID string, claimedAt int64, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, found := d.entries[name]
	if !found {
		return "", 0, false
	}
	return e.regID, e.claimedAt, true
}

// claims returns a snapshot of all local claims, for re-announcement.
func (d *Directory) claims() []claimRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]claimRecord, 0, len(d.entries))
	for name, e := range d.entries {
		out = append(out, claimRecord{
			Name:      name,
			RegID:     e.regID,
			ClaimedAt: e.claimedAt,
		})
	}
	return out
}

// Names returns the sorted set of locally registered names.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.entries))
	for name := range d.entries {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of locally registered names.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

type claimRecord struct {
	Name      string
	RegID     string
	ClaimedAt int64
}
