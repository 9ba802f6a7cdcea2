// Package registry provides cluster-wide singleton process placement.
// A worker is started (or adopted) behind a conflict proxy that claims
// its logical name in the cluster namespace and forwards all traffic to
// it. When two nodes race to claim the same name, the naming layer
// notifies the losing proxy, which yields by shutting itself and its
// worker down, leaving at most one holder of the name.
package registry

import (
	"sync"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// Name is a cluster-wide unique key identifying a singleton worker.
type Name string

// WorkerFactory constructs a worker process. A factory that returns an
// error fails the whole start attempt; nothing is registered.
type WorkerFactory func(args ...any) (proc.Handle, error)

// StartSpec describes how to construct a worker for start mode.
type StartSpec struct {
	Factory WorkerFactory
	Args    []any
}

// StartedEvent is passed to the start callback after a worker has been
// successfully started and its name claimed.
type StartedEvent struct {
	Node   string
	Name   Name
	Handle proc.Handle
}

// StartCallback is invoked synchronously after a successful start.
type StartCallback func(StartedEvent)

// Registry places singleton workers behind conflict proxies. It is safe
// for concurrent use.
//
// Concurrent Safety:
// 1. The proxy table is guarded by its own mutex
// 2. Each proxy processes its traffic on its own sequential mailbox
// 3. Facility implementations provide their own synchronization
type Registry struct {
	node     string
	facility naming.Facility

	mu      sync.Mutex
	proxies map[Name]*Proxy

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Registry) { r.metricsRegistry = m }
}

// New creates a registry for the given node backed by the given naming
// facility.
func New(node string, facility naming.Facility, opts ...Option) *Registry {
	r := &Registry{
		node:            node,
		facility:        facility,
		proxies:         make(map[Name]*Proxy),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Node returns the local node identifier.
func (r *Registry) Node() string { return r.node }

// ActiveProxies returns the number of proxies currently alive on this
// node.
func (r *Registry) ActiveProxies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Shutdown stops every proxy on this node. Each proxy deregisters its
// name and stops its worker as part of shutting down.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	proxies := make([]*Proxy, 0, len(r.proxies))
	for _, p := range r.proxies {
		proxies = append(proxies, p)
	}
	r.mu.Unlock()

	for _, p := range proxies {
		p.Stop()
		<-p.Done()
		r.untrack(p)
	}
}

func (r *Registry) track(p *Proxy) {
	r.mu.Lock()
	r.proxies[p.name] = p
	r.mu.Unlock()

	go func() {
		<-p.Done()
		r.untrack(p)
	}()
}

func (r *Registry) untrack(p *Proxy) {
	r.mu.Lock()
	if r.proxies[p.name] == p {
		delete(r.proxies, p.name)
	}
	r.mu.Unlock()
}
