package registry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// State is a proxy lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateActive
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// Proxy is the cluster-addressable intermediary registered under a
// logical name. It owns a worker handle, set exactly once during
// initialization, and forwards all traffic to it. On a name conflict
// the proxy deregisters and stops, taking its worker with it.
type Proxy struct {
	name   Name
	node   string
	worker proc.Handle

	ref      *proc.Ref
	reg      *naming.Registration
	facility naming.Facility
	state    atomic.Int32

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// startConfig carries per-start options.
type startConfig struct {
	callback StartCallback
}

// StartOption configures a single start attempt.
type StartOption func(*startConfig)

// WithStartCallback sets the callback invoked after a successful start.
func WithStartCallback(cb StartCallback) StartOption {
	return func(c *startConfig) { c.callback = cb }
}

// StartUnder constructs a worker from the start spec and places it behind a
// proxy registered under name. A factory failure is fatal to the whole
// attempt: nothing is registered and the error is returned
// synchronously. On success the callback, if any, fires before
// StartUnder returns.
func (r *Registry) StartUnder(name Name, spec StartSpec, opts ...StartOption) (*Proxy, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrStartFailure)
	}
	if spec.Factory == nil {
		return nil, fmt.Errorf("%w: nil worker factory", ErrStartFailure)
	}

	var cfg startConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	worker, err := spec.Factory(spec.Args...)
	if err != nil {
		r.metricsRegistry.RecordWorkerStart("failure")
		return nil, fmt.Errorf("%w: %v", ErrStartFailure, err)
	}
	if worker == nil {
		r.metricsRegistry.RecordWorkerStart("failure")
		return nil, fmt.Errorf("%w: factory returned no handle", ErrStartFailure)
	}
	r.metricsRegistry.RecordWorkerStart("success")

	p, err := r.bringUp(name, worker)
	if err != nil {
		// The worker was created here; do not leak it
		stopWorker(worker, nil)
		return nil, err
	}

	if cfg.callback != nil {
		cfg.callback(StartedEvent{Node: r.node, Name: name, Handle: worker})
	}
	r.logger.Info("worker started",
		logging.RegistryName(string(name)),
		logging.NodeID(r.node),
		logging.HandleID(worker.ID()))
	return p, nil
}

// AdoptUnder places an already-running worker behind a proxy registered
// under name. No constructor runs and no callback fires; the worker's
// failure is linked to the proxy's lifecycle exactly as in start mode.
func (r *Registry) AdoptUnder(name Name, worker proc.Handle) (*Proxy, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrStartFailure)
	}
	if worker == nil {
		return nil, fmt.Errorf("%w: nil worker handle", ErrStartFailure)
	}
	return r.bringUp(name, worker)
}

// bringUp spawns the proxy process, claims the name and starts the
// conflict and worker watchers. The worker handle is stored before the
// proxy process accepts any traffic, so forwarding never observes an
// unset handle.
func (r *Registry) bringUp(name Name, worker proc.Handle) (*Proxy, error) {
	p := &Proxy{
		name:            name,
		node:            r.node,
		worker:          worker,
		facility:        r.facility,
		logger:          r.logger,
		metricsRegistry: r.metricsRegistry,
	}
	p.state.Store(int32(StateInitializing))

	ref, err := proc.Spawn(r.node, proxyBehavior{p: p})
	if err != nil {
		return nil, err
	}
	p.ref = ref

	reg, err := r.facility.Register(string(name), ref)
	if err != nil {
		ref.Stop()
		if errors.Is(err, naming.ErrNameTaken) {
			r.metricsRegistry.RecordRegistration("conflict")
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
		}
		r.metricsRegistry.RecordRegistration("error")
		return nil, err
	}
	p.reg = reg
	r.metricsRegistry.RecordRegistration("ok")

	p.state.Store(int32(StateActive))
	r.metricsRegistry.RecordProxyStarted()
	r.track(p)

	go p.watchConflicts()
	go p.watchWorker()
	return p, nil
}

// Name returns the logical name the proxy is registered under.
func (p *Proxy) Name() Name { return p.name }

// Worker returns the worker handle the proxy forwards to.
func (p *Proxy) Worker() proc.Handle { return p.worker }

// Self returns the proxy's own addressable handle. Traffic sent to it
// is forwarded to the worker.
func (p *Proxy) Self() *proc.Ref { return p.ref }

// State returns the proxy's lifecycle state.
func (p *Proxy) State() State { return State(p.state.Load()) }

// Stop requests a normal shutdown: the name is released and the worker
// stopped.
func (p *Proxy) Stop() { p.ref.Stop() }

// Done returns a channel closed once the proxy has terminated.
func (p *Proxy) Done() <-chan struct{} { return p.ref.Done() }

// ExitReason returns the proxy's exit reason after termination. It is
// ErrConflictShutdown for a yielded name and nil for a normal stop.
func (p *Proxy) ExitReason() error { return p.ref.ExitReason() }

// watchConflicts yields the proxy when the naming layer reports that
// another registrant claimed the same name. Whether zero, one or both
// racing proxies receive the notification depends on delivery; both
// yielding is safe, both surviving is what this prevents.
func (p *Proxy) watchConflicts() {
	for {
		select {
		case c, ok := <-p.reg.Conflicts:
			if !ok {
				return
			}
			if c.Name != string(p.name) {
				// Can only happen on a facility bug; not our conflict
				continue
			}
			p.logger.Warn("name conflict detected, yielding",
				logging.RegistryName(string(p.name)),
				logging.NodeID(p.node),
				logging.Peer(c.Peer))
			p.metricsRegistry.RecordConflict()
			p.ref.Kill(ErrConflictShutdown)
			return
		case <-p.ref.Done():
			return
		}
	}
}

// watchWorker terminates the proxy when its worker goes away. An
// abnormal worker exit is propagated as a failure; a normal worker stop
// releases the name with a normal proxy shutdown. Remote handles cannot
// be watched and are left to the remote node's own supervision.
func (p *Proxy) watchWorker() {
	w, ok := p.worker.(interface{ Watch() <-chan proc.ExitEvent })
	if !ok {
		return
	}

	select {
	case ev := <-w.Watch():
		if ev.Reason != nil {
			p.logger.Error("worker terminated abnormally",
				logging.RegistryName(string(p.name)),
				logging.NodeID(p.node),
				logging.Error(ev.Reason))
			p.ref.Kill(fmt.Errorf("%w: %v", ErrWorkerFailure, ev.Reason))
		} else {
			p.ref.Stop()
		}
	case <-p.ref.Done():
	}
}

// proxyBehavior is the proxy's message loop: transparent forwarding of
// casts, calls and out-of-band messages to the worker, with the single
// exception of the reserved get-handle request, which is answered
// locally and never reaches the worker.
type proxyBehavior struct {
	p *Proxy
}

func (b proxyBehavior) HandleCast(msg any) {
	b.p.metricsRegistry.RecordForward("cast")
	if err := b.p.worker.Cast(msg); err != nil {
		b.p.logger.Debug("cast forward failed",
			logging.RegistryName(string(b.p.name)),
			logging.Error(err))
	}
}

func (b proxyBehavior) HandleCall(ctx context.Context, req any) (any, error) {
	if _, ok := req.(naming.GetHandleRequest); ok {
		b.p.metricsRegistry.RecordGetHandle()
		return b.p.worker, nil
	}

	start := time.Now()
	val, err := b.p.worker.Call(ctx, req)
	b.p.metricsRegistry.RecordCallRelay(time.Since(start))
	return val, err
}

func (b proxyBehavior) HandleInfo(msg any) {
	b.p.metricsRegistry.RecordForward("notify")
	if err := b.p.worker.Notify(msg); err != nil {
		b.p.logger.Debug("notify forward failed",
			logging.RegistryName(string(b.p.name)),
			logging.Error(err))
	}
}

// Terminate releases the name and stops the worker. It runs on the
// proxy's own goroutine after the last message has been processed and
// before the exit becomes observable.
func (b proxyBehavior) Terminate(reason error) {
	p := b.p
	p.state.Store(int32(StateTerminating))

	if p.reg == nil {
		// Registration never completed; nothing to release
		return
	}

	p.facility.Deregister(string(p.name))
	stopWorker(p.worker, reason)

	label := shutdownLabel(reason)
	p.metricsRegistry.RecordProxyShutdown(label)
	p.logger.Info("proxy terminated",
		logging.RegistryName(string(p.name)),
		logging.NodeID(p.node),
		logging.Reason(label))
}

// stopWorker stops a local worker, propagating an abnormal reason as a
// kill. Handles that expose no stop surface (remote stand-ins) are left
// alone.
func stopWorker(worker proc.Handle, reason error) {
	if reason != nil {
		if k, ok := worker.(interface{ Kill(error) }); ok {
			k.Kill(reason)
			return
		}
	}
	if s, ok := worker.(interface{ Stop() }); ok {
		s.Stop()
	}
}

func shutdownLabel(reason error) string {
	switch {
	case reason == nil:
		return "normal"
	case errors.Is(reason, ErrConflictShutdown):
		return "conflict"
	case errors.Is(reason, ErrWorkerFailure):
		return "worker_failure"
	default:
		return "error"
	}
}
