package proc

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Handle is an opaque reference used to address a unit of work. Local
// processes and remote stand-ins both implement it.
type Handle interface {
	// ID returns the unique process identifier.
	ID() string
	// Node returns the cluster node the process lives on.
	Node() string
	// Cast delivers a one-way message. Order is preserved per sender.
	Cast(msg any) error
	// Call delivers a request and blocks until the reply arrives, the
	// context expires, or the process stops.
	Call(ctx context.Context, req any) (any, error)
	// Notify delivers an out-of-band message. No reply is expected.
	Notify(msg any) error
}

type msgKind int

const (
	kindCast msgKind = iota
	kindCall
	kindInfo
)

type callResult struct {
	val any
	err error
}

type envelope struct {
	kind  msgKind
	msg   any
	ctx   context.Context
	reply chan callResult
}

// Ref is a local process: a goroutine draining a FIFO mailbox. Messages
// for the same Ref are dispatched strictly sequentially, which is what
// makes single-assignment state safe without locking in behaviors.
type Ref struct {
	id   string
	node string

	mailbox chan envelope
	quit    chan struct{}
	done    chan struct{}

	quitOnce   sync.Once
	quitReason error

	mu       sync.Mutex
	stopped  bool
	exitErr  error
	watchers []chan ExitEvent

	behavior Behavior
}

// ExitEvent reports a process exit to watchers. Reason is nil for a
// normal stop.
type ExitEvent struct {
	Ref    *Ref
	Reason error
}

// Option configures a spawned process.
type Option func(*Ref)

// WithMailboxSize sets the mailbox buffer size (default 128).
func WithMailboxSize(n int) Option {
	return func(r *Ref) {
		r.mailbox = make(chan envelope, n)
	}
}

// Spawn starts a new process on the given node running the behavior.
func Spawn(node string, b Behavior, opts ...Option) (*Ref, error) {
	if b == nil {
		return nil, ErrNilBehavior
	}

	r := &Ref{
		id:       uuid.NewString(),
		node:     node,
		mailbox:  make(chan envelope, 128),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		behavior: b,
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.loop()
	return r, nil
}

// ID returns the unique process identifier.
func (r *Ref) ID() string { return r.id }

// Node returns the cluster node the process lives on.
func (r *Ref) Node() string { return r.node }

// Done returns a channel closed when the process has exited.
func (r *Ref) Done() <-chan struct{} { return r.done }

// IsAlive reports whether the process is still running.
func (r *Ref) IsAlive() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// ExitReason returns the exit reason after the process has stopped.
// It returns nil while the process is alive or after a normal stop.
func (r *Ref) ExitReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitErr
}

// Cast delivers a one-way message to the mailbox.
func (r *Ref) Cast(msg any) error {
	select {
	case r.mailbox <- envelope{kind: kindCast, msg: msg}:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

// Notify delivers an out-of-band message to the mailbox.
func (r *Ref) Notify(msg any) error {
	select {
	case r.mailbox <- envelope{kind: kindInfo, msg: msg}:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

// Call delivers a request and waits for the reply. The caller's context
// bounds the wait; the process itself applies no timeout.
func (r *Ref) Call(ctx context.Context, req any) (any, error) {
	reply := make(chan callResult, 1)
	env := envelope{kind: kindCall, msg: req, ctx: ctx, reply: reply}

	select {
	case r.mailbox <- env:
	case <-r.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrStopped
	}
}

// Stop requests a normal shutdown.
func (r *Ref) Stop() {
	r.signalQuit(nil)
}

// Kill terminates the process with an abnormal reason.
func (r *Ref) Kill(reason error) {
	r.signalQuit(reason)
}

func (r *Ref) signalQuit(reason error) {
	r.quitOnce.Do(func() {
		r.quitReason = reason
		close(r.quit)
	})
}

// Watch returns a channel that receives exactly one ExitEvent when the
// process exits. If the process has already exited, the event is
// delivered immediately.
func (r *Ref) Watch() <-chan ExitEvent {
	ch := make(chan ExitEvent, 1)

	r.mu.Lock()
	if r.stopped {
		reason := r.exitErr
		r.mu.Unlock()
		ch <- ExitEvent{Ref: r, Reason: reason}
		return ch
	}
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()

	return ch
}

// loop is the process body. It drains the mailbox one envelope at a
// time until a quit is signalled.
func (r *Ref) loop() {
	for {
		select {
		case <-r.quit:
			r.finish(r.quitReason)
			return
		case env := <-r.mailbox:
			r.dispatch(env)
		}
	}
}

func (r *Ref) dispatch(env envelope) {
	switch env.kind {
	case kindCast:
		r.behavior.HandleCast(env.msg)
	case kindCall:
		val, err := r.behavior.HandleCall(env.ctx, env.msg)
		env.reply <- callResult{val: val, err: err}
	case kindInfo:
		r.behavior.HandleInfo(env.msg)
	}
}

func (r *Ref) finish(reason error) {
	r.mu.Lock()
	r.stopped = true
	r.exitErr = reason
	watchers := r.watchers
	r.watchers = nil
	r.mu.Unlock()

	// Run cleanup before the exit becomes observable through Done
	if term, ok := r.behavior.(Terminator); ok {
		term.Terminate(reason)
	}

	close(r.done)

	for _, ch := range watchers {
		ch <- ExitEvent{Ref: r, Reason: reason}
	}
}
