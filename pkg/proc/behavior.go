package proc

import "context"

// Behavior defines how a process reacts to the three message kinds.
// All three methods are invoked from the process's own goroutine, one
// message at a time, so implementations need no additional locking.
type Behavior interface {
	// HandleCast processes a one-way message. No reply is produced.
	HandleCast(msg any)
	// HandleCall processes a request and produces a reply. The context
	// carries the caller's deadline.
	HandleCall(ctx context.Context, req any) (any, error)
	// HandleInfo processes an out-of-band message (timers, notifications).
	HandleInfo(msg any)
}

// Terminator is an optional interface a Behavior can implement to run
// cleanup when its process exits. The reason is nil for a normal stop.
type Terminator interface {
	Terminate(reason error)
}

// BehaviorFuncs adapts plain functions to a Behavior. Nil functions are
// treated as no-ops (calls reply with a nil value).
type BehaviorFuncs struct {
	Cast func(msg any)
	Call func(ctx context.Context, req any) (any, error)
	Info func(msg any)
}

func (b BehaviorFuncs) HandleCast(msg any) {
	if b.Cast != nil {
		b.Cast(msg)
	}
}

func (b BehaviorFuncs) HandleCall(ctx context.Context, req any) (any, error) {
	if b.Call != nil {
		return b.Call(ctx, req)
	}
	return nil, nil
}

func (b BehaviorFuncs) HandleInfo(msg any) {
	if b.Info != nil {
		b.Info(msg)
	}
}
