package naming

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// GetHandleRequest is the reserved request a proxy answers locally with
// its stored worker handle, without forwarding to the worker.
type GetHandleRequest struct{}

// ackTimeout bounds one-way operations so a dead peer cannot wedge the
// sending goroutine indefinitely.
const ackTimeout = 10 * time.Second

type remoteTarget struct {
	node string // owning node
	addr string // dispatch address of the owning node
	name string // logical name, for name-routed operations
	id   string // target identifier, for id-routed operations
}

// remoteHandle implements proc.Handle for a process living on another
// node. Operations are relayed over a REQ/REP socket to the owning
// node's dispatcher. The socket is lazily dialed and serialized, which
// also preserves per-sender ordering.
type remoteHandle struct {
	target          remoteTarget
	factory         SocketFactory
	metricsRegistry *metrics.Registry

	mu   sync.Mutex // serializes the REQ/REP alternation
	sock DialSocket
}

func newRemoteHandle(factory SocketFactory, target remoteTarget, m *metrics.Registry) *remoteHandle {
	return &remoteHandle{
		target:          target,
		factory:         factory,
		metricsRegistry: m,
	}
}

// Close releases the handle's socket. The handle stays usable and
// redials on the next operation.
func (h *remoteHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropSocket()
}

// ID returns the remote process identifier.
func (h *remoteHandle) ID() string { return h.target.id }

// Node returns the node the remote process lives on.
func (h *remoteHandle) Node() string { return h.target.node }

// Cast relays a one-way message to the owning node.
func (h *remoteHandle) Cast(msg any) error {
	reply, err := h.roundTrip(nil, MsgCast, msg)
	if err != nil {
		return err
	}
	return wireError(reply)
}

// Notify relays an out-of-band message to the owning node.
func (h *remoteHandle) Notify(msg any) error {
	reply, err := h.roundTrip(nil, MsgNotify, msg)
	if err != nil {
		return err
	}
	return wireError(reply)
}

// Call relays a request to the owning node and returns the reply. The
// reserved GetHandleRequest is translated to its dedicated wire form,
// and the descriptor that comes back becomes a new remote handle.
func (h *remoteHandle) Call(ctx context.Context, req any) (any, error) {
	if _, ok := req.(GetHandleRequest); ok {
		return h.getHandle(ctx)
	}

	reply, err := h.roundTrip(ctx, MsgCall, req)
	if err != nil {
		return nil, err
	}
	if err := wireError(reply); err != nil {
		return nil, err
	}
	return reply.PayloadValue()
}

func (h *remoteHandle) getHandle(ctx context.Context) (any, error) {
	reply, err := h.roundTrip(ctx, MsgGetHandle, nil)
	if err != nil {
		return nil, err
	}
	if err := wireError(reply); err != nil {
		return nil, err
	}

	return newRemoteHandle(h.factory, remoteTarget{
		node: reply.Node,
		addr: reply.DispatchAddr,
		id:   reply.TargetID,
	}, h.metricsRegistry), nil
}

func (h *remoteHandle) roundTrip(ctx context.Context, msgType MessageType, payload any) (*Message, error) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}
	msg.Node = h.target.node
	msg.Name = h.target.name
	msg.TargetID = h.target.id

	data, err := msg.Encode()
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureSocket(); err != nil {
		return nil, err
	}

	deadline := ackTimeout
	if ctx != nil {
		if d, ok := ctx.Deadline(); ok {
			deadline = time.Until(d)
			if deadline <= 0 {
				return nil, context.DeadlineExceeded
			}
		} else {
			// Caller chose no deadline; wait as long as it does
			deadline = 0
		}
	}
	if err := h.sock.SetSendDeadline(deadline); err != nil {
		return nil, err
	}
	if err := h.sock.SetRecvDeadline(deadline); err != nil {
		return nil, err
	}

	if err := h.sock.Send(data); err != nil {
		h.dropSocket()
		return nil, err
	}
	if h.metricsRegistry != nil {
		h.metricsRegistry.RecordTransportMessage("sent", msgTypeLabel(msgType), len(data))
		if msg.Compressed {
			h.metricsRegistry.PayloadsCompressed.Inc()
		}
	}

	raw, err := h.sock.Recv()
	if err != nil {
		// A REQ socket cannot be reused after a missed reply
		h.dropSocket()
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if h.metricsRegistry != nil {
		h.metricsRegistry.RecordTransportMessage("received", "reply", len(raw))
	}

	return DecodeMessage(raw)
}

func (h *remoteHandle) ensureSocket() error {
	if h.sock != nil {
		return nil
	}
	sock, err := h.factory.NewReqSocket()
	if err != nil {
		return err
	}
	if err := sock.Dial(h.target.addr); err != nil {
		sock.Close()
		return err
	}
	h.sock = sock
	return nil
}

func (h *remoteHandle) dropSocket() {
	if h.sock != nil {
		h.sock.Close()
		h.sock = nil
	}
}

// wireError maps a reply's error code to a caller-facing error.
func wireError(m *Message) error {
	if m.Type != MsgError {
		return nil
	}
	switch m.ErrorCode {
	case CodeNoSuchRegistration:
		return ErrNotRegistered
	case CodeTargetStopped:
		return proc.ErrStopped
	default:
		return fmt.Errorf("%w: %s", ErrRemoteRejected, m.ErrorDetail)
	}
}
