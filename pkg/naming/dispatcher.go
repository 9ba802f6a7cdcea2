package naming

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// dispatchCallTimeout bounds how long the dispatcher waits on a local
// call before giving up its loop. Remote callers apply their own,
// usually shorter, deadlines.
const dispatchCallTimeout = 60 * time.Second

// Dispatcher serves remote operations addressed to processes on this
// node. It routes by logical name through the local directory, or by
// target ID for worker handles previously exported via get-handle.
//
// Concurrent Safety:
// 1. Start/Stop use sync.Once to ensure single initialization/cleanup
// 2. The serve loop is the only goroutine touching the REP socket
// 3. The exported-handle table is guarded by its own RWMutex
type Dispatcher struct {
	node          string
	bindAddr      string
	advertiseAddr string
	dir           *Directory
	factory       SocketFactory

	sock      ListenSocket
	handles   map[string]proc.Handle
	handlesMu sync.RWMutex

	stopCh    chan struct{}
	running   bool
	runningMu sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDispatcherMetrics sets the metrics registry.
func WithDispatcherMetrics(m *metrics.Registry) DispatcherOption {
	return func(d *Dispatcher) { d.metricsRegistry = m }
}

// NewDispatcher creates a dispatcher for the given node and directory.
// advertiseAddr is the address peers dial to reach this dispatcher; it
// defaults to bindAddr when empty.
func NewDispatcher(node, bindAddr, advertiseAddr string, dir *Directory, factory SocketFactory, opts ...DispatcherOption) *Dispatcher {
	if advertiseAddr == "" {
		advertiseAddr = bindAddr
	}
	d := &Dispatcher{
		node:            node,
		bindAddr:        bindAddr,
		advertiseAddr:   advertiseAddr,
		dir:             dir,
		factory:         factory,
		handles:         make(map[string]proc.Handle),
		stopCh:          make(chan struct{}),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start binds the REP socket and begins serving remote operations.
func (d *Dispatcher) Start() error {
	var startErr error
	d.startOnce.Do(func() {
		d.runningMu.Lock()
		defer d.runningMu.Unlock()

		sock, err := d.factory.NewRepSocket()
		if err != nil {
			startErr = err
			return
		}
		if err := sock.Listen(d.bindAddr); err != nil {
			sock.Close()
			startErr = err
			return
		}
		if err := sock.SetRecvDeadline(busRecvTimeout); err != nil {
			sock.Close()
			startErr = err
			return
		}

		d.sock = sock
		d.running = true
		go d.serveLoop()

		d.logger.Info("dispatcher started",
			logging.NodeID(d.node),
			logging.Addr(d.bindAddr))
	})
	return startErr
}

// Stop stops the dispatcher and closes its socket.
func (d *Dispatcher) Stop() error {
	var stopErr error
	d.stopOnce.Do(func() {
		d.runningMu.Lock()
		defer d.runningMu.Unlock()

		if !d.running {
			stopErr = ErrNotRunning
			return
		}

		close(d.stopCh)
		d.running = false
		stopErr = d.sock.Close()
	})
	return stopErr
}

// IsRunning reports whether the dispatcher is serving.
func (d *Dispatcher) IsRunning() bool {
	d.runningMu.Lock()
	defer d.runningMu.Unlock()
	return d.running
}

func (d *Dispatcher) serveLoop() {
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		raw, err := d.sock.Recv()
		if err != nil {
			// Deadline expiry is the normal idle path
			continue
		}

		reply := d.serveOne(raw)
		data, err := reply.Encode()
		if err != nil {
			continue
		}
		// A REP socket must answer every request to stay usable
		if err := d.sock.Send(data); err != nil {
			d.logger.Warn("dispatch reply send failed", logging.Error(err))
		}
	}
}

func (d *Dispatcher) serveOne(raw []byte) *Message {
	start := time.Now()

	msg, err := DecodeMessage(raw)
	if err != nil {
		d.record("error", start)
		return errorReply(CodeBadRequest, err.Error())
	}
	if d.metricsRegistry != nil {
		d.metricsRegistry.RecordTransportMessage("received", msgTypeLabel(msg.Type), len(raw))
	}

	target := d.resolveTarget(msg)
	if target == nil {
		d.record("no_such_registration", start)
		return errorReply(CodeNoSuchRegistration, msg.Name)
	}

	reply := d.apply(target, msg)
	if reply.Type == MsgError {
		d.record(reply.ErrorCode, start)
	} else {
		d.record("ok", start)
	}
	return reply
}

func (d *Dispatcher) resolveTarget(msg *Message) proc.Handle {
	if msg.TargetID != "" {
		d.handlesMu.RLock()
		h := d.handles[msg.TargetID]
		d.handlesMu.RUnlock()
		return h
	}
	return d.dir.Lookup(msg.Name)
}

func (d *Dispatcher) apply(target proc.Handle, msg *Message) *Message {
	switch msg.Type {
	case MsgCast, MsgNotify:
		payload, err := msg.PayloadValue()
		if err != nil {
			return errorReply(CodeBadRequest, err.Error())
		}
		if msg.Type == MsgCast {
			err = target.Cast(payload)
		} else {
			err = target.Notify(payload)
		}
		if err != nil {
			return deliveryError(d, msg, err)
		}
		return &Message{Type: MsgAck, Node: d.node, Timestamp: time.Now().Unix()}

	case MsgCall:
		payload, err := msg.PayloadValue()
		if err != nil {
			return errorReply(CodeBadRequest, err.Error())
		}
		ctx, cancel := context.WithTimeout(context.Background(), dispatchCallTimeout)
		defer cancel()
		val, err := target.Call(ctx, payload)
		if err != nil {
			return deliveryError(d, msg, err)
		}
		reply, err := NewMessage(MsgReply, val)
		if err != nil {
			return errorReply(CodeInternal, err.Error())
		}
		reply.Node = d.node
		return reply

	case MsgGetHandle:
		ctx, cancel := context.WithTimeout(context.Background(), dispatchCallTimeout)
		defer cancel()
		val, err := target.Call(ctx, GetHandleRequest{})
		if err != nil {
			return deliveryError(d, msg, err)
		}
		worker, ok := val.(proc.Handle)
		if !ok {
			return errorReply(CodeInternal, "target did not return a handle")
		}
		d.exportHandle(worker)
		return &Message{
			Type:         MsgReply,
			Node:         d.node,
			TargetID:     worker.ID(),
			DispatchAddr: d.advertiseAddr,
			Timestamp:    time.Now().Unix(),
		}

	default:
		return errorReply(CodeBadRequest, "unexpected message type")
	}
}

// exportHandle makes a worker handle addressable by ID for direct
// remote traffic that bypasses its proxy.
func (d *Dispatcher) exportHandle(h proc.Handle) {
	d.handlesMu.Lock()
	defer d.handlesMu.Unlock()
	d.handles[h.ID()] = h
}

// dropHandle removes a dead exported handle.
func (d *Dispatcher) dropHandle(id string) {
	d.handlesMu.Lock()
	defer d.handlesMu.Unlock()
	delete(d.handles, id)
}

func deliveryError(d *Dispatcher, msg *Message, err error) *Message {
	if errors.Is(err, proc.ErrStopped) {
		if msg.TargetID != "" {
			d.dropHandle(msg.TargetID)
		}
		return errorReply(CodeTargetStopped, msg.Name)
	}
	return errorReply(CodeInternal, err.Error())
}

func errorReply(code, detail string) *Message {
	return &Message{
		Type:        MsgError,
		ErrorCode:   code,
		ErrorDetail: detail,
		Timestamp:   time.Now().Unix(),
	}
}

func (d *Dispatcher) record(status string, start time.Time) {
	if d.metricsRegistry != nil {
		d.metricsRegistry.RecordDispatch(status, time.Since(start))
	}
}
