package naming

import (
	"errors"
	"sync"
	"time"
)

// In-memory transport for tests. A hub connects every bus socket to
// every other, and maps REP listen addresses to their sockets. An
// optional filter drops gossip directionally to simulate lost messages.

var errMockTimeout = errors.New("mock: recv timeout")
var errMockClosed = errors.New("mock: socket closed")
var errMockNoPeer = errors.New("mock: no such peer")

type mockHub struct {
	mu     sync.Mutex
	buses  []*mockBusSocket
	reps   map[string]*mockRepSocket
	filter func(from, to *mockBusSocket) bool
}

func newMockHub() *mockHub {
	return &mockHub{reps: make(map[string]*mockRepSocket)}
}

// setFilter installs a directional gossip filter; nil allows everything.
func (h *mockHub) setFilter(f func(from, to *mockBusSocket) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filter = f
}

type mockBusSocket struct {
	hub         *mockHub
	label       string
	inbox       chan []byte
	recvTimeout time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
}

func (h *mockHub) newBus() *mockBusSocket {
	b := &mockBusSocket{
		hub:    h,
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	h.mu.Lock()
	h.buses = append(h.buses, b)
	h.mu.Unlock()
	return b
}

func (b *mockBusSocket) Send(data []byte) error {
	select {
	case <-b.closed:
		return errMockClosed
	default:
	}

	b.hub.mu.Lock()
	peers := make([]*mockBusSocket, 0, len(b.hub.buses))
	filter := b.hub.filter
	for _, other := range b.hub.buses {
		if other == b {
			continue
		}
		if filter != nil && !filter(b, other) {
			continue
		}
		peers = append(peers, other)
	}
	b.hub.mu.Unlock()

	for _, p := range peers {
		select {
		case p.inbox <- data:
		default:
		}
	}
	return nil
}

func (b *mockBusSocket) Recv() ([]byte, error) {
	timeout := b.recvTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case data := <-b.inbox:
		return data, nil
	case <-b.closed:
		return nil, errMockClosed
	case <-time.After(timeout):
		return nil, errMockTimeout
	}
}

func (b *mockBusSocket) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *mockBusSocket) SetRecvDeadline(d time.Duration) error {
	b.recvTimeout = d
	return nil
}

func (b *mockBusSocket) SetSendDeadline(d time.Duration) error { return nil }
func (b *mockBusSocket) Listen(addr string) error              { b.label = addr; return nil }
func (b *mockBusSocket) Dial(addr string) error                { return nil }

type mockRequest struct {
	data    []byte
	replyTo chan []byte
}

type mockRepSocket struct {
	hub         *mockHub
	inbox       chan mockRequest
	current     chan []byte
	recvTimeout time.Duration
	closed      chan struct{}
	closeOnce   sync.Once
}

func (h *mockHub) newRep() *mockRepSocket {
	return &mockRepSocket{
		hub:    h,
		inbox:  make(chan mockRequest, 64),
		closed: make(chan struct{}),
	}
}

func (s *mockRepSocket) Listen(addr string) error {
	s.hub.mu.Lock()
	s.hub.reps[addr] = s
	s.hub.mu.Unlock()
	return nil
}

func (s *mockRepSocket) Recv() ([]byte, error) {
	timeout := s.recvTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case req := <-s.inbox:
		s.current = req.replyTo
		return req.data, nil
	case <-s.closed:
		return nil, errMockClosed
	case <-time.After(timeout):
		return nil, errMockTimeout
	}
}

func (s *mockRepSocket) Send(data []byte) error {
	if s.current == nil {
		return errors.New("mock: reply without request")
	}
	s.current <- data
	s.current = nil
	return nil
}

func (s *mockRepSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *mockRepSocket) SetRecvDeadline(d time.Duration) error {
	s.recvTimeout = d
	return nil
}

func (s *mockRepSocket) SetSendDeadline(d time.Duration) error { return nil }

type mockReqSocket struct {
	hub         *mockHub
	peer        *mockRepSocket
	pending     chan []byte
	recvTimeout time.Duration
}

func (h *mockHub) newReq() *mockReqSocket {
	return &mockReqSocket{hub: h}
}

func (s *mockReqSocket) Dial(addr string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	rep, ok := s.hub.reps[addr]
	if !ok {
		return errMockNoPeer
	}
	s.peer = rep
	return nil
}

func (s *mockReqSocket) Send(data []byte) error {
	if s.peer == nil {
		return errMockNoPeer
	}
	replyTo := make(chan []byte, 1)
	s.pending = replyTo
	select {
	case s.peer.inbox <- mockRequest{data: data, replyTo: replyTo}:
		return nil
	case <-s.peer.closed:
		return errMockClosed
	}
}

func (s *mockReqSocket) Recv() ([]byte, error) {
	if s.pending == nil {
		return nil, errors.New("mock: recv without send")
	}
	timeout := s.recvTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case data := <-s.pending:
		s.pending = nil
		return data, nil
	case <-time.After(timeout):
		return nil, errMockTimeout
	}
}

func (s *mockReqSocket) Close() error                          { return nil }
func (s *mockReqSocket) SetRecvDeadline(d time.Duration) error { s.recvTimeout = d; return nil }
func (s *mockReqSocket) SetSendDeadline(d time.Duration) error { return nil }

// mockSocketFactory creates sockets wired to a shared hub.
type mockSocketFactory struct {
	hub *mockHub
}

func newMockSocketFactory(hub *mockHub) *mockSocketFactory {
	return &mockSocketFactory{hub: hub}
}

func (f *mockSocketFactory) NewBusSocket() (BusSocket, error) {
	return f.hub.newBus(), nil
}

func (f *mockSocketFactory) NewReqSocket() (DialSocket, error) {
	return f.hub.newReq(), nil
}

func (f *mockSocketFactory) NewRepSocket() (ListenSocket, error) {
	return f.hub.newRep(), nil
}
