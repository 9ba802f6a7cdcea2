//go:build zmq
// +build zmq

package naming

import (
	"time"

	zmq "github.com/pebbe/zmq4"
)

// zmqTimeout converts a Socket deadline to ZMQ timeout semantics: the
// Socket contract treats a non-positive deadline as "wait forever",
// which ZMQ spells -1 (its 0 means return EAGAIN immediately).
func zmqTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return -1
	}
	return d
}

// zmqSocket wraps a single ZMQ socket to implement our Socket interface.
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return err
}

func (s *zmqSocket) Recv() ([]byte, error) {
	return s.sock.RecvBytes(0)
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(zmqTimeout(d))
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(zmqTimeout(d))
}

func (s *zmqSocket) Listen(addr string) error {
	return s.sock.Bind(addr)
}

func (s *zmqSocket) Dial(addr string) error {
	return s.sock.Connect(addr)
}

// zmqBusSocket approximates a bus with a PUB/SUB pair: Listen binds the
// PUB side, Dial connects the SUB side to a peer's PUB.
type zmqBusSocket struct {
	pub *zmq.Socket
	sub *zmq.Socket
}

func (s *zmqBusSocket) Send(data []byte) error {
	_, err := s.pub.SendBytes(data, 0)
	return err
}

func (s *zmqBusSocket) Recv() ([]byte, error) {
	return s.sub.RecvBytes(0)
}

func (s *zmqBusSocket) Close() error {
	if err := s.pub.Close(); err != nil {
		s.sub.Close()
		return err
	}
	return s.sub.Close()
}

func (s *zmqBusSocket) SetRecvDeadline(d time.Duration) error {
	return s.sub.SetRcvtimeo(zmqTimeout(d))
}

func (s *zmqBusSocket) SetSendDeadline(d time.Duration) error {
	return s.pub.SetSndtimeo(zmqTimeout(d))
}

func (s *zmqBusSocket) Listen(addr string) error {
	return s.pub.Bind(addr)
}

func (s *zmqBusSocket) Dial(addr string) error {
	return s.sub.Connect(addr)
}

// ZMQSocketFactory creates ZeroMQ sockets (requires CGO and libzmq).
type ZMQSocketFactory struct{}

// NewZMQSocketFactory creates a new ZMQ socket factory.
func NewZMQSocketFactory() *ZMQSocketFactory {
	return &ZMQSocketFactory{}
}

func (f *ZMQSocketFactory) NewBusSocket() (BusSocket, error) {
	pub, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		pub.Close()
		return nil, err
	}
	if err := sub.SetSubscribe(""); err != nil {
		pub.Close()
		sub.Close()
		return nil, err
	}
	return &zmqBusSocket{pub: pub, sub: sub}, nil
}

func (f *ZMQSocketFactory) NewReqSocket() (DialSocket, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}

func (f *ZMQSocketFactory) NewRepSocket() (ListenSocket, error) {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, err
	}
	return &zmqSocket{sock: sock}, nil
}
