package naming

import (
	"io"
	"time"
)

// Socket represents a messaging socket that can send and receive messages.
// This interface abstracts the underlying transport (mangos, ZMQ, or a
// mock for testing).
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// BusSocket is a many-to-many socket: it binds locally and dials any
// number of peers, and every Send fans out to all connected peers.
type BusSocket interface {
	Socket
	Listen(addr string) error
	Dial(addr string) error
}

// SocketFactory creates sockets for the messaging patterns the naming
// layer uses. Implementations provide real transport sockets or mocks
// for testing.
type SocketFactory interface {
	// NewBusSocket creates the gossip socket for claim announcements.
	NewBusSocket() (BusSocket, error)
	// NewReqSocket creates a client socket for remote dispatch.
	NewReqSocket() (DialSocket, error)
	// NewRepSocket creates the server socket for remote dispatch.
	NewRepSocket() (ListenSocket, error)
}
