package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field constructors

// NodeID identifies the local or remote cluster node
func NodeID(id string) Field {
	return Field{Key: "node_id", Value: id}
}

// RegistryName is the logical name a proxy is registered under
func RegistryName(name string) Field {
	return Field{Key: "name", Value: name}
}

// HandleID identifies a worker or proxy handle
func HandleID(id string) Field {
	return Field{Key: "handle_id", Value: id}
}

// Reason records a termination reason
func Reason(reason string) Field {
	return Field{Key: "reason", Value: reason}
}

// Peer identifies a remote peer node
func Peer(node string) Field {
	return Field{Key: "peer", Value: node}
}

// Peers records a discovered peer node set
func Peers(nodes []string) Field {
	return Field{Key: "peers", Value: nodes}
}

// Addr records a transport address
func Addr(addr string) Field {
	return Field{Key: "addr", Value: addr}
}
