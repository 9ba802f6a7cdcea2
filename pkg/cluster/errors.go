package cluster

import "errors"

// Membership errors
var (
	// ErrPeerNotFound indicates the peer is not in the membership table
	ErrPeerNotFound = errors.New("peer not found")
	// ErrPeerAlreadyExists indicates the peer is already registered
	ErrPeerAlreadyExists = errors.New("peer already exists")
	// ErrCannotRemoveSelf indicates an attempt to remove the local node
	ErrCannotRemoveSelf = errors.New("cannot remove local node from membership")
)

// Poller errors
var (
	// ErrPollerAlreadyRunning indicates Start was called on a running poller
	ErrPollerAlreadyRunning = errors.New("poller already running")
	// ErrPollerNotRunning indicates Stop was called on a stopped poller
	ErrPollerNotRunning = errors.New("poller not running")
	// ErrEmptyQuery indicates the discovery query is not configured
	ErrEmptyQuery = errors.New("discovery query is empty")
)

// Node name errors
var (
	// ErrInvalidNodeName indicates a node name that does not follow the
	// {prefix}-{port}@{host} form
	ErrInvalidNodeName = errors.New("invalid node name")
)
