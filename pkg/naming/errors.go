package naming

import "errors"

// Registration errors
var (
	ErrNameTaken     = errors.New("name already registered on this node")
	ErrEmptyName     = errors.New("name cannot be empty")
	ErrNilHandle     = errors.New("handle cannot be nil")
	ErrNotRegistered = errors.New("name not registered")
)

// Transport errors
var (
	ErrNotRunning      = errors.New("component not running")
	ErrAlreadyRunning  = errors.New("component already running")
	ErrRemoteRejected  = errors.New("remote node rejected the operation")
	ErrMessageTooShort = errors.New("message too short to decode")
)
