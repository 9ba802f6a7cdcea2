package registry

import "errors"

// Construction errors
var (
	// ErrStartFailure indicates the worker factory did not produce a
	// worker. Nothing is registered; the start attempt fails as a whole.
	ErrStartFailure = errors.New("worker start failed")

	// ErrAlreadyRegistered indicates the name is already claimed in the
	// local directory.
	ErrAlreadyRegistered = errors.New("name already registered")
)

// Runtime errors
var (
	// ErrNoSuchRegistration indicates no live proxy answers for a name.
	ErrNoSuchRegistration = errors.New("no registration for name")

	// ErrConflictShutdown is the exit reason of a proxy that yielded
	// after losing a name conflict. It marks a deliberate shutdown, not
	// a crash.
	ErrConflictShutdown = errors.New("name conflict, yielded")

	// ErrWorkerFailure is the exit reason of a proxy whose worker
	// terminated abnormally.
	ErrWorkerFailure = errors.New("worker terminated abnormally")
)
