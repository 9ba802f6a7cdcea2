package proc

import "errors"

var (
	ErrStopped     = errors.New("process has stopped")
	ErrNilBehavior = errors.New("behavior cannot be nil")
)
