package naming

import (
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// Conflict notifies a registrant that another node claimed the same
// logical name concurrently.
type Conflict struct {
	Name string // the logical name that clashed
	Peer string // the node that also claimed it
}

// Registration is the result of claiming a logical name. The Conflicts
// channel delivers at most a handful of conflict notifications; the
// registrant's only required reaction is to deregister and shut down.
type Registration struct {
	Name      string
	ID        string // unique claim identifier, used for tie-breaking
	Conflicts <-chan Conflict
}

// Facility is the cluster-wide naming boundary the registry core
// depends on. Directory implements it for a single node; Announcer
// implements it cluster-wide.
type Facility interface {
	// Register claims a logical name for the given handle. It fails
	// with ErrNameTaken when the name is already held locally.
	Register(name string, h proc.Handle) (*Registration, error)
	// Lookup resolves a logical name to a handle, or nil when the
	// name is not registered anywhere this facility can see.
	Lookup(name string) proc.Handle
	// Deregister releases a logical name. Unknown names are ignored.
	Deregister(name string)
}
