package cluster

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/metrics"
)

// PeerInfo contains information about a cluster peer
type PeerInfo struct {
	Name     string    // Node name ({prefix}-{port}@{host})
	Host     string    // Host part of the node name
	Port     uint16    // Port part of the node name
	LastSeen time.Time // Last time discovery observed the peer
}

// IsHealthy returns true if the peer has been observed recently
func (p *PeerInfo) IsHealthy(timeout time.Duration) bool {
	return time.Since(p.LastSeen) < timeout
}

// PeerMembership tracks the peers discovered for this node
//
// Concurrent Safety:
// 1. All public methods use RWMutex for thread-safe access
// 2. Read operations use RLock for concurrent reads
// 3. Map iteration creates defensive copies to avoid holding the lock
type PeerMembership struct {
	localNode       string               // This node's name
	peers           map[string]*PeerInfo // node name -> PeerInfo
	mu              sync.RWMutex         // Protects all fields
	metricsRegistry *metrics.Registry    // Metrics tracking
}

// MembershipOption configures a PeerMembership.
type MembershipOption func(*PeerMembership)

// WithMembershipMetrics sets the metrics registry.
func WithMembershipMetrics(m *metrics.Registry) MembershipOption {
	return func(pm *PeerMembership) { pm.metricsRegistry = m }
}

// NewPeerMembership creates a membership tracker for the given local
// node name.
func NewPeerMembership(localNode string, opts ...MembershipOption) *PeerMembership {
	pm := &PeerMembership{
		localNode:       localNode,
		peers:           make(map[string]*PeerInfo),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// LocalNode returns this node's name.
func (pm *PeerMembership) LocalNode() string {
	return pm.localNode
}
