package cluster

import (
	"time"

	"golang.org/x/exp/slices"
)

// GetPeer returns info about a specific peer
func (pm *PeerMembership) GetPeer(name string) (*PeerInfo, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	peer, exists := pm.peers[name]
	if !exists {
		return nil, ErrPeerNotFound
	}

	// Return a copy to prevent external mutations
	peerCopy := *peer
	return &peerCopy, nil
}

// AllPeers returns every known peer
func (pm *PeerMembership) AllPeers() []PeerInfo {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	peers := make([]PeerInfo, 0, len(pm.peers))
	for _, peer := range pm.peers {
		peers = append(peers, *peer)
	}

	return peers
}

// PeerNames returns the sorted names of every known peer
func (pm *PeerMembership) PeerNames() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	names := make([]string, 0, len(pm.peers))
	for name := range pm.peers {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// HealthyPeers returns peers observed within the health timeout
func (pm *PeerMembership) HealthyPeers(healthTimeout time.Duration) []PeerInfo {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	healthy := make([]PeerInfo, 0, len(pm.peers))
	for _, peer := range pm.peers {
		if peer.IsHealthy(healthTimeout) {
			healthy = append(healthy, *peer)
		}
	}

	if pm.metricsRegistry != nil {
		pm.metricsRegistry.ClusterHealthyPeersTotal.Set(float64(len(healthy)))
	}

	return healthy
}

// PeerCount returns the total number of known peers
func (pm *PeerMembership) PeerCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return len(pm.peers)
}

// HealthyPeerCount returns the number of recently observed peers
func (pm *PeerMembership) HealthyPeerCount(healthTimeout time.Duration) int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	count := 0
	for _, peer := range pm.peers {
		if peer.IsHealthy(healthTimeout) {
			count++
		}
	}

	return count
}
