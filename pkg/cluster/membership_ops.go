package cluster

import (
	"time"
)

// Observe registers a peer or refreshes its last-seen time. The node
// name is parsed for its host and port parts; the local node is never
// added.
func (pm *PeerMembership) Observe(name string) error {
	if name == pm.localNode {
		return nil
	}

	_, port, host, err := ParseNodeName(name)
	if err != nil {
		return err
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if peer, exists := pm.peers[name]; exists {
		peer.LastSeen = time.Now()
		return nil
	}

	pm.peers[name] = &PeerInfo{
		Name:     name,
		Host:     host,
		Port:     port,
		LastSeen: time.Now(),
	}
	pm.updateMetricsLocked()
	return nil
}

// Remove drops a peer from the membership table.
func (pm *PeerMembership) Remove(name string) error {
	if name == pm.localNode {
		return ErrCannotRemoveSelf
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.peers[name]; !exists {
		return ErrPeerNotFound
	}

	delete(pm.peers, name)
	pm.updateMetricsLocked()
	return nil
}

// Touch refreshes a known peer's last-seen time.
func (pm *PeerMembership) Touch(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	peer, exists := pm.peers[name]
	if !exists {
		return ErrPeerNotFound
	}

	peer.LastSeen = time.Now()
	return nil
}

func (pm *PeerMembership) updateMetricsLocked() {
	if pm.metricsRegistry != nil {
		pm.metricsRegistry.ClusterPeersTotal.Set(float64(len(pm.peers)))
	}
}
