// Package naming provides the cluster-wide naming facility.
//
// This package handles:
//   - Logical name registration with duplicate-claim conflict delivery
//   - Name lookup, local and cluster-wide
//   - Claim gossip between nodes over a BUS transport
//   - Remote operation dispatch (REQ/REP) so handles resolve across nodes
package naming
