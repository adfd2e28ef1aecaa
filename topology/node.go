// Package topology provides the immutable cluster view the routing core works
// against: the set of known nodes, the sorted token ring, and per-keyspace
// replication strategies.
//
// A Snapshot is built once by the discovery layer and then shared read-only by
// any number of concurrent queries. Topology changes produce a whole new
// Snapshot; nothing inside an existing one is ever mutated. Node pointers
// handed out by a Snapshot stay valid for as long as that Snapshot is
// referenced and must not be retained across snapshot swaps.
package topology

import (
	"fmt"

	"github.com/google/uuid"
)

// Node is a single cluster member as seen at snapshot construction time.
type Node struct {
	// HostID is the cluster-wide unique identifier of the node.
	HostID uuid.UUID
	// Addr is the node address in host:port form.
	Addr string
	// Datacenter the node belongs to.
	Datacenter string
	// Rack the node belongs to within its datacenter.
	Rack string
	// Up reports whether the node was reachable when the snapshot was taken.
	Up bool
}

// String returns a short human-readable description of the node.
func (n *Node) String() string {
	return fmt.Sprintf("%s (%s/%s)", n.Addr, n.Datacenter, n.Rack)
}

// NodeInfo describes one node for Snapshot construction, including the tokens
// the node owns on the ring.
type NodeInfo struct {
	HostID     uuid.UUID
	Addr       string
	Datacenter string
	Rack       string
	Up         bool
	Tokens     []Token
}
