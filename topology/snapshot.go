package topology

import (
	"fmt"
	"slices"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scylladb/scylla-routing-golang/errs"
)

// replicaCacheSize bounds the per-snapshot memo of computed replica sets.
// Keyed by (keyspace, primary ring index), so hot partitions resolve without
// walking the ring again.
const replicaCacheSize = 1024

type ringEntry struct {
	token Token
	node  *Node
}

type replicaKey struct {
	keyspace string
	primary  int
}

// Snapshot is an immutable point-in-time view of the cluster. It is safe for
// use by any number of concurrent readers and is replaced wholesale when the
// topology changes.
type Snapshot struct {
	nodes      []*Node
	byDC       map[string][]*Node
	ring       []ringEntry
	strategies map[string]ReplicationStrategy
	replicas   *lru.Cache[replicaKey, []*Node]
}

// NewSnapshot builds a Snapshot from the provided node descriptions and
// per-keyspace replication strategies. Construction fails loudly on malformed
// input (duplicate host IDs, duplicate tokens, missing or invalid strategies)
// so that routing code can assume every published snapshot is internally
// consistent. An empty node list is valid and yields an empty snapshot.
func NewSnapshot(nodes []NodeInfo, strategies map[string]ReplicationStrategy) (*Snapshot, error) {
	snap := &Snapshot{
		nodes:      make([]*Node, 0, len(nodes)),
		byDC:       make(map[string][]*Node),
		strategies: make(map[string]ReplicationStrategy, len(strategies)),
	}

	seen := make(map[string]struct{}, len(nodes))
	for _, info := range nodes {
		if _, ok := seen[info.HostID.String()]; ok {
			return nil, fmt.Errorf("topology snapshot: duplicate host id %s", info.HostID)
		}
		seen[info.HostID.String()] = struct{}{}

		node := &Node{
			HostID:     info.HostID,
			Addr:       info.Addr,
			Datacenter: info.Datacenter,
			Rack:       info.Rack,
			Up:         info.Up,
		}
		snap.nodes = append(snap.nodes, node)
		snap.byDC[node.Datacenter] = append(snap.byDC[node.Datacenter], node)
		for _, token := range info.Tokens {
			snap.ring = append(snap.ring, ringEntry{token: token, node: node})
		}
	}

	sort.Slice(snap.ring, func(i, j int) bool { return snap.ring[i].token < snap.ring[j].token })
	for i := 1; i < len(snap.ring); i++ {
		if snap.ring[i].token == snap.ring[i-1].token {
			return nil, fmt.Errorf(
				"topology snapshot: token %d owned by both %s and %s",
				snap.ring[i].token, snap.ring[i-1].node.Addr, snap.ring[i].node.Addr,
			)
		}
	}

	for keyspace, strategy := range strategies {
		if strategy == nil {
			return nil, fmt.Errorf("topology snapshot: keyspace %q has no replication strategy", keyspace)
		}
		if err := strategy.Validate(); err != nil {
			return nil, fmt.Errorf("topology snapshot: keyspace %q: %w", keyspace, err)
		}
		snap.strategies[keyspace] = strategy
	}

	cache, err := lru.New[replicaKey, []*Node](replicaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("topology snapshot: %w", err)
	}
	snap.replicas = cache
	return snap, nil
}

// Nodes returns all nodes of the snapshot in construction order.
func (s *Snapshot) Nodes() []*Node {
	return slices.Clone(s.nodes)
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// NodesInDatacenter returns the nodes of the given datacenter in construction
// order. Unknown datacenters yield an empty list.
func (s *Snapshot) NodesInDatacenter(dc string) []*Node {
	return slices.Clone(s.byDC[dc])
}

// RingSize returns the number of entries on the token ring.
func (s *Snapshot) RingSize() int {
	return len(s.ring)
}

// HasKeyspace reports whether a replication strategy is registered for the
// given keyspace.
func (s *Snapshot) HasKeyspace(keyspace string) bool {
	_, ok := s.strategies[keyspace]
	return ok
}

// Replicas returns the nodes owning the given token for the keyspace's
// replication strategy, ordered by ring walk acceptance. The returned slice is
// shared with the snapshot's memo and must not be modified.
//
// It returns errs.ErrEmptyRing when the ring has no entries and
// errs.ErrUnknownKeyspace when the keyspace has no registered strategy.
func (s *Snapshot) Replicas(keyspace string, token Token) ([]*Node, error) {
	if len(s.ring) == 0 {
		return nil, errs.ErrEmptyRing
	}
	strategy, ok := s.strategies[keyspace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownKeyspace, keyspace)
	}

	primary := s.primaryIndex(token)
	key := replicaKey{keyspace: keyspace, primary: primary}
	if cached, ok := s.replicas.Get(key); ok {
		return cached, nil
	}
	replicas := strategy.replicate(s, primary)
	s.replicas.Add(key, replicas)
	return replicas, nil
}

// primaryIndex finds the first ring entry with a token >= the requested one,
// wrapping to the first entry since the ring is circular.
func (s *Snapshot) primaryIndex(token Token) int {
	idx := sort.Search(len(s.ring), func(i int) bool { return s.ring[i].token >= token })
	if idx == len(s.ring) {
		return 0
	}
	return idx
}
