package topology

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ReplicationStrategy computes which nodes own the data of a ring segment.
// Implementations are provided by this package; the interface is sealed so
// replica placement always matches what the cluster itself does.
type ReplicationStrategy interface {
	// Name returns the strategy name as reported by the cluster schema.
	Name() string
	// Validate ensures the strategy parameters are correctly defined.
	Validate() error

	// replicate walks the ring starting at the primary entry and returns the
	// owning nodes in acceptance order.
	replicate(s *Snapshot, primary int) []*Node
}

// SimpleStrategy places replicas on the first distinct nodes found walking the
// ring clockwise from the primary entry, ignoring datacenters and racks.
type SimpleStrategy struct {
	ReplicationFactor int
}

// Name implements ReplicationStrategy.
func (s SimpleStrategy) Name() string { return "SimpleStrategy" }

// Validate implements ReplicationStrategy.
func (s SimpleStrategy) Validate() error {
	if s.ReplicationFactor <= 0 {
		return fmt.Errorf("simple strategy: ReplicationFactor must be > 0 (got %d)", s.ReplicationFactor)
	}
	return nil
}

func (s SimpleStrategy) replicate(snap *Snapshot, primary int) []*Node {
	replicas := make([]*Node, 0, s.ReplicationFactor)
	taken := make(map[uuid.UUID]struct{}, s.ReplicationFactor)

	ring := snap.ring
	for i := 0; i < len(ring) && len(replicas) < s.ReplicationFactor; i++ {
		node := ring[(primary+i)%len(ring)].node
		if _, ok := taken[node.HostID]; ok {
			continue
		}
		taken[node.HostID] = struct{}{}
		replicas = append(replicas, node)
	}
	return replicas
}

var _ ReplicationStrategy = SimpleStrategy{}

// NetworkTopologyStrategy places a configured number of replicas in each
// datacenter. Within a datacenter it walks the ring preferring nodes from
// racks not yet holding a replica; nodes from repeated racks are kept aside
// and used only when rack diversity cannot satisfy the factor.
type NetworkTopologyStrategy struct {
	// DatacenterFactors maps a datacenter name to its replication factor.
	// Datacenters absent from the map hold no replicas.
	DatacenterFactors map[string]int
}

// Name implements ReplicationStrategy.
func (s NetworkTopologyStrategy) Name() string { return "NetworkTopologyStrategy" }

// Validate implements ReplicationStrategy.
func (s NetworkTopologyStrategy) Validate() error {
	if len(s.DatacenterFactors) == 0 {
		return errors.New("network topology strategy: at least one datacenter factor is required")
	}
	for dc, factor := range s.DatacenterFactors {
		if factor <= 0 {
			return fmt.Errorf("network topology strategy: factor for datacenter %q must be > 0 (got %d)", dc, factor)
		}
	}
	return nil
}

func (s NetworkTopologyStrategy) replicate(snap *Snapshot, primary int) []*Node {
	total := 0
	for _, factor := range s.DatacenterFactors {
		total += factor
	}

	type dcRack struct {
		dc   string
		rack string
	}

	replicas := make([]*Node, 0, total)
	taken := make(map[uuid.UUID]struct{}, total)
	perDC := make(map[string]int, len(s.DatacenterFactors))
	racksUsed := make(map[dcRack]struct{}, total)
	var repeatedRacks []*Node

	ring := snap.ring
	for i := 0; i < len(ring) && len(replicas) < total; i++ {
		node := ring[(primary+i)%len(ring)].node
		factor := s.DatacenterFactors[node.Datacenter]
		if factor == 0 || perDC[node.Datacenter] >= factor {
			continue
		}
		if _, ok := taken[node.HostID]; ok {
			continue
		}
		taken[node.HostID] = struct{}{}

		rack := dcRack{dc: node.Datacenter, rack: node.Rack}
		if _, used := racksUsed[rack]; used {
			repeatedRacks = append(repeatedRacks, node)
			continue
		}
		racksUsed[rack] = struct{}{}
		perDC[node.Datacenter]++
		replicas = append(replicas, node)
	}

	// Rack diversity alone could not satisfy some factor, top up from the
	// repeated-rack nodes in the order the walk met them.
	for _, node := range repeatedRacks {
		if len(replicas) >= total {
			break
		}
		if perDC[node.Datacenter] >= s.DatacenterFactors[node.Datacenter] {
			continue
		}
		perDC[node.Datacenter]++
		replicas = append(replicas, node)
	}
	return replicas
}

var _ ReplicationStrategy = NetworkTopologyStrategy{}
