// Package routing implements the node-selection core of a driver for a
// partitioned, replicated, leaderless database cluster. For every query it
// decides, without contacting the cluster, which node to try first and which
// nodes to try next: the default policy layers token awareness, datacenter
// and rack locality, a deterministic fast path for lightweight transactions,
// and latency-based deprioritization on top of an immutable topology
// snapshot.
//
// The package has no wire surface of its own. The execution layer builds a
// RoutingInfo per query, asks the active Policy for a plan, and reports every
// attempt's outcome back through the policy's feedback hooks.
package routing

import (
	"time"

	"github.com/scylladb/scylla-routing-golang/topology"
)

// RoutingInfo is the per-query routing descriptor consumed by policies. It is
// ephemeral: built fresh for each query and read-only to the policy. The zero
// value means "no routing preference".
type RoutingInfo struct {
	// Consistency the query will be executed at.
	Consistency Consistency
	// SerialConsistency for the linearizable phase, nil when not applicable.
	SerialConsistency *SerialConsistency
	// Token of the partition targeted by the statement, nil when the
	// statement does not route by partition key.
	Token *topology.Token
	// Keyspace the statement operates on, empty when unknown.
	Keyspace string
	// IsConfirmedLWT marks statements known to be lightweight transactions,
	// which are routed in a deterministic order so concurrent callers
	// converge on the same node.
	IsConfirmedLWT bool
	// PlanSeed drives the per-query tie-breaking between equally preferred
	// nodes. Two plans built from the same info are identical; distinct
	// queries get distinct seeds to spread load.
	PlanSeed uint64
}

// Policy decides which nodes a query is attempted on and in what order.
//
// One policy instance serves every in-flight query of a session, so every
// method must be safe for concurrent use and must not block.
type Policy interface {
	// Pick returns the single best node to try first, or nil when no node
	// can be determined. It runs on the hot path of every query.
	Pick(info *RoutingInfo, snapshot *topology.Snapshot) *topology.Node

	// Fallback returns the remaining candidates in preference order,
	// excluding the node Pick returned for the same info. Callers must not
	// invoke it when Pick returned nil.
	Fallback(info *RoutingInfo, snapshot *topology.Snapshot) FallbackPlan

	// OnQuerySuccess feeds a finished query back into the policy. A
	// negative latency means the measurement is unavailable.
	OnQuerySuccess(info *RoutingInfo, latency time.Duration, node *topology.Node)

	// OnQueryFailure feeds a failed query back into the policy. The error
	// tells the policy how hard to penalize the node; client-side errors
	// must leave its record untouched.
	OnQueryFailure(info *RoutingInfo, latency time.Duration, node *topology.Node, err error)

	// Name returns a stable identifier for diagnostics.
	Name() string
}

// FallbackPlan is a lazily evaluated, non-restartable sequence of candidate
// nodes. Next returns nil once the sequence is exhausted. A plan borrows the
// snapshot it was built from and must not be retained past the query attempt
// that created it.
type FallbackPlan interface {
	Next() *topology.Node
}

type emptyPlan struct{}

func (emptyPlan) Next() *topology.Node { return nil }
