package routing

import "github.com/scylladb/scylla-routing-golang/topology"

type planState int

const (
	planStatePick planState = iota
	planStateFallback
	planStateExhausted
)

// Plan walks the nodes a query should be attempted on: the policy's first
// pick, then the lazy fallback remainder. When the pick yields no node the
// plan is exhausted immediately and the fallback is never consulted.
//
// A Plan is not restartable and borrows the info and snapshot it was built
// from; it must not be retained past the query attempt that created it. Once
// Next returns nil it keeps returning nil, and the caller surfaces
// errs.ErrPlanExhausted or its own equivalent.
type Plan struct {
	policy   Policy
	info     *RoutingInfo
	snapshot *topology.Snapshot

	state    planState
	picked   *topology.Node
	fallback FallbackPlan
}

// NewPlan builds a plan for one query execution over the given policy.
func NewPlan(policy Policy, info *RoutingInfo, snapshot *topology.Snapshot) *Plan {
	return &Plan{
		policy:   policy,
		info:     info,
		snapshot: snapshot,
	}
}

// Next returns the next node to try, or nil when no candidates remain.
func (p *Plan) Next() *topology.Node {
	switch p.state {
	case planStatePick:
		node := p.policy.Pick(p.info, p.snapshot)
		if node == nil {
			p.state = planStateExhausted
			return nil
		}
		p.state = planStateFallback
		p.picked = node
		return node
	case planStateFallback:
		if p.fallback == nil {
			p.fallback = p.policy.Fallback(p.info, p.snapshot)
		}
		// Health feedback between Pick and Fallback may reorder the plan,
		// so the picked node gets filtered here as well.
		for {
			node := p.fallback.Next()
			if node == nil {
				break
			}
			if node != p.picked {
				return node
			}
		}
		p.state = planStateExhausted
		return nil
	default:
		return nil
	}
}
