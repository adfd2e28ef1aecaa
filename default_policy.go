package routing

import (
	"errors"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/scylladb/scylla-routing-golang/latency"
	"github.com/scylladb/scylla-routing-golang/logx"
	"github.com/scylladb/scylla-routing-golang/logxzap"
	"github.com/scylladb/scylla-routing-golang/metrics"
	"github.com/scylladb/scylla-routing-golang/rt"
	"github.com/scylladb/scylla-routing-golang/topology"
)

// DefaultPolicyConfig configures DefaultPolicy.
type DefaultPolicyConfig struct {
	// Scope confines routing to a rack, a datacenter, or the whole cluster.
	// Its fallback chain orders the locality tiers of every plan.
	Scope rt.Scope
	// TokenAware prefers replicas owning the statement's token over other nodes.
	TokenAware bool
	// PermitDCFailover allows nodes outside the scope's datacenter as
	// last-resort candidates. Queries at datacenter-local consistency never
	// fail over regardless of this setting.
	PermitDCFailover bool
	// LatencyAwareness configures the latency tracker. Nil disables latency
	// awareness entirely.
	LatencyAwareness *latency.Config
	Logger           logx.Logger
	// Metrics, when set, counts picks, fallbacks, and penalties.
	Metrics *metrics.RoutingMetrics
}

// NewDefaultPolicyConfig creates the default DefaultPolicy configuration:
// token aware, cluster scoped, datacenter failover permitted, latency
// awareness on.
func NewDefaultPolicyConfig() DefaultPolicyConfig {
	latencyCfg := latency.NewDefaultConfig()
	return DefaultPolicyConfig{
		Scope:            rt.NewClusterScope(),
		TokenAware:       true,
		PermitDCFailover: true,
		LatencyAwareness: &latencyCfg,
		Logger:           logxzap.DefaultLogger(),
	}
}

// Validate ensures the policy configuration is correctly defined.
func (cfg DefaultPolicyConfig) Validate() error {
	if cfg.Scope == nil {
		return errors.New("default policy: Scope must be provided")
	}
	if cfg.LatencyAwareness != nil {
		return cfg.LatencyAwareness.Validate()
	}
	return nil
}

// DefaultPolicyOption an option for DefaultPolicy.
type DefaultPolicyOption func(cfg *DefaultPolicyConfig)

// WithRoutingScope confines routing to the given scope chain.
func WithRoutingScope(scope rt.Scope) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.Scope = scope
	}
}

// WithTokenAwareness toggles replica preference for token-carrying queries.
func WithTokenAwareness(enabled bool) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.TokenAware = enabled
	}
}

// WithDatacenterFailover toggles routing to remote datacenters when the
// local one has no usable candidates.
func WithDatacenterFailover(permitted bool) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.PermitDCFailover = permitted
	}
}

// WithLatencyAwareness replaces the latency tracker configuration.
func WithLatencyAwareness(latencyCfg latency.Config) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.LatencyAwareness = &latencyCfg
	}
}

// WithoutLatencyAwareness disables the latency tracker.
func WithoutLatencyAwareness() DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.LatencyAwareness = nil
	}
}

// WithLogger changes the logger used by the policy.
func WithLogger(logger logx.Logger) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.Logger = logger
	}
}

// WithMetrics attaches routing metrics to the policy.
func WithMetrics(m *metrics.RoutingMetrics) DefaultPolicyOption {
	return func(cfg *DefaultPolicyConfig) {
		cfg.Metrics = m
	}
}

// DefaultPolicy is the production routing policy. It layers, in precedence
// order: token ownership, scope locality, a deterministic ordering for
// confirmed lightweight transactions, and latency-based deprioritization.
// Down nodes are never candidates.
type DefaultPolicy struct {
	scope            rt.Scope
	localDC          string
	tokenAware       bool
	permitDCFailover bool
	tracker          *latency.Tracker
	log              logx.Logger
	metrics          *metrics.RoutingMetrics
}

// NewDefaultPolicy builds a DefaultPolicy from the default configuration
// adjusted by the provided options.
func NewDefaultPolicy(options ...DefaultPolicyOption) (*DefaultPolicy, error) {
	cfg := NewDefaultPolicyConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.Noop{}
	}

	var tracker *latency.Tracker
	if cfg.LatencyAwareness != nil {
		latencyCfg := *cfg.LatencyAwareness
		if m := cfg.Metrics; m != nil && latencyCfg.OnPenalise == nil {
			latencyCfg.OnPenalise = func(uuid.UUID) {
				m.PenaltiesTotal.Inc()
			}
		}
		var err error
		tracker, err = latency.New(latencyCfg, cfg.Logger)
		if err != nil {
			return nil, err
		}
	}

	return &DefaultPolicy{
		scope:            cfg.Scope,
		localDC:          cfg.Scope.Datacenter(),
		tokenAware:       cfg.TokenAware,
		permitDCFailover: cfg.PermitDCFailover,
		tracker:          tracker,
		log:              cfg.Logger.Named("routing"),
		metrics:          cfg.Metrics,
	}, nil
}

// Pick implements Policy.
func (p *DefaultPolicy) Pick(info *RoutingInfo, snapshot *topology.Snapshot) *topology.Node {
	var node *topology.Node
	if seq := p.newCandidateSequence(info, snapshot); seq != nil {
		node = seq.Next()
	}
	if node == nil {
		if p.metrics != nil {
			p.metrics.PicksTotal.WithLabelValues(metrics.PickOutcomeEmpty).Inc()
		}
		p.log.Debug("no candidate node for query")
		return nil
	}
	if p.metrics != nil {
		p.metrics.PicksTotal.WithLabelValues(metrics.PickOutcomeHit).Inc()
	}
	return node
}

// Fallback implements Policy. The plan rebuilds the pick's ordering from the
// same routing info and drops its head, so it never repeats the picked node.
func (p *DefaultPolicy) Fallback(info *RoutingInfo, snapshot *topology.Snapshot) FallbackPlan {
	seq := p.newCandidateSequence(info, snapshot)
	if seq == nil || seq.Next() == nil {
		return emptyPlan{}
	}
	if p.metrics == nil {
		return seq
	}
	return &countedPlan{inner: seq, metrics: p.metrics}
}

// OnQuerySuccess implements Policy.
func (p *DefaultPolicy) OnQuerySuccess(_ *RoutingInfo, queryLatency time.Duration, node *topology.Node) {
	if p.metrics != nil && queryLatency >= 0 {
		p.metrics.QueryLatency.Observe(queryLatency.Seconds())
	}
	if p.tracker == nil || node == nil {
		return
	}
	p.tracker.RecordSuccess(node.HostID, queryLatency)
}

// OnQueryFailure implements Policy.
func (p *DefaultPolicy) OnQueryFailure(_ *RoutingInfo, queryLatency time.Duration, node *topology.Node, err error) {
	if p.metrics != nil && queryLatency >= 0 {
		p.metrics.QueryLatency.Observe(queryLatency.Seconds())
	}
	if p.tracker == nil || node == nil {
		return
	}
	p.tracker.RecordFailure(node.HostID, queryLatency, err)
}

// Name implements Policy.
func (p *DefaultPolicy) Name() string {
	return "DefaultPolicy"
}

// OnTopologyUpdated drops latency records of nodes absent from the new
// snapshot. The execution layer calls it whenever it swaps snapshots.
func (p *DefaultPolicy) OnTopologyUpdated(snapshot *topology.Snapshot) {
	if p.tracker == nil || snapshot == nil {
		return
	}
	nodes := snapshot.Nodes()
	alive := make(map[uuid.UUID]struct{}, len(nodes))
	for _, node := range nodes {
		alive[node.HostID] = struct{}{}
	}
	p.tracker.Prune(alive)
}

// Stop releases the policy's background resources. Plans already handed out
// stay usable.
func (p *DefaultPolicy) Stop() {
	if p.tracker != nil {
		p.tracker.Stop()
	}
}

// newCandidateSequence builds the lazily evaluated tier sequence for one
// query: replica tiers first, then the remaining nodes, each group split by
// the scope chain from narrowest to broadest. It returns nil when no
// candidates can be determined at all.
func (p *DefaultPolicy) newCandidateSequence(info *RoutingInfo, snapshot *topology.Snapshot) *candidateSequence {
	if snapshot == nil || snapshot.NodeCount() == 0 {
		return nil
	}
	if info == nil {
		info = &RoutingInfo{}
	}

	var replicas []*topology.Node
	if p.tokenAware && info.Token != nil && info.Keyspace != "" {
		var err error
		replicas, err = snapshot.Replicas(info.Keyspace, *info.Token)
		if err != nil {
			p.log.Warn("token-aware routing unavailable",
				logx.A("keyspace", info.Keyspace),
				logx.Err(err),
			)
			return nil
		}
	}

	scopes := scopeChain(p.scope)
	tiers := make([]tierFunc, 0, 2*len(scopes))

	if len(replicas) > 0 {
		for i, scope := range scopes {
			if !p.scopeAllowed(scope, info) {
				continue
			}
			narrower := scopes[:i]
			tiers = append(tiers, func() []*topology.Node {
				return p.orderTier(filterTier(replicas, scope, narrower), info, true)
			})
		}
	}
	for i, scope := range scopes {
		if !p.scopeAllowed(scope, info) {
			continue
		}
		narrower := scopes[:i]
		tiers = append(tiers, func() []*topology.Node {
			return p.orderTier(filterTier(nonReplicas(snapshot, replicas), scope, narrower), info, false)
		})
	}
	return &candidateSequence{tiers: tiers}
}

// scopeAllowed reports whether candidates of the given scope tier may serve
// this query. Tiers outside the local datacenter need failover to be
// permitted and a consistency that is not datacenter-local.
func (p *DefaultPolicy) scopeAllowed(scope rt.Scope, info *RoutingInfo) bool {
	if p.localDC == "" {
		return true
	}
	if dc := scope.Datacenter(); dc == p.localDC {
		return true
	}
	return p.permitDCFailover && !info.Consistency.IsDatacenterLocal()
}

// orderTier arranges one tier: confirmed lightweight transactions keep the
// deterministic input order so concurrent callers converge on the same node;
// everything else is reordered by the query seed, replica tiers by a full
// shuffle and node tiers by a cheap rotation, with slow nodes moved to the
// back.
func (p *DefaultPolicy) orderTier(tier []*topology.Node, info *RoutingInfo, replicaTier bool) []*topology.Node {
	if info.IsConfirmedLWT || len(tier) < 2 {
		return tier
	}
	if replicaTier {
		rnd := rand.New(rand.NewSource(int64(info.PlanSeed)))
		rnd.Shuffle(len(tier), func(i, j int) {
			tier[i], tier[j] = tier[j], tier[i]
		})
	} else {
		rotate(tier, int(info.PlanSeed%uint64(len(tier))))
	}
	return p.deprioritiseSlow(tier)
}

// deprioritiseSlow stably moves nodes the tracker flags as slow behind the
// healthy ones.
func (p *DefaultPolicy) deprioritiseSlow(tier []*topology.Node) []*topology.Node {
	if p.tracker == nil || len(tier) < 2 {
		return tier
	}
	fast := make([]*topology.Node, 0, len(tier))
	var slow []*topology.Node
	for _, node := range tier {
		if p.tracker.Slow(node.HostID) {
			slow = append(slow, node)
		} else {
			fast = append(fast, node)
		}
	}
	return append(fast, slow...)
}

func scopeChain(scope rt.Scope) []rt.Scope {
	var chain []rt.Scope
	for s := scope; s != nil; s = s.Fallback() {
		chain = append(chain, s)
	}
	return chain
}

// filterTier copies the up nodes matching the scope but none of the narrower
// scopes already served by earlier tiers.
func filterTier(nodes []*topology.Node, scope rt.Scope, narrower []rt.Scope) []*topology.Node {
	tier := make([]*topology.Node, 0, len(nodes))
outer:
	for _, node := range nodes {
		if node == nil || !node.Up || !scope.Matches(node) {
			continue
		}
		for _, prev := range narrower {
			if prev.Matches(node) {
				continue outer
			}
		}
		tier = append(tier, node)
	}
	return tier
}

func nonReplicas(snapshot *topology.Snapshot, replicas []*topology.Node) []*topology.Node {
	if len(replicas) == 0 {
		return snapshot.Nodes()
	}
	owned := make(map[uuid.UUID]struct{}, len(replicas))
	for _, replica := range replicas {
		owned[replica.HostID] = struct{}{}
	}
	rest := snapshot.Nodes()
	rest = slices.DeleteFunc(rest, func(node *topology.Node) bool {
		_, ok := owned[node.HostID]
		return ok
	})
	return rest
}

func rotate(nodes []*topology.Node, k int) {
	if k <= 0 || k >= len(nodes) {
		return
	}
	slices.Reverse(nodes[:k])
	slices.Reverse(nodes[k:])
	slices.Reverse(nodes)
}

type tierFunc func() []*topology.Node

// candidateSequence yields nodes tier by tier, materializing each tier only
// when reached. The common case consumes a single node from the first tier.
type candidateSequence struct {
	tiers    []tierFunc
	current  []*topology.Node
	haveTier bool
	tierIdx  int
	pos      int
}

func (s *candidateSequence) Next() *topology.Node {
	for {
		if !s.haveTier {
			if s.tierIdx >= len(s.tiers) {
				return nil
			}
			s.current = s.tiers[s.tierIdx]()
			s.tierIdx++
			s.pos = 0
			s.haveTier = true
		}
		if s.pos < len(s.current) {
			node := s.current[s.pos]
			s.pos++
			return node
		}
		s.haveTier = false
	}
}

// countedPlan bumps the fallbacks counter once, when the plan hands out its
// first node. Plans that turn out empty behind the dropped head stay
// uncounted.
type countedPlan struct {
	inner   FallbackPlan
	metrics *metrics.RoutingMetrics
	counted bool
}

func (p *countedPlan) Next() *topology.Node {
	node := p.inner.Next()
	if node != nil && !p.counted {
		p.counted = true
		p.metrics.FallbacksTotal.Inc()
	}
	return node
}

var _ Policy = (*DefaultPolicy)(nil)
var _ FallbackPlan = (*candidateSequence)(nil)
var _ FallbackPlan = (*countedPlan)(nil)
var _ FallbackPlan = emptyPlan{}
