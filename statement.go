package routing

import (
	"math/rand"
	"time"

	"github.com/scylladb/scylla-routing-golang/topology"
)

// HistoryListener observes statement execution lifecycle events. One listener
// is typically shared by many statements, so implementations must be safe for
// concurrent use.
type HistoryListener interface {
	// QueryStarted is invoked once per query before the first attempt.
	QueryStarted(info *RoutingInfo)
	// AttemptStarted is invoked before each attempt on the given node.
	AttemptStarted(info *RoutingInfo, node *topology.Node)
	// AttemptFinished is invoked after each attempt with its outcome.
	AttemptFinished(info *RoutingInfo, node *topology.Node, latency time.Duration, err error)
	// QueryFinished is invoked once per query with the final outcome.
	QueryFinished(info *RoutingInfo, err error)
}

// StatementConfig carries the per-statement overrides layered over profile
// defaults when a query is executed. The zero value overrides nothing.
//
// Serial consistency is tri-state: unset (profile default applies), explicitly
// disabled, or an explicit level. Use SetSerialConsistency and
// DisableSerialConsistency rather than touching the fields directly.
type StatementConfig struct {
	// Consistency overrides the profile consistency when non-nil.
	Consistency *Consistency
	// SerialConsistency is consulted only when SerialConsistencySet is true;
	// nil then means serial consistency is explicitly disabled.
	SerialConsistency    *SerialConsistency
	SerialConsistencySet bool
	// Idempotent tells the execution layer the statement may be safely
	// retried or executed speculatively.
	Idempotent bool
	// Tracing requests server-side tracing for the statement.
	Tracing bool
	// Timestamp overrides the write timestamp, in microseconds since the epoch.
	Timestamp *int64
	// RequestTimeout overrides the profile request timeout when non-nil.
	RequestTimeout *time.Duration
	// HistoryListener receives execution events for this statement. Shared
	// across clones.
	HistoryListener HistoryListener
	// Profile selects the execution profile for this statement. Shared
	// across clones.
	Profile *ExecutionProfileHandle
}

// SetSerialConsistency requests an explicit serial consistency level.
func (c *StatementConfig) SetSerialConsistency(sc SerialConsistency) {
	c.SerialConsistency = &sc
	c.SerialConsistencySet = true
}

// DisableSerialConsistency explicitly turns serial consistency off for the
// statement, which is distinct from leaving the profile default in force.
func (c *StatementConfig) DisableSerialConsistency() {
	c.SerialConsistency = nil
	c.SerialConsistencySet = true
}

// DetermineConsistency resolves the consistency to execute at: the
// statement's explicit consistency wins, otherwise the supplied default is
// returned unchanged.
func (c *StatementConfig) DetermineConsistency(defaultConsistency Consistency) Consistency {
	if c != nil && c.Consistency != nil {
		return *c.Consistency
	}
	return defaultConsistency
}

// DetermineSerialConsistency resolves the serial consistency: the statement's
// explicit choice wins when set, explicitly disabled included, otherwise the
// supplied default is returned.
func (c *StatementConfig) DetermineSerialConsistency(defaultSerial *SerialConsistency) *SerialConsistency {
	if c != nil && c.SerialConsistencySet {
		return c.SerialConsistency
	}
	return defaultSerial
}

// DetermineRequestTimeout resolves the request timeout the same way.
func (c *StatementConfig) DetermineRequestTimeout(defaultTimeout time.Duration) time.Duration {
	if c != nil && c.RequestTimeout != nil {
		return *c.RequestTimeout
	}
	return defaultTimeout
}

// Clone returns a copy with every scalar override duplicated, while the
// history listener and the profile handle are shared with the original, so
// identity comparisons against them keep holding across clones.
func (c *StatementConfig) Clone() *StatementConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Consistency = clonePtr(c.Consistency)
	clone.SerialConsistency = clonePtr(c.SerialConsistency)
	clone.Timestamp = clonePtr(c.Timestamp)
	clone.RequestTimeout = clonePtr(c.RequestTimeout)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RoutingInfoForStatement merges statement overrides with profile defaults
// into the descriptor the policy consumes. The statement's profile handle
// wins over the session profile. Token and keyspace identify the statement's
// partition when known; confirmedLWT marks statements known to be lightweight
// transactions. Every call issues a fresh plan seed.
func RoutingInfoForStatement(
	cfg *StatementConfig,
	sessionProfile *ExecutionProfile,
	token *topology.Token,
	keyspace string,
	confirmedLWT bool,
) *RoutingInfo {
	profile := sessionProfile
	if cfg != nil {
		if p := cfg.Profile.Load(); p != nil {
			profile = p
		}
	}
	if profile == nil {
		profile = defaultExecutionProfile
	}
	return &RoutingInfo{
		Consistency:       cfg.DetermineConsistency(profile.Consistency),
		SerialConsistency: cfg.DetermineSerialConsistency(profile.SerialConsistency),
		Token:             token,
		Keyspace:          keyspace,
		IsConfirmedLWT:    confirmedLWT,
		PlanSeed:          rand.Uint64(),
	}
}
