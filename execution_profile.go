package routing

import (
	"sync/atomic"
	"time"
)

// DefaultRequestTimeout bounds a single query when no override applies.
const DefaultRequestTimeout = 30 * time.Second

// ExecutionProfile bundles the defaults a session applies to statements that
// do not override them. Profiles are immutable once built; to change behavior
// at runtime, remap a handle to another profile.
type ExecutionProfile struct {
	Consistency       Consistency
	SerialConsistency *SerialConsistency
	RequestTimeout    time.Duration
	// Policy routes statements executed under this profile. Nil leaves the
	// session policy in force.
	Policy Policy
}

// ExecutionProfileOption an option for ExecutionProfile.
type ExecutionProfileOption func(p *ExecutionProfile)

// WithConsistency changes the profile consistency.
func WithConsistency(c Consistency) ExecutionProfileOption {
	return func(p *ExecutionProfile) {
		p.Consistency = c
	}
}

// WithSerialConsistency changes the profile serial consistency.
func WithSerialConsistency(sc SerialConsistency) ExecutionProfileOption {
	return func(p *ExecutionProfile) {
		p.SerialConsistency = &sc
	}
}

// WithoutSerialConsistency removes the profile serial consistency.
func WithoutSerialConsistency() ExecutionProfileOption {
	return func(p *ExecutionProfile) {
		p.SerialConsistency = nil
	}
}

// WithRequestTimeout changes the profile request timeout.
func WithRequestTimeout(d time.Duration) ExecutionProfileOption {
	return func(p *ExecutionProfile) {
		p.RequestTimeout = d
	}
}

// WithPolicy routes statements executed under this profile through the given
// policy instead of the session one.
func WithPolicy(policy Policy) ExecutionProfileOption {
	return func(p *ExecutionProfile) {
		p.Policy = policy
	}
}

// NewExecutionProfile builds a profile from driver defaults, LOCAL_QUORUM
// with LOCAL_SERIAL, adjusted by the provided options.
func NewExecutionProfile(options ...ExecutionProfileOption) *ExecutionProfile {
	serial := LocalSerial
	profile := &ExecutionProfile{
		Consistency:       LocalQuorum,
		SerialConsistency: &serial,
		RequestTimeout:    DefaultRequestTimeout,
	}
	for _, opt := range options {
		opt(profile)
	}
	return profile
}

var defaultExecutionProfile = NewExecutionProfile()

// ExecutionProfileHandle is a shared, atomically swappable reference to an
// execution profile. Statements holding the same handle observe a remap
// immediately, without being rebuilt.
type ExecutionProfileHandle struct {
	profile atomic.Pointer[ExecutionProfile]
}

// IntoHandle wraps the profile in a fresh handle.
func (p *ExecutionProfile) IntoHandle() *ExecutionProfileHandle {
	h := &ExecutionProfileHandle{}
	h.profile.Store(p)
	return h
}

// Load returns the profile the handle currently points at. A nil handle
// yields nil.
func (h *ExecutionProfileHandle) Load() *ExecutionProfile {
	if h == nil {
		return nil
	}
	return h.profile.Load()
}

// MapToAnotherProfile atomically repoints the handle, affecting every
// statement sharing it.
func (h *ExecutionProfileHandle) MapToAnotherProfile(p *ExecutionProfile) {
	h.profile.Store(p)
}
