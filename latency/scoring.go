// Package latency tracks per-node query latencies and failure pressure, and
// tells query planning which nodes should be deprioritized.
package latency

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"syscall"
)

// ErrorScoreFunc maps query failures to their respective score deltas.
// A zero delta marks the failure as client-side: it says nothing about the
// node and must leave its record untouched.
type ErrorScoreFunc func(err error) uint64

// ErrorScoreWeights holds the penalties applied for different error classes.
type ErrorScoreWeights struct {
	ContextCancelled  uint64
	ContextTimeout    uint64
	Default           uint64
	Timeout           uint64
	ConnectionRefused uint64
	TLSCritical       uint64
	NotFound          uint64
	DNSDefault        uint64
	NetDefault        uint64
}

// DefaultErrorScoreWithWeights returns a scorer that maps errors to weights using the provided configuration.
func DefaultErrorScoreWithWeights(weights ErrorScoreWeights) ErrorScoreFunc {
	return func(err error) uint64 {
		if err == nil {
			return 0
		}

		switch {
		case errors.Is(err, context.Canceled):
			return weights.ContextCancelled
		case errors.Is(err, context.DeadlineExceeded):
			return weights.ContextTimeout
		}

		var opErr *net.OpError
		if errors.As(err, &opErr) {
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
				return weights.ConnectionRefused
			}
			return weights.NetDefault
		}

		var tlsErr *tls.RecordHeaderError
		if errors.As(err, &tlsErr) {
			return weights.NetDefault
		}

		var tlsCertErr *tls.CertificateVerificationError
		if errors.As(err, &tlsCertErr) {
			return weights.TLSCritical
		}

		var tlsECHRefErr *tls.ECHRejectionError
		if errors.As(err, &tlsECHRefErr) {
			return weights.TLSCritical
		}

		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			if dnsErr.IsTimeout {
				return weights.Timeout
			}
			if dnsErr.IsNotFound {
				return weights.NotFound
			}
			return weights.DNSDefault
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				return weights.Timeout
			}
			return weights.NetDefault
		}

		return weights.Default
	}
}

// DefaultErrorScoreWeights defines penalties used by DefaultErrorScore.
var DefaultErrorScoreWeights = ErrorScoreWeights{
	Default:           1,
	Timeout:           40,
	ConnectionRefused: 40,
	TLSCritical:       40,
	ContextCancelled:  0,
	ContextTimeout:    0,
	NetDefault:        2,
	NotFound:          40,
	DNSDefault:        2,
}

// DefaultErrorScore returns a score delta representing the impact of the provided failure.
// Positive values penalize nodes (errors) while zero values leave the record unchanged.
var DefaultErrorScore = DefaultErrorScoreWithWeights(DefaultErrorScoreWeights)
