package topology

import (
	"math"

	"github.com/scylladb/scylla-routing-golang/murmur"
)

// Token is a position on the token ring. The ring is circular over the full
// int64 range, so ordinary integer comparison orders ring entries.
type Token int64

// Partitioner derives the ring position of a partition from its serialized
// partition key.
type Partitioner interface {
	// Name returns the partitioner name as reported by the cluster schema.
	Name() string
	// Hash maps a serialized partition key to its token.
	Hash(partitionKey []byte) Token
}

// Murmur3Partitioner is the default cluster partitioner. It uses the Cassandra
// variant of MurmurHash3 and never produces math.MinInt64, which the ring
// reserves as the lower bound.
type Murmur3Partitioner struct{}

// Name implements Partitioner.
func (Murmur3Partitioner) Name() string { return "Murmur3Partitioner" }

// Hash implements Partitioner.
func (Murmur3Partitioner) Hash(partitionKey []byte) Token {
	return normalizeHash(murmur.Murmur3H1(partitionKey))
}

func normalizeHash(h int64) Token {
	if h == math.MinInt64 {
		return Token(math.MaxInt64)
	}
	return Token(h)
}

var _ Partitioner = Murmur3Partitioner{}
