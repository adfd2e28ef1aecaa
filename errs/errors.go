// Package errs contains the errors shared between the routing core and its consumers
package errs

import "errors"

var (
	// ErrUnknownKeyspace signals that a replica lookup was requested for a keyspace
	// the topology snapshot has no replication strategy registered for
	ErrUnknownKeyspace = errors.New("keyspace has no replication strategy registered in the topology snapshot")
	// ErrEmptyRing signals that the token ring of the snapshot has no entries,
	// so replica sets cannot be computed
	ErrEmptyRing = errors.New("token ring has no entries")
	// ErrPlanExhausted signals that a query plan has come to an end and has no more nodes in it
	ErrPlanExhausted = errors.New("query plan has been exhausted")
)
