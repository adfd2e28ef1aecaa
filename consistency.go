package routing

import "fmt"

// Consistency is the consistency level requested for a query, carrying the
// CQL protocol encoding.
type Consistency uint16

// Supported consistency levels.
const (
	Any         Consistency = 0x00
	One         Consistency = 0x01
	Two         Consistency = 0x02
	Three       Consistency = 0x03
	Quorum      Consistency = 0x04
	All         Consistency = 0x05
	LocalQuorum Consistency = 0x06
	EachQuorum  Consistency = 0x07
	LocalOne    Consistency = 0x0A
)

// String implements fmt.Stringer.
func (c Consistency) String() string {
	switch c {
	case Any:
		return "ANY"
	case One:
		return "ONE"
	case Two:
		return "TWO"
	case Three:
		return "THREE"
	case Quorum:
		return "QUORUM"
	case All:
		return "ALL"
	case LocalQuorum:
		return "LOCAL_QUORUM"
	case EachQuorum:
		return "EACH_QUORUM"
	case LocalOne:
		return "LOCAL_ONE"
	default:
		return fmt.Sprintf("UNKNOWN_CONS_0x%04X", uint16(c))
	}
}

// IsDatacenterLocal reports whether the level confines the query to the
// local datacenter. Queries at such levels never fail over to remote
// datacenters, whatever the policy configuration says.
func (c Consistency) IsDatacenterLocal() bool {
	return c == LocalOne || c == LocalQuorum
}

// SerialConsistency is the consistency level used for the linearizable phase
// of lightweight transactions.
type SerialConsistency uint16

// Supported serial consistency levels.
const (
	Serial      SerialConsistency = 0x08
	LocalSerial SerialConsistency = 0x09
)

// String implements fmt.Stringer.
func (sc SerialConsistency) String() string {
	switch sc {
	case Serial:
		return "SERIAL"
	case LocalSerial:
		return "LOCAL_SERIAL"
	default:
		return fmt.Sprintf("UNKNOWN_SERIAL_CONS_0x%04X", uint16(sc))
	}
}
