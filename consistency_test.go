package routing

import "testing"

func TestConsistencyString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		c    Consistency
		want string
	}{
		{Any, "ANY"},
		{One, "ONE"},
		{Two, "TWO"},
		{Three, "THREE"},
		{Quorum, "QUORUM"},
		{All, "ALL"},
		{LocalQuorum, "LOCAL_QUORUM"},
		{EachQuorum, "EACH_QUORUM"},
		{LocalOne, "LOCAL_ONE"},
		{Consistency(0x42), "UNKNOWN_CONS_0x0042"},
	}

	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("unexpected string for 0x%04X: got %q, want %q", uint16(tt.c), got, tt.want)
		}
	}
}

func TestConsistencyIsDatacenterLocal(t *testing.T) {
	t.Parallel()

	local := []Consistency{LocalOne, LocalQuorum}
	for _, c := range local {
		if !c.IsDatacenterLocal() {
			t.Errorf("%s must be datacenter local", c)
		}
	}

	global := []Consistency{Any, One, Two, Three, Quorum, All, EachQuorum}
	for _, c := range global {
		if c.IsDatacenterLocal() {
			t.Errorf("%s must not be datacenter local", c)
		}
	}
}

func TestSerialConsistencyString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sc   SerialConsistency
		want string
	}{
		{Serial, "SERIAL"},
		{LocalSerial, "LOCAL_SERIAL"},
		{SerialConsistency(0x42), "UNKNOWN_SERIAL_CONS_0x0042"},
	}

	for _, tt := range tests {
		if got := tt.sc.String(); got != tt.want {
			t.Errorf("unexpected string for 0x%04X: got %q, want %q", uint16(tt.sc), got, tt.want)
		}
	}
}
