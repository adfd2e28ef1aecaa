package rt

import (
	"testing"

	"github.com/scylladb/scylla-routing-golang/topology"
)

func TestScopeChain(t *testing.T) {
	t.Parallel()

	scope := Scope(NewRackScope("us-east", "rack1", NewDCScope("us-east", NewClusterScope())))

	wantNames := []string{"Rack", "Datacenter", "Cluster"}
	wantStrings := []string{"Rack(dc=us-east, rack=rack1)", "Datacenter(dc=us-east)", "Cluster()"}

	for i := 0; scope != nil; i++ {
		if i >= len(wantNames) {
			t.Fatalf("scope chain longer than %d entries", len(wantNames))
		}
		if got := scope.Name(); got != wantNames[i] {
			t.Errorf("unexpected name at depth %d: got %q, want %q", i, got, wantNames[i])
		}
		if got := scope.String(); got != wantStrings[i] {
			t.Errorf("unexpected string at depth %d: got %q, want %q", i, got, wantStrings[i])
		}
		scope = scope.Fallback()
	}
}

func TestScopeMatches(t *testing.T) {
	t.Parallel()

	local := &topology.Node{Addr: "a:9042", Datacenter: "us-east", Rack: "rack1"}
	sameDC := &topology.Node{Addr: "b:9042", Datacenter: "us-east", Rack: "rack2"}
	remote := &topology.Node{Addr: "c:9042", Datacenter: "eu-west", Rack: "rack1"}

	tests := []struct {
		name  string
		scope Scope
		node  *topology.Node
		want  bool
	}{
		{"rack accepts same rack", NewRackScope("us-east", "rack1", nil), local, true},
		{"rack rejects other rack", NewRackScope("us-east", "rack1", nil), sameDC, false},
		{"rack rejects other dc", NewRackScope("eu-west", "rack1", nil), local, false},
		{"rack rejects nil", NewRackScope("us-east", "rack1", nil), nil, false},
		{"dc accepts same dc", NewDCScope("us-east", nil), sameDC, true},
		{"dc rejects other dc", NewDCScope("us-east", nil), remote, false},
		{"dc rejects nil", NewDCScope("us-east", nil), nil, false},
		{"cluster accepts anything", NewClusterScope(), remote, true},
		{"cluster rejects nil", NewClusterScope(), nil, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.scope.Matches(tt.node); got != tt.want {
				t.Errorf("unexpected match result: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScopeDatacenter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"rack pins its dc", NewRackScope("us-east", "rack1", nil), "us-east"},
		{"dc pins its dc", NewDCScope("eu-west", nil), "eu-west"},
		{"cluster is unpinned", NewClusterScope(), ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.scope.Datacenter(); got != tt.want {
				t.Errorf("unexpected datacenter: got %q, want %q", got, tt.want)
			}
		})
	}
}
