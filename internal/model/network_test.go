package model

import (
	"testing"

	"alchemicore/internal/objectgraph"
	"alchemicore/internal/scope"
)

func testScope() scope.Scope {
	return scope.Scope{Org: "org1", Campaign: "campaignA", Project: "projX"}
}

// toRawSubgraph mirrors graphstore's fetch-then-decode boundary, using the
// ScopedKey string itself as the node identity.
func toRawSubgraph(sg *objectgraph.Subgraph) objectgraph.RawSubgraph {
	raw := objectgraph.RawSubgraph{}
	for key, n := range sg.Nodes {
		raw.Nodes = append(raw.Nodes, objectgraph.RawNode{ID: key, Labels: n.Labels, Props: n.Props})
	}
	for _, e := range sg.Edges {
		props := map[string]any{"attribute": e.Attribute}
		if e.HasKey {
			props["key"] = e.Key
		}
		if e.HasIndex {
			props["index"] = e.Index
		}
		raw.Edges = append(raw.Edges, objectgraph.RawEdge{Type: e.Type, StartID: e.FromKey, EndID: e.ToKey, Props: props})
	}
	return raw
}

func TestAlchemicalNetworkRoundTripWithEmptyMembers(t *testing.T) {
	net := &AlchemicalNetwork{Name: "empty-net"}

	sg, key, err := objectgraph.Encode(net, testScope())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := objectgraph.Decode(key.String(), toRawSubgraph(sg))
	if err != nil {
		t.Fatalf("Decode() error = %v, want nil for a network with no transformations or chemical systems", err)
	}

	got, ok := decoded.(*AlchemicalNetwork)
	if !ok {
		t.Fatalf("Decode() returned %T, want *AlchemicalNetwork", decoded)
	}
	if got.Name != "empty-net" {
		t.Errorf("Name = %q, want %q", got.Name, "empty-net")
	}
	if len(got.Transformations) != 0 {
		t.Errorf("Transformations = %v, want empty", got.Transformations)
	}
	if len(got.ChemicalSystems) != 0 {
		t.Errorf("ChemicalSystems = %v, want empty", got.ChemicalSystems)
	}
}

func TestAlchemicalNetworkRoundTripWithMembers(t *testing.T) {
	net := &AlchemicalNetwork{
		Name: "full-net",
		ChemicalSystems: []*ChemicalSystem{
			{Name: "ligand", Components: map[string]any{"smiles": "CCO"}},
		},
	}
	net.Transformations = []*Transformation{
		{Name: "solvate", ProtocolName: "proto-a", SystemA: net.ChemicalSystems[0], SystemB: net.ChemicalSystems[0]},
	}

	sg, key, err := objectgraph.Encode(net, testScope())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := objectgraph.Decode(key.String(), toRawSubgraph(sg))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got, ok := decoded.(*AlchemicalNetwork)
	if !ok {
		t.Fatalf("Decode() returned %T, want *AlchemicalNetwork", decoded)
	}
	if len(got.Transformations) != 1 {
		t.Fatalf("Transformations = %v, want 1 entry", got.Transformations)
	}
	if got.Transformations[0].Name != "solvate" {
		t.Errorf("Transformations[0].Name = %q", got.Transformations[0].Name)
	}
	if len(got.ChemicalSystems) != 1 || got.ChemicalSystems[0].Name != "ligand" {
		t.Errorf("ChemicalSystems = %v, want one %q entry", got.ChemicalSystems, "ligand")
	}
}

func TestAsTokenizableListTolerance(t *testing.T) {
	if list, err := asTokenizableList(nil); err != nil || list != nil {
		t.Errorf("asTokenizableList(nil) = (%v, %v), want (nil, nil)", list, err)
	}
	if list, err := asTokenizableList([]objectgraph.Tokenizable{}); err != nil || len(list) != 0 {
		t.Errorf("asTokenizableList(empty) = (%v, %v), want (empty, nil)", list, err)
	}
	if _, err := asTokenizableList("not a list"); err == nil {
		t.Error("asTokenizableList(wrong type) = nil error, want an error")
	}
}
