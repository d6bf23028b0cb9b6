// Package model defines the domain objects persisted by internal/graphstore:
// AlchemicalNetwork, Transformation, ChemicalSystem, ProtocolDAGResult,
// ObjectStoreRef, Task, TaskHub, and CredentialedEntity. The content-
// addressed types implement objectgraph.Tokenizable so the generic codec can
// encode and decode them; CredentialedEntity does not (it is keyed by
// identifier, not content-hash, and never carries the universal label).
package model

import (
	"fmt"

	"alchemicore/internal/objectgraph"
)

// AlchemicalNetwork is a user-submitted workflow: a named collection of
// Transformations and ChemicalSystems. It is immutable after creation —
// every attribute participates in its content-hash.
type AlchemicalNetwork struct {
	Name            string
	Transformations []*Transformation
	ChemicalSystems []*ChemicalSystem
}

func (n *AlchemicalNetwork) ClassName() string { return "AlchemicalNetwork" }

func (n *AlchemicalNetwork) ShallowDict() map[string]any {
	txs := make([]objectgraph.Tokenizable, len(n.Transformations))
	for i, t := range n.Transformations {
		txs[i] = t
	}
	css := make([]objectgraph.Tokenizable, len(n.ChemicalSystems))
	for i, c := range n.ChemicalSystems {
		css[i] = c
	}
	return map[string]any{
		"name":             n.Name,
		"transformations":  txs,
		"chemical_systems": css,
	}
}

func reconstructAlchemicalNetwork(attrs map[string]any) (objectgraph.Tokenizable, error) {
	n := &AlchemicalNetwork{}
	n.Name, _ = attrs["name"].(string)

	txs, err := asTokenizableList(attrs["transformations"])
	if err != nil {
		return nil, fmt.Errorf("model: AlchemicalNetwork.transformations: %w", err)
	}
	for _, t := range txs {
		tx, ok := t.(*Transformation)
		if !ok {
			return nil, fmt.Errorf("model: AlchemicalNetwork.transformations: unexpected element type %T", t)
		}
		n.Transformations = append(n.Transformations, tx)
	}

	css, err := asTokenizableList(attrs["chemical_systems"])
	if err != nil {
		return nil, fmt.Errorf("model: AlchemicalNetwork.chemical_systems: %w", err)
	}
	for _, c := range css {
		cs, ok := c.(*ChemicalSystem)
		if !ok {
			return nil, fmt.Errorf("model: AlchemicalNetwork.chemical_systems: unexpected element type %T", c)
		}
		n.ChemicalSystems = append(n.ChemicalSystems, cs)
	}

	return n, nil
}

// asTokenizableList tolerates both a decoded []objectgraph.Tokenizable (the
// normal decode path, including an empty member set) and a nil/missing
// attribute, returning a nil slice in the latter case.
func asTokenizableList(v any) ([]objectgraph.Tokenizable, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]objectgraph.Tokenizable)
	if !ok {
		return nil, fmt.Errorf("expected []objectgraph.Tokenizable, got %T", v)
	}
	return list, nil
}

func init() {
	objectgraph.Register("AlchemicalNetwork", reconstructAlchemicalNetwork)
}
