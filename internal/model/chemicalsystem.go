package model

import "alchemicore/internal/objectgraph"

// ChemicalSystem is one scientific node of a workflow: a named collection of
// molecular components. Components has no fixed shape (component
// name -> arbitrary descriptor), so it is always serialized. Shared by
// content across networks and transformations; immutable after creation.
type ChemicalSystem struct {
	Name       string
	Components map[string]any
}

func (c *ChemicalSystem) ClassName() string { return "ChemicalSystem" }

func (c *ChemicalSystem) ShallowDict() map[string]any {
	return map[string]any{
		"name":       c.Name,
		"components": c.Components,
	}
}

func reconstructChemicalSystem(attrs map[string]any) (objectgraph.Tokenizable, error) {
	cs := &ChemicalSystem{}
	cs.Name, _ = attrs["name"].(string)
	if components, ok := attrs["components"].(map[string]any); ok {
		cs.Components = components
	}
	return cs, nil
}

func init() {
	objectgraph.Register("ChemicalSystem", reconstructChemicalSystem)
}
