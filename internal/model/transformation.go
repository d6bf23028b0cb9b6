package model

import (
	"fmt"

	"alchemicore/internal/objectgraph"
)

// Transformation is one scientific edge of a workflow: a protocol applied
// between two ChemicalSystem endpoints. Shared by content across networks;
// immutable after creation.
type Transformation struct {
	Name         string
	ProtocolName string
	SystemA      *ChemicalSystem
	SystemB      *ChemicalSystem
	// Settings holds protocol parameters of no fixed shape; it is always
	// serialized (never decomposed into DEPENDS_ON edges) since its values
	// are not domain objects.
	Settings map[string]any
}

func (t *Transformation) ClassName() string { return "Transformation" }

func (t *Transformation) ShallowDict() map[string]any {
	return map[string]any{
		"name":          t.Name,
		"protocol_name": t.ProtocolName,
		"system_a":      objectgraph.Tokenizable(t.SystemA),
		"system_b":      objectgraph.Tokenizable(t.SystemB),
		"settings":      t.Settings,
	}
}

func reconstructTransformation(attrs map[string]any) (objectgraph.Tokenizable, error) {
	t := &Transformation{}
	t.Name, _ = attrs["name"].(string)
	t.ProtocolName, _ = attrs["protocol_name"].(string)

	a, err := asChemicalSystem(attrs["system_a"])
	if err != nil {
		return nil, fmt.Errorf("model: Transformation.system_a: %w", err)
	}
	t.SystemA = a

	b, err := asChemicalSystem(attrs["system_b"])
	if err != nil {
		return nil, fmt.Errorf("model: Transformation.system_b: %w", err)
	}
	t.SystemB = b

	if settings, ok := attrs["settings"].(map[string]any); ok {
		t.Settings = settings
	}

	return t, nil
}

func asChemicalSystem(v any) (*ChemicalSystem, error) {
	if v == nil {
		return nil, nil
	}
	tok, ok := v.(objectgraph.Tokenizable)
	if !ok {
		return nil, fmt.Errorf("expected objectgraph.Tokenizable, got %T", v)
	}
	cs, ok := tok.(*ChemicalSystem)
	if !ok {
		return nil, fmt.Errorf("expected *ChemicalSystem, got %T", tok)
	}
	return cs, nil
}

func init() {
	objectgraph.Register("Transformation", reconstructTransformation)
}
