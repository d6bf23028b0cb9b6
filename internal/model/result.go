package model

import (
	"fmt"

	"alchemicore/internal/objectgraph"
)

// ObjectStoreRef is an opaque locator into the external blob store where a
// task's real result payload lives. The core never reads or writes the
// payload itself.
type ObjectStoreRef struct {
	Location string
}

func (r *ObjectStoreRef) ClassName() string { return "ObjectStoreRef" }

func (r *ObjectStoreRef) ShallowDict() map[string]any {
	return map[string]any{"location": r.Location}
}

func reconstructObjectStoreRef(attrs map[string]any) (objectgraph.Tokenizable, error) {
	r := &ObjectStoreRef{}
	r.Location, _ = attrs["location"].(string)
	return r, nil
}

// ProtocolDAGResult is an immutable result descriptor produced by executing
// a task. Ok records whether the protocol run succeeded; Ref points at the
// actual payload in the blob store.
type ProtocolDAGResult struct {
	Name string
	Ok   bool
	Ref  *ObjectStoreRef
}

func (p *ProtocolDAGResult) ClassName() string { return "ProtocolDAGResult" }

func (p *ProtocolDAGResult) ShallowDict() map[string]any {
	return map[string]any{
		"name": p.Name,
		"ok":   p.Ok,
		"ref":  objectgraph.Tokenizable(p.Ref),
	}
}

func reconstructProtocolDAGResult(attrs map[string]any) (objectgraph.Tokenizable, error) {
	p := &ProtocolDAGResult{}
	p.Name, _ = attrs["name"].(string)
	p.Ok, _ = attrs["ok"].(bool)

	if v := attrs["ref"]; v != nil {
		tok, ok := v.(objectgraph.Tokenizable)
		if !ok {
			return nil, fmt.Errorf("model: ProtocolDAGResult.ref: expected objectgraph.Tokenizable, got %T", v)
		}
		ref, ok := tok.(*ObjectStoreRef)
		if !ok {
			return nil, fmt.Errorf("model: ProtocolDAGResult.ref: expected *ObjectStoreRef, got %T", tok)
		}
		p.Ref = ref
	}

	return p, nil
}

func init() {
	objectgraph.Register("ObjectStoreRef", reconstructObjectStoreRef)
	objectgraph.Register("ProtocolDAGResult", reconstructProtocolDAGResult)
}
