package objectgraph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RawNode is a graph-engine-agnostic view of a fetched node: an internal
// identity (the database's own node handle, not the domain ScopedKey),
// labels, and properties. graphstore converts neo4j.Node values into these
// before handing them to Decode, keeping this package free of a driver
// dependency.
type RawNode struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// RawEdge is a graph-engine-agnostic view of a fetched DEPENDS_ON
// relationship.
type RawEdge struct {
	Type    string
	StartID string
	EndID   string
	Props   map[string]any
}

// RawSubgraph is everything Decode needs to reconstruct one root object:
// every node reachable from it and every DEPENDS_ON edge among them.
type RawSubgraph struct {
	Nodes []RawNode
	Edges []RawEdge
}

type decodeCtx struct {
	nodesByID map[string]RawNode
	outEdges  map[string][]RawEdge
	visited   map[string]Tokenizable
	stack     map[string]bool
}

// Decode reconstructs the Tokenizable rooted at rootID from a subgraph
// fetched out of the store. It is the inverse of Encode: JSON-serialized
// attributes are unmarshaled, and DEPENDS_ON edges are replayed back into
// single-object, map, or ordered-list attributes according to their
// attribute/key/index properties.
func Decode(rootID string, sg RawSubgraph) (Tokenizable, error) {
	ctx := &decodeCtx{
		nodesByID: make(map[string]RawNode, len(sg.Nodes)),
		outEdges:  make(map[string][]RawEdge, len(sg.Edges)),
		visited:   make(map[string]Tokenizable, len(sg.Nodes)),
		stack:     make(map[string]bool, len(sg.Nodes)),
	}
	for _, n := range sg.Nodes {
		ctx.nodesByID[n.ID] = n
	}
	for _, e := range sg.Edges {
		ctx.outEdges[e.StartID] = append(ctx.outEdges[e.StartID], e)
	}
	return ctx.decodeNode(rootID)
}

func (c *decodeCtx) decodeNode(id string) (Tokenizable, error) {
	if obj, ok := c.visited[id]; ok {
		return obj, nil
	}
	if c.stack[id] {
		return nil, fmt.Errorf("objectgraph: cycle detected at node %q", id)
	}
	node, ok := c.nodesByID[id]
	if !ok {
		return nil, fmt.Errorf("objectgraph: subgraph missing referenced node %q", id)
	}
	c.stack[id] = true
	defer delete(c.stack, id)

	className, err := classNameFromLabels(node.Labels)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]any, len(node.Props))
	for k, v := range node.Props {
		attrs[k] = v
	}

	if err := inflateJSONProps(attrs); err != nil {
		return nil, fmt.Errorf("objectgraph: node %q: %w", id, err)
	}

	type indexedChild struct {
		index int
		obj   Tokenizable
	}
	listAccum := map[string][]indexedChild{}
	mapAccum := map[string]map[string]Tokenizable{}

	edges := append([]RawEdge(nil), c.outEdges[id]...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].EndID < edges[j].EndID })

	for _, edge := range edges {
		if edge.Type != DependsOnType {
			continue
		}
		child, err := c.decodeNode(edge.EndID)
		if err != nil {
			return nil, err
		}
		attr, _ := edge.Props["attribute"].(string)

		switch {
		case hasProp(edge.Props, "index"):
			idx := toInt(edge.Props["index"])
			listAccum[attr] = append(listAccum[attr], indexedChild{idx, child})
		case hasProp(edge.Props, "key"):
			key, _ := edge.Props["key"].(string)
			if mapAccum[attr] == nil {
				mapAccum[attr] = map[string]Tokenizable{}
			}
			mapAccum[attr][key] = child
		default:
			attrs[attr] = child
		}
	}

	for attr, children := range listAccum {
		sort.Slice(children, func(i, j int) bool { return children[i].index < children[j].index })
		list := make([]Tokenizable, len(children))
		for i, c := range children {
			list[i] = c.obj
		}
		attrs[attr] = list
	}
	for attr, m := range mapAccum {
		attrs[attr] = m
	}

	if err := fillEmptyListAttrs(attrs); err != nil {
		return nil, fmt.Errorf("objectgraph: node %q: %w", id, err)
	}

	for _, reserved := range []string{
		PropScopedKey, PropGufeKey, PropOrg, PropCampaign, PropProject, PropJSONProps, PropListAttrs,
	} {
		delete(attrs, reserved)
	}

	obj, err := Reconstruct(className, attrs)
	if err != nil {
		return nil, fmt.Errorf("objectgraph: node %q: %w", id, err)
	}
	c.visited[id] = obj
	return obj, nil
}

func classNameFromLabels(labels []string) (string, error) {
	for _, l := range labels {
		if l != UniversalLabel {
			return l, nil
		}
	}
	return "", fmt.Errorf("objectgraph: node has no class label beyond %q", UniversalLabel)
}

func inflateJSONProps(attrs map[string]any) error {
	raw, ok := attrs[PropJSONProps]
	if !ok {
		return nil
	}
	names, err := toStringSlice(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", PropJSONProps, err)
	}
	for _, name := range names {
		s, ok := attrs[name].(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs[name] = decoded
	}
	return nil
}

// fillEmptyListAttrs defaults every attribute Encode recorded as object-list
// typed (_list_attrs) to an empty, correctly typed slice when it carries no
// DEPENDS_ON edges — an object-list attribute with zero elements emits no
// edges and no node property, so without this it would be indistinguishable
// from an attribute that was never set at all.
func fillEmptyListAttrs(attrs map[string]any) error {
	raw, ok := attrs[PropListAttrs]
	if !ok {
		return nil
	}
	names, err := toStringSlice(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", PropListAttrs, err)
	}
	for _, name := range names {
		if _, ok := attrs[name]; !ok {
			attrs[name] = []Tokenizable{}
		}
	}
	return nil
}

func toStringSlice(v any) ([]string, error) {
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, len(vv))
		for i, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("non-string element at index %d", i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func hasProp(props map[string]any, key string) bool {
	_, ok := props[key]
	return ok
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
