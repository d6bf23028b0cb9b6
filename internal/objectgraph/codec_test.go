package objectgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alchemicore/internal/scope"
)

// leaf and composite are minimal Tokenizable fixtures used only by this
// package's tests; real domain types live in internal/model.

type leaf struct {
	Name  string
	Count int64
	Tags  []string
}

func (l *leaf) ClassName() string { return "Leaf" }
func (l *leaf) ShallowDict() map[string]any {
	return map[string]any{"name": l.Name, "count": l.Count, "tags": l.Tags}
}

type composite struct {
	Label    string
	Primary  *leaf
	Children []*leaf
	ByName   map[string]*leaf
	Blob     map[string]any
}

func (c *composite) ClassName() string { return "Composite" }
func (c *composite) ShallowDict() map[string]any {
	children := make([]Tokenizable, len(c.Children))
	for i, ch := range c.Children {
		children[i] = ch
	}
	byName := make(map[string]Tokenizable, len(c.ByName))
	for k, v := range c.ByName {
		byName[k] = v
	}
	return map[string]any{
		"label":    c.Label,
		"primary":  Tokenizable(c.Primary),
		"children": children,
		"by_name":  byName,
		"blob":     c.Blob,
	}
}

func reconstructLeaf(attrs map[string]any) (Tokenizable, error) {
	l := &leaf{Name: attrs["name"].(string)}
	switch v := attrs["count"].(type) {
	case int64:
		l.Count = v
	case float64:
		l.Count = int64(v)
	}
	if tags, ok := attrs["tags"].([]any); ok {
		for _, t := range tags {
			l.Tags = append(l.Tags, t.(string))
		}
	} else if tags, ok := attrs["tags"].([]string); ok {
		l.Tags = tags
	}
	return l, nil
}

func reconstructComposite(attrs map[string]any) (Tokenizable, error) {
	c := &composite{Label: attrs["label"].(string)}
	if p, ok := attrs["primary"].(Tokenizable); ok {
		c.Primary = p.(*leaf)
	}
	if kids, ok := attrs["children"].([]Tokenizable); ok {
		for _, k := range kids {
			c.Children = append(c.Children, k.(*leaf))
		}
	}
	if byName, ok := attrs["by_name"].(map[string]Tokenizable); ok {
		c.ByName = map[string]*leaf{}
		for k, v := range byName {
			c.ByName[k] = v.(*leaf)
		}
	}
	if blob, ok := attrs["blob"].(map[string]any); ok {
		c.Blob = blob
	}
	return c, nil
}

func init() {
	Register("Leaf", reconstructLeaf)
	Register("Composite", reconstructComposite)
}

func testScope() scope.Scope {
	return scope.Scope{Org: "org1", Campaign: "campaignA", Project: "projX"}
}

func TestContentHashStableAndContentAddressed(t *testing.T) {
	a := &leaf{Name: "alpha", Count: 1, Tags: []string{"x", "y"}}
	b := &leaf{Name: "alpha", Count: 1, Tags: []string{"x", "y"}}
	c := &leaf{Name: "alpha", Count: 2, Tags: []string{"x", "y"}}

	assert.Equal(t, ContentHash(a), ContentHash(b), "equal content must hash equal regardless of identity")
	assert.NotEqual(t, ContentHash(a), ContentHash(c), "differing content must hash differently")
}

func TestEncodeDedupesSharedSubobject(t *testing.T) {
	shared := &leaf{Name: "shared", Count: 9}
	root := &composite{
		Label:    "root",
		Primary:  shared,
		Children: []*leaf{shared, {Name: "unique", Count: 1}},
	}

	sg, rootKey, err := Encode(root, testScope())
	require.NoError(t, err)

	// shared appears as Primary and as Children[0]: one node, two edges to it.
	sharedKey := scope.NewScopedKey("Leaf", ContentHash(shared), testScope()).String()
	require.Contains(t, sg.Nodes, sharedKey)

	edgesToShared := 0
	for _, e := range sg.Edges {
		if e.ToKey == sharedKey {
			edgesToShared++
		}
	}
	assert.Equal(t, 2, edgesToShared)
	assert.Contains(t, sg.Nodes, rootKey.String())
	// root, shared, unique == 3 distinct nodes.
	assert.Len(t, sg.Nodes, 3)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	root := &composite{
		Label:   "root",
		Primary: &leaf{Name: "primary", Count: 1, Tags: []string{"p"}},
		Children: []*leaf{
			{Name: "first", Count: 10},
			{Name: "second", Count: 20},
		},
		ByName: map[string]*leaf{
			"a": {Name: "named-a", Count: 100},
			"b": {Name: "named-b", Count: 200},
		},
		Blob: map[string]any{"nested": map[string]any{"k": "v"}, "n": float64(3)},
	}

	sg, rootKey, err := Encode(root, testScope())
	require.NoError(t, err)

	raw := toRawSubgraph(sg)
	decoded, err := Decode(rootKey.String(), raw)
	require.NoError(t, err)

	got, ok := decoded.(*composite)
	require.True(t, ok)
	assert.Equal(t, "root", got.Label)
	require.NotNil(t, got.Primary)
	assert.Equal(t, "primary", got.Primary.Name)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "first", got.Children[0].Name)
	assert.Equal(t, "second", got.Children[1].Name)
	require.Len(t, got.ByName, 2)
	assert.Equal(t, "named-a", got.ByName["a"].Name)
	assert.Equal(t, "named-b", got.ByName["b"].Name)
}

func TestClassifyEmptyPrimitiveList(t *testing.T) {
	l := &leaf{Name: "empty-tags", Tags: []string{}}
	sg, key, err := Encode(l, testScope())
	require.NoError(t, err)
	node := sg.Nodes[key.String()]
	tags, ok := node.Props["tags"].([]any)
	require.True(t, ok)
	assert.Empty(t, tags)
}

func TestEncodeDecodeRoundTripEmptyObjectList(t *testing.T) {
	root := &composite{Label: "lonely", Children: []*leaf{}}

	sg, rootKey, err := Encode(root, testScope())
	require.NoError(t, err)

	node := sg.Nodes[rootKey.String()]
	_, hasProp := node.Props["children"]
	assert.False(t, hasProp, "an empty object list must not be written as a native node property")
	listAttrs, ok := node.Props[PropListAttrs].([]string)
	require.True(t, ok)
	assert.Contains(t, listAttrs, "children")

	raw := toRawSubgraph(sg)
	decoded, err := Decode(rootKey.String(), raw)
	require.NoError(t, err)

	got, ok := decoded.(*composite)
	require.True(t, ok)
	assert.Equal(t, "lonely", got.Label)
	assert.Empty(t, got.Children)
}

// toRawSubgraph converts an EncodedNode/EncodedEdge set (keyed by ScopedKey
// string) into the RawNode/RawEdge form Decode expects, using the ScopedKey
// string itself as the node identity — a stand-in for the database's own
// node handle, which graphstore supplies in production.
func toRawSubgraph(sg *Subgraph) RawSubgraph {
	raw := RawSubgraph{}
	for key, n := range sg.Nodes {
		raw.Nodes = append(raw.Nodes, RawNode{ID: key, Labels: n.Labels, Props: n.Props})
	}
	for _, e := range sg.Edges {
		props := map[string]any{"attribute": e.Attribute}
		if e.HasKey {
			props["key"] = e.Key
		}
		if e.HasIndex {
			props["index"] = e.Index
		}
		raw.Edges = append(raw.Edges, RawEdge{Type: e.Type, StartID: e.FromKey, EndID: e.ToKey, Props: props})
	}
	return raw
}
