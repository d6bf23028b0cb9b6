// Package objectgraph maps nested, content-addressed domain objects to
// node+relationship subgraphs suitable for merging into a labeled property
// graph, and reconstructs them losslessly from a subgraph fetched back out.
//
// A domain object is anything implementing Tokenizable. Its attributes
// (ShallowDict) may be scalars, ordered sequences of uniform primitives,
// arbitrary-key mappings, or other Tokenizable objects — the classifier in
// classify.go replaces the runtime type introspection a dynamically typed
// source would use with the explicit variant tags below.
package objectgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"golang.org/x/crypto/blake2b"

	"alchemicore/internal/scope"
)

// UniversalLabel is applied to every node produced by Encode, in addition to
// the object's own class name. It backs the database's single uniqueness
// constraint on ScopedKey.
const UniversalLabel = "GufeTokenizable"

// Reserved node property names. These never appear in a decoded attribute map.
const (
	PropScopedKey = "_scoped_key"
	PropGufeKey   = "_gufe_key"
	PropOrg       = "_org"
	PropCampaign  = "_campaign"
	PropProject   = "_project"
	PropJSONProps = "_json_props"
	PropListAttrs = "_list_attrs"
)

// DependsOnType is the relationship type used for structural composition
// edges emitted while encoding nested objects.
const DependsOnType = "DEPENDS_ON"

// Tokenizable is implemented by every persisted domain object. ShallowDict
// returns the object's immediate attributes keyed by field name; values may
// be scalars, slices of uniform scalars, maps/slices of Tokenizable, a
// single nested Tokenizable, or anything else (which is serialized).
type Tokenizable interface {
	ClassName() string
	ShallowDict() map[string]any
}

var registry = map[string]func(map[string]any) (Tokenizable, error){}

// Register installs the reconstructor for a concrete domain class. Domain
// packages call this from an init() so the codec can rebuild instances by
// class name alone.
func Register(className string, ctor func(map[string]any) (Tokenizable, error)) {
	registry[className] = ctor
}

// Reconstruct hands a decoded attribute map to the domain-class
// reconstructor registered for className.
func Reconstruct(className string, attrs map[string]any) (Tokenizable, error) {
	ctor, ok := registry[className]
	if !ok {
		return nil, fmt.Errorf("objectgraph: no reconstructor registered for class %q", className)
	}
	return ctor(attrs)
}

// EncodedNode is one node of an encoded subgraph, ready to be merged into
// the graph database.
type EncodedNode struct {
	Labels []string
	Props  map[string]any
}

// EncodedEdge is one DEPENDS_ON relationship of an encoded subgraph.
type EncodedEdge struct {
	Type     string
	FromKey  string // _scoped_key of the source node
	ToKey    string // _scoped_key of the target node
	Attribute string
	Key      string // set when the edge represents a map entry
	HasKey   bool
	Index    int // set when the edge represents a sequence element
	HasIndex bool
}

// Subgraph accumulates the nodes and edges produced by a (possibly
// recursive) Encode call. Nodes are keyed and deduplicated by ScopedKey
// string so that sub-objects shared across a call are emitted once.
type Subgraph struct {
	Nodes map[string]*EncodedNode
	Edges []*EncodedEdge
}

func newSubgraph() *Subgraph {
	return &Subgraph{Nodes: map[string]*EncodedNode{}}
}

// Encode encodes obj (and, recursively, any nested Tokenizable attributes)
// into a Subgraph within the given Scope. Sub-objects are memoized by
// (content-hash, scope) so that sharing within one call results in a single
// emitted node, per I7.
func Encode(obj Tokenizable, s scope.Scope) (*Subgraph, scope.ScopedKey, error) {
	sg := newSubgraph()
	sk, err := encodeInto(sg, obj, s)
	return sg, sk, err
}

func encodeInto(sg *Subgraph, obj Tokenizable, s scope.Scope) (scope.ScopedKey, error) {
	hash := ContentHash(obj)
	sk := scope.NewScopedKey(obj.ClassName(), hash, s)
	memoKey := sk.String()

	if _, ok := sg.Nodes[memoKey]; ok {
		return sk, nil
	}

	node := &EncodedNode{
		Labels: []string{UniversalLabel, obj.ClassName()},
		Props: map[string]any{
			PropScopedKey: memoKey,
			PropGufeKey:   sk.Key(),
			PropOrg:       s.Org,
			PropCampaign:  s.Campaign,
			PropProject:   s.Project,
			PropJSONProps: []string{},
			PropListAttrs: []string{},
		},
	}
	// Reserve the slot before recursing so a self-referential attribute
	// (were one ever to occur) cannot recurse forever.
	sg.Nodes[memoKey] = node

	dict := obj.ShallowDict()
	attrNames := make([]string, 0, len(dict))
	for k := range dict {
		attrNames = append(attrNames, k)
	}
	sort.Strings(attrNames)

	jsonProps := []string{}
	listAttrs := []string{}

	for _, attr := range attrNames {
		val := dict[attr]
		switch classify(val) {
		case kindScalar:
			node.Props[attr] = val

		case kindPrimitiveList:
			node.Props[attr] = toNativeList(val)

		case kindObjectRef:
			child := val.(Tokenizable)
			childKey, err := encodeInto(sg, child, s)
			if err != nil {
				return scope.ScopedKey{}, err
			}
			sg.Edges = append(sg.Edges, &EncodedEdge{
				Type: DependsOnType, FromKey: memoKey, ToKey: childKey.String(), Attribute: attr,
			})

		case kindObjectMap:
			rv := reflect.ValueOf(val)
			mapKeys := make([]string, 0, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				mapKeys = append(mapKeys, iter.Key().String())
			}
			sort.Strings(mapKeys)
			for _, mk := range mapKeys {
				child := rv.MapIndex(reflect.ValueOf(mk)).Interface().(Tokenizable)
				childKey, err := encodeInto(sg, child, s)
				if err != nil {
					return scope.ScopedKey{}, err
				}
				sg.Edges = append(sg.Edges, &EncodedEdge{
					Type: DependsOnType, FromKey: memoKey, ToKey: childKey.String(),
					Attribute: attr, Key: mk, HasKey: true,
				})
			}

		case kindObjectList:
			listAttrs = append(listAttrs, attr)
			rv := reflect.ValueOf(val)
			for i := 0; i < rv.Len(); i++ {
				child := rv.Index(i).Interface().(Tokenizable)
				childKey, err := encodeInto(sg, child, s)
				if err != nil {
					return scope.ScopedKey{}, err
				}
				sg.Edges = append(sg.Edges, &EncodedEdge{
					Type: DependsOnType, FromKey: memoKey, ToKey: childKey.String(),
					Attribute: attr, Index: i, HasIndex: true,
				})
			}

		case kindSerialized:
			buf, err := json.Marshal(val)
			if err != nil {
				return scope.ScopedKey{}, fmt.Errorf("objectgraph: serializing attribute %q: %w", attr, err)
			}
			node.Props[attr] = string(buf)
			jsonProps = append(jsonProps, attr)
		}
	}

	sort.Strings(jsonProps)
	node.Props[PropJSONProps] = jsonProps
	sort.Strings(listAttrs)
	node.Props[PropListAttrs] = listAttrs

	return sk, nil
}

func toNativeList(val any) any {
	rv := reflect.ValueOf(val)
	if rv.Len() == 0 {
		return []any{}
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// ContentHash computes the object's scope-independent content hash: a
// blake2b-256 digest (truncated to 16 bytes/32 hex chars) over a canonical
// JSON encoding of the object's class name and attributes, with nested
// Tokenizable values replaced by their own content hash so that two
// content-equal sub-objects always hash identically regardless of pointer
// identity.
func ContentHash(obj Tokenizable) string {
	return computeHash(obj, map[Tokenizable]string{})
}

func computeHash(obj Tokenizable, cache map[Tokenizable]string) string {
	if h, ok := cache[obj]; ok {
		return h
	}

	dict := obj.ShallowDict()
	normalized := make(map[string]any, len(dict))
	for k, v := range dict {
		normalized[k] = normalizeForHash(v, cache)
	}

	payload := struct {
		Class string         `json:"class"`
		Attrs map[string]any `json:"attrs"`
	}{Class: obj.ClassName(), Attrs: normalized}

	buf, err := json.Marshal(payload)
	if err != nil {
		// Attribute values are constrained by classify() to JSON-safe
		// shapes; a marshal failure here indicates a Tokenizable
		// implementation bug, not a runtime condition callers can act on.
		panic(fmt.Sprintf("objectgraph: content hash: %v", err))
	}

	sum := blake2b.Sum256(buf)
	hash := hex.EncodeToString(sum[:16])
	cache[obj] = hash
	return hash
}

func normalizeForHash(val any, cache map[Tokenizable]string) any {
	switch classify(val) {
	case kindObjectRef:
		return computeHash(val.(Tokenizable), cache)
	case kindObjectList:
		rv := reflect.ValueOf(val)
		out := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = computeHash(rv.Index(i).Interface().(Tokenizable), cache)
		}
		return out
	case kindObjectMap:
		rv := reflect.ValueOf(val)
		out := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = computeHash(iter.Value().Interface().(Tokenizable), cache)
		}
		return out
	default:
		return val
	}
}

// shortHash returns a content-style hash (the first 8 bytes of a SHA-256
// digest, hex-encoded) of arbitrary bytes without going through Tokenizable.
// It is unexported and has no callers in this package.
func shortHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
