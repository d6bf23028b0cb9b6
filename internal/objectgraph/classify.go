package objectgraph

import "reflect"

type attrKind int

const (
	kindScalar attrKind = iota
	kindPrimitiveList
	kindObjectRef
	kindObjectMap
	kindObjectList
	kindSerialized
)

// classify determines which of §4.1's encoding rules applies to a shallow-dict
// attribute value. Tokenizable slices/maps can't be expressed as a static Go
// type (ShallowDict returns map[string]any, and concrete attributes are
// typically []*SomeType rather than []Tokenizable), so element types are
// checked via reflection.
func classify(val any) attrKind {
	if val == nil {
		return kindSerialized
	}

	if _, ok := val.(Tokenizable); ok {
		// An absent nested object (a nil pointer behind the interface) has
		// no content to encode; it is serialized as JSON null instead.
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return kindSerialized
		}
		return kindObjectRef
	}

	switch val.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string, bool:
		return kindScalar
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return classifySequence(rv)
	case reflect.Map:
		return classifyMap(rv)
	default:
		return kindSerialized
	}
}

var tokenizableType = reflect.TypeOf((*Tokenizable)(nil)).Elem()

// classifySequence decides object-list vs. primitive-list from the slice's
// static element type, not its runtime length — an empty []*Transformation
// must still round-trip as an (edge-based) object list, not fall back to a
// native empty-list property.
func classifySequence(rv reflect.Value) attrKind {
	if rv.Type().Elem().Implements(tokenizableType) {
		return kindObjectList
	}

	if rv.Len() == 0 {
		return kindPrimitiveList
	}
	if !isUniformPrimitive(rv) {
		return kindSerialized
	}
	return kindPrimitiveList
}

func isUniformPrimitive(rv reflect.Value) bool {
	n := rv.Len()
	first := rv.Index(0).Interface()
	switch first.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string, bool:
	default:
		return false
	}
	ft := reflect.TypeOf(first)
	for i := 1; i < n; i++ {
		if reflect.TypeOf(rv.Index(i).Interface()) != ft {
			return false
		}
	}
	return true
}

func classifyMap(rv reflect.Value) attrKind {
	if rv.Type().Key().Kind() != reflect.String {
		return kindSerialized
	}
	if rv.Len() == 0 {
		return kindSerialized
	}
	iter := rv.MapRange()
	for iter.Next() {
		if _, ok := iter.Value().Interface().(Tokenizable); !ok {
			return kindSerialized
		}
	}
	return kindObjectMap
}
