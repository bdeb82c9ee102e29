package dom

import (
	"reflect"
	"slices"
)

// Resolver turns mixed element input into an ordered node list.
type Resolver interface {
	Resolve(input any) []Node
}

// Normalize flattens input into a de-duplicated, ordered list of nodes.
//
// Accepted input:
//   - a [Node]
//   - a [Collection]
//   - a selector string, evaluated against doc (matches nothing when doc is nil)
//   - a slice or array of any of the above, nested to any depth
//
// Anything else, including nil, contributes no nodes.
func Normalize(doc *Document, input any) []Node {
	var out []Node
	collect(doc, input, &out)
	return out
}

func collect(doc *Document, input any, out *[]Node) {
	add := func(n Node) {
		if IsNil(n) || slices.Contains(*out, n) {
			return
		}
		*out = append(*out, n)
	}

	switch v := input.(type) {
	case nil:
		return
	case Node:
		add(v)
		return
	case Collection:
		for i := 0; i < v.Len(); i++ {
			add(v.Item(i))
		}
		return
	case string:
		if doc == nil {
			return
		}
		for _, n := range doc.QuerySelectorAll(v) {
			add(n)
		}
		return
	}

	rv := reflect.ValueOf(input)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			collect(doc, rv.Index(i).Interface(), out)
		}
	}
}

// IsNil reports whether v is nil or a typed nil stored in an interface, such as a nil *Element held
// as a [Node].
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
