// package dom models the small slice of a document that element lookup needs: nodes with a tag, an id and classes.
package dom

import (
	"slices"
	"strings"
	"sync"
)

// Node is anything that can be located in a [Document].
type Node interface {
	TagName() string     // Upper-case tag, e.g. "VIDEO"
	ID() string          // Value of the id attribute, empty when unset
	ClassList() []string // Values of the class attribute
}

// Collection is a live or static list of nodes, the equivalent of a NodeList or HTMLCollection.
type Collection interface {
	Len() int
	Item(i int) Node
}

// NodeList is a static [Collection].
type NodeList []Node

func (l NodeList) Len() int        { return len(l) }
func (l NodeList) Item(i int) Node { return l[i] }

// Element is a plain node with no media capabilities.
type Element struct {
	tag     string
	id      string
	classes []string
}

// NewElement creates a plain node. The tag is stored upper-cased.
func NewElement(tag, id string, classes ...string) *Element {
	return &Element{tag: strings.ToUpper(tag), id: id, classes: classes}
}

func (e *Element) TagName() string     { return e.tag }
func (e *Element) ID() string          { return e.id }
func (e *Element) ClassList() []string { return slices.Clone(e.classes) }

// Document is an ordered set of nodes that selectors are evaluated against.
type Document struct {
	mu    sync.RWMutex
	nodes []Node
}

// NewDocument creates a document holding nodes in the given order.
func NewDocument(nodes ...Node) *Document {
	d := &Document{}
	for _, n := range nodes {
		d.Append(n)
	}
	return d
}

// Append adds n at the end of the document. Appending a node twice has no effect.
func (d *Document) Append(n Node) {
	if n == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.Contains(d.nodes, n) {
		return
	}
	d.nodes = append(d.nodes, n)
}

// Remove detaches n from the document and reports whether it was present.
func (d *Document) Remove(n Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := slices.Index(d.nodes, n)
	if idx < 0 {
		return false
	}
	d.nodes = slices.Delete(d.nodes, idx, idx+1)
	return true
}

// Nodes returns the document's nodes in order.
func (d *Document) Nodes() NodeList {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return NodeList(slices.Clone(d.nodes))
}

// GetElementByID returns the first node whose id matches, or nil.
func (d *Document) GetElementByID(id string) Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.nodes {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

// QuerySelectorAll returns nodes matching selector in document order.
// An invalid selector matches nothing.
func (d *Document) QuerySelectorAll(selector string) NodeList {
	groups, err := ParseSelector(selector)
	if err != nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out NodeList
	for _, n := range d.nodes {
		for _, g := range groups {
			if g.Matches(n) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// QuerySelector returns the first match of selector, or nil.
func (d *Document) QuerySelector(selector string) Node {
	matches := d.QuerySelectorAll(selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// Resolve implements normalization against this document. See [Normalize].
func (d *Document) Resolve(input any) []Node {
	return Normalize(d, input)
}
