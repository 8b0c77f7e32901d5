// Package dom models a rendered document as an abstract queryable tree.
//
// Hosts ship the tree as a JSON snapshot; nothing in here depends on a real
// rendering engine, which keeps the extraction logic testable against
// hand-built fixtures.
package dom

import (
	"strings"
)

// Node is one element of a document snapshot. Attributes carry the element's
// class list under "class", space separated, the way markup does.
type Node struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Node           `json:"children,omitempty"`

	parent *Node
}

// Document is anything that can hand out the current root of a rendered tree.
type Document interface {
	Root() *Node
}

// StaticDocument wraps a fixed snapshot.
type StaticDocument struct {
	root *Node
}

// NewStaticDocument links the snapshot's parent pointers and wraps it.
func NewStaticDocument(root *Node) *StaticDocument {
	if root != nil {
		root.Link()
	}
	return &StaticDocument{root: root}
}

// Root returns the snapshot root.
func (d *StaticDocument) Root() *Node { return d.root }

// Link rebuilds parent pointers and normalizes tag names after a JSON decode.
// It must be called on the root before any ancestor-walking query.
func (n *Node) Link() {
	n.Tag = strings.ToLower(n.Tag)
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		c.parent = n
		c.Link()
	}
}

// Parent returns the linked parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Attr returns the named attribute, or "".
func (n *Node) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports whether the attribute is present at all.
func (n *Node) HasAttr(name string) bool {
	if n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// HasClass reports whether the class list contains exactly the given class.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// TextContent concatenates the node's own text with all descendant text, in
// document order, separated by single spaces.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	if n.Text != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(n.Text)
	}
	for _, c := range n.Children {
		if c != nil {
			c.appendText(b)
		}
	}
}

// Walk visits the node and every descendant in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		if c != nil {
			c.Walk(fn)
		}
	}
}

// Size counts the node and all descendants.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}
