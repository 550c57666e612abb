package svg

import "strings"

// NodeKind distinguishes the node types kept in a document tree.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	CommentNode
)

// Attr is a single attribute. Prefix is the literal namespace prefix as
// written in the source ("xlink" for xlink:href), empty when unprefixed.
type Attr struct {
	Prefix string
	Name   string
	Value  string
}

// Node is one entry of the document tree.
//
// For elements, Prefix and Name hold the literal tag, Attrs the attributes in
// source order, and Children the nested nodes. Text and comment nodes carry
// their content in Text.
type Node struct {
	Kind     NodeKind
	Prefix   string
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// NewElement creates an element node with the given attributes as
// name/value pairs.
func NewElement(name string, kv ...string) *Node {
	n := &Node{Kind: ElementNode, Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs = append(n.Attrs, Attr{Name: kv[i], Value: kv[i+1]})
	}
	return n
}

// IsElement reports whether n is an element node.
func (n *Node) IsElement() bool { return n != nil && n.Kind == ElementNode }

// Is reports whether n is an element with the given local name.
func (n *Node) Is(name string) bool { return n.IsElement() && n.Name == name }

// Attr returns the value of the unprefixed attribute name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Prefix == "" && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets an unprefixed attribute, appending it when absent.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Prefix == "" && a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// ID returns the element's id attribute, trimmed.
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return strings.TrimSpace(v)
}

// Elements returns the element children of n, skipping text and comments.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// Append adds children to n.
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:   n.Kind,
		Prefix: n.Prefix,
		Name:   n.Name,
		Text:   n.Text,
	}
	if n.Attrs != nil {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Walk visits n and its descendants depth-first in document order. If fn
// returns false the node's children are not visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Filter returns a deep copy of n without the descendants for which keep
// returns false. The root itself is always kept.
func (n *Node) Filter(keep func(*Node) bool) *Node {
	c := n.Clone()
	c.filter(keep)
	return c
}

func (n *Node) filter(keep func(*Node) bool) {
	kept := n.Children[:0]
	for _, ch := range n.Children {
		if !keep(ch) {
			continue
		}
		ch.filter(keep)
		kept = append(kept, ch)
	}
	n.Children = kept
}

// paintAttrs are the presentation attributes a group passes on to its
// descendants.
var paintAttrs = []string{
	"fill", "fill-opacity", "fill-rule",
	"stroke", "stroke-width", "stroke-opacity", "stroke-linecap", "stroke-linejoin", "stroke-dasharray",
	"color",
}

// InheritPaint returns inherited overlaid with the paint attributes set on
// n. The nearest declaration wins. inherited is not modified.
func InheritPaint(inherited []Attr, n *Node) []Attr {
	var out []Attr
	for _, name := range paintAttrs {
		v, ok := n.Attr(name)
		if !ok {
			continue
		}
		if out == nil {
			out = make([]Attr, 0, len(inherited)+1)
			for _, a := range inherited {
				if a.Name != name {
					out = append(out, a)
				}
			}
		} else {
			out = dropAttr(out, name)
		}
		out = append(out, Attr{Name: name, Value: v})
	}
	if out == nil {
		return inherited
	}
	return out
}

func dropAttr(attrs []Attr, name string) []Attr {
	for i, a := range attrs {
		if a.Name == name {
			return append(attrs[:i], attrs[i+1:]...)
		}
	}
	return attrs
}
