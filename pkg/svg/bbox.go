package svg

import (
	"strconv"
	"strings"

	"github.com/matzehuels/skylayer/pkg/geom"
)

// Primitive element names with a computable bounding box.
const (
	Rect     = "rect"
	Line     = "line"
	Circle   = "circle"
	Ellipse  = "ellipse"
	Polygon  = "polygon"
	Polyline = "polyline"
	Path     = "path"
	Group    = "g"
)

// Shapes lists the primitive element names in a fixed order.
var Shapes = []string{Rect, Line, Path, Polygon, Polyline, Circle, Ellipse}

var shapeSet = map[string]bool{
	Rect: true, Line: true, Circle: true, Ellipse: true,
	Polygon: true, Polyline: true, Path: true,
}

// nonRendered elements hold definitions or metadata and never contribute
// geometry of their own.
var nonRendered = map[string]bool{
	"defs": true, "clipPath": true, "mask": true, "pattern": true, "marker": true,
	"symbol": true, "linearGradient": true, "radialGradient": true, "filter": true,
	"style": true, "script": true, "title": true, "desc": true, "metadata": true,
}

// IsShape reports whether n is a primitive shape element.
func IsShape(n *Node) bool { return n.IsElement() && shapeSet[n.Name] }

// IsRendered reports whether n is an element that can contribute geometry.
func IsRendered(n *Node) bool { return n.IsElement() && !nonRendered[n.Name] }

// Translation returns the offset of n's own transform attribute.
func Translation(n *Node) (dx, dy float64) {
	if t, ok := n.Attr("transform"); ok {
		return geom.ParseTranslate(t)
	}
	return 0, 0
}

// BoxCalculator computes bounding boxes of elements.
// The zero value uses geom.DefaultExtractor.
type BoxCalculator struct {
	Extractor geom.Extractor
}

func (c BoxCalculator) extractor() geom.Extractor {
	if c.Extractor == nil {
		return geom.DefaultExtractor
	}
	return c.Extractor
}

// Box returns the box of any element: a shape's own box, or the union of a
// container's rendered descendants. The element's translate transform is
// applied. It reports false when the box is indeterminate.
func (c BoxCalculator) Box(n *Node) (geom.BBox, bool) {
	if IsShape(n) {
		return c.Shape(n)
	}
	return c.Container(n)
}

// Shape returns the box of a primitive shape including its own translation.
// It reports false for non-shapes, for missing size attributes, for
// non-numeric attribute values, and for point lists without any pair.
func (c BoxCalculator) Shape(n *Node) (geom.BBox, bool) {
	b, ok := c.local(n)
	if !ok || !b.Valid() {
		return geom.BBox{}, false
	}
	dx, dy := Translation(n)
	return b.Translate(dx, dy), true
}

// Container returns the union of the boxes of n's rendered descendants,
// translated by n's own transform. It reports false when no descendant is
// boxable.
func (c BoxCalculator) Container(n *Node) (geom.BBox, bool) {
	if !IsRendered(n) {
		return geom.BBox{}, false
	}
	var (
		box   geom.BBox
		found bool
	)
	for _, ch := range n.Children {
		if !IsRendered(ch) {
			continue
		}
		b, ok := c.Box(ch)
		if !ok {
			continue
		}
		if found {
			box = box.Union(b)
		} else {
			box, found = b, true
		}
	}
	if !found {
		return geom.BBox{}, false
	}
	dx, dy := Translation(n)
	return box.Translate(dx, dy), true
}

func (c BoxCalculator) local(n *Node) (geom.BBox, bool) {
	if !n.IsElement() {
		return geom.BBox{}, false
	}
	switch n.Name {
	case Rect:
		v, ok := numbers(n, opt("x"), opt("y"), req("width"), req("height"))
		if !ok {
			return geom.BBox{}, false
		}
		return geom.NewBBox(v[0], v[1], v[0]+v[2], v[1]+v[3]), true

	case Line:
		v, ok := numbers(n, opt("x1"), opt("y1"), opt("x2"), opt("y2"))
		if !ok {
			return geom.BBox{}, false
		}
		return geom.NewBBox(v[0], v[1], v[2], v[3]), true

	case Circle:
		v, ok := numbers(n, opt("cx"), opt("cy"), req("r"))
		if !ok {
			return geom.BBox{}, false
		}
		return geom.NewBBox(v[0]-v[2], v[1]-v[2], v[0]+v[2], v[1]+v[2]), true

	case Ellipse:
		v, ok := numbers(n, opt("cx"), opt("cy"), req("rx"), req("ry"))
		if !ok {
			return geom.BBox{}, false
		}
		return geom.NewBBox(v[0]-v[2], v[1]-v[3], v[0]+v[2], v[1]+v[3]), true

	case Polygon, Polyline:
		return c.points(n, "points")

	case Path:
		return c.points(n, "d")
	}
	return geom.BBox{}, false
}

func (c BoxCalculator) points(n *Node, attr string) (geom.BBox, bool) {
	raw, ok := n.Attr(attr)
	if !ok || strings.TrimSpace(raw) == "" {
		return geom.BBox{}, false
	}
	return geom.Bounds(c.extractor().Pairs(raw))
}

type attrSpec struct {
	name     string
	required bool
}

func opt(name string) attrSpec { return attrSpec{name: name} }
func req(name string) attrSpec { return attrSpec{name: name, required: true} }

// numbers reads numeric attributes. Optional attributes default to 0,
// required ones must be present. Any present value must parse.
func numbers(n *Node, specs ...attrSpec) ([]float64, bool) {
	out := make([]float64, len(specs))
	for i, s := range specs {
		raw, ok := n.Attr(s.name)
		if !ok {
			if s.required {
				return nil, false
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
