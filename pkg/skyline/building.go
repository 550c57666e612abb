package skyline

import (
	"github.com/matzehuels/skylayer/pkg/geom"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// Member is one source element of a building together with the accumulated
// translation and paint of its ancestors in the source document.
type Member struct {
	Node             *svg.Node
	OffsetX, OffsetY float64

	// Paint holds the presentation attributes inherited from ancestor groups.
	Paint []svg.Attr
}

// Building is a named collection of shapes representing one structure.
type Building struct {
	ID string

	// Tagged is true for buildings taken from an explicit group, false for
	// clusters synthesized from loose shapes.
	Tagged bool

	// Anchored is true when TopY came from a data-height override.
	Anchored bool

	Box     geom.BBox
	CenterX float64
	TopY    float64

	// Height is the normalized height, zero until a Normalizer runs.
	Height float64

	Members []Member

	// Excluded counts indeterminate shapes dropped from this building.
	Excluded int
}

// Export returns a detached copy of the building's geometry as a single
// element, ready to append to another document. Ancestor translations and
// paint are carried onto the copy so shapes keep their rendered position and
// color, and indeterminate shapes are left out.
func (b Building) Export(calc svg.BoxCalculator) *svg.Node {
	if b.Tagged && len(b.Members) == 1 {
		return exportMember(b.Members[0], calc)
	}
	g := svg.NewElement(svg.Group, "id", b.ID)
	for _, m := range b.Members {
		g.Append(exportMember(m, calc))
	}
	return g
}

func exportMember(m Member, calc svg.BoxCalculator) *svg.Node {
	n := m.Node.Filter(func(c *svg.Node) bool {
		if !svg.IsShape(c) {
			return true
		}
		_, ok := calc.Shape(c)
		return ok
	})
	for _, a := range m.Paint {
		if _, ok := n.Attr(a.Name); !ok {
			n.SetAttr(a.Name, a.Value)
		}
	}
	if m.OffsetX != 0 || m.OffsetY != 0 {
		n.SetAttr("transform", geom.PrependTranslate(n.AttrOr("transform", ""), m.OffsetX, m.OffsetY))
	}
	return n
}

func newBuilding(id string, box geom.BBox, members []Member) Building {
	return Building{
		ID:      id,
		Box:     box,
		CenterX: box.CenterX(),
		TopY:    box.MinY,
		Members: members,
	}
}
