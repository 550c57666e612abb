package skyline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"

	"github.com/matzehuels/skylayer/pkg/geom"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// DefaultThreshold is the default clustering distance in canvas units.
const DefaultThreshold = 50.0

// BuildingToken marks a group id as an explicit building.
const BuildingToken = "building"

// HeightAnchorAttr pins a tagged building's top y.
const HeightAnchorAttr = "data-height"

// Strategy names how a Resolution was produced.
type Strategy string

const (
	StrategyTagged    Strategy = "tagged"
	StrategyClustered Strategy = "clustered"
)

// Config configures a Resolver.
type Config struct {
	// Threshold is the clustering distance; 0 means DefaultThreshold.
	Threshold float64

	// Clustering selects the fallback clustering; nil means Greedy.
	Clustering Clusterer

	// Extractor reads path and points data; nil means geom.DefaultExtractor.
	Extractor geom.Extractor

	// Logger receives skipped-group warnings and exclusion details.
	Logger *log.Logger
}

// Resolution is the output of Resolve.
type Resolution struct {
	Buildings []Building
	Canvas    svg.ViewBox
	Strategy  Strategy

	// Excluded counts indeterminate shapes left out of every building.
	Excluded int

	// Skipped lists tagged group ids that had no boxable shape.
	Skipped []string
}

// Resolver extracts buildings from documents. It holds no per-run state and
// may be shared between goroutines.
type Resolver struct {
	threshold float64
	cluster   Clusterer
	calc      svg.BoxCalculator
	logger    *log.Logger
}

// NewResolver creates a Resolver, applying defaults for zero config fields.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		threshold: cfg.Threshold,
		cluster:   cfg.Clustering,
		calc:      svg.BoxCalculator{Extractor: cfg.Extractor},
		logger:    cfg.Logger,
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.cluster == nil {
		r.cluster = Greedy{}
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// Calculator returns the box calculator the resolver uses.
func (r *Resolver) Calculator() svg.BoxCalculator { return r.calc }

// Resolve returns the buildings of doc. An empty Buildings slice means the
// document had no boxable shapes; callers treat that as a failure.
func (r *Resolver) Resolve(doc *svg.Document) Resolution {
	res := Resolution{Canvas: doc.ViewBox}

	if tagged := r.taggedBuildings(doc.Root, &res); len(tagged) > 0 {
		res.Buildings = tagged
		res.Strategy = StrategyTagged
		return res
	}

	shapes := r.looseShapes(doc.Root, &res)
	res.Strategy = StrategyClustered
	if len(shapes) == 0 {
		return res
	}

	for i, cl := range r.cluster.Cluster(shapes, r.threshold) {
		res.Buildings = append(res.Buildings, clusterBuilding(fmt.Sprintf("building-cluster-%d", i+1), cl))
	}
	r.logger.Debug("clustered loose shapes", "shapes", len(shapes), "buildings", len(res.Buildings),
		"clustering", r.cluster.Name(), "threshold", r.threshold)
	return res
}

// IsBuildingID reports whether a group id marks an explicit building. The
// match is case-insensitive under Unicode case folding.
func IsBuildingID(id string) bool {
	return strings.Contains(cases.Fold().String(id), BuildingToken)
}

func (r *Resolver) taggedBuildings(root *svg.Node, res *Resolution) []Building {
	var out []Building
	var visit func(n *svg.Node, dx, dy float64, paint []svg.Attr)
	visit = func(n *svg.Node, dx, dy float64, paint []svg.Attr) {
		for _, c := range n.Children {
			if !svg.IsRendered(c) {
				continue
			}
			if c.Is(svg.Group) && IsBuildingID(c.ID()) {
				if b, ok := r.groupBuilding(c, dx, dy, paint); ok {
					res.Excluded += b.Excluded
					out = append(out, b)
				} else {
					r.logger.Warn("skipping building group without drawable shapes", "id", c.ID())
					res.Skipped = append(res.Skipped, c.ID())
				}
				continue
			}
			tx, ty := svg.Translation(c)
			visit(c, dx+tx, dy+ty, svg.InheritPaint(paint, c))
		}
	}
	visit(root, 0, 0, svg.InheritPaint(nil, root))
	return out
}

func (r *Resolver) groupBuilding(g *svg.Node, dx, dy float64, paint []svg.Attr) (Building, bool) {
	box, ok := r.calc.Container(g)
	if !ok {
		return Building{}, false
	}
	b := newBuilding(g.ID(), box.Translate(dx, dy), []Member{{Node: g, OffsetX: dx, OffsetY: dy, Paint: paint}})
	b.Tagged = true
	b.Excluded = r.countIndeterminate(g)

	if raw, ok := g.Attr(HeightAnchorAttr); ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			b.TopY = v
			b.Anchored = true
		} else {
			r.logger.Debug("ignoring non-numeric height anchor", "id", b.ID, "value", raw)
		}
	}
	return b, true
}

func (r *Resolver) countIndeterminate(n *svg.Node) int {
	count := 0
	n.Walk(func(c *svg.Node) bool {
		if !svg.IsRendered(c) {
			return false
		}
		if svg.IsShape(c) {
			if _, ok := r.calc.Shape(c); !ok {
				r.logger.Debug("excluding indeterminate shape", "element", c.Name, "id", c.ID())
				count++
			}
		}
		return true
	})
	return count
}

func (r *Resolver) looseShapes(root *svg.Node, res *Resolution) []Shape {
	var out []Shape
	var visit func(n *svg.Node, dx, dy float64, paint []svg.Attr)
	visit = func(n *svg.Node, dx, dy float64, paint []svg.Attr) {
		for _, c := range n.Children {
			if !svg.IsRendered(c) {
				continue
			}
			if svg.IsShape(c) {
				box, ok := r.calc.Shape(c)
				if !ok {
					r.logger.Debug("excluding indeterminate shape", "element", c.Name, "id", c.ID())
					res.Excluded++
					continue
				}
				out = append(out, Shape{
					Member: Member{Node: c, OffsetX: dx, OffsetY: dy, Paint: paint},
					Box:    box.Translate(dx, dy),
				})
				continue
			}
			tx, ty := svg.Translation(c)
			visit(c, dx+tx, dy+ty, svg.InheritPaint(paint, c))
		}
	}
	visit(root, 0, 0, svg.InheritPaint(nil, root))
	return out
}

func clusterBuilding(id string, shapes []Shape) Building {
	box := shapes[0].Box
	members := make([]Member, len(shapes))
	for i, s := range shapes {
		box = box.Union(s.Box)
		members[i] = s.Member
	}
	return newBuilding(id, box, members)
}
