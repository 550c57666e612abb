// Package layers splits resolved buildings into foreground, middle and
// background depth layers and emits one standalone document per layer.
//
// Heights at a threshold belong to the lower layer: with the default
// thresholds a building of height 3 is foreground and one of height 6 is
// middle. All three layers are always produced, empty ones included.
package layers

import (
	"fmt"
	"math"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/skyline"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// Default thresholds on the 0..10 height scale.
const (
	DefaultForegroundMax = 3.0
	DefaultMiddleMax     = 6.0
)

// Depth identifies a layer. Lower values are closer to the viewer.
type Depth int

const (
	Foreground Depth = iota
	Middle
	Background
)

// Depths lists every depth in output order.
var Depths = []Depth{Foreground, Middle, Background}

var depthNames = map[Depth]string{
	Foreground: "foreground",
	Middle:     "middle",
	Background: "background",
}

var depthTitles = map[Depth]string{
	Foreground: "Layer 1 (Front)",
	Middle:     "Layer 2 (Mid)",
	Background: "Layer 3 (Far)",
}

var depthColors = map[Depth]string{
	Foreground: "#EF4444",
	Middle:     "#F59E0B",
	Background: "#3B82F6",
}

func (d Depth) String() string {
	if s, ok := depthNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Depth(%d)", int(d))
}

// Number is the 1-based layer number used in file names.
func (d Depth) Number() int { return int(d) + 1 }

// Title is the display name of the layer.
func (d Depth) Title() string { return depthTitles[d] }

// Color is the display color of the layer as a hex string.
func (d Depth) Color() string { return depthColors[d] }

// ParseDepth parses a depth name as returned by String.
func ParseDepth(s string) (Depth, error) {
	for d, name := range depthNames {
		if name == s {
			return d, nil
		}
	}
	return 0, errs.New(errs.ErrCodeInvalidInput, "unknown layer %q", s)
}

// Partitioner assigns buildings to layers by height.
// Zero thresholds fall back to the defaults.
type Partitioner struct {
	ForegroundMax float64
	MiddleMax     float64

	// Scale is the top of the height scale, used for Info percentages.
	Scale float64

	// Calculator filters indeterminate shapes out of exported layers.
	Calculator svg.BoxCalculator

	// Namespaces are the source root's xmlns:* declarations. Each layer
	// root declares them so prefixed attributes copied from the source,
	// such as inkscape:label or xlink:href, stay bound.
	Namespaces []svg.Attr
}

func (p Partitioner) thresholds() (float64, float64) {
	fg, mid := p.ForegroundMax, p.MiddleMax
	if fg <= 0 {
		fg = DefaultForegroundMax
	}
	if mid <= 0 {
		mid = DefaultMiddleMax
	}
	return fg, mid
}

// Validate reports whether the thresholds are ordered.
func (p Partitioner) Validate() error {
	fg, mid := p.thresholds()
	if fg >= mid {
		return errs.New(errs.ErrCodeInvalidInput, "foreground max %g must be below middle max %g", fg, mid)
	}
	return nil
}

// Assign returns the depth for a normalized height.
func (p Partitioner) Assign(height float64) Depth {
	fg, mid := p.thresholds()
	switch {
	case height <= fg:
		return Foreground
	case height <= mid:
		return Middle
	default:
		return Background
	}
}

// Partition splits buildings into exactly three layers ordered foreground,
// middle, background. Buildings keep their input order within a layer.
func (p Partitioner) Partition(buildings []skyline.Building, canvas svg.ViewBox) []Layer {
	out := make([]Layer, len(Depths))
	for i, d := range Depths {
		out[i] = Layer{Depth: d, Canvas: canvas, Namespaces: p.Namespaces, scale: p.Scale, calc: p.Calculator}
	}
	for _, b := range buildings {
		d := p.Assign(b.Height)
		out[d].Buildings = append(out[d].Buildings, b)
	}
	return out
}

// Layer is one depth slice of a skyline.
type Layer struct {
	Depth     Depth
	Buildings []skyline.Building
	Canvas    svg.ViewBox

	// Namespaces are declared on the layer root.
	Namespaces []svg.Attr

	scale float64
	calc  svg.BoxCalculator
}

// Document builds a standalone document holding only this layer's
// buildings on the source canvas.
func (l Layer) Document() *svg.Document {
	doc := svg.New(l.Canvas)
	doc.Declare(l.Namespaces)
	for _, b := range l.Buildings {
		doc.Root.Append(b.Export(l.calc))
	}
	return doc
}

// Bytes serializes the layer document.
func (l Layer) Bytes() []byte { return l.Document().Bytes() }

// Filename returns the conventional file name for the layer of a named
// project, such as "skyline_layer_1.svg".
func (l Layer) Filename(base string) string {
	return fmt.Sprintf("%s_layer_%d.svg", base, l.Depth.Number())
}

// Info summarizes a layer for display.
type Info struct {
	Name             string  `json:"layer_name" bson:"layer_name"`
	Depth            string  `json:"depth" bson:"depth"`
	BuildingCount    int     `json:"building_count" bson:"building_count"`
	AvgHeightPercent float64 `json:"avg_height_percent" bson:"avg_height_percent"`
	Color            string  `json:"color" bson:"color"`
}

// Info returns the layer summary. AvgHeightPercent is the mean building
// height as a percentage of the height scale, 0 for an empty layer.
func (l Layer) Info() Info {
	info := Info{
		Name:          l.Depth.Title(),
		Depth:         l.Depth.String(),
		BuildingCount: len(l.Buildings),
		Color:         l.Depth.Color(),
	}
	if len(l.Buildings) == 0 {
		return info
	}
	scale := l.scale
	if scale <= 0 {
		scale = skyline.DefaultScale
	}
	var sum float64
	for _, b := range l.Buildings {
		sum += b.Height
	}
	info.AvgHeightPercent = roundTo(sum/float64(len(l.Buildings))/scale*100, 1)
	return info
}

// Infos returns the summaries of layers in order.
func Infos(layers []Layer) []Info {
	out := make([]Info, len(layers))
	for i, l := range layers {
		out[i] = l.Info()
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
