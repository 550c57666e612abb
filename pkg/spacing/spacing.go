// Package spacing widens a skyline horizontally without distorting its
// buildings.
//
// Every top-level shape or group is moved away from the canvas center in
// proportion to its distance from it, and the canvas grows by the same
// factor:
//
//	shift    = (centerX - canvasCenterX) * p/100
//	newWidth = width * (1 + p/100)
//
// The shift is appended to the element's transform as a translate, so it
// composes with any transform already present. Silhouettes are untouched and
// vertical geometry does not change.
package spacing

import (
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/geom"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// minShift is the smallest shift written out. Anything smaller would print
// as 0.00.
const minShift = 0.005

// Result is the outcome of one spacing run.
type Result struct {
	// Document is the expanded document. For a zero percentage it is the
	// input document itself.
	Document *svg.Document

	// Serialized is the encoded Document. For a zero percentage it is the
	// input bytes unchanged.
	Serialized []byte

	Percent        float64
	OriginalWidth  float64
	NewWidth       float64
	OriginalAspect string
	NewAspect      string

	// Shifted counts elements that received a translation, Skipped those
	// whose box could not be computed.
	Shifted int
	Skipped int
}

// Transformer applies horizontal spacing.
type Transformer struct {
	Calculator svg.BoxCalculator
	Logger     *log.Logger
}

func (t Transformer) logger() *log.Logger {
	if t.Logger == nil {
		return log.New(io.Discard)
	}
	return t.Logger
}

// Apply expands doc by p percent. The input document is not modified.
//
// A zero percentage is the identity: the result carries the input document
// and its original bytes, and both aspect ratios are the original one.
// Negative or non-finite percentages are rejected, as are canvases with a
// non-positive width or height, even at zero percent.
func (t Transformer) Apply(doc *svg.Document, p float64) (*Result, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return nil, errs.New(errs.ErrCodeInvalidPercent, "expansion percentage must be a non-negative number, got %g", p)
	}

	vb := doc.ViewBox
	if vb.Degenerate() {
		return nil, errs.New(errs.ErrCodeDegenerateCanvas, "canvas %gx%g has no area", vb.Width, vb.Height)
	}
	res := &Result{
		Percent:        p,
		OriginalWidth:  vb.Width,
		NewWidth:       vb.Width,
		OriginalAspect: AspectRatio(vb.Width, vb.Height),
	}

	if p == 0 {
		res.Document = doc
		res.Serialized = doc.Source
		if res.Serialized == nil {
			res.Serialized = doc.Bytes()
		}
		res.NewAspect = res.OriginalAspect
		return res, nil
	}

	out := doc.Clone()
	center := vb.CenterX()
	factor := p / 100
	logger := t.logger()

	for _, el := range out.Root.Elements() {
		if !el.Is(svg.Group) && !svg.IsShape(el) {
			continue
		}
		box, ok := t.Calculator.Box(el)
		if !ok {
			logger.Debug("skipping element without bounding box", "element", el.Name, "id", el.ID())
			res.Skipped++
			continue
		}
		shift := (box.CenterX() - center) * factor
		if math.Abs(shift) <= minShift {
			continue
		}
		el.SetAttr("transform", geom.AppendTranslate(el.AttrOr("transform", ""), shift, 0))
		res.Shifted++
	}

	newVB := vb
	newVB.Width = round2(vb.Width * (1 + factor))
	out.SetViewBox(newVB)

	res.Document = out
	res.Serialized = out.Bytes()
	res.NewWidth = newVB.Width
	res.NewAspect = AspectRatio(newVB.Width, newVB.Height)

	logger.Debug("applied spacing", "percent", p, "shifted", res.Shifted, "skipped", res.Skipped,
		"width", res.OriginalWidth, "new_width", res.NewWidth)
	return res, nil
}

// AspectRatio formats w:h. Integral sides are reduced by their greatest
// common divisor ("800:600" becomes "4:3"); other values are written with
// at most two decimals.
func AspectRatio(w, h float64) string {
	if isWhole(w) && isWhole(h) && w > 0 && h > 0 {
		a, b := int64(w), int64(h)
		g := gcd(a, b)
		return strconv.FormatInt(a/g, 10) + ":" + strconv.FormatInt(b/g, 10)
	}
	return formatRatioSide(w) + ":" + formatRatioSide(h)
}

func isWhole(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func formatRatioSide(f float64) string {
	return strconv.FormatFloat(round2(f), 'f', -1, 64)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
