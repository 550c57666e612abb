package svg

import (
	"math"
	"strconv"
	"strings"
)

// ViewBox is the canvas rectangle of a document.
type ViewBox struct {
	X, Y          float64
	Width, Height float64

	// Fallback is true when the document declared no usable viewBox and
	// DefaultViewBox was substituted.
	Fallback bool `json:"fallback,omitempty"`
}

// DefaultViewBox is the canvas assumed when a document declares none.
var DefaultViewBox = ViewBox{X: 0, Y: 0, Width: 800, Height: 600}

// ParseViewBox parses "min-x min-y width height", separated by whitespace
// and/or commas. Non-finite fields fail to parse. Zero or negative sizes
// are returned as parsed; callers that need a drawable canvas check
// Degenerate.
func ParseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return ViewBox{}, false
		}
		v[i] = x
	}
	return ViewBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

// Degenerate reports whether the canvas has a non-positive width or height.
func (v ViewBox) Degenerate() bool {
	return !(v.Width > 0) || !(v.Height > 0)
}

// CenterX returns the horizontal center of the canvas.
func (v ViewBox) CenterX() float64 { return v.X + v.Width/2 }

// String formats the viewBox attribute value.
func (v ViewBox) String() string {
	return formatNum(v.X) + " " + formatNum(v.Y) + " " + formatNum(v.Width) + " " + formatNum(v.Height)
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
