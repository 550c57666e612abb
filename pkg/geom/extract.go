package geom

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor turns a raw coordinate string into planar points.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Pairs(s string) []Point
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`-?\d+\.?\d*`)
)

// RegexExtractor scrapes signed decimal numbers from s and pairs them in
// order as (x, y). Command letters are ignored and a trailing unpaired
// number is dropped.
//
// Only coordinate lists made of plain numbers are read losslessly. Exponent
// notation, leading-dot decimals (".5") and arc flag bits are not
// distinguished from coordinates.
type RegexExtractor struct{}

// Pairs implements Extractor.
func (RegexExtractor) Pairs(s string) []Point {
	s = strings.ReplaceAll(s, ",", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")

	tokens := numberRe.FindAllString(s, -1)
	pts := make([]Point, 0, len(tokens)/2)
	for i := 0; i+1 < len(tokens); i += 2 {
		x, errX := strconv.ParseFloat(tokens[i], 64)
		y, errY := strconv.ParseFloat(tokens[i+1], 64)
		if errX != nil || errY != nil {
			continue
		}
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts
}

// DefaultExtractor is the extractor used when none is configured.
var DefaultExtractor Extractor = RegexExtractor{}
