// Package svg implements the small vector document model used by skylayer.
//
// A [Document] is an ordered tree of [Node] values under a root <svg>
// element plus a canvas rectangle (the viewBox). The tree keeps element
// names, attribute order, text, and comments, so a document that is parsed
// and written back without changes stays equivalent to its source. It is not
// a renderer: only the attributes needed for bounding boxes are interpreted.
//
// # Parsing
//
// [Parse] accepts any well-formed XML document whose root element is named
// svg. Encodings other than UTF-8 are decoded through
// golang.org/x/net/html/charset. A missing or unparseable viewBox falls back
// to [DefaultViewBox]; the fallback is reported on the returned ViewBox and
// logged at warn level.
//
// # Bounding boxes
//
// [BoxCalculator] computes axis-aligned boxes for rect, line, circle,
// ellipse, polygon, polyline, and path elements and unions them for groups.
// Path boxes are an approximation: see package geom.
//
// # Writing
//
// [Document.Bytes] serializes with a UTF-8 XML declaration, so every output
// is a complete standalone document.
package svg
