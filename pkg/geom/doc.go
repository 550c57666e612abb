// Package geom provides the planar primitives used by the skyline engine.
//
// A [BBox] is an axis-aligned box in canvas units where y grows downward, so
// MinY is the visually highest point. Boxes are derived values: they are
// recomputed from element geometry whenever it changes and never persisted.
//
// Coordinate strings (path "d" data and polygon/polyline "points") are
// turned into points through the [Extractor] interface. The default
// [RegexExtractor] scrapes every signed decimal number and pairs them in
// order. It does not interpret path commands: curve control points and arc
// flags are treated as ordinary coordinates, so boxes for curved paths may be
// loose. Callers that need curve-accurate bounds must supply their own
// Extractor.
//
// Transforms are limited to translation. [ParseTranslate] sums every
// translate(...) function in a transform list and ignores all others.
package geom
