// Package skyline finds the buildings in a master skyline document and
// scores how tall each one is.
//
// # Resolution
//
// A [Resolver] prefers explicit structure: every <g> whose id contains
// "building" (case-insensitive) becomes one [Building]. Tagged groups are
// matched outermost first, so a tagged group nested in another one belongs
// to its ancestor. A data-height attribute on the group pins the building's
// top y independent of its geometry.
//
// Without tagged groups the resolver falls back to clustering loose
// primitives by horizontal proximity. The default [Greedy] strategy sorts
// shapes by center x and walks left to right, starting a new building
// whenever a shape's center is more than the threshold away from the
// previous shape's center. [Components] instead links shapes whose boxes are
// horizontally within the threshold of each other and takes connected
// components; it is symmetric and independent of input order.
//
// Shapes whose bounding box cannot be computed are excluded from both
// geometry and export.
//
// # Export
//
// [Building.Export] copies a building out of its source document. The
// translations and paint attributes (fill, stroke and friends) of ancestor
// groups are carried onto the copy. CSS in style attributes or <style>
// sheets is not resolved.
//
// # Heights
//
// A [Normalizer] maps a building's top y onto a 0..Scale range:
//
//	height = clamp(Scale * (1 - topY/canvasHeight), 0, Scale)
//
// Canvas y grows downward, so buildings reaching higher on the canvas score
// larger heights.
package skyline
