// Package pkg provides the core libraries for Skylayer skyline layer separation.
//
// # Overview
//
// Skylayer takes a single skyline illustration (an SVG "master" document),
// finds its buildings and writes them into three layer documents by height,
// so the layers can be stacked with parallax. It can also widen a skyline
// without stretching buildings. The pkg directory is organized into three
// main areas:
//
//  1. Domain logic: [svg], [geom], [skyline], [layers], [spacing]
//  2. Orchestration: [pipeline], shared by the CLI and the HTTP API
//  3. Infrastructure: [cache], [store], [config], [observability], [errors]
//
// # Architecture
//
// The typical data flow through Skylayer:
//
//	Master SVG
//	     ↓
//	[svg] package (parse, canvas, bounding boxes via [geom])
//	     ↓
//	[skyline] package (tagged groups, or clustered loose shapes)
//	     ↓
//	[layers] package (height thresholds → three documents)
//	     ↓
//	skyline_layer_1.svg, skyline_layer_2.svg, skyline_layer_3.svg
//
// [spacing] runs before separation when a wider canvas is wanted.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Separate(ctx, master, pipeline.Options{BaseName: "harbor"})
//	if err != nil {
//	    return err
//	}
//	for _, l := range res.Layers {
//	    os.WriteFile(l.Filename, l.Document, 0o644)
//	}
//
// # Main Packages
//
// [svg] - Document tree, viewBox handling, transforms and serialization.
// Parsing is tolerant of declared charsets and unknown elements.
//
// [geom] - Bounding boxes and the per-shape box extractors (rect, circle,
// ellipse, line, polyline, polygon, path).
//
// [skyline] - Building resolution. Groups whose id starts with "building"
// are buildings; without any, loose shapes are clustered by horizontal gap.
//
// [layers] - Height normalization results partitioned into foreground,
// middle and background documents that keep the master's canvas.
//
// [spacing] - Horizontal widening that shifts elements away from the
// center and reports the new aspect ratio.
//
// [pipeline] - Runner with result caching. [store] - project persistence
// in memory, SQLite or MongoDB. [cache] - file, Redis or no cache.
//
// # Testing
//
//	go test ./pkg/...           # All tests
//	go test -run Example ./...  # Examples only
package pkg
