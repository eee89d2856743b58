// Package pkg provides the core libraries for kolamscan image analysis.
//
// # Overview
//
// Kolamscan analyzes photographs of rangoli and kolam floor art. The pkg
// directory is organized into four main areas:
//
//  1. Image plumbing ([imaging], [geometry], [detect], [topology])
//  2. Analysis stages ([stages]) and report synthesis ([report])
//  3. Orchestration ([pipeline])
//  4. Infrastructure ([cache], [errors], [observability], [buildinfo])
//
// # Architecture
//
// The typical data flow through kolamscan:
//
//	Image file (PNG/JPEG/WebP/BMP/TIFF)
//	         ↓
//	    [imaging] package (decode, grayscale, downscale, filters)
//	         ↓
//	    [detect] package (blobs, contours, Hough circles, skeleton)
//	         ↓
//	    [stages] package (dots, symmetry, strokes, spatial, pattern)
//	         ↓
//	    [report] package (composite report synthesis)
//	         ↓
//	    JSON event stream (progress, partial reports, final report)
//
// # Quick Start
//
// Run the full pipeline on an image:
//
//	import (
//	    "context"
//	    "github.com/kolamlabs/kolamscan/pkg/cache"
//	    "github.com/kolamlabs/kolamscan/pkg/pipeline"
//	    "github.com/kolamlabs/kolamscan/pkg/stages"
//	)
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil, stages.DefaultConfig())
//	result, err := runner.Execute(context.Background(), pipeline.Options{Path: "kolam.png"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Report.Summary.OverallQuality)
//
// # Main Packages
//
// ## Image Plumbing
//
// [imaging] - Grayscale image type with decoding for common formats,
// downscaling, Gaussian blur, histogram equalization, Otsu thresholding
// and binary masks.
//
// [geometry] - Points, keypoints, contour measurements, DBSCAN
// clustering, box-counting fractal dimension and summary statistics.
//
// [detect] - Feature detectors: Canny edges, connected-component blobs,
// contour tracing, Hough circle transform, template matching and
// Zhang-Suen skeletonization.
//
// [topology] - Condenses a skeletonized stroke mask into a graph of
// junctions and endpoints, with Eulerian and cycle metrics. Exports
// Graphviz DOT and SVG.
//
// ## Analysis
//
// [stages] - The five analysis stages run by the pipeline: dot grid
// detection, symmetry measurement, line and stroke classification,
// spatial reasoning and traditional pattern recognition. Each stage
// produces a StageReport; a failed stage yields a fallback report so
// the run always completes.
//
// [report] - Synthesizes the five stage reports into a composite report
// with quality scoring and recommendations, plus optional MongoDB
// persistence.
//
// ## Orchestration
//
// [pipeline] - The staged runner: loads an image, runs the stages in
// order, emits progress and partial-report events on a channel, and
// caches finished reports.
//
// ## Infrastructure
//
// [cache] - Report cache interface with file, Redis and null
// implementations, content hashing and key derivation.
//
// [errors] - Error code taxonomy with wrapping helpers.
//
// [observability] - Pluggable hooks for pipeline and cache events.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/stages/...     # Specific package
//	go test -run Example         # Examples only
//
// [imaging]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/imaging
// [geometry]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/geometry
// [detect]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/detect
// [topology]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/topology
// [stages]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/stages
// [report]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/report
// [pipeline]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/cache
// [errors]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/errors
// [observability]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/kolamlabs/kolamscan/pkg/buildinfo
package pkg
