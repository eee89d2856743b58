// Package pipeline orchestrates the five-stage kolam analysis run.
//
// This package implements the complete load → dots → symmetry → strokes →
// spatial → pattern → synthesize pipeline that is shared by the CLI and
// the HTTP server. Centralizing it keeps caching, progress reporting, and
// failure isolation identical across entry points.
//
// # Architecture
//
// A run is an ordered event stream, not a single return value. The Runner
// emits progress records while it works, one partial report per stage as
// each finishes, and exactly one terminal record: the composite report on
// success or an error. Stages run in a fixed order because later stages
// consume artifacts from earlier ones (keypoints feed spatial reasoning,
// contours and the symmetry score feed pattern recognition).
//
// A stage failure never aborts the run. The failing stage is replaced by
// its documented fallback report and downstream stages receive empty
// artifacts in its place.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger, stages.DefaultConfig())
//	for ev := range runner.Run(ctx, pipeline.Options{Path: "kolam.jpg"}) {
//	    switch e := ev.(type) {
//	    case pipeline.Progress:
//	        fmt.Printf("%d%% %s\n", e.Progress, e.Description)
//	    case pipeline.Final:
//	        fmt.Println(e.Report.Summary.PredominantFeatures)
//	    }
//	}
//
// Or synchronously:
//
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/kolamlabs/kolamscan/pkg/report"
	"github.com/kolamlabs/kolamscan/pkg/stages"
)

// Options configures one analysis run.
type Options struct {
	// Path is the image file to analyze.
	Path string `json:"path"`

	// Refresh bypasses the report cache and re-runs all stages.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized).
	Logger *log.Logger `json:"-"`
}

// Result is the outcome of a synchronous Execute call.
type Result struct {
	// Report is the composite report.
	Report *report.CompositeReport

	// Parts are the five stage reports in execution order.
	Parts []*stages.StageReport

	// CacheHit is true when the report was replayed from cache.
	CacheHit bool

	// Duration is the wall-clock run time.
	Duration time.Duration
}

// Event is one record on the analysis stream. The concrete types are
// Progress, Partial, Final, and Failure; exactly one Final or Failure
// terminates every stream.
type Event interface {
	event()
}

// Progress is an advisory progress record. EstimatedRemaining is a linear
// extrapolation from elapsed time, not a guarantee.
type Progress struct {
	Progress           int     `json:"progress"`
	Description        string  `json:"description"`
	EstimatedRemaining float64 `json:"estimated_remaining_time"`
}

// Partial wraps one finished stage report.
type Partial struct {
	Part *stages.StageReport `json:"report_part"`
}

// Final carries the composite report and terminates the stream.
type Final struct {
	Report *report.CompositeReport `json:"report"`
}

// Failure terminates the stream when the run cannot proceed at all, e.g.
// an unreadable image. Per-stage failures do not produce a Failure; they
// surface as fallback Partials.
type Failure struct {
	Message string `json:"error"`
}

func (Progress) event() {}
func (Partial) event()  {}
func (Final) event()    {}
func (Failure) event()  {}

// IsTerminal reports whether the event ends the stream.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case Final, Failure:
		return true
	}
	return false
}
