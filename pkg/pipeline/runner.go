package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kolamlabs/kolamscan/pkg/cache"
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
	"github.com/kolamlabs/kolamscan/pkg/observability"
	"github.com/kolamlabs/kolamscan/pkg/report"
	"github.com/kolamlabs/kolamscan/pkg/stages"
)

// Runner executes analysis runs with caching.
// Both CLI and API use this to avoid duplicating orchestration logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Config stages.Config

	// Stage functions, normally built from Config and the default
	// detectors. Kept as fields so tests can substitute failing stages.
	dots     func(*imaging.Gray) (*stages.StageReport, []geometry.Keypoint)
	symmetry func(*imaging.Gray) *stages.StageReport
	strokes  func(*imaging.Gray) (*stages.StageReport, []geometry.Contour)
	spatial  func(*imaging.Gray, []geometry.Keypoint, []geometry.Contour) *stages.StageReport
	pattern  func(*imaging.Gray, []geometry.Contour, float64) *stages.StageReport
}

// NewRunner creates a runner with the given cache, keyer, and tuning
// configuration, wiring the production dot detectors.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger, cfg stages.Config) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Config: cfg,
	}
	r.SetDetectors(stages.DefaultDotDetectors())
	return r
}

// SetDetectors rebuilds the stage functions with the given dot detector
// collaborators. Called once at construction; tests inject fakes here.
func (r *Runner) SetDetectors(d stages.DotDetectors) {
	dots := &stages.DotAnalyzer{Detectors: d, Config: r.Config}
	symmetry := &stages.SymmetryAnalyzer{Config: r.Config}
	strokes := &stages.StrokeAnalyzer{Config: r.Config}
	spatial := &stages.SpatialAnalyzer{Config: r.Config}
	pattern := &stages.PatternAnalyzer{Config: r.Config}

	r.dots = dots.Analyze
	r.symmetry = symmetry.Analyze
	r.strokes = strokes.Analyze
	r.spatial = spatial.Analyze
	r.pattern = pattern.Analyze
}

// Run starts an analysis and returns its event stream. The channel is
// closed after the terminal event. Cancelling the context stops the
// stream early without a terminal event.
func (r *Runner) Run(ctx context.Context, opts Options) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		r.run(ctx, opts, ch)
	}()
	return ch
}

// Execute runs the pipeline synchronously and returns the final result.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}
	for ev := range r.Run(ctx, opts) {
		switch e := ev.(type) {
		case Partial:
			result.Parts = append(result.Parts, e.Part)
		case Final:
			result.Report = e.Report
			result.CacheHit = len(result.Parts) == 0
		case Failure:
			return nil, fmt.Errorf("analysis failed: %s", e.Message)
		}
	}
	if result.Report == nil {
		return nil, ctx.Err()
	}
	result.Duration = time.Since(start)
	return result, nil
}

// run emits the event sequence for one analysis. It always ends with a
// terminal event unless the context is cancelled first.
func (r *Runner) run(ctx context.Context, opts Options, ch chan<- Event) {
	start := time.Now()
	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}
	logger = logger.With("run_id", runID)

	observability.Pipeline().OnRunStart(ctx, runID, opts.Path)
	var runErr error
	defer func() {
		observability.Pipeline().OnRunComplete(ctx, runID, time.Since(start), runErr)
	}()

	emit := func(e Event) bool {
		select {
		case ch <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}
	progress := func(p int, description string) bool {
		return emit(Progress{
			Progress:           p,
			Description:        description,
			EstimatedRemaining: estimateRemaining(start, p),
		})
	}

	if !progress(1, "Starting analysis system...") {
		return
	}
	if !progress(3, "Loading image file...") {
		return
	}

	g, raw, err := imaging.Load(opts.Path)
	if err != nil {
		runErr = err
		logger.Error("image load failed", "path", opts.Path, "err", err)
		emit(Failure{Message: err.Error()})
		return
	}
	logger.Info("image loaded", "width", g.W, "height", g.H)

	// Cache lookup on image content + tuning constants.
	cacheKey := r.Keyer.ReportKey(cache.Hash(raw), cache.ReportKeyOpts{
		ConfigHash: ConfigHash(r.Config),
	})
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached report.CompositeReport
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "report")
				logger.Info("report cache hit")
				if progress(100, "Analysis complete!") {
					emit(Final{Report: &cached})
				}
				return
			}
			// Corrupt entry, fall through to recompute.
		}
		observability.Cache().OnCacheMiss(ctx, "report")
	}

	if !progress(7, "Image loaded successfully, preprocessing...") {
		return
	}
	if !progress(10, "Image preprocessed, starting dot analysis...") {
		return
	}

	var keypoints []geometry.Keypoint
	dotsRep := r.runStage(ctx, runID, logger, stages.KindDots, func() *stages.StageReport {
		rep, kps := r.dots(g)
		keypoints = kps
		return rep
	})
	if !emit(Partial{Part: dotsRep}) {
		return
	}
	if !progress(25, "Dot analysis complete, starting symmetry analysis...") {
		return
	}

	symRep := r.runStage(ctx, runID, logger, stages.KindSymmetry, func() *stages.StageReport {
		return r.symmetry(g)
	})
	if !emit(Partial{Part: symRep}) {
		return
	}
	if !progress(45, "Symmetry analysis complete, starting line and stroke analysis...") {
		return
	}

	var contours []geometry.Contour
	strokesRep := r.runStage(ctx, runID, logger, stages.KindStrokes, func() *stages.StageReport {
		rep, cs := r.strokes(g)
		contours = cs
		return rep
	})
	if !emit(Partial{Part: strokesRep}) {
		return
	}
	if !progress(65, "Line analysis complete, starting spatial reasoning...") {
		return
	}

	spatialRep := r.runStage(ctx, runID, logger, stages.KindSpatial, func() *stages.StageReport {
		return r.spatial(g, keypoints, contours)
	})
	if !emit(Partial{Part: spatialRep}) {
		return
	}
	if !progress(80, "Spatial analysis complete, starting pattern recognition...") {
		return
	}

	overallSymmetry := 0.0
	if symRep.Symmetry != nil {
		overallSymmetry = float64(symRep.Symmetry.Overall)
	}
	patternRep := r.runStage(ctx, runID, logger, stages.KindPattern, func() *stages.StageReport {
		return r.pattern(g, contours, overallSymmetry)
	})
	if !emit(Partial{Part: patternRep}) {
		return
	}
	if !progress(95, "All analyses complete, generating final report...") {
		return
	}

	composite := report.Synthesize(runID, g.W, g.H,
		[]*stages.StageReport{dotsRep, symRep, strokesRep, spatialRep, patternRep},
		time.Since(start))

	if data, err := json.Marshal(composite); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLReport); err == nil {
			observability.Cache().OnCacheSet(ctx, "report", len(data))
		}
	}

	logger.Info("analysis complete",
		"dots", composite.Summary.TotalDots,
		"strokes", composite.Summary.TotalStrokes,
		"quality", float64(composite.Summary.OverallQuality),
		"duration", time.Since(start))

	if !progress(100, "Analysis complete!") {
		return
	}
	emit(Final{Report: composite})
}

// runStage executes one stage with fault isolation. A panic inside the
// stage is logged and replaced by the stage's fallback report; the run
// continues.
func (r *Runner) runStage(ctx context.Context, runID string, logger *log.Logger, kind stages.Kind, fn func() *stages.StageReport) (rep *stages.StageReport) {
	observability.Pipeline().OnStageStart(ctx, runID, string(kind))
	start := time.Now()
	var stageErr error
	defer func() {
		if p := recover(); p != nil {
			stageErr = fmt.Errorf("%v", p)
			logger.Error("stage failed", "stage", kind, "err", stageErr)
			rep = stages.Fallback(kind, stageErr.Error())
		}
		observability.Pipeline().OnStageComplete(ctx, runID, string(kind), time.Since(start), stageErr)
	}()
	rep = fn()
	logger.Debug("stage complete", "stage", kind, "duration", time.Since(start))
	return rep
}

// estimateRemaining linearly extrapolates the remaining seconds from the
// elapsed time and progress fraction. Advisory only.
func estimateRemaining(start time.Time, progress int) float64 {
	if progress <= 0 || progress >= 100 {
		return 0
	}
	elapsed := time.Since(start).Seconds()
	return elapsed * float64(100-progress) / float64(progress)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
