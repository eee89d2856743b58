package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolamlabs/kolamscan/pkg/cache"
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
	"github.com/kolamlabs/kolamscan/pkg/stages"
)

// writeGridImage writes a 400x400 PNG with a 3x3 grid of dark dots at
// 100px spacing and returns its path.
func writeGridImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 400, 400))
	for i := range img.Pix {
		img.Pix[i] = 235
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cx, cy := 100+col*100, 100+row*100
			for y := cy - 6; y <= cy+6; y++ {
				for x := cx - 6; x <= cx+6; x++ {
					if math.Hypot(float64(x-cx), float64(y-cy)) <= 6 {
						img.SetGray(x, y, color.Gray{Y: 30})
					}
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "grid.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestRunner() *Runner {
	return NewRunner(cache.NewNullCache(), nil, nil, stages.DefaultConfig())
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestRunEventContract(t *testing.T) {
	path := writeGridImage(t)
	r := newTestRunner()

	events := collect(t, r.Run(context.Background(), Options{Path: path}))
	require.NotEmpty(t, events)

	// First event is an immediate progress record; last is the single
	// terminal event.
	first, ok := events[0].(Progress)
	require.True(t, ok)
	assert.Equal(t, 1, first.Progress)

	terminals := 0
	lastProgress := 0
	var partials []*stages.StageReport
	for i, ev := range events {
		switch e := ev.(type) {
		case Progress:
			assert.GreaterOrEqual(t, e.Progress, lastProgress, "progress must not decrease")
			lastProgress = e.Progress
			assert.GreaterOrEqual(t, e.EstimatedRemaining, 0.0)
		case Partial:
			partials = append(partials, e.Part)
		case Final, Failure:
			terminals++
			assert.Equal(t, len(events)-1, i, "terminal event must be last")
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Equal(t, 100, lastProgress)

	// One partial per stage, in execution order.
	require.Len(t, partials, 5)
	for i, kind := range stages.Order {
		assert.Equal(t, kind, partials[i].Stage)
		assert.Empty(t, partials[i].Err)
	}

	final, ok := events[len(events)-1].(Final)
	require.True(t, ok)
	assert.Equal(t, 400, final.Report.Dimensions.Width)
	assert.Equal(t, 400, final.Report.Dimensions.Height)
	assert.Equal(t, "100%", final.Report.Completeness)
	assert.NotEmpty(t, final.Report.RunID)
}

func TestRunGridScenario(t *testing.T) {
	path := writeGridImage(t)
	r := newTestRunner()

	result, err := r.Execute(context.Background(), Options{Path: path})
	require.NoError(t, err)
	require.Len(t, result.Parts, 5)

	dots := result.Parts[0].Dots
	require.NotNil(t, dots)
	assert.GreaterOrEqual(t, len(dots.Dots), 9)

	require.False(t, dots.GridSpacing.Insufficient)
	assert.InDelta(t, 100, float64(dots.GridSpacing.MeanSpacing), 10)
	assert.Greater(t, dots.GridSpacing.Consistency, 0.85)

	assert.GreaterOrEqual(t, result.Report.Summary.TotalDots, 9)
	assert.False(t, result.CacheHit)
}

func TestRunUnreadableImage(t *testing.T) {
	r := newTestRunner()

	events := collect(t, r.Run(context.Background(), Options{Path: "does/not/exist.png"}))
	require.NotEmpty(t, events)

	last, ok := events[len(events)-1].(Failure)
	require.True(t, ok)
	assert.NotEmpty(t, last.Message)

	for _, ev := range events {
		_, isPartial := ev.(Partial)
		assert.False(t, isPartial, "no stages run when the image cannot load")
	}
}

func TestStageFaultIsolation(t *testing.T) {
	path := writeGridImage(t)

	inject := map[stages.Kind]func(*Runner){
		stages.KindDots: func(r *Runner) {
			r.dots = func(*imaging.Gray) (*stages.StageReport, []geometry.Keypoint) {
				panic("dots exploded")
			}
		},
		stages.KindSymmetry: func(r *Runner) {
			r.symmetry = func(*imaging.Gray) *stages.StageReport { panic("symmetry exploded") }
		},
		stages.KindStrokes: func(r *Runner) {
			r.strokes = func(*imaging.Gray) (*stages.StageReport, []geometry.Contour) {
				panic("strokes exploded")
			}
		},
		stages.KindSpatial: func(r *Runner) {
			r.spatial = func(*imaging.Gray, []geometry.Keypoint, []geometry.Contour) *stages.StageReport {
				panic("spatial exploded")
			}
		},
		stages.KindPattern: func(r *Runner) {
			r.pattern = func(*imaging.Gray, []geometry.Contour, float64) *stages.StageReport {
				panic("pattern exploded")
			}
		},
	}

	for kind, breakStage := range inject {
		t.Run(string(kind), func(t *testing.T) {
			r := newTestRunner()
			breakStage(r)

			events := collect(t, r.Run(context.Background(), Options{Path: path}))
			require.NotEmpty(t, events)

			// The run still completes with all five partials and a final
			// report.
			final, ok := events[len(events)-1].(Final)
			require.True(t, ok, "failed stage must not abort the run")
			require.NotNil(t, final.Report)

			var partials []*stages.StageReport
			for _, ev := range events {
				if p, ok := ev.(Partial); ok {
					partials = append(partials, p.Part)
				}
			}
			require.Len(t, partials, 5)
			for i, want := range stages.Order {
				assert.Equal(t, want, partials[i].Stage)
				if want == kind {
					assert.Contains(t, partials[i].Err, "exploded")
				} else {
					assert.Empty(t, partials[i].Err)
				}
			}
		})
	}
}

func TestCacheReplay(t *testing.T) {
	path := writeGridImage(t)
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(fc, nil, nil, stages.DefaultConfig())

	first, err := r.Execute(context.Background(), Options{Path: path})
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	// Second run replays the stored report: a single 100% progress event
	// followed by the final report, no partials.
	events := collect(t, r.Run(context.Background(), Options{Path: path}))
	require.Len(t, events, 2)

	p, ok := events[0].(Progress)
	require.True(t, ok)
	assert.Equal(t, 100, p.Progress)

	f, ok := events[1].(Final)
	require.True(t, ok)
	assert.Equal(t, first.Report.RunID, f.Report.RunID)
	assert.InDelta(t,
		float64(first.Report.Summary.OverallQuality),
		float64(f.Report.Summary.OverallQuality), 1e-9)

	// Refresh bypasses the cache and re-runs every stage.
	third, err := r.Execute(context.Background(), Options{Path: path, Refresh: true})
	require.NoError(t, err)
	require.Len(t, third.Parts, 5)
	assert.NotEqual(t, first.Report.RunID, third.Report.RunID)
}

func TestCacheScopeIsolation(t *testing.T) {
	path := writeGridImage(t)
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	// Two runners share the store but scope their keys differently, the
	// way different build versions do. Neither replays the other's report.
	a := NewRunner(fc, cache.NewScopedKeyer(nil, "v1:"), nil, stages.DefaultConfig())
	b := NewRunner(fc, cache.NewScopedKeyer(nil, "v2:"), nil, stages.DefaultConfig())

	first, err := a.Execute(context.Background(), Options{Path: path})
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	cross, err := b.Execute(context.Background(), Options{Path: path})
	require.NoError(t, err)
	assert.False(t, cross.CacheHit)
	require.Len(t, cross.Parts, 5)

	// The same scope does replay.
	same, err := a.Execute(context.Background(), Options{Path: path})
	require.NoError(t, err)
	assert.True(t, same.CacheHit)
}

func TestRunContextCancellation(t *testing.T) {
	path := writeGridImage(t)
	r := newTestRunner()

	ctx, cancel := context.WithCancel(context.Background())
	ch := r.Run(ctx, Options{Path: path})

	// Take the first event, then stop consuming.
	<-ch
	cancel()

	// The producer must terminate and close the channel.
	for range ch {
	}
}

func TestConfigHashChangesWithConfig(t *testing.T) {
	a := stages.DefaultConfig()
	b := stages.DefaultConfig()
	assert.Equal(t, ConfigHash(a), ConfigHash(b))

	b.DedupRadius = 12
	assert.NotEqual(t, ConfigHash(a), ConfigHash(b))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, stages.DefaultConfig(), cfg.Stages)

	path := filepath.Join(t.TempDir(), "kolamscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen = \":9090\"\n\n[stages]\ndedup_radius = 12.0\n"), 0o644))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 12.0, cfg.Stages.DedupRadius)
}
