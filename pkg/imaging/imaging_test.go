package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient builds a horizontal gradient for transform tests.
func gradient(w, h int) *Gray {
	g := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, uint8(x*255/(w-1)))
		}
	}
	return g
}

func TestFlipH(t *testing.T) {
	g := gradient(10, 4)
	f := g.FlipH()

	for y := 0; y < 4; y++ {
		for x := 0; x < 10; x++ {
			assert.Equal(t, g.At(x, y), f.At(9-x, y))
		}
	}

	// Double flip restores the original.
	assert.Equal(t, g.Pix, f.FlipH().Pix)
}

func TestFlipV(t *testing.T) {
	g := New(4, 6)
	g.Set(1, 0, 200)
	f := g.FlipV()

	assert.Equal(t, uint8(200), f.At(1, 5))
	assert.Equal(t, g.Pix, f.FlipV().Pix)
}

func TestRotate180MatchesFlips(t *testing.T) {
	g := gradient(8, 8)
	g.Set(2, 3, 7)

	assert.Equal(t, g.FlipH().FlipV().Pix, g.Rotate180().Pix)
}

func TestRotate90ViaTranspose(t *testing.T) {
	g := New(6, 6)
	g.Set(1, 0, 50)

	r := g.Transpose().FlipH()
	assert.Equal(t, uint8(50), r.At(5, 1))
}

func TestHalves(t *testing.T) {
	g := gradient(10, 10)

	left := g.SubLeft()
	right := g.SubRight()
	require.Equal(t, 5, left.W)
	require.Equal(t, 5, right.W)
	assert.Equal(t, g.At(0, 0), left.At(0, 0))
	assert.Equal(t, g.At(5, 0), right.At(0, 0))

	top := g.SubTop()
	bottom := g.SubBottom()
	require.Equal(t, 5, top.H)
	require.Equal(t, 5, bottom.H)
	assert.Equal(t, g.At(0, 5), bottom.At(0, 0))
}

func TestOtsuSeparatesBimodal(t *testing.T) {
	g := New(20, 20)
	for i := range g.Pix {
		if i%2 == 0 {
			g.Pix[i] = 40
		} else {
			g.Pix[i] = 210
		}
	}

	thr := g.OtsuThreshold()
	assert.GreaterOrEqual(t, thr, uint8(40))
	assert.Less(t, thr, uint8(210))

	mask := g.BinarizeInv(thr)
	assert.Equal(t, 200, mask.Count())
}

func TestOtsuUniformImage(t *testing.T) {
	g := New(10, 10)
	for i := range g.Pix {
		g.Pix[i] = 128
	}

	// A flat histogram has no foreground class to separate.
	mask := g.BinarizeInv(g.OtsuThreshold())
	assert.Equal(t, 0, mask.Count())
}

func TestNormalizedCrossCorrelation(t *testing.T) {
	g := gradient(16, 16)

	assert.InDelta(t, 1.0, NormalizedCrossCorrelation(g, g), 1e-9)

	inverted := g.Clone()
	for i, v := range inverted.Pix {
		inverted.Pix[i] = 255 - v
	}
	assert.Less(t, NormalizedCrossCorrelation(g, inverted), 0.0)
}

func TestMeanAbsDiff(t *testing.T) {
	a := New(4, 4)
	b := New(4, 4)
	for i := range b.Pix {
		b.Pix[i] = 10
	}

	assert.InDelta(t, 10.0, MeanAbsDiff(a, b), 1e-9)
	assert.InDelta(t, 0.0, MeanAbsDiff(a, a), 1e-9)
}

func TestCentroidOfOffsetBlob(t *testing.T) {
	g := New(20, 20)
	for y := 12; y < 16; y++ {
		for x := 12; x < 16; x++ {
			g.Set(x, y, 255)
		}
	}

	cx, cy := g.ComputeMoments().Centroid(g.W, g.H)
	assert.InDelta(t, 13.5, cx, 0.01)
	assert.InDelta(t, 13.5, cy, 0.01)
}

func TestLoadDownscalesLargeImages(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, MaxDimension*2, MaxDimension))
	for i := range img.Pix {
		img.Pix[i] = 100
	}

	path := filepath.Join(t.TempDir(), "big.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	g, raw, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, MaxDimension, g.W)
	assert.LessOrEqual(t, g.H, MaxDimension)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"), ".png")
	require.Error(t, err)
}

func TestDecodePNGColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	g, err := Decode(buf.Bytes(), ".png")
	require.NoError(t, err)
	assert.Equal(t, 8, g.W)
	assert.Equal(t, 8, g.H)
	// Pure red maps to the luma weight of the red channel.
	assert.InDelta(t, 76, float64(g.At(4, 4)), 3)
}
