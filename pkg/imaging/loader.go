package imaging

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/kolamlabs/kolamscan/pkg/errors"
)

// MaxDimension is the size cap applied on load. The analysis kernels are
// O(W*H) or worse, so oversized inputs are downsampled before any stage
// sees them. Aspect ratio is preserved.
const MaxDimension = 1600

// Load reads and decodes an image file into a grayscale raster, returning
// the raster and the raw file bytes (used for cache keying).
//
// Returns an errors.ErrCodeImageLoad error if the file cannot be read and
// an errors.ErrCodeImageDecode error if no registered decoder accepts it.
// Both are pipeline-fatal.
func Load(path string) (*Gray, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeImageLoad, err, "reading %s", path)
	}

	img, err := Decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, nil, err
	}
	return img, raw, nil
}

// Decode decodes raw image bytes. The extension hint (with leading dot, may
// be empty) selects the webp fallback decoder when the registered decoders
// reject the payload.
func Decode(raw []byte, ext string) (*Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		// Some webp encodings are not covered by the registered decoder.
		if strings.EqualFold(ext, ".webp") {
			if wimg, werr := webp.Decode(bytes.NewReader(raw)); werr == nil {
				img = wimg
				err = nil
			}
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeImageDecode, err, "unsupported or corrupted image")
		}
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New(errors.ErrCodeImageDecode, "image has zero dimension")
	}

	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}
	return FromImage(img), nil
}
