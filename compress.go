package sortify

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// CompressOpts configures preprocessing of a source image before a remote call.
type CompressOpts struct {
	MaxDimension int `yaml:"max_dimension"` // longest side in pixels (default: 1024)
	Quality      int `yaml:"quality"`       // JPEG quality (default: 85)
}

const (
	defaultMaxDimension = 1024
	defaultJPEGQuality  = 85
)

// DecodeImage decodes raw jpeg/png/gif/webp bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Compress downscales img so its longest side is at most opts.MaxDimension
// and re-encodes it as JPEG. Deterministic for a given input and options.
// Images already within bounds are re-encoded without scaling.
func Compress(img image.Image, opts CompressOpts) ([]byte, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaultMaxDimension
	}
	if opts.Quality <= 0 {
		opts.Quality = defaultJPEGQuality
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > opts.MaxDimension {
		scale := float64(opts.MaxDimension) / float64(longest)
		nw := max(int(math.Round(float64(w)*scale)), 1)
		nh := max(int(math.Round(float64(h)*scale)), 1)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
