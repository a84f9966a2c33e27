package sortify

import (
	"bytes"
	"image"

	"github.com/bep/imagemeta"
)

// EXIF Orientation values this package corrects. Other values (mirrored
// variants 2, 4, 5, 7) pass through unchanged, matching the classifier's
// training data which never contained mirrored shots.
const (
	orientationUpright   = 1
	orientationFlipped   = 3 // rotated 180°
	orientationRightSide = 6 // needs a 90° counter-clockwise turn
	orientationLeftSide  = 8 // needs a 90° clockwise turn
)

// ReadOrientation extracts the EXIF Orientation value from raw image bytes.
// Returns 1 (upright) when metadata is missing or unreadable.
func ReadOrientation(data []byte) int {
	if len(data) == 0 {
		return orientationUpright
	}

	val := orientationUpright
	err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Tag == "Orientation"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if v, ok := orientationValue(ti.Value); ok {
				val = v
			}
			return nil
		},
	})
	if err != nil {
		return orientationUpright
	}
	return val
}

// orientationValue extracts an int from a tag value.
// EXIF short fields may surface as any unsigned or signed integer width.
func orientationValue(v any) (int, bool) {
	switch val := v.(type) {
	case uint8:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// NormalizeOrientation returns img corrected for the given EXIF orientation,
// so the classifier always sees the scene the way the camera operator did.
func NormalizeOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case orientationFlipped:
		return rotate180(img)
	case orientationRightSide:
		return rotate90CCW(img)
	case orientationLeftSide:
		return rotate90CW(img)
	default:
		return img
	}
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, h-1-y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate90CCW(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(y, w-1-x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func rotate90CW(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
