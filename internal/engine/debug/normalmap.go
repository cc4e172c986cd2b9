package debug

import (
	"fmt"
	"image"
	"image/color"
	stdmath "math"

	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/craterfield/pkg/collision"
)

// Normal map colors for non-edge pixels.
var (
	InteriorColor = color.RGBA{96, 96, 96, 255}
	BlankColor    = color.RGBA{0, 0, 0, 0}
)

// NormalMapImage renders r as an image: blank pixels transparent, interior
// pixels gray and edge pixels colored by their normal (R = x, G = y, both
// mapped from [-1, 1] to [0, 255]).
func NormalMapImage(r *collision.Raster) *image.RGBA {
	w, h := r.Width(), r.Height()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			img.SetRGBA(px, py, NormalColor(r.At(px, py)))
		}
	}
	return img
}

// NormalColor returns the preview color for one encoded pixel.
func NormalColor(p collision.Pixel) color.RGBA {
	solid, nx, ny := collision.Decode(p)
	if !solid {
		return BlankColor
	}
	if nx == 0 && ny == 0 {
		return InteriorColor
	}
	l := stdmath.Hypot(float64(nx), float64(ny))
	return color.RGBA{
		R: unitToByte(float64(nx) / l),
		G: unitToByte(float64(ny) / l),
		B: 255,
		A: 255,
	}
}

func unitToByte(v float64) uint8 {
	return uint8(stdmath.Round((v + 1) / 2 * 255))
}

// Preview scales img so its longer side is at most maxSide, keeping hard
// pixel edges. Smaller images are returned unchanged.
func Preview(img image.Image, maxSide int) (image.Image, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid preview size %d", maxSide)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img, nil
	}

	scale := float64(maxSide) / float64(max(w, h))
	dw := max(1, int(float64(w)*scale))
	dh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}
