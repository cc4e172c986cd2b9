package collision

import (
	"errors"
	"fmt"
)

// Raster errors.
var (
	ErrInvalidDimensions = errors.New("invalid raster dimensions")
	ErrPixelCount        = errors.New("pixel count does not match dimensions")
)

// Raster is the runtime collision grid.
//
// Storage is row-major in image space (row 0 = top). Physics queries take
// level-space coordinates (origin bottom-left) and flip with
// row = Height - int(levelY).
//
// A Raster has a single owner and no internal locking: callers must not
// punch holes while another goroutine queries overlapping regions.
type Raster struct {
	width  int
	height int
	pix    []Pixel
}

// New creates a blank raster.
func New(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Raster{
		width:  width,
		height: height,
		pix:    make([]Pixel, width*height),
	}, nil
}

// FromPixels wraps an existing row-major pixel slice. The slice is owned by
// the raster afterwards.
func FromPixels(width, height int, pix []Pixel) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPixelCount, len(pix), width*height)
	}
	return &Raster{width: width, height: height, pix: pix}, nil
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.height }

// InBounds reports whether (px, py) is a valid image-space index.
func (r *Raster) InBounds(px, py int) bool {
	return px >= 0 && py >= 0 && px < r.width && py < r.height
}

// At returns the pixel at image-space (px, py).
// Out-of-bounds reads return Blank.
func (r *Raster) At(px, py int) Pixel {
	if !r.InBounds(px, py) {
		return Blank
	}
	return r.pix[py*r.width+px]
}

// Set writes the pixel at image-space (px, py).
// Out-of-bounds writes are ignored.
func (r *Raster) Set(px, py int, p Pixel) {
	if !r.InBounds(px, py) {
		return
	}
	r.pix[py*r.width+px] = p
}

// Pixels returns the backing row-major slice. Callers must treat it as read-only.
func (r *Raster) Pixels() []Pixel {
	return r.pix
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]Pixel, len(r.pix))
	copy(pix, r.pix)
	return &Raster{width: r.width, height: r.height, pix: pix}
}

// ToPixel converts level-space coordinates to an image-space index.
func (r *Raster) ToPixel(x, y float32) (px, py int) {
	return int(x), r.height - int(y)
}

// IsEdge reports whether any of the 8 neighbours of (px, py) is blank.
// Neighbours outside the raster count as blank.
func (r *Raster) IsEdge(px, py int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !r.At(px+dx, py+dy).Solid() {
				return true
			}
		}
	}
	return false
}

// CountSolid returns the number of solid pixels.
func (r *Raster) CountSolid() int {
	n := 0
	for _, p := range r.pix {
		if p.Solid() {
			n++
		}
	}
	return n
}
