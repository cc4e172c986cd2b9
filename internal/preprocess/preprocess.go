// Package preprocess derives a collision raster from a plain solidity bitmap.
//
// Every pixel is classified by alpha. Solid pixels with a blank 8-neighbor are
// edges and receive a surface normal estimated from the solid mass in a square
// window around them; solid pixels fully surrounded by solid ones are stored as
// interior (0, 0).
package preprocess

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/pkg/collision"
)

// BorderMode controls how pixels outside the bitmap are classified.
type BorderMode int

const (
	// BorderBlank treats everything outside the bitmap as empty space, so solid
	// pixels on the bitmap border are edges.
	BorderBlank BorderMode = iota
	// BorderSolid treats everything outside the bitmap as terrain.
	BorderSolid
)

// String returns the flag spelling of the mode.
func (m BorderMode) String() string {
	switch m {
	case BorderSolid:
		return "solid"
	default:
		return "blank"
	}
}

// ParseBorderMode converts a flag value to a BorderMode.
func ParseBorderMode(s string) (BorderMode, bool) {
	switch s {
	case "", "blank":
		return BorderBlank, true
	case "solid":
		return BorderSolid, true
	}
	return BorderBlank, false
}

// Default option values.
const (
	DefaultSmoothRadius  = 6
	DefaultProgressEvery = 500
)

// Options configures Build.
type Options struct {
	// SmoothRadius is the half-size of the normal estimation window.
	// Curvier terrain benefits from a larger radius.
	SmoothRadius int
	// ProgressEvery logs a progress line every N columns. Zero disables it.
	ProgressEvery int
	Border        BorderMode
}

// DefaultOptions returns the standard preprocessing options.
func DefaultOptions() Options {
	return Options{
		SmoothRadius:  DefaultSmoothRadius,
		ProgressEvery: DefaultProgressEvery,
		Border:        BorderBlank,
	}
}

// Stats summarizes a Build run.
type Stats struct {
	Width      int
	Height     int
	Solid      int
	Edge       int
	Interior   int
	Degenerate int // edges whose window summed to zero on both axes
}

// IsSolidAlpha reports whether a source color counts as terrain.
func IsSolidAlpha(c color.Color) bool {
	_, _, _, a := c.RGBA()
	return a != 0
}

// mask is the solidity of the source bitmap with the border policy applied.
type mask struct {
	w, h   int
	solid  []bool
	border bool
}

func newMask(src image.Image, border BorderMode) *mask {
	b := src.Bounds()
	m := &mask{
		w:      b.Dx(),
		h:      b.Dy(),
		border: border == BorderSolid,
	}
	m.solid = make([]bool, m.w*m.h)

	switch img := src.(type) {
	case *image.NRGBA:
		for y := 0; y < m.h; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < m.w; x++ {
				m.solid[y*m.w+x] = row[x*4+3] != 0
			}
		}
	case *image.RGBA:
		for y := 0; y < m.h; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < m.w; x++ {
				m.solid[y*m.w+x] = row[x*4+3] != 0
			}
		}
	default:
		for y := 0; y < m.h; y++ {
			for x := 0; x < m.w; x++ {
				m.solid[y*m.w+x] = IsSolidAlpha(src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return m
}

func (m *mask) at(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return m.border
	}
	return m.solid[y*m.w+x]
}

func (m *mask) isEdge(x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !m.at(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

// Build classifies every pixel of src and returns the encoded raster.
// Coordinates in the result match the bitmap: row 0 is the top row.
// An empty bitmap yields a nil raster.
func Build(src image.Image, opts Options) (*collision.Raster, Stats) {
	if opts.SmoothRadius <= 0 {
		opts.SmoothRadius = DefaultSmoothRadius
	}

	m := newMask(src, opts.Border)
	stats := Stats{Width: m.w, Height: m.h}

	out, err := collision.New(m.w, m.h)
	if err != nil {
		logger.Warn("empty source bitmap", zap.Int("width", m.w), zap.Int("height", m.h))
		return nil, stats
	}

	logger.Info("building collision map",
		zap.Int("width", m.w),
		zap.Int("height", m.h),
		zap.Int("smooth", opts.SmoothRadius),
		zap.Stringer("border", opts.Border))

	for x := 0; x < m.w; x++ {
		if opts.ProgressEvery > 0 && x%opts.ProgressEvery == 0 {
			logger.Info("building collision map", zap.Int("x", x), zap.Int("width", m.w))
		}
		for y := 0; y < m.h; y++ {
			p, kind := m.classify(x, y, opts.SmoothRadius)
			switch kind {
			case kindInterior:
				stats.Solid++
				stats.Interior++
			case kindEdge:
				stats.Solid++
				stats.Edge++
			case kindDegenerate:
				stats.Solid++
				stats.Edge++
				stats.Degenerate++
			}
			out.Set(x, y, p)
		}
	}

	if stats.Degenerate > 0 {
		logger.Warn("collision map has degenerate edge normals", zap.Int("count", stats.Degenerate))
	}
	logger.Info("collision map done",
		zap.Int("solid", stats.Solid),
		zap.Int("edge", stats.Edge),
		zap.Int("interior", stats.Interior))

	return out, stats
}

type pixelKind int

const (
	kindBlank pixelKind = iota
	kindInterior
	kindEdge
	kindDegenerate
)

func (m *mask) classify(x, y, radius int) (collision.Pixel, pixelKind) {
	if !m.at(x, y) {
		return collision.EncodeBlank(), kindBlank
	}
	if !m.isEdge(x, y) {
		return collision.EncodeSolid(0, 0), kindInterior
	}

	nx, ny, hasHorz, hasVert := m.accumulate(x, y, radius)
	if nx != 0 || ny != 0 {
		return collision.EncodeSolid(nx, ny), kindEdge
	}

	switch {
	case hasHorz && hasVert:
		// Mass balanced on both axes around an edge pixel.
		logger.Warn("degenerate edge normal", zap.Int("x", x), zap.Int("y", y))
		return collision.EncodeSolid(0, 1), kindDegenerate
	case hasVert && !hasHorz:
		return collision.EncodeSolid(1, 0), kindEdge
	default:
		return collision.EncodeSolid(0, 1), kindEdge
	}
}

// accumulate sums the offsets of solid pixels in the window. The x sum is
// negated so the result points away from the mass; the y sum is kept as is
// because image rows grow downward while level y grows upward.
func (m *mask) accumulate(x, y, radius int) (snx, sny int, hasHorz, hasVert bool) {
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if !m.at(x+dx, y+dy) {
				continue
			}
			hasHorz = hasHorz || dx != 0
			hasVert = hasVert || dy != 0
			snx -= dx
			sny += dy
		}
	}
	return snx, sny, hasHorz, hasVert
}
