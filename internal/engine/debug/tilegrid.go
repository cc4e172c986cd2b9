package debug

import (
	stdmath "math"

	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/math"
)

// TileGrid generates overlay lines for the tile cache layout.
type TileGrid struct {
	width    int
	height   int
	tileSize int
}

// NewTileGrid creates a grid for a width×height level split into
// tileSize squares. Returns nil for a non-positive tile size.
func NewTileGrid(width, height, tileSize int) *TileGrid {
	if tileSize <= 0 {
		return nil
	}
	return &TileGrid{width: width, height: height, tileSize: tileSize}
}

// Lines returns tile boundary lines overlapping view, clipped to the level.
// Output is (x, y) pairs, two points per line.
func (g *TileGrid) Lines(view math.Rect) []float32 {
	if g == nil || g.width <= 0 || g.height <= 0 {
		return nil
	}

	minX := math.Clamp(view.X, 0, float32(g.width))
	maxX := math.Clamp(view.MaxX(), 0, float32(g.width))
	minY := math.Clamp(view.Y, 0, float32(g.height))
	maxY := math.Clamp(view.MaxY(), 0, float32(g.height))
	if minX >= maxX || minY >= maxY {
		return nil
	}

	ts := g.tileSize
	var vertices []float32

	// Vertical lines, plus the right level edge when it is not a tile boundary
	for x := ceilTo(minX, ts); float32(x) <= maxX; x += ts {
		vertices = append(vertices, float32(x), minY, float32(x), maxY)
	}
	if g.width%ts != 0 && float32(g.width) >= minX && float32(g.width) <= maxX {
		vertices = append(vertices, float32(g.width), minY, float32(g.width), maxY)
	}

	// Horizontal lines
	for y := ceilTo(minY, ts); float32(y) <= maxY; y += ts {
		vertices = append(vertices, minX, float32(y), maxX, float32(y))
	}
	if g.height%ts != 0 && float32(g.height) >= minY && float32(g.height) <= maxY {
		vertices = append(vertices, minX, float32(g.height), maxX, float32(g.height))
	}

	return vertices
}

// ceilTo rounds v up to the next multiple of step.
func ceilTo(v float32, step int) int {
	return int(stdmath.Ceil(float64(v)/float64(step))) * step
}

// NormalField returns arrows for every stride-th edge pixel inside view.
func NormalField(r *collision.Raster, view math.Rect, stride int, length float32) []float32 {
	if r == nil {
		return nil
	}
	if stride < 1 {
		stride = 1
	}
	w, h := r.Width(), r.Height()

	// Level y in [h-py, h-py+1) maps to row py.
	c0 := math.ClampInt(int(stdmath.Floor(float64(view.X))), 0, w-1)
	c1 := math.ClampInt(int(stdmath.Ceil(float64(view.MaxX()))), 0, w-1)
	r0 := math.ClampInt(h-int(stdmath.Ceil(float64(view.MaxY()))), 0, h-1)
	r1 := math.ClampInt(h-int(stdmath.Floor(float64(view.Y))), 0, h-1)

	var vertices []float32
	for py := r0; py <= r1; py += stride {
		for px := c0; px <= c1; px += stride {
			solid, nx, ny := collision.Decode(r.At(px, py))
			if !solid || (nx == 0 && ny == 0) {
				continue
			}
			center := math.Vec2{X: float32(px) + 0.5, Y: float32(h-py) + 0.5}
			n := math.Vec2{X: float32(nx), Y: float32(ny)}
			vertices = append(vertices, NormalArrow(center, n, length)...)
		}
	}
	return vertices
}
