// Package debug provides debug visualization utilities.
package debug

import (
	stdmath "math"

	"github.com/Faultbox/craterfield/pkg/math"
)

// RectOutlineVertexCount is the number of points in a rectangle outline (4 edges × 2).
const RectOutlineVertexCount = 8

// DefaultArrowLength is the on-screen length of a normal arrow in level pixels.
const DefaultArrowLength = 6.0

// RectOutline returns line vertices, as (x, y) pairs, for the outline of r
// grown by padding on all sides.
func RectOutline(r math.Rect, padding float32) []float32 {
	minX, minY := r.X-padding, r.Y-padding
	maxX, maxY := r.MaxX()+padding, r.MaxY()+padding
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return []float32{
		minX, minY, maxX, minY,
		maxX, minY, maxX, maxY,
		maxX, maxY, minX, maxY,
		minX, maxY, minX, minY,
	}
}

// CircleOutline approximates a circle with segments line segments.
func CircleOutline(center math.Vec2, radius float32, segments int) []float32 {
	if segments < 3 {
		segments = 3
	}
	out := make([]float32, 0, segments*4)
	step := 2 * stdmath.Pi / float64(segments)
	px, py := center.X+radius, center.Y
	for i := 1; i <= segments; i++ {
		a := step * float64(i)
		x := center.X + radius*float32(stdmath.Cos(a))
		y := center.Y + radius*float32(stdmath.Sin(a))
		out = append(out, px, py, x, y)
		px, py = x, y
	}
	return out
}

// NormalArrow returns a shaft from pos along n plus a two-stroke head.
// A zero normal yields nil.
func NormalArrow(pos, n math.Vec2, length float32) []float32 {
	if n.IsZero() {
		return nil
	}
	dir := n.Normalize()
	tip := pos.Add(dir.Scale(length))
	back := dir.Scale(-length * 0.3)
	side := dir.Perp().Scale(length * 0.2)
	l := tip.Add(back).Add(side)
	r := tip.Add(back).Sub(side)
	return []float32{
		pos.X, pos.Y, tip.X, tip.Y,
		tip.X, tip.Y, l.X, l.Y,
		tip.X, tip.Y, r.X, r.Y,
	}
}
