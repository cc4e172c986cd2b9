// Package shapes provides simple hit-test shapes for bodies and triggers.
//
// A Shape is a closed tagged variant: points, circles, axis-aligned
// rectangles and convex polygons. Hit dispatches on the pair of kinds.
package shapes

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/craterfield/pkg/math"
)

// Kind identifies a shape variant.
type Kind int

const (
	KindPoint Kind = iota
	KindCircle
	KindRect
	KindPolygon
)

// String returns the kind name used in logs and saved state.
func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindCircle:
		return "circle"
	case KindRect:
		return "rect"
	case KindPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrUnsupportedPair is returned by Hit for circle-polygon and
// rectangle-polygon tests.
var ErrUnsupportedPair = errors.New("unsupported shape pair")

// Shape is a hit-test shape in level space.
//
// X, Y is the point position, the circle center, the rectangle's
// bottom-left corner or the polygon's translation. Vertices are polygon
// (x, y) pairs relative to X, Y.
type Shape struct {
	Kind     Kind      `yaml:"kind"`
	X        float32   `yaml:"x"`
	Y        float32   `yaml:"y"`
	Radius   float32   `yaml:"r,omitempty"`
	W        float32   `yaml:"w,omitempty"`
	H        float32   `yaml:"h,omitempty"`
	Vertices []float32 `yaml:"vertices,omitempty"`
}

// Point returns a point shape.
func Point(x, y float32) Shape {
	return Shape{Kind: KindPoint, X: x, Y: y}
}

// Circle returns a circle centered at (x, y).
func Circle(x, y, radius float32) Shape {
	return Shape{Kind: KindCircle, X: x, Y: y, Radius: radius}
}

// Rect returns an axis-aligned rectangle with bottom-left corner (x, y).
func Rect(x, y, w, h float32) Shape {
	return Shape{Kind: KindRect, X: x, Y: y, W: w, H: h}
}

// Polygon returns a convex polygon from (x, y) vertex pairs.
func Polygon(vertices ...float32) Shape {
	v := make([]float32, len(vertices))
	copy(v, vertices)
	return Shape{Kind: KindPolygon, Vertices: v}
}

// Position returns the shape's anchor point.
func (s Shape) Position() math.Vec2 {
	return math.Vec2{X: s.X, Y: s.Y}
}

// Translate moves the shape by d.
func (s *Shape) Translate(d math.Vec2) {
	s.X += d.X
	s.Y += d.Y
}

// Bounds returns the axis-aligned bounding box.
func (s Shape) Bounds() math.Rect {
	switch s.Kind {
	case KindCircle:
		return math.Rect{X: s.X - s.Radius, Y: s.Y - s.Radius, W: 2 * s.Radius, H: 2 * s.Radius}
	case KindRect:
		return math.Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
	case KindPolygon:
		pts := s.points()
		if len(pts) == 0 {
			return math.Rect{X: s.X, Y: s.Y}
		}
		minX, minY := pts[0].X, pts[0].Y
		maxX, maxY := minX, minY
		for _, p := range pts[1:] {
			minX = min(minX, p.X)
			maxX = max(maxX, p.X)
			minY = min(minY, p.Y)
			maxY = max(maxY, p.Y)
		}
		return math.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
	default:
		return math.Rect{X: s.X, Y: s.Y}
	}
}

// points returns the polygon's vertices in level space.
func (s Shape) points() []math.Vec2 {
	pts := make([]math.Vec2, 0, len(s.Vertices)/2)
	for i := 0; i+1 < len(s.Vertices); i += 2 {
		pts = append(pts, math.Vec2{X: s.X + s.Vertices[i], Y: s.Y + s.Vertices[i+1]})
	}
	return pts
}

// Hit reports whether a and b overlap. The test is symmetric; pairs the
// package cannot test return ErrUnsupportedPair.
func Hit(a, b Shape) (bool, error) {
	if a.Kind > b.Kind {
		a, b = b, a
	}

	switch a.Kind {
	case KindPoint:
		switch b.Kind {
		case KindPoint:
			return a.X == b.X && a.Y == b.Y, nil
		case KindCircle:
			return pointInCircle(a.Position(), b), nil
		case KindRect:
			return b.Bounds().Contains(a.Position()), nil
		case KindPolygon:
			return pointInPolygon(a.Position(), b.points()), nil
		}
	case KindCircle:
		switch b.Kind {
		case KindCircle:
			r := a.Radius + b.Radius
			return a.Position().DistanceSq(b.Position()) < r*r, nil
		case KindRect:
			return circleOverlapsRect(a, b), nil
		}
	case KindRect:
		if b.Kind == KindRect {
			return rectsOverlap(a.Bounds(), b.Bounds()), nil
		}
	case KindPolygon:
		if b.Kind == KindPolygon {
			return convexPolygonsOverlap(a.points(), b.points()), nil
		}
	}

	switch {
	case a.Kind > KindPolygon || b.Kind > KindPolygon:
		return false, fmt.Errorf("unknown shape kinds %s, %s", a.Kind, b.Kind)
	default:
		return false, fmt.Errorf("%w: %s-%s", ErrUnsupportedPair, a.Kind, b.Kind)
	}
}

// pointInCircle uses a strict test: points on the circle miss.
func pointInCircle(p math.Vec2, c Shape) bool {
	return p.DistanceSq(c.Position()) < c.Radius*c.Radius
}

func circleOverlapsRect(c, r Shape) bool {
	b := r.Bounds()
	closest := math.Vec2{
		X: math.Clamp(c.X, b.X, b.MaxX()),
		Y: math.Clamp(c.Y, b.Y, b.MaxY()),
	}
	return closest.DistanceSq(c.Position()) < c.Radius*c.Radius
}

// rectsOverlap uses strict bounds so rectangles sharing an edge do not hit.
func rectsOverlap(a, b math.Rect) bool {
	return a.X < b.MaxX() && a.MaxX() > b.X && a.Y < b.MaxY() && a.MaxY() > b.Y
}

// pointInPolygon is the even-odd ray cast.
func pointInPolygon(p math.Vec2, pts []math.Vec2) bool {
	if len(pts) < 3 {
		return false
	}
	inside := false
	j := len(pts) - 1
	for i := range pts {
		a, b := pts[i], pts[j]
		if (a.Y < p.Y && b.Y >= p.Y) || (b.Y < p.Y && a.Y >= p.Y) {
			if a.X+(p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X) < p.X {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// convexPolygonsOverlap runs the separating axis test over both polygons'
// edge normals. Touching polygons overlap.
func convexPolygonsOverlap(a, b []math.Vec2) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return !hasSeparatingAxis(a, b) && !hasSeparatingAxis(b, a)
}

func hasSeparatingAxis(poly, other []math.Vec2) bool {
	for i := range poly {
		edge := poly[(i+1)%len(poly)].Sub(poly[i])
		axis := edge.Perp()
		min1, max1 := project(poly, axis)
		min2, max2 := project(other, axis)
		if max1 < min2 || max2 < min1 {
			return true
		}
	}
	return false
}

func project(pts []math.Vec2, axis math.Vec2) (lo, hi float32) {
	lo, hi = float32(stdmath.Inf(1)), float32(stdmath.Inf(-1))
	for _, p := range pts {
		d := p.Dot(axis)
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return lo, hi
}
