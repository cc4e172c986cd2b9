// Package camera provides the 2D camera that picks the visible part of a level.
package camera

import (
	"github.com/Faultbox/craterfield/pkg/math"
)

// Camera looks at a level from the side. Coordinates are level space
// (origin bottom-left, y up); Zoom is screen pixels per level pixel.
type Camera struct {
	// Center of the view in level space
	CenterX, CenterY float32

	Zoom float32

	// Viewport size in screen pixels
	ViewportW, ViewportH float32

	// Constraints
	MinZoom float32
	MaxZoom float32

	// Sensitivity
	PanSpeed        float32 // level pixels per second at zoom 1
	ZoomSensitivity float32
}

// New creates a camera for a viewport of the given size.
func New(viewportW, viewportH int) *Camera {
	return &Camera{
		Zoom:            1.0,
		ViewportW:       float32(viewportW),
		ViewportH:       float32(viewportH),
		MinZoom:         0.25,
		MaxZoom:         8.0,
		PanSpeed:        600.0,
		ZoomSensitivity: 0.1,
	}
}

// View returns the visible level-space rectangle.
func (c *Camera) View() math.Rect {
	w := c.ViewportW / c.Zoom
	h := c.ViewportH / c.Zoom
	return math.Rect{X: c.CenterX - w/2, Y: c.CenterY - h/2, W: w, H: h}
}

// Projection returns the level-to-clip matrix for the current view.
func (c *Camera) Projection() math.Mat4 {
	return math.OrthoRect(c.View())
}

// ScreenToLevel converts window coordinates (origin top-left, y down) to
// level coordinates.
func (c *Camera) ScreenToLevel(sx, sy float32) math.Vec2 {
	v := c.View()
	return math.Vec2{
		X: v.X + sx/c.Zoom,
		Y: v.MaxY() - sy/c.Zoom,
	}
}

// LevelToScreen is the inverse of ScreenToLevel.
func (c *Camera) LevelToScreen(p math.Vec2) (sx, sy float32) {
	v := c.View()
	return (p.X - v.X) * c.Zoom, (v.MaxY() - p.Y) * c.Zoom
}

// HandleDrag pans by a mouse drag delta in screen pixels.
func (c *Camera) HandleDrag(deltaX, deltaY float32) {
	c.CenterX -= deltaX / c.Zoom
	c.CenterY += deltaY / c.Zoom
}

// HandleZoom zooms by a scroll wheel delta, keeping the level point under
// (sx, sy) fixed on screen.
func (c *Camera) HandleZoom(delta, sx, sy float32) {
	anchor := c.ScreenToLevel(sx, sy)

	c.Zoom += delta * c.Zoom * c.ZoomSensitivity
	c.Zoom = math.Clamp(c.Zoom, c.MinZoom, c.MaxZoom)

	after := c.ScreenToLevel(sx, sy)
	c.CenterX += anchor.X - after.X
	c.CenterY += anchor.Y - after.Y
}

// HandleMovement pans from keyboard input; right and up are in [-1, 1].
func (c *Camera) HandleMovement(right, up, dt float32) {
	// Constant on-screen speed regardless of zoom
	speed := c.PanSpeed * dt / c.Zoom
	c.CenterX += right * speed
	c.CenterY += up * speed
}

// SetCenter sets the camera's center point.
func (c *Camera) SetCenter(x, y float32) {
	c.CenterX = x
	c.CenterY = y
}

// Resize updates the viewport size.
func (c *Camera) Resize(width, height int) {
	c.ViewportW = float32(width)
	c.ViewportH = float32(height)
}

// ClampTo keeps the view inside a level of the given size. On an axis where
// the view is larger than the level, the level is centred.
func (c *Camera) ClampTo(levelW, levelH float32) {
	v := c.View()
	c.CenterX = clampAxis(c.CenterX, v.W, levelW)
	c.CenterY = clampAxis(c.CenterY, v.H, levelH)
}

func clampAxis(center, span, size float32) float32 {
	if span >= size {
		return size / 2
	}
	return math.Clamp(center, span/2, size-span/2)
}

// FitToBounds zooms and centres so the whole level is visible.
func (c *Camera) FitToBounds(levelW, levelH float32) {
	c.SetCenter(levelW/2, levelH/2)
	if levelW <= 0 || levelH <= 0 {
		return
	}
	zoom := c.ViewportW / levelW
	if z := c.ViewportH / levelH; z < zoom {
		zoom = z
	}
	c.Zoom = math.Clamp(zoom, c.MinZoom, c.MaxZoom)
}
