// Package renderer provides the OpenGL 2D renderer for tiles, bodies and
// debug overlays.
package renderer

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/engine/tiles"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/pkg/math"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	VSync      bool
	ClearColor [4]float32
}

// DefaultClearColor is the sky behind the terrain.
var DefaultClearColor = [4]float32{0.42, 0.62, 0.85, 1.0}

// Renderer handles all OpenGL rendering.
// It must only be used on the thread that owns the GL context.
type Renderer struct {
	config Config

	program  uint32
	uniforms uniforms

	quadVAO uint32
	quadVBO uint32

	lineVAO uint32
	lineVBO uint32
	lineCap int

	proj     math.Mat4
	textures map[tiles.TextureID]struct{}
}

var (
	_ tiles.Uploader = (*Renderer)(nil)
	_ tiles.Drawer   = (*Renderer)(nil)
)

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if cfg.ClearColor == ([4]float32{}) {
		cfg.ClearColor = DefaultClearColor
	}
	r := &Renderer{
		config:   cfg,
		proj:     math.Identity(),
		textures: make(map[tiles.TextureID]struct{}),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	// Terrain tiles carry alpha where craters were punched.
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	var err error
	r.program, err = compileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}
	r.uniforms = lookupUniforms(r.program)

	r.createQuad()
	r.createLineBuffer(64)

	return r, nil
}

// Close cleans up renderer resources, including textures that were never
// released.
func (r *Renderer) Close() {
	logger.Info("closing renderer", zap.Int("textures", len(r.textures)))
	for id := range r.textures {
		r.Release(id)
	}
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
	}
	if r.quadVBO != 0 {
		gl.DeleteBuffers(1, &r.quadVBO)
	}
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
	}
	if r.lineVBO != 0 {
		gl.DeleteBuffers(1, &r.lineVBO)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Size returns the current viewport size.
func (r *Renderer) Size() (width, height int) {
	return r.config.Width, r.config.Height
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame with the given level-to-clip projection.
func (r *Renderer) Begin(proj math.Mat4) {
	r.proj = proj
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uniforms.proj, 1, false, r.proj.Ptr())
	gl.Uniform1i(r.uniforms.tex, 0)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

// DrawTile draws a tile texture at a level-space rectangle.
func (r *Renderer) DrawTile(id tiles.TextureID, x, y, w, h float32) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	r.drawQuad(x, y, w, h, [4]float32{1, 1, 1, 1}, true)
}

// DrawRect draws a solid rectangle in level space.
func (r *Renderer) DrawRect(rect math.Rect, color [4]float32) {
	r.drawQuad(rect.X, rect.Y, rect.W, rect.H, color, false)
}

func (r *Renderer) drawQuad(x, y, w, h float32, color [4]float32, textured bool) {
	gl.Uniform1i(r.uniforms.mode, modeQuad)
	gl.Uniform4f(r.uniforms.rect, x, y, w, h)
	gl.Uniform4f(r.uniforms.color, color[0], color[1], color[2], color[3])
	if textured {
		gl.Uniform1i(r.uniforms.textured, 1)
	} else {
		gl.Uniform1i(r.uniforms.textured, 0)
	}
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

// DrawLines draws line segments given as consecutive (x, y) level-space
// pairs, two points per segment.
func (r *Renderer) DrawLines(vertices []float32, color [4]float32) {
	if len(vertices) < 4 {
		return
	}
	if len(vertices) > r.lineCap {
		r.growLineBuffer(len(vertices))
	}

	gl.Uniform1i(r.uniforms.mode, modeLines)
	gl.Uniform1i(r.uniforms.textured, 0)
	gl.Uniform4f(r.uniforms.color, color[0], color[1], color[2], color[3])

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))
	gl.DrawArrays(gl.LINES, 0, int32(len(vertices)/2))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// ReadPixels reads back the framebuffer as tightly packed RGBA, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	return pixels, w, h
}

// createQuad builds the unit quad every tile and rectangle is scaled from.
func (r *Renderer) createQuad() {
	vertices := []float32{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	}

	gl.GenVertexArrays(1, &r.quadVAO)
	gl.BindVertexArray(r.quadVAO)

	gl.GenBuffers(1, &r.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	logger.Debug("quad created",
		zap.Uint32("vao", r.quadVAO),
		zap.Uint32("vbo", r.quadVBO),
	)
}

func (r *Renderer) createLineBuffer(capacity int) {
	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)

	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*4, nil, gl.DYNAMIC_DRAW)
	r.lineCap = capacity

	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func (r *Renderer) growLineBuffer(n int) {
	capacity := r.lineCap
	for capacity < n {
		capacity *= 2
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*4, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	r.lineCap = capacity
}
