// Package level ties the collision raster, the tile cache and the bodies
// moving through them into one destructible level.
package level

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/texture"
	"github.com/Faultbox/craterfield/internal/engine/tiles"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/internal/shapes"
	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/formats"
	"github.com/Faultbox/craterfield/pkg/math"
)

// ErrNoRaster is returned by New without a collision raster.
var ErrNoRaster = errors.New("level has no collision raster")

// Options tunes the simulation.
type Options struct {
	Gravity      float32 // pixels/s², applied toward -y
	Friction     float32 // default for spawned bodies
	Bounce       float32 // default for spawned bodies
	Project      collision.ProjectOptions
	CraterRadius int
	// BlastRange is the reach of a crater's push as a multiple of its radius.
	BlastRange float32
	// BlastImpulse is the speed given to a body at the crater centre; it
	// falls off linearly to zero at the edge of the blast.
	BlastImpulse float32
	// KillMargin is how far past the left, right or bottom edge a body may
	// travel before it is removed.
	KillMargin float32
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Gravity:      400,
		Friction:     0.8,
		Bounce:       0.5,
		Project:      collision.DefaultProjectOptions(),
		CraterRadius: 24,
		BlastRange:   2,
		BlastImpulse: 300,
		KillMargin:   64,
	}
}

// OptionsFromConfig maps the physics config section onto Options.
func OptionsFromConfig(p config.PhysicsConfig) Options {
	opts := DefaultOptions()
	opts.Gravity = p.Gravity
	opts.Friction = p.Friction
	opts.Bounce = p.Bounce
	opts.Project = collision.ProjectOptions{Step: p.ProjectionStep, MaxSteps: p.MaxProjectionSteps}
	opts.CraterRadius = p.CraterRadius
	return opts
}

// HoleFunc is called after a crater has been punched.
type HoleFunc func(x, y float32, radius int)

// Level owns a raster, its optional visual tile cache and the live bodies.
type Level struct {
	raster *collision.Raster
	tiles  *tiles.Cache
	bodies []*Body
	opts   Options

	// OnHole, if set, is called after every AddHole.
	OnHole HoleFunc
}

// New creates a level over r. When visual and up are both non-nil the
// visual is split into a tile cache of tileSize.
func New(r *collision.Raster, visual image.Image, up tiles.Uploader, tileSize int, opts Options) (*Level, error) {
	if r == nil {
		return nil, ErrNoRaster
	}
	l := &Level{raster: r, opts: opts}

	if visual != nil && up != nil {
		b := visual.Bounds()
		if b.Dx() != r.Width() || b.Dy() != r.Height() {
			logger.Warn("visual map size differs from collision map",
				zap.Int("visualWidth", b.Dx()),
				zap.Int("visualHeight", b.Dy()),
				zap.Int("rasterWidth", r.Width()),
				zap.Int("rasterHeight", r.Height()))
		}
		cache, err := tiles.New(visual, tileSize, up)
		if err != nil {
			return nil, fmt.Errorf("building tile cache: %w", err)
		}
		l.tiles = cache
	}
	return l, nil
}

// Load reads the level assets named in cfg.
func Load(cfg *config.Config, up tiles.Uploader) (*Level, error) {
	r, err := formats.LoadRaster(cfg.Level.CollisionMap)
	if err != nil {
		return nil, fmt.Errorf("loading collision map: %w", err)
	}

	var visual image.Image
	if cfg.Level.VisualMap != "" {
		img, err := texture.LoadRGBA(cfg.Level.VisualMap, true)
		if err != nil {
			return nil, fmt.Errorf("loading visual map: %w", err)
		}
		visual = img
	}

	l, err := New(r, visual, up, cfg.Level.TileSize, OptionsFromConfig(cfg.Physics))
	if err != nil {
		return nil, err
	}

	logger.Info("level loaded",
		zap.String("collision", cfg.Level.CollisionMap),
		zap.String("visual", cfg.Level.VisualMap),
		zap.Int("width", r.Width()),
		zap.Int("height", r.Height()),
		zap.Int("solid", r.CountSolid()))
	return l, nil
}

// Raster returns the collision raster.
func (l *Level) Raster() *collision.Raster { return l.raster }

// Tiles returns the tile cache, or nil for a level without visuals.
func (l *Level) Tiles() *tiles.Cache { return l.tiles }

// Options returns the simulation tuning.
func (l *Level) Options() Options { return l.opts }

// SetOptions retunes the simulation. Bodies already spawned keep their own
// friction and bounce.
func (l *Level) SetOptions(opts Options) { l.opts = opts }

// Bounds returns the level rectangle in level space.
func (l *Level) Bounds() math.Rect {
	return math.Rect{W: float32(l.raster.Width()), H: float32(l.raster.Height())}
}

// AddHole punches a crater into the raster and the tiles, pushes nearby
// bodies away from its centre and fires OnHole. A tile re-upload failure
// is returned after the raster has already been updated.
func (l *Level) AddHole(x, y float32, radius int) error {
	if radius < 0 {
		return nil
	}
	l.raster.AddHole(x, y, radius)

	var err error
	if l.tiles != nil {
		err = l.tiles.AddHole(x, y, radius)
	}

	l.blast(math.Vec2{X: x, Y: y}, float32(radius))

	logger.Debug("crater",
		zap.Float32("x", x),
		zap.Float32("y", y),
		zap.Int("radius", radius))

	if l.OnHole != nil {
		l.OnHole(x, y, radius)
	}
	return err
}

// blast pushes bodies touching the blast circle away from center.
func (l *Level) blast(center math.Vec2, radius float32) {
	reach := radius * l.opts.BlastRange
	if reach <= 0 || l.opts.BlastImpulse == 0 {
		return
	}
	area := shapes.Circle(center.X, center.Y, reach)
	for _, b := range l.bodies {
		hit, err := shapes.Hit(area, b.Shape())
		if err != nil || !hit {
			continue
		}
		d := b.Position.Sub(center)
		dist := d.Length()
		dir := d.Normalize()
		if dir.IsZero() {
			dir = math.Vec2{Y: 1}
		}
		falloff := 1 - dist/(reach+b.Radius)
		if falloff < 0 {
			falloff = 0
		}
		b.Velocity = b.Velocity.Add(dir.Scale(l.opts.BlastImpulse * falloff))
	}
}

// Render draws the tiles overlapping view. Levels without visuals draw nothing.
func (l *Level) Render(d tiles.Drawer, view math.Rect) int {
	if l.tiles == nil {
		return 0
	}
	return l.tiles.Render(d, view)
}

// SaveRaster writes the current, cratered raster as a .crm file.
func (l *Level) SaveRaster(path string) error {
	return formats.WriteCRMFile(path, l.raster)
}

// Close releases the tile textures. The raster stays usable; later holes
// and renders skip the tiles. Safe to call more than once.
func (l *Level) Close() {
	if l.tiles != nil {
		l.tiles.Close()
		l.tiles = nil
	}
	l.bodies = nil
}
