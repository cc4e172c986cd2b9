package main

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/debug"
	"github.com/Faultbox/craterfield/internal/engine/texture"
	"github.com/Faultbox/craterfield/internal/level"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/internal/preprocess"
	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/formats"
	"github.com/Faultbox/craterfield/pkg/math"
)

// errNoTerrain is returned by operations that need a loaded level.
var errNoTerrain = errors.New("no terrain loaded")

// labBodyRadius is the radius of bodies dropped from the preview.
const labBodyRadius = 2

// lab is the state behind the panels. It has no imgui or GL dependency.
type lab struct {
	cfg       *config.Config
	prefsPath string // empty: user config directory

	source image.Image // bitmap for Rebuild; nil when opened from a .crm
	name   string
	stats  preprocess.Stats
	level  *level.Level

	frameTime *math.MovingAverage

	// normals is the normal map of the current raster; dirty is set when it
	// changed and the preview texture needs a refresh.
	normals *image.RGBA
	dirty   bool

	// onHole, if set, runs after every crater (sound).
	onHole func()
}

func newLab(cfg *config.Config) *lab {
	return &lab{
		cfg:       cfg,
		frameTime: math.NewMovingAverage(60),
	}
}

// preprocessOptions reads the preprocess section of the config.
func (l *lab) preprocessOptions() preprocess.Options {
	opts := preprocess.DefaultOptions()
	if l.cfg.Preprocess.SmoothRadius > 0 {
		opts.SmoothRadius = l.cfg.Preprocess.SmoothRadius
	}
	opts.ProgressEvery = 0
	if mode, ok := preprocess.ParseBorderMode(l.cfg.Preprocess.Border); ok {
		opts.Border = mode
	}
	return opts
}

// open loads a .crm collision map or preprocesses any other image.
func (l *lab) open(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".crm") {
		return l.openCRM(path)
	}
	img, err := texture.LoadImage(path)
	if err != nil {
		return err
	}
	return l.openImage(path, texture.ToRGBA(img, true))
}

// openImage preprocesses img and makes it the current terrain.
func (l *lab) openImage(name string, img image.Image) error {
	l.source = img
	l.name = name
	return l.rebuild()
}

// openCRM loads a collision map as the current terrain.
func (l *lab) openCRM(path string) error {
	crm, err := formats.ParseCRMFile(path)
	if err != nil {
		return err
	}
	solid, edge, interior := crm.CountSolid()
	r, err := crm.Raster()
	if err != nil {
		return err
	}
	l.source = nil
	l.name = path
	l.stats = preprocess.Stats{
		Width:    r.Width(),
		Height:   r.Height(),
		Solid:    solid,
		Edge:     edge,
		Interior: interior,
	}
	return l.setRaster(r)
}

// rebuild preprocesses the source bitmap again with the current settings.
// Craters punched so far are discarded.
func (l *lab) rebuild() error {
	if l.source == nil {
		return errNoTerrain
	}
	r, stats := preprocess.Build(l.source, l.preprocessOptions())
	if r == nil {
		return fmt.Errorf("%s: empty image", l.name)
	}
	l.stats = stats
	logger.Info("terrain rebuilt",
		zap.String("source", l.name),
		zap.Int("edge", stats.Edge),
		zap.Int("degenerate", stats.Degenerate))
	return l.setRaster(r)
}

func (l *lab) setRaster(r *collision.Raster) error {
	lv, err := level.New(r, nil, nil, l.cfg.Level.TileSize, level.OptionsFromConfig(l.cfg.Physics))
	if err != nil {
		return fmt.Errorf("creating level: %w", err)
	}
	lv.OnHole = func(x, y float32, radius int) {
		l.refresh()
		if l.onHole != nil {
			l.onHole()
		}
	}
	if l.level != nil {
		l.level.Close()
	}
	l.level = lv
	l.refresh()
	return nil
}

func (l *lab) refresh() {
	l.normals = debug.NormalMapImage(l.level.Raster())
	l.dirty = true
}

// toLevel converts preview pixel coordinates (row 0 at the top) to level space.
func (l *lab) toLevel(px, py float32) math.Vec2 {
	return math.Vec2{X: px, Y: float32(l.level.Raster().Height()) - py}
}

// punch cuts a crater of the configured radius at preview pixel (px, py).
func (l *lab) punch(px, py float32) error {
	if l.level == nil {
		return errNoTerrain
	}
	p := l.toLevel(px, py)
	return l.level.AddHole(p.X, p.Y, l.cfg.Physics.CraterRadius)
}

// drop spawns an explosive body at preview pixel (px, py).
func (l *lab) drop(px, py float32) error {
	if l.level == nil {
		return errNoTerrain
	}
	b := l.level.NewBody(l.toLevel(px, py), labBodyRadius)
	b.Explosive = true
	l.level.Spawn(b)
	return nil
}

// step advances the simulation and records the frame time.
func (l *lab) step(dt float32) {
	l.frameTime.Add(float64(dt) * 1000)
	if l.level == nil {
		return
	}
	if err := l.level.Step(min(dt, 1.0/30)); err != nil {
		logger.Warn("level step", zap.Error(err))
	}
}

// bodyCount returns the number of live bodies.
func (l *lab) bodyCount() int {
	if l.level == nil {
		return 0
	}
	return len(l.level.Bodies())
}

// applyPhysics pushes the physics section of the config into the live level
// and saves it.
func (l *lab) applyPhysics() {
	if l.level != nil {
		l.level.SetOptions(level.OptionsFromConfig(l.cfg.Physics))
	}
	l.savePrefs()
}

// saveCRM writes the current, cratered raster.
func (l *lab) saveCRM(path string) error {
	if l.level == nil {
		return errNoTerrain
	}
	return l.level.SaveRaster(path)
}

func (l *lab) savePrefs() {
	var err error
	if l.prefsPath != "" {
		err = l.cfg.SaveTo(l.prefsPath)
	} else {
		err = l.cfg.Save()
	}
	if err != nil {
		logger.Warn("preferences not saved", zap.Error(err))
	}
}

func (l *lab) close() {
	if l.level != nil {
		l.level.Close()
	}
}
