// Package game implements the crater viewer loop.
package game

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/audio"
	"github.com/Faultbox/craterfield/internal/engine/camera"
	"github.com/Faultbox/craterfield/internal/engine/debug"
	"github.com/Faultbox/craterfield/internal/engine/input"
	"github.com/Faultbox/craterfield/internal/engine/renderer"
	"github.com/Faultbox/craterfield/internal/engine/window"
	"github.com/Faultbox/craterfield/internal/level"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/pkg/math"
)

// Title is the window title prefix.
const Title = "Craterfield"

// maxStep caps a single physics step so a stalled frame cannot tunnel
// bodies through thin terrain.
const maxStep = 1.0 / 30

// Music fade rates, in volume per second.
const (
	musicFadeIn  = 0.5
	musicFadeOut = 1.0
)

var (
	bodyColor      = [4]float32{0.95, 0.85, 0.2, 1}
	explosiveColor = [4]float32{0.9, 0.2, 0.1, 1}
	gridColor      = [4]float32{1, 1, 1, 0.35}
	normalColor    = [4]float32{0.1, 1, 0.4, 0.9}
)

// Game is the viewer instance.
type Game struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.Camera
	audio    *audio.Manager
	level    *level.Level

	craterSFX   *audio.SoundSet
	screenshots *debug.ScreenshotCapture
	grid        *debug.TileGrid
	frameTime   *math.MovingAverage

	paused       bool
	showGrid     bool
	showNormals  bool
	panning      bool
	musicStarted bool
	actions      []action

	// prefsPath overrides where toggled preferences are written; empty means
	// the user config directory.
	prefsPath string
}

// New creates the window, renderer, audio and level described by cfg.
func New(cfg *config.Config) (*Game, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("level", cfg.Level.CollisionMap))

	g := &Game{
		cfg:         cfg,
		input:       input.New(),
		camera:      camera.New(cfg.Graphics.Width, cfg.Graphics.Height),
		frameTime:   math.NewMovingAverage(60),
		screenshots: debug.NewScreenshotCapture("screenshots", "crater"),
	}

	// Create window (this also creates OpenGL context)
	var err error
	g.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer needs the GL context; size it to the drawable for high-DPI.
	dw, dh := g.window.DrawableSize()
	g.renderer, err = renderer.New(renderer.Config{
		Width:  dw,
		Height: dh,
		VSync:  cfg.Graphics.VSync,
	})
	if err != nil {
		g.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	g.level, err = level.Load(cfg, g.renderer)
	if err != nil {
		g.Close()
		return nil, err
	}
	g.level.OnHole = g.onHole
	g.grid = debug.NewTileGrid(g.level.Raster().Width(), g.level.Raster().Height(), cfg.Level.TileSize)

	b := g.level.Bounds()
	g.camera.FitToBounds(b.W, b.H)

	g.initAudio()

	logger.Info("viewer initialized")
	return g, nil
}

// initAudio starts the audio device and, unless muted, the music.
// Failures only disable sound.
func (g *Game) initAudio() {
	ac := g.cfg.Audio
	m := audio.New()
	if err := m.Init(); err != nil {
		logger.Warn("audio disabled", zap.Error(err))
		return
	}
	m.SetMasterVolume(float64(ac.MasterVolume))
	m.SetBGMVolume(float64(ac.MusicVolume))
	m.SetSFXVolume(float64(ac.SFXVolume))
	g.audio = m

	if len(ac.CraterSFX) > 0 {
		set, err := audio.LoadSoundSet(ac.CraterSFX)
		if err != nil {
			logger.Warn("crater sounds not loaded", zap.Error(err))
		} else {
			g.craterSFX = set
		}
	}

	if !ac.Muted {
		g.startMusic()
	}
}

func (g *Game) startMusic() {
	path := g.cfg.Audio.Music
	if g.audio == nil || path == "" {
		return
	}
	g.musicStarted = true
	data, err := os.ReadFile(path)
	if err == nil {
		err = g.audio.PlayBGMFade(data, path, true, musicFadeIn, musicFadeOut)
	}
	if err != nil {
		logger.Warn("music not started", zap.String("path", path), zap.Error(err))
	}
}

// applyMute fades the music out or back in to match cfg.Audio.Muted.
func (g *Game) applyMute() {
	if g.audio == nil {
		return
	}
	switch {
	case g.cfg.Audio.Muted:
		g.audio.FadeOutBGM(false)
	case g.musicStarted:
		g.audio.FadeInBGM()
	default:
		g.startMusic()
	}
}

// savePrefs writes the config back so toggles survive a restart.
func (g *Game) savePrefs() {
	var err error
	if g.prefsPath != "" {
		err = g.cfg.SaveTo(g.prefsPath)
	} else {
		err = g.cfg.Save()
	}
	if err != nil {
		logger.Warn("preferences not saved", zap.Error(err))
	}
}

// Run starts the main loop and returns when the window is closed.
func (g *Game) Run() error {
	g.running = true

	lastTime := time.Now()
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for g.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now
		g.frameTime.Add(dt * 1000)

		// 1. Process input
		if g.input.Update() {
			break
		}
		for _, event := range g.input.Events() {
			g.handleEvent(event)
		}
		g.runActions()

		// 2. Update
		if err := g.update(float32(dt)); err != nil {
			return fmt.Errorf("update error: %w", err)
		}

		// 3. Render
		g.render()
		g.window.SwapBuffers()

		if time.Since(fpsTimer) >= time.Second {
			g.window.SetTitle(frameTitle(g.frameTime.Value(), len(g.level.Bodies())))
			fpsTimer = time.Now()
		}

		if d := frameDelay(g.cfg.Graphics.FPSLimit, time.Since(now)); d > 0 {
			time.Sleep(d)
		}
	}

	return nil
}

// frameDelay returns how long to sleep after a frame that took elapsed so
// the loop runs at no more than limit frames per second. limit <= 0 means
// uncapped.
func frameDelay(limit int, elapsed time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	budget := time.Second / time.Duration(limit)
	if elapsed >= budget {
		return 0
	}
	return budget - elapsed
}

// frameTitle formats the window title from the average frame time in ms.
func frameTitle(avgMS float64, bodies int) string {
	fps := 0.0
	if avgMS > 0 {
		fps = 1000 / avgMS
	}
	return fmt.Sprintf("%s - %.0f fps (%.2f ms) - %d bodies", Title, fps, avgMS, bodies)
}

// Close cleans up viewer resources.
func (g *Game) Close() {
	logger.Info("closing viewer")

	if g.audio != nil {
		g.audio.Close()
	}
	if g.level != nil {
		g.level.Close()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}

func (g *Game) update(dt float32) error {
	right := g.input.Axis(keyLeft, keyRight)
	up := g.input.Axis(keyDown, keyUp)
	if right != 0 || up != 0 {
		g.camera.HandleMovement(right, up, dt)
	}
	b := g.level.Bounds()
	g.camera.ClampTo(b.W, b.H)

	if g.audio != nil {
		g.audio.UpdateBGM(float64(dt))
	}

	if g.paused {
		return nil
	}
	for dt > 0 {
		step := min(dt, maxStep)
		if err := g.level.Step(step); err != nil {
			// Tile upload failures leave the picture stale but the raster
			// correct; keep running.
			logger.Warn("level step", zap.Error(err))
		}
		dt -= step
	}
	return nil
}

func (g *Game) render() {
	view := g.camera.View()

	g.renderer.Begin(g.camera.Projection())
	g.level.Render(g.renderer, view)

	for _, b := range g.level.Bodies() {
		c := bodyColor
		if b.Explosive {
			c = explosiveColor
		}
		r := max(b.Radius, 1)
		g.renderer.DrawRect(math.Rect{X: b.Position.X - r, Y: b.Position.Y - r, W: 2 * r, H: 2 * r}, c)
	}

	if g.showGrid {
		g.renderer.DrawLines(g.grid.Lines(view), gridColor)
	}
	if g.showNormals {
		stride := max(1, int(2/g.camera.Zoom))
		g.renderer.DrawLines(debug.NormalField(g.level.Raster(), view, stride, debug.DefaultArrowLength), normalColor)
	}
	g.renderer.End()
}

func (g *Game) onHole(x, y float32, radius int) {
	if g.audio == nil || g.craterSFX == nil || g.cfg.Audio.Muted {
		return
	}
	if err := g.audio.PlaySet(g.craterSFX, 1); err != nil {
		logger.Debug("crater sound", zap.Error(err))
	}
}
