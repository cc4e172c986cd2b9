// craterlab is a tuning bench for terrain preprocessing and crater physics.
// It shows the normal map of a level in an imgui window with live sliders
// for the preprocess, physics and audio settings.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/audio"
	"github.com/Faultbox/craterfield/internal/logger"
)

var flagImage = flag.String("image", "", "Level image or .crm to open")

func main() {
	runtime.LockOSThread()

	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to create lab", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	path := *flagImage
	if path == "" {
		path = cfg.Level.CollisionMap
	}
	if path != "" {
		app.open(path)
	}

	app.Run()
}

// App is the imgui front end around a lab.
type App struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	lab     *lab

	audio     *audio.Manager
	craterSFX *audio.SoundSet

	preview *backend.Texture
	zoom    float32

	// Set by the dialog goroutine, consumed on the main thread.
	pendingOpen string
	pendingSave string

	status string
}

// NewApp creates the window and audio device.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		lab:  newLab(cfg),
		zoom: 1,
	}

	var err error
	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("creating imgui backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow("Craterlab", cfg.Graphics.Width, cfg.Graphics.Height)

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initializing OpenGL: %w", err)
	}

	app.initAudio()
	app.lab.onHole = app.playCrater
	return app, nil
}

func (app *App) initAudio() {
	ac := app.lab.cfg.Audio
	m := audio.New()
	if err := m.Init(); err != nil {
		logger.Warn("audio disabled", zap.Error(err))
		return
	}
	m.SetMasterVolume(float64(ac.MasterVolume))
	m.SetSFXVolume(float64(ac.SFXVolume))
	app.audio = m

	if len(ac.CraterSFX) == 0 {
		return
	}
	set, err := audio.LoadSoundSet(ac.CraterSFX)
	if err != nil {
		logger.Warn("crater sounds not loaded", zap.Error(err))
		return
	}
	app.craterSFX = set
}

func (app *App) playCrater() {
	if app.audio == nil || app.craterSFX == nil || app.lab.cfg.Audio.Muted {
		return
	}
	if err := app.audio.PlaySet(app.craterSFX, 1); err != nil {
		logger.Debug("crater sound", zap.Error(err))
	}
}

// Close releases the preview texture, the level and the audio device.
func (app *App) Close() {
	if app.preview != nil {
		app.preview.Release()
		app.preview = nil
	}
	app.lab.close()
	if app.audio != nil {
		app.audio.Close()
	}
}

// Run starts the main loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

func (app *App) open(path string) {
	if err := app.lab.open(path); err != nil {
		logger.Error("open failed", zap.String("path", path), zap.Error(err))
		app.status = err.Error()
		return
	}
	app.status = fmt.Sprintf("opened %s", filepath.Base(path))
	app.backend.SetWindowTitle(fmt.Sprintf("Craterlab - %s", filepath.Base(path)))
}

func (app *App) openDialog() {
	go func() {
		path, err := dialog.File().
			Filter("Levels", "png", "bmp", "tga", "crm").
			Filter("All Files", "*").
			Title("Open level").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Warn("file dialog", zap.Error(err))
			}
			return
		}
		app.pendingOpen = path
	}()
}

func (app *App) saveDialog() {
	go func() {
		path, err := dialog.File().
			Filter("Collision maps", "crm").
			Title("Save collision map").
			Save()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Warn("file dialog", zap.Error(err))
			}
			return
		}
		app.pendingSave = path
	}()
}

func (app *App) render() {
	if app.pendingOpen != "" {
		path := app.pendingOpen
		app.pendingOpen = ""
		app.open(path)
	}
	if app.pendingSave != "" {
		path := app.pendingSave
		app.pendingSave = ""
		if err := app.lab.saveCRM(path); err != nil {
			app.status = err.Error()
		} else {
			app.status = fmt.Sprintf("saved %s", filepath.Base(path))
		}
	}

	app.lab.step(imgui.CurrentIO().DeltaTime())
	app.syncPreview()

	imgui.SetNextWindowPos(imgui.NewVec2(0, 0))
	imgui.SetNextWindowSize(imgui.NewVec2(300, float32(app.lab.cfg.Graphics.Height)))
	flags := imgui.WindowFlagsNoResize | imgui.WindowFlagsNoMove | imgui.WindowFlagsNoCollapse
	if imgui.BeginV("Settings", nil, flags) {
		app.renderFilePanel()
		imgui.Separator()
		app.renderPreprocessPanel()
		imgui.Separator()
		app.renderPhysicsPanel()
		imgui.Separator()
		app.renderAudioPanel()
		imgui.Separator()
		app.renderStats()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(300, 0))
	imgui.SetNextWindowSize(imgui.NewVec2(
		float32(app.lab.cfg.Graphics.Width-300),
		float32(app.lab.cfg.Graphics.Height)))
	if imgui.BeginV("Terrain", nil, flags|imgui.WindowFlagsHorizontalScrollbar) {
		app.renderPreview()
	}
	imgui.End()
}

// syncPreview re-uploads the normal map after it changed.
func (app *App) syncPreview() {
	if !app.lab.dirty || app.lab.normals == nil {
		return
	}
	if app.preview != nil {
		app.preview.Release()
	}
	app.preview = backend.NewTextureFromRgba(app.lab.normals)
	app.lab.dirty = false
}

func (app *App) renderFilePanel() {
	if imgui.Button("Open...") {
		app.openDialog()
	}
	imgui.SameLine()
	if imgui.Button("Save .crm...") {
		app.saveDialog()
	}
	if app.status != "" {
		imgui.TextDisabled(app.status)
	}
}

func (app *App) renderPreprocessPanel() {
	pc := &app.lab.cfg.Preprocess
	imgui.Text("Preprocess")

	radius := int32(pc.SmoothRadius)
	if imgui.SliderIntV("Smooth radius", &radius, 1, 16, "%d", imgui.SliderFlagsNone) {
		pc.SmoothRadius = int(radius)
	}
	solid := pc.Border == "solid"
	if imgui.Checkbox("Solid border", &solid) {
		pc.Border = "blank"
		if solid {
			pc.Border = "solid"
		}
	}
	if app.lab.source == nil {
		imgui.TextDisabled("(open an image to rebuild)")
		return
	}
	if imgui.Button("Rebuild") {
		if err := app.lab.rebuild(); err != nil {
			app.status = err.Error()
		}
		app.lab.savePrefs()
	}
}

func (app *App) renderPhysicsPanel() {
	pc := &app.lab.cfg.Physics
	imgui.Text("Physics")

	imgui.SliderFloatV("Gravity", &pc.Gravity, 0, 2000, "%.0f", imgui.SliderFlagsNone)
	if imgui.IsItemDeactivatedAfterEdit() {
		app.lab.applyPhysics()
	}
	imgui.SliderFloatV("Friction", &pc.Friction, 0, 1, "%.2f", imgui.SliderFlagsNone)
	if imgui.IsItemDeactivatedAfterEdit() {
		app.lab.applyPhysics()
	}
	imgui.SliderFloatV("Bounce", &pc.Bounce, 0, 1, "%.2f", imgui.SliderFlagsNone)
	if imgui.IsItemDeactivatedAfterEdit() {
		app.lab.applyPhysics()
	}
	radius := int32(pc.CraterRadius)
	if imgui.SliderIntV("Crater radius", &radius, 1, 128, "%d", imgui.SliderFlagsNone) {
		pc.CraterRadius = int(radius)
	}
	if imgui.IsItemDeactivatedAfterEdit() {
		app.lab.applyPhysics()
	}
}

func (app *App) renderAudioPanel() {
	ac := &app.lab.cfg.Audio
	imgui.Text("Audio")

	imgui.SliderFloatV("Master", &ac.MasterVolume, 0, 1, "%.2f", imgui.SliderFlagsNone)
	if imgui.IsItemDeactivatedAfterEdit() {
		if app.audio != nil {
			app.audio.SetMasterVolume(float64(ac.MasterVolume))
		}
		app.lab.savePrefs()
	}
	imgui.SliderFloatV("Effects", &ac.SFXVolume, 0, 1, "%.2f", imgui.SliderFlagsNone)
	if imgui.IsItemDeactivatedAfterEdit() {
		if app.audio != nil {
			app.audio.SetSFXVolume(float64(ac.SFXVolume))
		}
		app.lab.savePrefs()
	}
	if imgui.Checkbox("Muted", &ac.Muted) {
		app.lab.savePrefs()
	}
	if app.audio == nil {
		imgui.TextDisabled("(no audio device)")
	}
}

func (app *App) renderStats() {
	s := app.lab.stats
	imgui.Text(fmt.Sprintf("Frame: %.2f ms", app.lab.frameTime.Value()))
	imgui.Text(fmt.Sprintf("Bodies: %d", app.lab.bodyCount()))
	imgui.Text(fmt.Sprintf("Size: %dx%d", s.Width, s.Height))
	imgui.Text(fmt.Sprintf("Solid: %d  Edge: %d", s.Solid, s.Edge))
	imgui.Text(fmt.Sprintf("Interior: %d  Degenerate: %d", s.Interior, s.Degenerate))
}

func (app *App) renderPreview() {
	if app.preview == nil {
		imgui.TextDisabled("Open a level image or .crm file")
		return
	}

	imgui.SliderFloatV("Zoom", &app.zoom, 0.25, 4, "%.2f", imgui.SliderFlagsNone)
	imgui.SameLine()
	imgui.TextDisabled("(left click: crater, right click: drop body)")

	r := app.lab.level.Raster()
	imgui.ImageWithBgV(
		app.preview.ID,
		imgui.NewVec2(float32(r.Width())*app.zoom, float32(r.Height())*app.zoom),
		imgui.NewVec2(0, 0),
		imgui.NewVec2(1, 1),
		imgui.NewVec4(0.05, 0.05, 0.05, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)
	if !imgui.IsItemHovered() {
		return
	}

	origin := imgui.ItemRectMin()
	mouse := imgui.MousePos()
	px := (mouse.X - origin.X) / app.zoom
	py := (mouse.Y - origin.Y) / app.zoom

	if imgui.IsItemClicked() {
		if err := app.lab.punch(px, py); err != nil {
			logger.Warn("crater", zap.Error(err))
		}
	}
	if imgui.IsItemClickedV(imgui.MouseButtonRight) {
		if err := app.lab.drop(px, py); err != nil {
			logger.Warn("drop", zap.Error(err))
		}
	}
}
