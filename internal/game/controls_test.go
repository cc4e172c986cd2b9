package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/camera"
	"github.com/Faultbox/craterfield/internal/engine/input"
	"github.com/Faultbox/craterfield/internal/level"
	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/math"
)

// headless builds a Game around a 40×40 solid level with no window.
func headless(t *testing.T) *Game {
	t.Helper()
	pix := make([]collision.Pixel, 40*40)
	for i := range pix {
		pix[i] = collision.EncodeSolid(0, 0)
	}
	r, err := collision.FromPixels(40, 40, pix)
	if err != nil {
		t.Fatal(err)
	}
	opts := level.DefaultOptions()
	opts.CraterRadius = 4
	l, err := level.New(r, nil, nil, 16, opts)
	if err != nil {
		t.Fatal(err)
	}

	cam := camera.New(800, 600)
	cam.SetCenter(20, 20)
	return &Game{
		cfg:       config.Default(),
		prefsPath: filepath.Join(t.TempDir(), "config.yaml"),
		running:   true,
		input:     input.New(),
		camera:    cam,
		level:     l,
		frameTime: math.NewMovingAverage(10),
	}
}

func key(code sdl.Scancode) input.Event {
	return input.Event{Type: input.EventKeyDown, Key: code}
}

func TestToggleKeys(t *testing.T) {
	g := headless(t)

	g.handleEvent(key(keyGrid))
	g.handleEvent(key(keyNormals))
	g.handleEvent(key(keyPause))
	if !g.showGrid || !g.showNormals || !g.paused {
		t.Errorf("toggles = grid %v normals %v paused %v, want all on", g.showGrid, g.showNormals, g.paused)
	}

	repeat := key(keyGrid)
	repeat.Repeat = true
	g.handleEvent(repeat)
	if !g.showGrid {
		t.Error("key repeat should not toggle")
	}

	g.handleEvent(key(keyGrid))
	if g.showGrid {
		t.Error("second press should toggle off")
	}
}

func TestQueuedActions(t *testing.T) {
	g := headless(t)
	g.handleEvent(key(keyFullscreen))
	g.handleEvent(key(keyScreenshot))
	g.handleEvent(key(keyMusic))

	want := []action{actionFullscreen, actionScreenshot, actionToggleMusic}
	if len(g.actions) != len(want) {
		t.Fatalf("queued %v, want %v", g.actions, want)
	}
	for i := range want {
		if g.actions[i] != want[i] {
			t.Errorf("action %d = %v, want %v", i, g.actions[i], want[i])
		}
	}
}

func TestQuit(t *testing.T) {
	g := headless(t)
	g.handleEvent(key(keyQuit))
	if g.running {
		t.Error("escape should stop the loop")
	}

	g = headless(t)
	g.handleEvent(input.Event{Type: input.EventQuit})
	if g.running {
		t.Error("quit event should stop the loop")
	}
}

func TestLeftClickSpawnsExplosive(t *testing.T) {
	g := headless(t)
	g.handleEvent(input.Event{Type: input.EventMouseDown, Button: input.ButtonLeft, MouseX: 400, MouseY: 200})

	bodies := g.level.Bodies()
	if len(bodies) != 1 {
		t.Fatalf("got %d bodies, want 1", len(bodies))
	}
	want := g.camera.ScreenToLevel(400, 200)
	if bodies[0].Position != want || !bodies[0].Explosive {
		t.Errorf("body = %+v, want explosive at %+v", *bodies[0], want)
	}
}

func TestRightClickPunchesHole(t *testing.T) {
	g := headless(t)
	g.handleEvent(input.Event{Type: input.EventMouseDown, Button: input.ButtonRight, MouseX: 400, MouseY: 300})

	p := g.camera.ScreenToLevel(400, 300)
	if g.level.Raster().Colliding(p.X, p.Y) {
		t.Errorf("clicked point %+v is still solid", p)
	}
}

func TestMiddleDragPans(t *testing.T) {
	g := headless(t)
	before := g.camera.CenterX

	g.handleEvent(input.Event{Type: input.EventMouseMove, DeltaX: 10})
	if g.camera.CenterX != before {
		t.Error("moving without the middle button should not pan")
	}

	g.handleEvent(input.Event{Type: input.EventMouseDown, Button: input.ButtonMiddle})
	g.handleEvent(input.Event{Type: input.EventMouseMove, DeltaX: 10})
	g.handleEvent(input.Event{Type: input.EventMouseUp, Button: input.ButtonMiddle})
	g.handleEvent(input.Event{Type: input.EventMouseMove, DeltaX: 10})

	if g.camera.CenterX != before-10 {
		t.Errorf("center x = %v, want %v", g.camera.CenterX, before-10)
	}
}

func TestWheelZooms(t *testing.T) {
	g := headless(t)
	g.handleEvent(input.Event{Type: input.EventMouseWheel, Wheel: 1})
	if g.camera.Zoom <= 1 {
		t.Errorf("zoom = %v, want > 1", g.camera.Zoom)
	}
}

func TestResizeUpdatesCamera(t *testing.T) {
	g := headless(t)
	g.handleEvent(input.Event{Type: input.EventWindowResize, Width: 1024, Height: 768})
	if g.camera.ViewportW != 1024 || g.camera.ViewportH != 768 {
		t.Errorf("viewport = %vx%v", g.camera.ViewportW, g.camera.ViewportH)
	}
}

func TestUpdatePaused(t *testing.T) {
	r, _ := collision.New(50, 50)
	l, _ := level.New(r, nil, nil, 16, level.DefaultOptions())
	g := headless(t)
	g.level = l
	b := l.Spawn(level.Body{Position: math.Vec2{X: 25, Y: 40}})

	g.paused = true
	if err := g.update(0.1); err != nil {
		t.Fatal(err)
	}
	if b.Position.Y != 40 {
		t.Error("paused update moved a body")
	}

	g.paused = false
	if err := g.update(0.1); err != nil {
		t.Fatal(err)
	}
	if b.Position.Y >= 40 {
		t.Error("update did not move the body")
	}
}

func TestFrameTitle(t *testing.T) {
	got := frameTitle(16.666, 3)
	if !strings.Contains(got, "60 fps") || !strings.Contains(got, "3 bodies") {
		t.Errorf("title = %q", got)
	}
	if got := frameTitle(0, 0); !strings.Contains(got, "0 fps") {
		t.Errorf("title = %q", got)
	}
}

func TestTogglesWriteThroughPreferences(t *testing.T) {
	g := headless(t)
	g.handleEvent(key(keyMusic))
	g.handleEvent(key(keyFullscreen))
	g.runActions()

	if !g.cfg.Audio.Muted || !g.cfg.Graphics.Fullscreen {
		t.Errorf("config muted %v fullscreen %v, want both on", g.cfg.Audio.Muted, g.cfg.Graphics.Fullscreen)
	}
	if len(g.actions) != 0 {
		t.Errorf("actions not drained: %v", g.actions)
	}

	data, err := os.ReadFile(g.prefsPath)
	if err != nil {
		t.Fatalf("preferences not written: %v", err)
	}
	var saved config.Config
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if !saved.Audio.Muted || !saved.Graphics.Fullscreen {
		t.Errorf("saved muted %v fullscreen %v, want both on", saved.Audio.Muted, saved.Graphics.Fullscreen)
	}

	g.handleEvent(key(keyMusic))
	g.runActions()
	data, _ = os.ReadFile(g.prefsPath)
	saved = config.Config{}
	yaml.Unmarshal(data, &saved)
	if saved.Audio.Muted {
		t.Error("second toggle should save unmuted")
	}
}

func TestPreferencesSaveFailureKeepsRunning(t *testing.T) {
	g := headless(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	g.prefsPath = filepath.Join(blocker, "config.yaml")

	g.handleEvent(key(keyMusic))
	g.runActions()
	if !g.cfg.Audio.Muted {
		t.Error("toggle should apply even when saving fails")
	}
}

func TestFocusEventsQueueActions(t *testing.T) {
	g := headless(t)
	g.handleEvent(input.Event{Type: input.EventFocusLost})
	g.handleEvent(input.Event{Type: input.EventFocusGained})

	if len(g.actions) != 2 || g.actions[0] != actionFocusLost || g.actions[1] != actionFocusGained {
		t.Fatalf("queued %v", g.actions)
	}
	g.runActions() // no audio device: no-op
}

func TestFrameDelay(t *testing.T) {
	tests := []struct {
		limit   int
		elapsed time.Duration
		want    time.Duration
	}{
		{0, time.Millisecond, 0},
		{-5, time.Millisecond, 0},
		{100, 4 * time.Millisecond, 6 * time.Millisecond},
		{100, 10 * time.Millisecond, 0},
		{100, 25 * time.Millisecond, 0},
		{50, 0, 20 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := frameDelay(tt.limit, tt.elapsed); got != tt.want {
			t.Errorf("frameDelay(%d, %v) = %v, want %v", tt.limit, tt.elapsed, got, tt.want)
		}
	}
}
