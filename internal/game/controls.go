package game

import (
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/engine/input"
	"github.com/Faultbox/craterfield/internal/logger"
)

// Key bindings.
const (
	keyLeft       = sdl.SCANCODE_LEFT
	keyRight      = sdl.SCANCODE_RIGHT
	keyUp         = sdl.SCANCODE_UP
	keyDown       = sdl.SCANCODE_DOWN
	keyQuit       = sdl.SCANCODE_ESCAPE
	keyPause      = sdl.SCANCODE_SPACE
	keyGrid       = sdl.SCANCODE_F3
	keyNormals    = sdl.SCANCODE_F4
	keySaveState  = sdl.SCANCODE_F5
	keyLoadState  = sdl.SCANCODE_F9
	keyMusic      = sdl.SCANCODE_M
	keyFullscreen = sdl.SCANCODE_F11
	keyScreenshot = sdl.SCANCODE_F12
)

const (
	stateFile  = "craterfield-state.yaml"
	bodyRadius = 2
)

// action is work that needs the window, renderer or audio and so runs
// after event handling.
type action int

const (
	actionFullscreen action = iota
	actionScreenshot
	actionToggleMusic
	actionSaveState
	actionLoadState
	actionFocusLost
	actionFocusGained
)

// handleEvent applies one input event. It only touches the camera, the
// level and view flags; everything else is queued as an action.
func (g *Game) handleEvent(ev input.Event) {
	switch ev.Type {
	case input.EventQuit:
		g.running = false

	case input.EventWindowResize:
		g.camera.Resize(ev.Width, ev.Height)
		if g.renderer != nil {
			dw, dh := g.window.DrawableSize()
			g.renderer.Resize(dw, dh)
		}

	case input.EventFocusLost:
		g.actions = append(g.actions, actionFocusLost)

	case input.EventFocusGained:
		g.actions = append(g.actions, actionFocusGained)

	case input.EventKeyDown:
		if ev.Repeat {
			return
		}
		switch ev.Key {
		case keyQuit:
			g.running = false
		case keyPause:
			g.paused = !g.paused
		case keyGrid:
			g.showGrid = !g.showGrid
		case keyNormals:
			g.showNormals = !g.showNormals
		case keyFullscreen:
			g.actions = append(g.actions, actionFullscreen)
		case keyScreenshot:
			g.actions = append(g.actions, actionScreenshot)
		case keyMusic:
			g.actions = append(g.actions, actionToggleMusic)
		case keySaveState:
			g.actions = append(g.actions, actionSaveState)
		case keyLoadState:
			g.actions = append(g.actions, actionLoadState)
		}

	case input.EventMouseDown:
		p := g.camera.ScreenToLevel(float32(ev.MouseX), float32(ev.MouseY))
		switch ev.Button {
		case input.ButtonLeft:
			b := g.level.NewBody(p, bodyRadius)
			b.Explosive = true
			g.level.Spawn(b)
		case input.ButtonRight:
			if err := g.level.AddHole(p.X, p.Y, g.level.Options().CraterRadius); err != nil {
				logger.Warn("crater tiles not updated", zap.Error(err))
			}
		case input.ButtonMiddle:
			g.panning = true
		}

	case input.EventMouseUp:
		if ev.Button == input.ButtonMiddle {
			g.panning = false
		}

	case input.EventMouseMove:
		if g.panning {
			g.camera.HandleDrag(float32(ev.DeltaX), float32(ev.DeltaY))
		}

	case input.EventMouseWheel:
		mx, my := g.input.MousePosition()
		g.camera.HandleZoom(ev.Wheel, float32(mx), float32(my))
	}
}

// runActions performs queued actions that need GPU, window or audio access.
func (g *Game) runActions() {
	for _, a := range g.actions {
		switch a {
		case actionFullscreen:
			if g.window != nil {
				g.window.ToggleFullscreen()
			}
			g.cfg.Graphics.Fullscreen = !g.cfg.Graphics.Fullscreen
			g.savePrefs()
		case actionScreenshot:
			pixels, w, h := g.renderer.ReadPixels()
			path, err := g.screenshots.CaptureFromPixels(pixels, w, h)
			if err != nil {
				logger.Warn("screenshot failed", zap.Error(err))
				continue
			}
			logger.Info("screenshot saved", zap.String("path", path))
		case actionToggleMusic:
			g.cfg.Audio.Muted = !g.cfg.Audio.Muted
			g.applyMute()
			g.savePrefs()
		case actionFocusLost:
			if g.audio != nil && !g.cfg.Audio.Muted {
				g.audio.PauseBGM()
			}
		case actionFocusGained:
			if g.audio != nil && !g.cfg.Audio.Muted {
				g.audio.ResumeBGM()
			}
		case actionSaveState:
			if err := g.level.SaveStateFile(stateFile); err != nil {
				logger.Warn("save state failed", zap.Error(err))
			}
		case actionLoadState:
			if err := g.level.LoadStateFile(stateFile); err != nil {
				logger.Warn("load state failed", zap.Error(err))
			}
		}
	}
	g.actions = g.actions[:0]
}
