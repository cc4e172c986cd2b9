// Package audio provides audio playback for background music and sound effects.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrNotInitialized is returned when playing before Init.
var ErrNotInitialized = errors.New("audio not initialized")

// Manager handles audio playback for the game.
type Manager struct {
	mu sync.RWMutex

	// State
	initialized bool
	sampleRate  beep.SampleRate

	// BGM
	bgmStreamer beep.StreamSeekCloser
	bgmCtrl     *beep.Ctrl
	bgmVolume   *effects.Volume
	bgmPlaying  bool
	bgmFader    *Fader
	bgmEnded    atomic.Bool

	// Volume settings (0.0 to 1.0)
	masterVolume float64
	bgmVolLevel  float64
	sfxVolLevel  float64

	// SFX mixer for concurrent sound effects
	sfxMixer *beep.Mixer
}

// New creates a new audio manager.
func New() *Manager {
	return &Manager{
		masterVolume: 1.0,
		bgmVolLevel:  0.7,
		sfxVolLevel:  1.0,
		sfxMixer:     &beep.Mixer{},
	}
}

// Init initializes the audio system.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.sampleRate = DefaultSampleRate
	err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30))
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	// Start SFX mixer
	speaker.Play(m.sfxMixer)

	m.initialized = true
	return nil
}

// Close shuts down the audio system.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopBGMInternal()
	speaker.Clear()
	m.initialized = false
}

// SetMasterVolume sets the master volume (0.0 to 1.0).
func (m *Manager) SetMasterVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterVolume = clamp(vol, 0, 1)
	m.updateBGMVolume()
}

// SetBGMVolume sets the BGM volume (0.0 to 1.0).
func (m *Manager) SetBGMVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bgmVolLevel = clamp(vol, 0, 1)
	m.updateBGMVolume()
}

// SetSFXVolume sets the SFX volume (0.0 to 1.0).
func (m *Manager) SetSFXVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sfxVolLevel = clamp(vol, 0, 1)
}

// GetMasterVolume returns the master volume.
func (m *Manager) GetMasterVolume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.masterVolume
}

// GetBGMVolume returns the BGM volume.
func (m *Manager) GetBGMVolume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgmVolLevel
}

// GetSFXVolume returns the SFX volume.
func (m *Manager) GetSFXVolume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sfxVolLevel
}

func (m *Manager) updateBGMVolume() {
	if m.bgmVolume == nil {
		return
	}
	vol := m.masterVolume * m.bgmVolLevel
	if m.bgmFader != nil {
		vol *= m.bgmFader.Ratio()
	}
	speaker.Lock()
	defer speaker.Unlock()
	if vol <= 0 {
		m.bgmVolume.Silent = true
	} else {
		m.bgmVolume.Silent = false
		m.bgmVolume.Volume = volumeToDb(vol)
	}
}

// volumeToDb converts a 0-1 volume to decibel scale.
// vol=1 -> 0dB, vol=0.5 -> -6dB, vol=0.25 -> -12dB.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100 // Effectively silent
	}
	return 20 * math.Log10(vol)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// PlayBGM plays background music from WAV data at full volume.
// If loop is true, the music will loop indefinitely.
func (m *Manager) PlayBGM(data []byte, path string, loop bool) error {
	return m.PlayBGMFade(data, path, loop, 0, 0)
}

// PlayBGMFade plays background music that fades in at fadeIn volume per
// second and fades out at fadeOut when paused or stopped through FadeOutBGM.
// A rate of zero switches instantly.
func (m *Manager) PlayBGMFade(data []byte, path string, loop bool, fadeIn, fadeOut float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	// Stop current BGM
	m.stopBGMInternal()

	// Decode WAV
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode wav %s: %w", path, err)
	}

	resampled := m.resample(format.SampleRate, streamer)

	var finalStreamer beep.Streamer = resampled
	if loop {
		finalStreamer = &loopStreamer{streamer: streamer, resampled: resampled}
	}

	m.bgmCtrl = &beep.Ctrl{Streamer: finalStreamer, Paused: false}
	m.bgmVolume = &effects.Volume{
		Streamer: m.bgmCtrl,
		Base:     2,
		Volume:   0,
		Silent:   false,
	}
	m.bgmFader = NewFader(fadeIn, fadeOut)
	m.bgmFader.Play()
	m.updateBGMVolume()

	m.bgmStreamer = streamer
	m.bgmPlaying = true
	m.bgmEnded.Store(false)

	// The callback runs on the speaker goroutine with the speaker locked,
	// so it must not take m.mu.
	speaker.Play(beep.Seq(m.bgmVolume, beep.Callback(func() {
		m.bgmEnded.Store(true)
	})))

	return nil
}

func (m *Manager) stopBGMInternal() {
	if m.bgmCtrl != nil {
		speaker.Lock()
		m.bgmCtrl.Paused = true
		speaker.Unlock()
	}
	speaker.Clear()
	// Re-add SFX mixer after clearing
	if m.initialized {
		speaker.Play(m.sfxMixer)
	}
	m.bgmPlaying = false
	if m.bgmStreamer != nil {
		m.bgmStreamer.Close()
		m.bgmStreamer = nil
	}
	m.bgmCtrl = nil
	m.bgmVolume = nil
	m.bgmFader = nil
}

// FadeOutBGM fades the music out, then pauses it (stop=false) or stops and
// releases it (stop=true). Call UpdateBGM every frame to drive the fade.
func (m *Manager) FadeOutBGM(stop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmFader == nil {
		return
	}
	if stop {
		m.bgmFader.Stop()
	} else {
		m.bgmFader.Pause()
	}
}

// FadeInBGM resumes paused music with a fade.
func (m *Manager) FadeInBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmFader == nil || m.bgmCtrl == nil {
		return
	}
	speaker.Lock()
	m.bgmCtrl.Paused = false
	speaker.Unlock()
	m.bgmFader.Play()
	m.bgmPlaying = true
}

// UpdateBGM advances the music fade by dt seconds.
func (m *Manager) UpdateBGM(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmFader == nil {
		return
	}
	done := m.bgmFader.Update(dt)
	m.updateBGMVolume()

	switch done {
	case FadePaused:
		if m.bgmCtrl != nil {
			speaker.Lock()
			m.bgmCtrl.Paused = true
			speaker.Unlock()
		}
		m.bgmPlaying = false
	case FadeStopped:
		m.stopBGMInternal()
	}
}

// PauseBGM pauses the current background music immediately, without a fade.
func (m *Manager) PauseBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmCtrl != nil {
		speaker.Lock()
		m.bgmCtrl.Paused = true
		speaker.Unlock()
		m.bgmPlaying = false
	}
}

// ResumeBGM resumes music paused by PauseBGM.
func (m *Manager) ResumeBGM() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmCtrl != nil {
		speaker.Lock()
		m.bgmCtrl.Paused = false
		speaker.Unlock()
		m.bgmPlaying = true
	}
}

// IsBGMPlaying returns whether BGM is currently playing.
func (m *Manager) IsBGMPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bgmPlaying && !m.bgmEnded.Load()
}

// PlaySFX plays a sound effect from WAV data.
func (m *Manager) PlaySFX(data []byte) error {
	m.mu.RLock()
	initialized := m.initialized
	m.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}

	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	m.playStreamer(m.resample(format.SampleRate, streamer), 1)
	return nil
}

// PlayBuffer plays a pre-decoded sound at the given relative volume.
func (m *Manager) PlayBuffer(buf *beep.Buffer, volume float64) error {
	m.mu.RLock()
	initialized := m.initialized
	m.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	m.playStreamer(m.resample(buf.Format().SampleRate, buf.Streamer(0, buf.Len())), volume)
	return nil
}

// PlaySet plays one sound from a set at the given relative volume.
func (m *Manager) PlaySet(set *SoundSet, volume float64) error {
	sound, ok := set.Next()
	if !ok {
		return nil
	}
	return m.PlayBuffer(sound.Buffer, volume*sound.Volume)
}

func (m *Manager) resample(rate beep.SampleRate, s beep.Streamer) beep.Streamer {
	if rate == m.sampleRate {
		return s
	}
	return beep.Resample(4, rate, m.sampleRate, s)
}

// playStreamer adds s to the SFX mixer (concurrent playback).
func (m *Manager) playStreamer(s beep.Streamer, volume float64) {
	m.mu.RLock()
	vol := m.masterVolume * m.sfxVolLevel * clamp(volume, 0, 1)
	m.mu.RUnlock()

	speaker.Lock()
	m.sfxMixer.Add(&effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   volumeToDb(vol),
		Silent:   vol <= 0,
	})
	speaker.Unlock()
}

// loopStreamer restarts the decoded stream whenever it runs out.
type loopStreamer struct {
	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.resampled.Stream(samples[filled:])
		filled += n
		if !ok {
			if err := l.streamer.Seek(0); err != nil {
				return filled, false
			}
			if n == 0 && l.streamer.Len() == 0 {
				return filled, false
			}
		}
	}
	return filled, true
}

func (l *loopStreamer) Err() error {
	return l.streamer.Err()
}
