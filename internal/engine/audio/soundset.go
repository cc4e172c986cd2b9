package audio

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// Playback selects how a SoundSet picks its next sound.
type Playback int

const (
	PlaybackRandom Playback = iota
	PlaybackSequential
)

// Sound is one decoded variant in a set.
type Sound struct {
	Buffer *beep.Buffer
	Volume float64
}

// SoundSet holds variants of one effect, e.g. several crater blasts, and
// hands out one per play so repeated effects do not sound identical.
type SoundSet struct {
	sounds   []Sound
	playback Playback
	next     int
	rng      *rand.Rand
}

// NewSoundSet creates an empty set with random playback.
func NewSoundSet() *SoundSet {
	return &SoundSet{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// SetPlayback sets how the next sound is chosen.
func (s *SoundSet) SetPlayback(p Playback) {
	s.playback = p
}

// SetRand replaces the random source (for deterministic tests).
func (s *SoundSet) SetRand(r *rand.Rand) {
	s.rng = r
}

// Add appends a decoded variant with its relative volume.
func (s *SoundSet) Add(buf *beep.Buffer, volume float64) {
	s.sounds = append(s.sounds, Sound{Buffer: buf, Volume: volume})
}

// Len returns the number of variants.
func (s *SoundSet) Len() int {
	return len(s.sounds)
}

// Next picks the next variant. ok is false for an empty set.
func (s *SoundSet) Next() (Sound, bool) {
	if len(s.sounds) == 0 {
		return Sound{}, false
	}
	var idx int
	switch s.playback {
	case PlaybackSequential:
		idx = s.next
		s.next = (s.next + 1) % len(s.sounds)
	default:
		idx = s.rng.IntN(len(s.sounds))
	}
	return s.sounds[idx], true
}

// LoadWAV decodes a WAV file fully into memory.
func LoadWAV(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound: %w", err)
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read wav %s: %w", path, err)
	}
	return buf, nil
}

// LoadSoundSet decodes every path into one set at equal volume.
func LoadSoundSet(paths []string) (*SoundSet, error) {
	set := NewSoundSet()
	for _, p := range paths {
		buf, err := LoadWAV(p)
		if err != nil {
			return nil, err
		}
		set.Add(buf, 1)
	}
	return set, nil
}
