package audio

// FadeResult tells the caller what to do with the track after a fade step.
type FadeResult int

const (
	FadeNone FadeResult = iota
	// FadePaused means the fade-out finished and the track should pause.
	FadePaused
	// FadeStopped means the fade-out finished and the track should stop.
	FadeStopped
)

type fadeState int

const (
	fadeStop fadeState = iota
	fadePlay
	fadePause
)

// Fader ramps a volume ratio between 0 and 1. It is a plain state machine
// driven by Update; it owns no audio resources.
type Fader struct {
	inRate  float64 // ratio per second, <= 0 means instant
	outRate float64
	ratio   float64
	state   fadeState
	settled bool
}

// NewFader creates a silent, stopped fader.
func NewFader(inRate, outRate float64) *Fader {
	return &Fader{inRate: inRate, outRate: outRate, settled: true}
}

// Play starts fading in.
func (f *Fader) Play() {
	f.state = fadePlay
	f.settled = false
	if f.inRate <= 0 {
		f.ratio = 1
	}
}

// Pause starts fading out; Update reports FadePaused once silent.
func (f *Fader) Pause() {
	f.fadeOut(fadePause)
}

// Stop starts fading out; Update reports FadeStopped once silent.
func (f *Fader) Stop() {
	f.fadeOut(fadeStop)
}

func (f *Fader) fadeOut(s fadeState) {
	f.state = s
	f.settled = false
	if f.outRate <= 0 {
		f.ratio = 0
	}
}

// Playing reports whether the fader is heading to full volume.
func (f *Fader) Playing() bool {
	return f.state == fadePlay
}

// Ratio returns the current volume ratio.
func (f *Fader) Ratio() float64 {
	return f.ratio
}

// Update advances the fade by dt seconds. A pause or stop result is
// returned once, on the step the ratio reaches zero.
func (f *Fader) Update(dt float64) FadeResult {
	target := 0.0
	if f.state == fadePlay {
		target = 1
	}

	switch {
	case f.ratio > target:
		f.ratio -= f.outRate * dt
		if f.ratio < target {
			f.ratio = target
		}
	case f.ratio < target:
		f.ratio += f.inRate * dt
		if f.ratio > target {
			f.ratio = target
		}
	}

	if f.ratio != target || f.settled {
		return FadeNone
	}
	f.settled = true
	switch f.state {
	case fadePause:
		return FadePaused
	case fadeStop:
		return FadeStopped
	}
	return FadeNone
}
