package math

// MovingAverage keeps the mean of the last N samples in a ring buffer.
type MovingAverage struct {
	samples []float64
	next    int
	count   int
	sum     float64
}

// NewMovingAverage creates an average over a window of size samples.
// A size below 1 is treated as 1.
func NewMovingAverage(size int) *MovingAverage {
	if size < 1 {
		size = 1
	}
	return &MovingAverage{samples: make([]float64, size)}
}

// Add pushes a sample, evicting the oldest once the window is full.
func (m *MovingAverage) Add(v float64) {
	if m.count == len(m.samples) {
		m.sum -= m.samples[m.next]
	} else {
		m.count++
	}
	m.samples[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % len(m.samples)
}

// Value returns the current mean, or 0 with no samples.
func (m *MovingAverage) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Count returns how many samples are in the window.
func (m *MovingAverage) Count() int {
	return m.count
}

// Size returns the window size.
func (m *MovingAverage) Size() int {
	return len(m.samples)
}

// Reset drops all samples.
func (m *MovingAverage) Reset() {
	for i := range m.samples {
		m.samples[i] = 0
	}
	m.next, m.count, m.sum = 0, 0, 0
}
