package app

import "time"

// Sampler decides on which frames the detector runs. Detection happens when
// the frame counter reaches every, after which it resets, so with every = 2
// the first frame reuses the (empty) cache and the second one detects.
type Sampler struct {
	every   int
	counter int
}

// NewSampler creates a Sampler. Values below 1 mean every frame.
func NewSampler(every int) *Sampler {
	if every < 1 {
		every = 1
	}
	return &Sampler{every: every}
}

// Due advances the counter by one frame and reports whether the detector
// should run on it.
func (s *Sampler) Due() bool {
	s.counter++
	if s.counter >= s.every {
		s.counter = 0
		return true
	}
	return false
}

// Every returns the sampling interval.
func (s *Sampler) Every() int {
	return s.every
}

// fpsMeter averages the frame rate over windows of at least one second.
type fpsMeter struct {
	start time.Time
	count int
	value float64
}

func (m *fpsMeter) tick(now time.Time) float64 {
	if m.start.IsZero() {
		m.start = now
	}
	m.count++

	if elapsed := now.Sub(m.start); elapsed > time.Second {
		m.value = float64(m.count) / elapsed.Seconds()
		m.count = 0
		m.start = now
	}
	return m.value
}
