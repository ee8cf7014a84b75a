package detector

import (
	"sync"

	"github.com/ayusman/trailcam/internal/tracker"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	dets  []tracker.Detection
	seq   [][]tracker.Detection
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections returned by every call to Detect.
func (m *MockDetector) SetDetections(dets []tracker.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dets = dets
	m.seq = nil
}

// SetSequence makes Detect return seq[i] on its i-th call. Once the
// sequence is exhausted Detect returns no detections.
func (m *MockDetector) SetSequence(seq [][]tracker.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = seq
	m.dets = nil
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]tracker.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.seq != nil {
		if i < len(m.seq) {
			return m.seq[i], nil
		}
		return nil, nil
	}
	return m.dets, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
