package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion gate constants.
const (
	// GateWidth is the width frames are shrunk to before differencing.
	GateWidth = 160
	// GaussianBlurSize is the kernel size for the Gaussian blur.
	GaussianBlurSize = 7
	// DiffThreshold is the binary threshold for difference detection.
	DiffThreshold = 25
)

// MotionGate reports whether a frame differs enough from the last frame it
// let through. The driver uses it to skip detection on still scenes and
// reuse the previous detections instead.
type MotionGate struct {
	threshold   float64
	baseline    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionGate creates a gate with the given threshold, expressed as the
// percentage of pixels that must change. Non-positive values mean 1%.
func NewMotionGate(threshold float64) *MotionGate {
	if threshold <= 0 {
		threshold = 1.0
	}
	return &MotionGate{
		threshold: threshold,
		baseline:  gocv.NewMat(),
	}
}

// Moved compares frame with the baseline and returns whether it changed by
// more than the threshold, along with the changed percentage. The first frame
// always counts as moved. The baseline only advances on moved frames, so slow
// drift accumulates until it crosses the threshold.
func (g *MotionGate) Moved(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	small := g.prepare(frame)
	defer small.Close()

	if !g.initialized {
		small.CopyTo(&g.baseline)
		g.initialized = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(small, g.baseline, &diff)

	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)

	total := diff.Rows() * diff.Cols()
	if total == 0 {
		return false, 0
	}
	changed := float64(gocv.CountNonZero(diff)) / float64(total) * 100.0

	if changed <= g.threshold {
		return false, changed
	}

	small.CopyTo(&g.baseline)
	return true, changed
}

// prepare returns a shrunk, blurred grayscale copy of frame.
func (g *MotionGate) prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if gray.Cols() > GateWidth {
		h := gray.Rows() * GateWidth / gray.Cols()
		gocv.Resize(gray, &gray, image.Pt(GateWidth, h), 0, 0, gocv.InterpolationArea)
	}

	gocv.GaussianBlur(gray, &gray, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)
	return gray
}

// Reset forgets the baseline so the next frame counts as moved.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.baseline.Close()
	g.baseline = gocv.NewMat()
	g.initialized = false
}

// Close releases resources used by the gate.
func (g *MotionGate) Close() {
	g.Reset()
}

// Threshold returns the change percentage the gate requires.
func (g *MotionGate) Threshold() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threshold
}
