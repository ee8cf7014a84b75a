// Package tracker links per-frame object detections into persistent tracks
// using greedy nearest-centroid association.
package tracker

import (
	"image"
	"math"
)

// Detection is a single object found in one frame by the detector.
// It is owned by the tick that produced it.
type Detection struct {
	ClassID int             `json:"class_id"`
	Score   float32         `json:"score"`
	Box     image.Rectangle `json:"box"`
}

// NewDetection builds a Detection from an x, y, width, height box.
func NewDetection(classID int, score float32, x, y, w, h int) Detection {
	return Detection{
		ClassID: classID,
		Score:   score,
		Box:     image.Rect(x, y, x+w, y+h),
	}
}

// Centroid returns the center of the bounding box, truncated to whole pixels.
func (d Detection) Centroid() image.Point {
	return image.Point{
		X: (d.Box.Min.X + d.Box.Max.X) / 2,
		Y: (d.Box.Min.Y + d.Box.Max.Y) / 2,
	}
}

// Track is an object identity that persists across frames.
type Track struct {
	ID         int           `json:"id"`
	Centroid   image.Point   `json:"centroid"`
	ClassID    int           `json:"class_id"`
	Score      float32       `json:"score"`
	Trajectory []image.Point `json:"trajectory"`
	FirstTick  int           `json:"first_tick"`
	LastTick   int           `json:"last_tick"`
}

// Age returns the number of ticks the track has been matched over, inclusive.
func (t Track) Age() int {
	return t.LastTick - t.FirstTick + 1
}

// clone returns a copy of the track that shares no memory with the original.
func (t *Track) clone() Track {
	c := *t
	c.Trajectory = make([]image.Point, len(t.Trajectory))
	copy(c.Trajectory, t.Trajectory)
	return c
}

// distance calculates the Euclidean distance between two points.
func distance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
