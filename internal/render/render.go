// Package render draws detections, tracks and trajectories onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/tracker"
	"gocv.io/x/gocv"
)

// ControlsHint is drawn at the bottom of every frame.
const ControlsHint = "ESC:Exit | P:Pause | S:Screenshot | C:Clear Trails"

var (
	green  = color.RGBA{0, 255, 0, 255}
	cyan   = color.RGBA{0, 255, 255, 255}
	red    = color.RGBA{255, 0, 0, 255}
	orange = color.RGBA{255, 165, 0, 255}
	white  = color.RGBA{255, 255, 255, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	grey   = color.RGBA{200, 200, 200, 255}
)

// Style holds the drawing parameters that differ between file playback and
// the live camera view.
type Style struct {
	// TrailWeight is the width of the newest trajectory segment.
	TrailWeight int `json:"trail_weight"`

	DotRadius     int     `json:"dot_radius"`
	MarkerRadius  int     `json:"marker_radius"`
	RingRadius    int     `json:"ring_radius"`
	RingThickness int     `json:"ring_thickness"`
	LabelScale    float64 `json:"label_scale"`

	// CachedBoxes draws reused detections in cyan instead of green.
	CachedBoxes bool `json:"cached_boxes"`

	// LiveHUD switches to the camera overlay: heading, colour-coded FPS and
	// a resolution line.
	LiveHUD bool `json:"live_hud"`
}

// FileStyle is the overlay used for video file playback.
func FileStyle() Style {
	return Style{
		TrailWeight:   2,
		DotRadius:     2,
		MarkerRadius:  6,
		RingRadius:    8,
		RingThickness: 1,
		LabelScale:    0.5,
	}
}

// LiveStyle is the overlay used for the live camera.
func LiveStyle() Style {
	return Style{
		TrailWeight:   3,
		DotRadius:     3,
		MarkerRadius:  7,
		RingRadius:    9,
		RingThickness: 2,
		LabelScale:    0.6,
		CachedBoxes:   true,
		LiveHUD:       true,
	}
}

// Thickness returns the line width of segment i out of n trajectory points.
func (s Style) Thickness(i, n int) int {
	return thickness(s.TrailWeight, i, n)
}

// HUD is the per-frame information drawn by DrawHUD.
type HUD struct {
	Tracked int
	Frame   int
	FPS     float64

	// Size and Conf feed the live resolution line.
	Size image.Point
	Conf float32
}

// Renderer draws tracker state onto frames. It never feeds back into the
// tracker.
type Renderer struct {
	classes []string
	style   Style
}

// New creates a Renderer that labels tracks using classes. A zero style
// falls back to FileStyle.
func New(classes []string, style Style) *Renderer {
	if style == (Style{}) {
		style = FileStyle()
	}
	return &Renderer{classes: classes, style: style}
}

// Style returns the drawing style.
func (r *Renderer) Style() Style {
	return r.style
}

// Draw overlays detection boxes, trajectories, centroids and labels. cached
// marks dets as reused from an earlier detector run.
func (r *Renderer) Draw(img *gocv.Mat, tracks []tracker.Track, dets []tracker.Detection, cached bool) {
	box := r.BoxColor(cached)
	for _, d := range dets {
		gocv.Rectangle(img, d.Box, box, 2)
	}

	for _, t := range tracks {
		r.drawTrajectory(img, t)
	}

	for _, t := range tracks {
		r.drawMarker(img, t)
	}
}

// BoxColor returns the detection box colour.
func (r *Renderer) BoxColor(cached bool) color.RGBA {
	if cached && r.style.CachedBoxes {
		return cyan
	}
	return green
}

// DrawHUD writes the status lines and the controls hint.
func (r *Renderer) DrawHUD(img *gocv.Mat, h HUD) {
	if !r.style.LiveHUD {
		gocv.PutText(img, Status(h.Tracked, h.Frame, h.FPS), image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, yellow, 2)
		gocv.PutText(img, ControlsHint, image.Pt(10, img.Rows()-10), gocv.FontHersheySimplex, 0.5, white, 1)
		return
	}

	size := h.Size
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(img.Cols(), img.Rows())
	}

	gocv.PutText(img, LiveStatus(h.Tracked, h.Frame), image.Pt(10, 30), gocv.FontHersheySimplex, 0.6, yellow, 2)
	gocv.PutText(img, fmt.Sprintf("FPS: %.1f", h.FPS), image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, FPSColor(h.FPS), 2)
	gocv.PutText(img, Info(size, h.Conf), image.Pt(10, 90), gocv.FontHersheySimplex, 0.5, grey, 1)
	gocv.PutText(img, ControlsHint, image.Pt(10, img.Rows()-15), gocv.FontHersheySimplex, 0.6, white, 2)
}

func (r *Renderer) drawTrajectory(img *gocv.Mat, t tracker.Track) {
	n := len(t.Trajectory)
	if n < 2 {
		return
	}

	c := tracker.Color(t.ID)
	for i := 1; i < n; i++ {
		gocv.Line(img, t.Trajectory[i-1], t.Trajectory[i], c, r.style.Thickness(i, n))
	}

	// Dots on past points; the current one gets the centroid marker.
	for _, p := range t.Trajectory[:n-1] {
		gocv.Circle(img, p, r.style.DotRadius, c, -1)
	}
}

func (r *Renderer) drawMarker(img *gocv.Mat, t tracker.Track) {
	s := r.style
	pt := t.Centroid
	gocv.Circle(img, pt, s.MarkerRadius, red, -1)
	gocv.Circle(img, pt, s.RingRadius, white, s.RingThickness)

	label := r.Label(t)
	size := gocv.GetTextSize(label, gocv.FontHersheySimplex, s.LabelScale, 2)
	bg := image.Rect(pt.X-5, pt.Y-size.Y-10, pt.X+size.X, pt.Y-5)
	gocv.Rectangle(img, bg, red, -1)
	gocv.PutText(img, label, image.Pt(pt.X, pt.Y-7), gocv.FontHersheySimplex, s.LabelScale, white, 2)
}

// Label returns the text shown next to a track.
func (r *Renderer) Label(t tracker.Track) string {
	return Label(t, r.classes)
}

// Label formats "ID:<id> <class> <score>" for a track.
func Label(t tracker.Track, classes []string) string {
	return fmt.Sprintf("ID:%d %s %.2f", t.ID, detector.ClassName(classes, t.ClassID), t.Score)
}

// Status formats the file playback status line.
func Status(tracked, frame int, fps float64) string {
	s := fmt.Sprintf("Tracked Objects: %d | Frame: %d", tracked, frame)
	if fps > 0 {
		s += fmt.Sprintf(" | FPS: %.1f", fps)
	}
	return s
}

// LiveStatus formats the live camera heading.
func LiveStatus(tracked, frame int) string {
	return fmt.Sprintf("Live Camera | Objects: %d | Frame: %d", tracked, frame)
}

// Info formats the live resolution and confidence line.
func Info(size image.Point, conf float32) string {
	return fmt.Sprintf("Resolution: %dx%d | Conf: %s", size.X, size.Y, strconv.FormatFloat(float64(conf), 'g', -1, 32))
}

// FPSColor is green above 20 FPS, orange above 15 and red otherwise.
func FPSColor(fps float64) color.RGBA {
	switch {
	case fps > 20:
		return green
	case fps > 15:
		return orange
	}
	return red
}

// Thickness returns the file playback line width of segment i out of n
// trajectory points. Older segments are thinner.
func Thickness(i, n int) int {
	return thickness(FileStyle().TrailWeight, i, n)
}

func thickness(weight, i, n int) int {
	if n <= 0 {
		return 1
	}
	w := weight * i / n
	if w < 1 {
		return 1
	}
	return w
}
