package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/ayusman/trailcam/internal/tracker"
	"gocv.io/x/gocv"
)

func TestLabel(t *testing.T) {
	classes := []string{"person", "bicycle", "car"}

	tests := []struct {
		name  string
		track tracker.Track
		want  string
	}{
		{"known class", tracker.Track{ID: 7, ClassID: 2, Score: 0.876}, "ID:7 car 0.88"},
		{"unknown class", tracker.Track{ID: 0, ClassID: 80, Score: 0.5}, "ID:0 unknown 0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.track, classes); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
			if got := New(classes, FileStyle()).Label(tt.track); got != tt.want {
				t.Errorf("Renderer.Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	if got, want := Status(3, 120, 0), "Tracked Objects: 3 | Frame: 120"; got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
	if got, want := Status(1, 5, 24.56), "Tracked Objects: 1 | Frame: 5 | FPS: 24.6"; got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestThickness(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{1, 30, 1},
		{14, 30, 1},
		{15, 30, 1},
		{29, 30, 1},
		{1, 2, 1},
		{2, 2, 2},
		{0, 0, 1},
	}
	for _, tt := range tests {
		if got := Thickness(tt.i, tt.n); got != tt.want {
			t.Errorf("Thickness(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestRenderer_Draw(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	tracks := []tracker.Track{
		{
			ID:         1,
			Centroid:   image.Pt(100, 100),
			ClassID:    0,
			Score:      0.9,
			Trajectory: []image.Point{{60, 100}, {80, 100}, {100, 100}},
		},
		{ID: 2, Centroid: image.Pt(200, 150), Trajectory: []image.Point{{200, 150}}},
	}
	dets := []tracker.Detection{tracker.NewDetection(0, 0.9, 90, 90, 20, 20)}

	r := New([]string{"person"}, FileStyle())
	r.Draw(&img, tracks, dets, false)
	r.DrawHUD(&img, HUD{Tracked: len(tracks), Frame: 1})

	// The centroid marker is filled red (BGR 0,0,255).
	px := img.GetVecbAt(100, 100)
	if px[0] != 0 || px[1] != 0 || px[2] != 255 {
		t.Errorf("centroid pixel = %v, want red", px)
	}

	// Something was drawn along the trajectory.
	traj := img.GetVecbAt(100, 70)
	if traj[0] == 0 && traj[1] == 0 && traj[2] == 0 {
		t.Error("expected trajectory pixels to be drawn")
	}
}

func TestStyle_Thickness(t *testing.T) {
	tests := []struct {
		name       string
		style      Style
		i, n, want int
	}{
		{"file oldest", FileStyle(), 1, 50, 1},
		{"file newest", FileStyle(), 50, 50, 2},
		{"live oldest", LiveStyle(), 1, 50, 1},
		{"live middle", LiveStyle(), 25, 50, 1},
		{"live recent", LiveStyle(), 40, 50, 2},
		{"live newest", LiveStyle(), 50, 50, 3},
		{"live empty", LiveStyle(), 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.style.Thickness(tt.i, tt.n); got != tt.want {
				t.Errorf("Thickness(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
			}
		})
	}
}

func TestRenderer_BoxColor(t *testing.T) {
	tests := []struct {
		name   string
		style  Style
		cached bool
		want   color.RGBA
	}{
		{"file fresh", FileStyle(), false, green},
		{"file cached", FileStyle(), true, green},
		{"live fresh", LiveStyle(), false, green},
		{"live cached", LiveStyle(), true, cyan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(nil, tt.style).BoxColor(tt.cached); got != tt.want {
				t.Errorf("BoxColor(%v) = %v, want %v", tt.cached, got, tt.want)
			}
		})
	}
}

func TestFPSColor(t *testing.T) {
	tests := []struct {
		fps  float64
		want color.RGBA
	}{
		{29.7, green},
		{20.5, green},
		{20, orange},
		{15.1, orange},
		{15, red},
		{0, red},
	}
	for _, tt := range tests {
		if got := FPSColor(tt.fps); got != tt.want {
			t.Errorf("FPSColor(%v) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestLiveText(t *testing.T) {
	if got, want := LiveStatus(2, 40), "Live Camera | Objects: 2 | Frame: 40"; got != want {
		t.Errorf("LiveStatus() = %q, want %q", got, want)
	}
	if got, want := Info(image.Pt(640, 480), 0.4), "Resolution: 640x480 | Conf: 0.4"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestRenderer_DrawCachedBoxes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	dets := []tracker.Detection{tracker.NewDetection(0, 0.9, 200, 120, 60, 40)}

	tests := []struct {
		name   string
		cached bool
		want   [3]uint8 // BGR
	}{
		{"fresh detections", false, [3]uint8{0, 255, 0}},
		{"reused detections", true, [3]uint8{255, 255, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
			defer img.Close()

			r := New(nil, LiveStyle())
			r.Draw(&img, nil, dets, tt.cached)
			r.DrawHUD(&img, HUD{Tracked: 0, Frame: 3, FPS: 12, Conf: 0.4})

			// Top edge of the box, away from the HUD text.
			px := img.GetVecbAt(120, 230)
			if got := [3]uint8{px[0], px[1], px[2]}; got != tt.want {
				t.Errorf("box pixel = %v, want %v", got, tt.want)
			}
		})
	}
}
