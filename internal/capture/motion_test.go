package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionGate(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"explicit threshold", 5.0, 5.0},
		{"zero falls back to default", 0, 1.0},
		{"negative falls back to default", -2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMotionGate(tt.threshold)
			defer g.Close()

			if got := g.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
			if g.initialized {
				t.Error("gate should not be initialized initially")
			}
		})
	}
}

func TestMotionGate_FirstFrameMoves(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if moved, _ := g.Moved(&frame); !moved {
		t.Error("first frame should count as moved")
	}
}

func TestMotionGate_StillScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	g.Moved(&frame1)
	if moved, pct := g.Moved(&frame2); moved {
		t.Errorf("identical frames should not move, changed = %f", pct)
	}
}

func TestMotionGate_SceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	g.Moved(&black)
	moved, pct := g.Moved(&white)
	if !moved {
		t.Errorf("black to white should move, changed = %f", pct)
	}
	if pct < 50.0 {
		t.Errorf("changed = %f, expected > 50%%", pct)
	}

	// Baseline advanced to white, so white again is still.
	if moved, _ := g.Moved(&white); moved {
		t.Error("repeating the new baseline should not move")
	}
}

func TestMotionGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer frame.Close()

	g.Moved(&frame)
	g.Reset()

	if g.initialized {
		t.Error("gate should not be initialized after Reset")
	}
	if moved, _ := g.Moved(&frame); !moved {
		t.Error("first frame after Reset should count as moved")
	}
}

func TestMotionGate_NilFrame(t *testing.T) {
	g := NewMotionGate(1.0)
	defer g.Close()

	if moved, pct := g.Moved(nil); moved || pct != 0 {
		t.Errorf("Moved(nil) = %v, %f", moved, pct)
	}
}

func TestMotionGate_Close_Multiple(t *testing.T) {
	g := NewMotionGate(1.0)
	g.Close()
	g.Close()
}
