package tray

import (
	"testing"

	"github.com/ayusman/trailcam/internal/app"
	"github.com/ayusman/trailcam/internal/tracker"
)

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name string
		snap app.Snapshot
		want string
	}{
		{"empty", app.Snapshot{}, "Frame 0 · 0 tracks · running"},
		{
			"tracking",
			app.Snapshot{Frame: 12, Tracks: make([]tracker.Track, 3)},
			"Frame 12 · 3 tracks · running",
		},
		{"paused", app.Snapshot{Frame: 7, Paused: true}, "Frame 7 · 0 tracks · paused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLine(tt.snap); got != tt.want {
				t.Errorf("StatusLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPauseTitle(t *testing.T) {
	if PauseTitle(false) == PauseTitle(true) {
		t.Error("pause and resume titles should differ")
	}
}

func TestNew(t *testing.T) {
	tr := New(nil)
	called := false
	tr.OnQuit(func() { called = true })

	tr.mu.RLock()
	fn := tr.onQuit
	tr.mu.RUnlock()
	fn()

	if !called {
		t.Error("OnQuit callback not stored")
	}
}
