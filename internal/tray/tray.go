// Package tray provides a system tray menu for controlling a running tracker.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/trailcam/internal/app"
	"github.com/getlantern/systray"
)

// StatusInterval is how often the status line is refreshed.
const StatusInterval = time.Second

// Controller is the part of the pipeline the tray drives.
type Controller interface {
	Snapshot() app.Snapshot
	Submit(app.Command) bool
}

// Tray represents the system tray application.
type Tray struct {
	ctrl   Controller
	onQuit func()
	paused bool
	mu     sync.RWMutex
	done   chan struct{}

	// Menu items stored for later updates
	menuPause  *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray sending commands to ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{
		ctrl: ctrl,
		done: make(chan struct{}),
	}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Trailcam")
	systray.SetTooltip("Trailcam object tracking")

	t.menuPause = systray.AddMenuItem(PauseTitle(false), "Pause or resume tracking")
	menuClear := systray.AddMenuItem("Clear trails", "Shorten every trail to its latest point")
	menuShot := systray.AddMenuItem("Screenshot", "Save the current frame")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(StatusLine(app.Snapshot{}), "Current tracking state")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop tracking and quit")

	go t.refresh()

	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.ctrl.Submit(app.CmdPause)
			case <-menuClear.ClickedCh:
				t.ctrl.Submit(app.CmdClearTrails)
			case <-menuShot.ClickedCh:
				t.ctrl.Submit(app.CmdScreenshot)
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	close(t.done)
}

// refresh keeps the pause item and status line in sync with the pipeline.
func (t *Tray) refresh() {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}

		snap := t.ctrl.Snapshot()
		t.menuStatus.SetTitle(StatusLine(snap))

		t.mu.Lock()
		if snap.Paused != t.paused {
			t.paused = snap.Paused
			t.menuPause.SetTitle(PauseTitle(snap.Paused))
		}
		t.mu.Unlock()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	t.ctrl.Submit(app.CmdQuit)
	if callback != nil {
		callback()
	}

	systray.Quit()
}

// PauseTitle is the label of the pause item for the given state.
func PauseTitle(paused bool) string {
	if paused {
		return "▶ Resume"
	}
	return "❚❚ Pause"
}

// StatusLine summarizes a snapshot for the menu.
func StatusLine(snap app.Snapshot) string {
	state := "running"
	if snap.Paused {
		state = "paused"
	}
	return fmt.Sprintf("Frame %d · %d tracks · %s", snap.Frame, len(snap.Tracks), state)
}
