package app

import "gocv.io/x/gocv"

// Display shows rendered frames and reports key presses.
type Display interface {
	Show(img *gocv.Mat)
	// PollKey waits up to delay milliseconds and returns the pressed key,
	// or -1 when none was pressed.
	PollKey(delay int) int
	Close() error
}

// WindowDisplay is a Display backed by an OpenCV HighGUI window.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window with the given title.
func NewWindowDisplay(title string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

func (d *WindowDisplay) Show(img *gocv.Mat) {
	d.window.IMShow(*img)
}

func (d *WindowDisplay) PollKey(delay int) int {
	key := d.window.WaitKey(delay)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

func (d *WindowDisplay) Close() error {
	return d.window.Close()
}
