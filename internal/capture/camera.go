// Package capture provides video frame sources (camera devices and video
// files) using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Default live camera settings. Lower resolution keeps detection fast.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEndOfStream is returned when a video file has no more frames.
	ErrEndOfStream = errors.New("end of video stream")
)

// Camera defines the interface for frame source implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool

	// Size is the frame size of the open source, zero before Open.
	Size() image.Point
}

// Settings are requested capture properties for a camera device.
// Zero values leave the device defaults in place.
type Settings struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// DefaultSettings returns the live camera settings (640x480 @ 30 FPS).
func DefaultSettings() Settings {
	return Settings{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// cameraImpl manages video capture from a device or file using GoCV.
type cameraImpl struct {
	deviceID int
	path     string
	settings Settings
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
	width    int
	height   int
}

// NewCamera creates a Camera reading from the given device ID.
func NewCamera(deviceID int, settings Settings) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		settings: settings,
		fps:      settings.FPS,
	}
}

// NewVideoFile creates a Camera that plays back a video file.
// ReadFrame returns ErrEndOfStream once the file is exhausted.
func NewVideoFile(path string) Camera {
	return &cameraImpl{
		deviceID: -1,
		path:     path,
	}
}

// NewSource picks a device when source parses as an integer and a video
// file otherwise.
func NewSource(source string, settings Settings) Camera {
	if id, err := strconv.Atoi(source); err == nil {
		return NewCamera(id, settings)
	}
	return NewVideoFile(source)
}

// Open opens the source for capturing frames. Device sources get the
// requested resolution and frame rate applied.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if c.path != "" {
		capture, err = gocv.VideoCaptureFile(c.path)
		if err != nil {
			return fmt.Errorf("open video source %q: %w", c.path, err)
		}
	} else {
		capture, err = gocv.OpenVideoCapture(c.deviceID)
		if err != nil {
			return fmt.Errorf("open camera %d: %w", c.deviceID, err)
		}
		if c.settings.Width > 0 {
			capture.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
		}
		if c.settings.Height > 0 {
			capture.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
		}
		if c.fps > 0 {
			capture.Set(gocv.VideoCaptureFPS, float64(c.fps))
		}
	}

	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video source %s did not open", c.name())
	}

	// Read back what the device or file actually delivers.
	c.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	c.fps = int(capture.Get(gocv.VideoCaptureFPS))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the source and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.path != "" {
			return nil, ErrEndOfStream
		}
		return nil, errors.New("failed to grab frame from camera")
	}

	return &mat, nil
}

// SetFPS sets the requested frames per second.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil && c.path == "" {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the source is currently open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Size returns the frame size reported by the open source.
func (c *cameraImpl) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	return image.Pt(c.width, c.height)
}

// String describes the source for logs.
func (c *cameraImpl) String() string {
	return c.name()
}

func (c *cameraImpl) name() string {
	if c.path != "" {
		return c.path
	}
	return "camera " + strconv.Itoa(c.deviceID)
}
