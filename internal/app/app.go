// Package app runs the detect, track and render loop for one video source.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/trailcam/internal/capture"
	"github.com/ayusman/trailcam/internal/config"
	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/metric"
	"github.com/ayusman/trailcam/internal/render"
	"github.com/ayusman/trailcam/internal/store"
	"github.com/ayusman/trailcam/internal/tracker"
	"go.uber.org/zap"
)

// Loop timing constants.
const (
	// KeyDelayMs is how long the loop waits for a key after showing a frame.
	KeyDelayMs = 1
	// PausePollMs is the poll interval while paused.
	PausePollMs = 50
	// CommandBuffer is the capacity of the command queue.
	CommandBuffer = 16
)

// ErrNoDetector is returned by Run when no detector was set.
var ErrNoDetector = errors.New("no detector configured")

// Config holds configuration options for the application.
type Config struct {
	Settings config.Config

	// Classes are the class names used for labels.
	Classes []string

	// Store records sessions, retired tracks and screenshots. Optional.
	Store *store.Store

	// Metric receives pipeline instruments. Optional.
	Metric *metric.Metric

	// PublishJPEG keeps a JPEG copy of every rendered frame for streaming.
	PublishJPEG bool

	Logger *zap.SugaredLogger
}

// Snapshot is the state published after every processed frame.
type Snapshot struct {
	SessionID  string          `json:"session_id,omitempty"`
	Frame      int             `json:"frame"`
	Tick       int             `json:"tick"`
	Tracks     []tracker.Track `json:"tracks"`
	Detections int             `json:"detections"`
	Paused     bool            `json:"paused"`
	FPS        float64         `json:"fps"`
	Created    int             `json:"created"`
}

// App owns the tracker and drives it from a single goroutine. Other
// goroutines interact through Submit and the published Snapshot.
type App struct {
	config   Config
	log      *zap.SugaredLogger
	camera   capture.Camera
	detector detector.Detector
	display  Display
	gate     *capture.MotionGate
	tracker  *tracker.Tracker
	renderer *render.Renderer
	sampler  *Sampler
	commands chan Command

	// Loop state, touched only by the Run goroutine.
	frames  int
	cache   []tracker.Detection
	paused  bool
	fps     fpsMeter
	session *store.Session

	mu       sync.RWMutex
	snapshot Snapshot
	jpeg     []byte
	jpegSeq  uint64
	cancel   context.CancelFunc
}

// New creates a new App instance with the given configuration. The video
// source is derived from the settings; tests may replace it with SetCamera.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	s := config.Settings

	a := &App{
		config:   config,
		log:      config.Logger,
		camera:   capture.NewSource(s.Source, s.Capture),
		tracker:  tracker.New(s.Tracker),
		renderer: render.New(config.Classes, s.Render),
		sampler:  NewSampler(s.Sampling.Every),
		commands: make(chan Command, CommandBuffer),
	}
	if s.Sampling.MotionGate {
		a.gate = capture.NewMotionGate(s.Sampling.MotionThresh)
	}

	a.tracker.OnCreated(a.trackCreated)
	a.tracker.OnRetired(a.trackRetired)
	return a
}

// SetDetector sets the detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.detector = d
}

// SetCamera replaces the frame source.
func (a *App) SetCamera(c capture.Camera) {
	a.camera = c
}

// SetDisplay sets where rendered frames are shown. Nil runs headless.
func (a *App) SetDisplay(d Display) {
	a.display = d
}

// Submit queues a command for the loop. It never blocks and reports false
// when the queue is full.
func (a *App) Submit(cmd Command) bool {
	select {
	case a.commands <- cmd:
		return true
	default:
		return false
	}
}

// Stop asks a running loop to exit.
func (a *App) Stop() {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Snapshot returns a copy of the latest published state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := a.snapshot
	snap.Tracks = append([]tracker.Track(nil), a.snapshot.Tracks...)
	return snap
}

// Frame returns the latest rendered frame as JPEG and its sequence number.
// The sequence is zero until the first frame is published.
func (a *App) Frame() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.jpegSeq
}

// Run opens the source and processes frames until the source ends, a quit
// command arrives or ctx is cancelled. The end of a video file is a normal
// exit; a failed camera read or detection is returned as an error.
func (a *App) Run(ctx context.Context) error {
	if a.detector == nil {
		return ErrNoDetector
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open source %q: %w", a.config.Settings.Source, err)
	}
	defer a.camera.Close()

	if a.gate != nil {
		defer a.gate.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.startSession()
	a.log.Infow("tracking started",
		"source", a.config.Settings.Source,
		"preset", a.config.Settings.Preset,
		"threshold", a.tracker.Config().Threshold,
		"max_trajectory", a.tracker.Config().MaxTrajectory,
		"every", a.sampler.Every(),
	)

	err := a.loop(ctx)

	a.finishSession()
	a.log.Infow("tracking complete",
		"frames", a.frames,
		"unique_tracks", a.tracker.NextID(),
	)
	return err
}

func (a *App) startSession() {
	if a.config.Store == nil {
		return
	}

	s := a.config.Settings
	sess := &store.Session{
		Source:        s.Source,
		Preset:        s.Preset,
		Threshold:     a.tracker.Config().Threshold,
		MaxTrajectory: a.tracker.Config().MaxTrajectory,
	}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		a.log.Warnw("session not recorded", "error", err)
		return
	}
	a.session = sess
}

// finishSession records the tracks still alive and closes the session row.
func (a *App) finishSession() {
	if a.session == nil {
		return
	}

	for _, t := range a.tracker.Tracks() {
		a.recordTrack(t)
	}
	if err := a.config.Store.Sessions().Finish(a.session.ID, a.frames, a.tracker.NextID()); err != nil {
		a.log.Warnw("session not finished", "session", a.session.ID, "error", err)
	}
}

func (a *App) trackCreated(t tracker.Track) {
	if a.config.Metric != nil {
		a.config.Metric.AddTrackCreated()
	}
	a.log.Debugw("track created", "id", t.ID, "class", t.ClassID, "centroid", t.Centroid)
}

func (a *App) trackRetired(t tracker.Track) {
	if a.config.Metric != nil {
		a.config.Metric.AddTrackRetired(t.Age())
	}
	a.log.Debugw("track retired", "id", t.ID, "age", t.Age())
	a.recordTrack(t)
}

func (a *App) recordTrack(t tracker.Track) {
	if a.session == nil {
		return
	}
	if err := a.config.Store.Tracks().Record(a.session.ID, t); err != nil {
		a.log.Warnw("track not recorded", "id", t.ID, "error", err)
	}
}
