package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/trailcam/internal/capture"
	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/metric"
	"github.com/ayusman/trailcam/internal/render"
	"github.com/ayusman/trailcam/internal/store"
	"gocv.io/x/gocv"
)

// loop is the frame loop. Each iteration:
//  1. reads a frame (end of file stops the loop cleanly)
//  2. detects on sampled frames, otherwise reuses the cached detections
//  3. updates the tracker once, whether or not detection ran
//  4. renders, shows and publishes the frame
//  5. applies key presses and queued commands against that frame
func (a *App) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if a.paused {
			if quit := a.waitPaused(ctx); quit {
				return nil
			}
			continue
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				a.log.Infow("end of video", "frames", a.frames)
				return nil
			}
			return fmt.Errorf("read frame %d: %w", a.frames+1, err)
		}

		quit, err := a.process(frame)
		frame.Close()
		if err != nil || quit {
			return err
		}
	}
}

// process runs one tick on frame and returns whether the loop should quit.
func (a *App) process(frame *gocv.Mat) (bool, error) {
	a.frames++

	outcome := metric.FrameReused
	if a.sampler.Due() {
		outcome = metric.FrameDetected
		if a.gate != nil {
			if moved, _ := a.gate.Moved(frame); !moved {
				outcome = metric.FrameStill
			}
		}
	}

	if outcome == metric.FrameDetected {
		if err := a.detect(frame); err != nil {
			return false, err
		}
	}

	a.tracker.Update(a.cache)
	tracks := a.tracker.Tracks()
	a.observeFrame(outcome)

	var fps float64
	if a.config.Settings.ShowFPS {
		fps = a.fps.tick(time.Now())
	}

	a.renderer.Draw(frame, tracks, a.cache, outcome != metric.FrameDetected)
	a.renderer.DrawHUD(frame, render.HUD{
		Tracked: len(tracks),
		Frame:   a.frames,
		FPS:     fps,
		Size:    a.camera.Size(),
		Conf:    a.config.Settings.Detector.ConfThreshold,
	})
	a.publish(frame, fps)

	key := -1
	if a.display != nil {
		a.display.Show(frame)
		key = a.display.PollKey(KeyDelayMs)
	}

	if a.apply(KeyCommand(key), frame) {
		return true, nil
	}
	return a.drain(frame), nil
}

func (a *App) detect(frame *gocv.Mat) error {
	start := time.Now()
	dets, err := a.detector.Detect(frame)
	if err != nil {
		if a.config.Metric != nil {
			a.config.Metric.AddDetectFailure()
		}
		return fmt.Errorf("detect frame %d: %w", a.frames, err)
	}

	a.cache = detector.Exclude(dets, a.config.Settings.ExcludeClasses)
	if a.config.Metric != nil {
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		a.config.Metric.AddDetection(len(a.cache), elapsed)
	}
	return nil
}

func (a *App) observeFrame(outcome string) {
	if a.config.Metric == nil {
		return
	}
	a.config.Metric.AddFrame(outcome)
	a.config.Metric.SetActiveTracks(a.tracker.Len())
}

// waitPaused blocks for one poll interval while paused. ESC quits, any other
// key resumes.
func (a *App) waitPaused(ctx context.Context) bool {
	if a.display != nil {
		key := a.display.PollKey(PausePollMs)
		switch {
		case KeyCommand(key) == CmdQuit:
			return true
		case key >= 0:
			a.setPaused(false)
			return false
		}
		return a.drain(nil)
	}

	select {
	case <-ctx.Done():
		return true
	case cmd := <-a.commands:
		return a.apply(cmd, nil)
	case <-time.After(PausePollMs * time.Millisecond):
		return false
	}
}

// drain applies every queued command without blocking.
func (a *App) drain(frame *gocv.Mat) bool {
	for {
		select {
		case cmd := <-a.commands:
			if a.apply(cmd, frame) {
				return true
			}
		default:
			return false
		}
	}
}

// apply executes cmd and reports whether the loop should quit. frame is the
// current rendered frame, or nil while paused.
func (a *App) apply(cmd Command, frame *gocv.Mat) bool {
	switch cmd {
	case CmdQuit:
		a.log.Infow("exiting", "frames", a.frames)
		return true

	case CmdPause:
		a.setPaused(!a.paused)
		if a.paused {
			a.log.Infow("paused", "frame", a.frames)
		} else {
			a.log.Infow("resumed", "frame", a.frames)
		}

	case CmdScreenshot:
		path, err := a.screenshot(frame)
		if err != nil {
			a.log.Warnw("screenshot failed", "error", err)
			break
		}
		a.log.Infow("screenshot saved", "path", path)

	case CmdClearTrails:
		a.tracker.Clear()
		a.log.Infow("trajectory trails cleared", "tracks", a.tracker.Len())
		a.publishTracks()
	}
	return false
}

func (a *App) setPaused(paused bool) {
	a.paused = paused
	a.mu.Lock()
	a.snapshot.Paused = paused
	a.mu.Unlock()
}

// ScreenshotName returns the file name for a screenshot of frame n.
func ScreenshotName(prefix string, n int) string {
	return fmt.Sprintf("%s%d.jpg", prefix, n)
}

// screenshot writes the rendered frame to the screenshot directory. While
// paused there is no live frame and the last published JPEG is written.
func (a *App) screenshot(frame *gocv.Mat) (string, error) {
	s := a.config.Settings
	path := filepath.Join(s.ScreenshotDir, ScreenshotName(s.ScreenshotPrefix, a.frames))

	if frame != nil {
		if ok := gocv.IMWrite(path, *frame); !ok {
			return "", fmt.Errorf("write %s", path)
		}
	} else {
		data, _ := a.Frame()
		if len(data) == 0 {
			return "", errors.New("no frame to save")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", err
		}
	}

	if a.config.Metric != nil {
		a.config.Metric.AddScreenshot()
	}
	if a.session != nil {
		shot := &store.Screenshot{
			SessionID: a.session.ID,
			Path:      path,
			Frame:     a.frames,
			Tracks:    a.tracker.Len(),
		}
		if err := a.config.Store.Screenshots().Create(shot); err != nil {
			a.log.Warnw("screenshot not recorded", "path", path, "error", err)
		}
	}
	return path, nil
}

// publish stores the snapshot and, when enabled, the JPEG of frame.
func (a *App) publish(frame *gocv.Mat, fps float64) {
	var data []byte
	if a.config.PublishJPEG {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		if err != nil {
			a.log.Debugw("jpeg encode failed", "frame", a.frames, "error", err)
		} else {
			data = buf.GetBytes()
			buf.Close()
		}
	}

	snap := a.buildSnapshot(fps)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = snap
	if data != nil {
		a.jpeg = data
		a.jpegSeq++
	}
}

// publishTracks refreshes the published tracks without a new frame.
func (a *App) publishTracks() {
	a.mu.RLock()
	fps := a.snapshot.FPS
	a.mu.RUnlock()

	snap := a.buildSnapshot(fps)

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()
}

func (a *App) buildSnapshot(fps float64) Snapshot {
	snap := Snapshot{
		Frame:      a.frames,
		Tick:       a.tracker.Tick(),
		Tracks:     a.tracker.Tracks(),
		Detections: len(a.cache),
		Paused:     a.paused,
		FPS:        fps,
		Created:    a.tracker.NextID(),
	}
	if a.session != nil {
		snap.SessionID = a.session.ID
	}
	return snap
}
