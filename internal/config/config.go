// Package config assembles runtime settings from presets, an optional JSON
// file and TRAILCAM_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/trailcam/internal/capture"
	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/render"
	"github.com/ayusman/trailcam/internal/tracker"
)

// Preset names.
const (
	PresetFile = "file"
	PresetLive = "live"
)

// ErrUnknownPreset is returned for preset names other than file and live.
var ErrUnknownPreset = errors.New("unknown preset")

// Sampling controls how often the detector runs.
type Sampling struct {
	// Every runs detection on every Nth frame and reuses the last
	// detections in between. 1 detects on every frame.
	Every int `json:"every"`

	// MotionGate additionally skips detection while the scene is still.
	MotionGate   bool    `json:"motion_gate"`
	MotionThresh float64 `json:"motion_thresh"`
}

// Config holds every runtime setting.
type Config struct {
	Preset string `json:"preset"`

	// Source is a camera index ("0") or a video file path.
	Source string `json:"source"`

	Tracker  tracker.Config   `json:"tracker"`
	Detector detector.Config  `json:"detector"`
	Capture  capture.Settings `json:"capture"`
	Sampling Sampling         `json:"sampling"`
	Render   render.Style     `json:"render"`

	// ExcludeClasses are class ids dropped before tracking.
	ExcludeClasses []int `json:"exclude_classes"`

	ScreenshotDir    string `json:"screenshot_dir"`
	ScreenshotPrefix string `json:"screenshot_prefix"`

	// ShowFPS adds the measured frame rate to the HUD.
	ShowFPS bool `json:"show_fps"`

	DBPath string `json:"db_path"`
	Addr   string `json:"addr"`

	// DetectBuckets are histogram buckets for detection latency in ms.
	DetectBuckets []float64 `json:"detect_buckets"`
}

// Preset returns the built-in configuration for name.
func Preset(name string) (Config, error) {
	switch name {
	case PresetFile, "":
		return Config{
			Preset:           PresetFile,
			Source:           "los_angeles.mp4",
			Tracker:          tracker.FileConfig(),
			Detector:         detector.DefaultConfig(),
			Sampling:         Sampling{Every: 1, MotionThresh: 1.0},
			Render:           render.FileStyle(),
			ScreenshotDir:    ".",
			ScreenshotPrefix: "screenshot_frame_",
			Addr:             ":8080",
		}, nil

	case PresetLive:
		det := detector.DefaultConfig()
		det.ConfThreshold = 0.4
		det.NMSThreshold = 0.3

		return Config{
			Preset:   PresetLive,
			Source:   "0",
			Tracker:  tracker.LiveConfig(),
			Detector: det,
			Capture:  capture.DefaultSettings(),
			Sampling: Sampling{Every: 2, MotionThresh: 1.0},
			Render:   render.LiveStyle(),

			// Person is class 0 in COCO; the live preset follows objects only.
			ExcludeClasses:   []int{0},
			ScreenshotDir:    ".",
			ScreenshotPrefix: "live_camera_frame_",
			ShowFPS:          true,
			Addr:             ":8080",
		}, nil
	}

	return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Load starts from the named preset and overlays the JSON file at path when
// path is not empty. Fields absent from the file keep their preset values.
func Load(path, preset string) (Config, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TRAILCAM_* environment variables.
// Unparseable values are reported, not ignored.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, set func(float64)) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		set(f)
	}
	integer := func(key string, set func(int)) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		set(n)
	}

	str("TRAILCAM_SOURCE", &c.Source)
	if dir := os.Getenv("TRAILCAM_MODEL_DIR"); dir != "" {
		d := detector.ConfigForDir(dir)
		c.Detector.WeightsPath, c.Detector.ConfigPath, c.Detector.NamesPath = d.WeightsPath, d.ConfigPath, d.NamesPath
	}
	str("TRAILCAM_SCREENSHOT_DIR", &c.ScreenshotDir)
	str("TRAILCAM_DB", &c.DBPath)
	str("TRAILCAM_ADDR", &c.Addr)

	num("TRAILCAM_THRESHOLD", func(f float64) { c.Tracker.Threshold = f })
	integer("TRAILCAM_MAX_TRAIL", func(n int) { c.Tracker.MaxTrajectory = n })
	num("TRAILCAM_CONF", func(f float64) { c.Detector.ConfThreshold = float32(f) })
	num("TRAILCAM_NMS", func(f float64) { c.Detector.NMSThreshold = float32(f) })
	integer("TRAILCAM_EVERY", func(n int) { c.Sampling.Every = n })

	if v := os.Getenv("TRAILCAM_DETECT_BUCKETS"); v != "" {
		buckets, err := ParseBuckets(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRAILCAM_DETECT_BUCKETS: %w", err))
		} else {
			c.DetectBuckets = buckets
		}
	}

	return errors.Join(errs...)
}

// Validate checks that the configuration can drive a session.
func (c *Config) Validate() error {
	switch {
	case c.Source == "":
		return errors.New("source is required")
	case c.Tracker.Threshold <= 0:
		return fmt.Errorf("tracker threshold must be positive, got %v", c.Tracker.Threshold)
	case c.Tracker.MaxTrajectory <= 0:
		return fmt.Errorf("max trajectory must be positive, got %d", c.Tracker.MaxTrajectory)
	case c.Tracker.BootstrapTicks < 0:
		return fmt.Errorf("bootstrap ticks must not be negative, got %d", c.Tracker.BootstrapTicks)
	case c.Detector.ConfThreshold < 0 || c.Detector.ConfThreshold > 1:
		return fmt.Errorf("confidence threshold must be in [0,1], got %v", c.Detector.ConfThreshold)
	case c.Detector.NMSThreshold < 0 || c.Detector.NMSThreshold > 1:
		return fmt.Errorf("nms threshold must be in [0,1], got %v", c.Detector.NMSThreshold)
	case c.Sampling.Every < 1:
		return fmt.Errorf("sampling interval must be at least 1, got %d", c.Sampling.Every)
	}
	return nil
}

// ParseBuckets parses a comma-separated list of histogram bucket bounds.
func ParseBuckets(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var buckets []float64
	for _, p := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: %w", p, err)
		}
		if len(buckets) > 0 && f <= buckets[len(buckets)-1] {
			return nil, fmt.Errorf("buckets must increase, got %v after %v", f, buckets[len(buckets)-1])
		}
		buckets = append(buckets, f)
	}
	return buckets, nil
}
