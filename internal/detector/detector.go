// Package detector provides object detection interfaces and a YOLOv4
// implementation backed by the OpenCV DNN module.
package detector

import (
	"path/filepath"

	"github.com/ayusman/trailcam/internal/tracker"
	"gocv.io/x/gocv"
)

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the objects found in it.
	// Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]tracker.Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Default model file names inside the model directory.
const (
	DefaultModelDir    = "dnn_model"
	DefaultWeightsFile = "yolov4.weights"
	DefaultConfigFile  = "yolov4.cfg"
	DefaultClassesFile = "classes.txt"
)

// Config holds configuration options for object detection.
type Config struct {
	WeightsPath string `json:"weights_path"`
	ConfigPath  string `json:"config_path"`
	NamesPath   string `json:"names_path"`

	// InputSize is the square network input resolution (default: 416).
	InputSize int `json:"input_size"`

	// ConfThreshold is the minimum class confidence (0.0-1.0).
	ConfThreshold float32 `json:"conf_threshold"`

	// NMSThreshold is the overlap threshold for non-maximum suppression.
	NMSThreshold float32 `json:"nms_threshold"`
}

// DefaultConfig returns a Config pointing at the standard model directory.
func DefaultConfig() Config {
	return ConfigForDir(DefaultModelDir)
}

// ConfigForDir returns the default Config with model files under dir.
func ConfigForDir(dir string) Config {
	return Config{
		WeightsPath:   filepath.Join(dir, DefaultWeightsFile),
		ConfigPath:    filepath.Join(dir, DefaultConfigFile),
		NamesPath:     filepath.Join(dir, DefaultClassesFile),
		InputSize:     416,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
	}
}

// Exclude returns the detections whose class is not in classIDs.
// The input slice is left untouched.
func Exclude(dets []tracker.Detection, classIDs []int) []tracker.Detection {
	if len(classIDs) == 0 {
		return dets
	}

	skip := make(map[int]struct{}, len(classIDs))
	for _, id := range classIDs {
		skip[id] = struct{}{}
	}

	out := make([]tracker.Detection, 0, len(dets))
	for _, d := range dets {
		if _, ok := skip[d.ClassID]; ok {
			continue
		}
		out = append(out, d)
	}
	return out
}
