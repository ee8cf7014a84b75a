package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"sync"

	"github.com/ayusman/trailcam/internal/tracker"
	"gocv.io/x/gocv"
)

// ErrModelMissing is returned when a model file is absent or empty.
var ErrModelMissing = errors.New("model file missing")

// YOLODetector implements Detector with a Darknet YOLOv4 network.
type YOLODetector struct {
	config      Config
	net         gocv.Net
	outputNames []string
	classes     []string
	mu          sync.Mutex
}

// NewYOLODetector loads the network and class names described by config.
func NewYOLODetector(config Config) (*YOLODetector, error) {
	for _, p := range []string{config.WeightsPath, config.ConfigPath, config.NamesPath} {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, p)
		}
	}

	classes, err := LoadClasses(config.NamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromDarknet(config.ConfigPath, config.WeightsPath)
	if net.Empty() {
		return nil, fmt.Errorf("read darknet model from %s", config.WeightsPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names := outputNames(&net)
	if len(names) == 0 {
		net.Close()
		return nil, errors.New("model has no output layers")
	}

	if config.InputSize <= 0 {
		config.InputSize = DefaultConfig().InputSize
	}

	return &YOLODetector{
		config:      config,
		net:         net,
		outputNames: names,
		classes:     classes,
	}, nil
}

// Classes returns the class names loaded with the model.
func (d *YOLODetector) Classes() []string {
	return d.classes
}

// Detect runs a forward pass on frame and returns detections after
// confidence filtering and per-class non-maximum suppression.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]tracker.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	size := image.Pt(d.config.InputSize, d.config.InputSize)
	blob := gocv.BlobFromImage(*frame, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	outs := d.net.ForwardLayers(d.outputNames)
	defer func() {
		for _, out := range outs {
			out.Close()
		}
	}()

	var candidates []candidate
	for _, out := range outs {
		data, err := out.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("read network output: %w", err)
		}
		candidates = append(candidates, decodeRows(data, out.Cols(), frame.Cols(), frame.Rows(), d.config.ConfThreshold)...)
	}

	return suppress(candidates, d.config.ConfThreshold, d.config.NMSThreshold), nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// candidate is a decoded box before suppression.
type candidate struct {
	classID int
	score   float32
	box     image.Rectangle
}

// decodeRows converts YOLO output rows laid out as
// [cx, cy, w, h, objectness, class scores...] with coordinates normalized to
// the input into pixel boxes for a width x height frame. Rows whose best class
// score is below confThreshold are dropped.
func decodeRows(data []float32, cols, width, height int, confThreshold float32) []candidate {
	if cols <= 5 {
		return nil
	}

	var out []candidate
	for off := 0; off+cols <= len(data); off += cols {
		row := data[off : off+cols]

		best, score := 0, float32(0)
		for i, s := range row[5:] {
			if s > score {
				best, score = i, s
			}
		}
		if score < confThreshold || score == 0 {
			continue
		}

		cx := row[0] * float32(width)
		cy := row[1] * float32(height)
		w := row[2] * float32(width)
		h := row[3] * float32(height)

		left := int(cx - w/2)
		top := int(cy - h/2)
		out = append(out, candidate{
			classID: best,
			score:   score,
			box:     image.Rect(left, top, left+int(w), top+int(h)),
		})
	}
	return out
}

// suppress runs non-maximum suppression separately for each class and returns
// the kept boxes ordered by class id, then by descending score.
func suppress(cands []candidate, confThreshold, nmsThreshold float32) []tracker.Detection {
	if len(cands) == 0 {
		return nil
	}

	byClass := make(map[int][]candidate)
	var classIDs []int
	for _, c := range cands {
		if _, ok := byClass[c.classID]; !ok {
			classIDs = append(classIDs, c.classID)
		}
		byClass[c.classID] = append(byClass[c.classID], c)
	}
	sort.Ints(classIDs)

	var dets []tracker.Detection
	for _, id := range classIDs {
		group := byClass[id]

		boxes := make([]image.Rectangle, len(group))
		scores := make([]float32, len(group))
		for i, c := range group {
			boxes[i] = c.box
			scores[i] = c.score
		}

		for _, idx := range gocv.NMSBoxes(boxes, scores, confThreshold, nmsThreshold) {
			c := group[idx]
			dets = append(dets, tracker.Detection{ClassID: c.classID, Score: c.score, Box: c.box})
		}
	}
	return dets
}

// outputNames returns the names of the network's unconnected output layers.
func outputNames(net *gocv.Net) []string {
	return layerNames(net.GetUnconnectedOutLayers(), func(id int) namedLayer {
		layer := net.GetLayer(id)
		return &layer
	})
}

// namedLayer is the part of gocv.Layer used to read output names.
type namedLayer interface {
	GetName() string
	Close() error
}

// layerNames reads the name of each layer in ids and releases the layer
// handle afterwards.
func layerNames(ids []int, get func(int) namedLayer) []string {
	var names []string
	for _, id := range ids {
		layer := get(id)
		name := layer.GetName()
		layer.Close()
		if name != "_input" {
			names = append(names, name)
		}
	}
	return names
}
