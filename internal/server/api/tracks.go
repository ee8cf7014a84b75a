package api

import (
	"image"
	"net/http"
	"strings"

	"github.com/ayusman/trailcam/internal/app"
	"github.com/ayusman/trailcam/internal/detector"
	"github.com/ayusman/trailcam/internal/tracker"
)

// Pipeline is the view of the running driver loop that handlers need.
type Pipeline interface {
	Snapshot() app.Snapshot
	Submit(cmd app.Command) bool
	Frame() ([]byte, uint64)
}

type trackResponse struct {
	ID         int      `json:"id"`
	ClassID    int      `json:"class_id"`
	Class      string   `json:"class,omitempty"`
	Score      float32  `json:"score"`
	Centroid   [2]int   `json:"centroid"`
	Trajectory [][2]int `json:"trajectory"`
	Color      [3]uint8 `json:"color"`
	Age        int      `json:"age"`
}

type tracksResponse struct {
	SessionID  string          `json:"session_id,omitempty"`
	Frame      int             `json:"frame"`
	Tick       int             `json:"tick"`
	Paused     bool            `json:"paused"`
	FPS        float64         `json:"fps"`
	Detections int             `json:"detections"`
	Created    int             `json:"created"`
	Tracks     []trackResponse `json:"tracks"`
}

type commandResponse struct {
	Command string `json:"command"`
	Queued  bool   `json:"queued"`
}

func point(p image.Point) [2]int {
	return [2]int{p.X, p.Y}
}

func toTrackResponse(t tracker.Track, classes []string) trackResponse {
	c := tracker.Color(t.ID)
	resp := trackResponse{
		ID:         t.ID,
		ClassID:    t.ClassID,
		Score:      t.Score,
		Centroid:   point(t.Centroid),
		Trajectory: make([][2]int, len(t.Trajectory)),
		Color:      [3]uint8{c.R, c.G, c.B},
		Age:        t.Age(),
	}
	if len(classes) > 0 {
		resp.Class = detector.ClassName(classes, t.ClassID)
	}
	for i, p := range t.Trajectory {
		resp.Trajectory[i] = point(p)
	}
	return resp
}

// ToTracksResponse converts a snapshot to its JSON form. It is shared by
// the REST and websocket endpoints.
func ToTracksResponse(snap app.Snapshot, classes []string) any {
	resp := tracksResponse{
		SessionID:  snap.SessionID,
		Frame:      snap.Frame,
		Tick:       snap.Tick,
		Paused:     snap.Paused,
		FPS:        snap.FPS,
		Detections: snap.Detections,
		Created:    snap.Created,
		Tracks:     make([]trackResponse, len(snap.Tracks)),
	}
	for i, t := range snap.Tracks {
		resp.Tracks[i] = toTrackResponse(t, classes)
	}
	return resp
}

// TrackHandler serves the live track table.
type TrackHandler struct {
	pipeline Pipeline
	classes  []string
}

// NewTrackHandler creates a TrackHandler reading from p.
func NewTrackHandler(p Pipeline, classes []string) *TrackHandler {
	return &TrackHandler{pipeline: p, classes: classes}
}

// ServeHTTP handles GET /api/tracks.
func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, ToTracksResponse(h.pipeline.Snapshot(), h.classes))
}

// ControlHandler forwards control requests to the driver loop.
//
// Routes:
//
//	DELETE /api/trails               clear trajectory trails
//	POST   /api/controls/{command}   pause, screenshot, clear or quit
type ControlHandler struct {
	pipeline Pipeline
}

// NewControlHandler creates a ControlHandler for p.
func NewControlHandler(p Pipeline) *ControlHandler {
	return &ControlHandler{pipeline: p}
}

func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/trails" {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.submit(w, app.CmdClearTrails)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/controls/")
	cmd, ok := app.ParseCommand(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown command: "+name)
		return
	}
	h.submit(w, cmd)
}

func (h *ControlHandler) submit(w http.ResponseWriter, cmd app.Command) {
	if !h.pipeline.Submit(cmd) {
		writeError(w, http.StatusServiceUnavailable, "command queue is full")
		return
	}
	writeJSON(w, http.StatusAccepted, commandResponse{Command: cmd.String(), Queued: true})
}
