package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/trailcam/internal/server/api"
)

// StreamPollInterval is how often the stream checks for a new frame.
const StreamPollInterval = 33 * time.Millisecond

// StreamHandler serves the rendered frames as MJPEG.
type StreamHandler struct {
	pipeline api.Pipeline
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading frames from p.
func NewStreamHandler(p api.Pipeline) *StreamHandler {
	return &StreamHandler{pipeline: p, interval: StreamPollInterval}
}

// ServeHTTP streams every newly published frame until the client leaves.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		data, seq := h.pipeline.Frame()
		if seq == last || len(data) == 0 {
			continue
		}
		last = seq

		if err := writePart(w, data); err != nil {
			return
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
