package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/trailcam/internal/store"
)

// SessionHandler handles HTTP requests for recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Preset        string  `json:"preset"`
	Threshold     float64 `json:"threshold"`
	MaxTrajectory int     `json:"max_trajectory"`
	Frames        int     `json:"frames"`
	Tracks        int     `json:"tracks"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type trackRecordResponse struct {
	TrackID    int      `json:"track_id"`
	ClassID    int      `json:"class_id"`
	Score      float32  `json:"score"`
	FirstTick  int      `json:"first_tick"`
	LastTick   int      `json:"last_tick"`
	Trajectory [][2]int `json:"trajectory"`
}

type listTrackRecordsResponse struct {
	Tracks []trackRecordResponse `json:"tracks"`
}

type screenshotResponse struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Frame     int    `json:"frame"`
	Tracks    int    `json:"tracks"`
	CreatedAt string `json:"created_at"`
}

type listScreenshotsResponse struct {
	Screenshots []screenshotResponse `json:"screenshots"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:            s.ID,
		Source:        s.Source,
		Preset:        s.Preset,
		Threshold:     s.Threshold,
		MaxTrajectory: s.MaxTrajectory,
		Frames:        s.Frames,
		Tracks:        s.Tracks,
		StartedAt:     formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// ServeHTTP routes:
//
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/tracks
//	GET    /api/sessions/{id}/screenshots
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "tracks", "screenshots":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if sub == "tracks" {
			h.tracks(w, r, id)
		} else {
			h.screenshots(w, r, id)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) tracks(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	records, err := h.store.Tracks().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}

	resp := listTrackRecordsResponse{Tracks: make([]trackRecordResponse, 0, len(records))}
	for _, rec := range records {
		tr := trackRecordResponse{
			TrackID:    rec.TrackID,
			ClassID:    rec.ClassID,
			Score:      rec.Score,
			FirstTick:  rec.FirstTick,
			LastTick:   rec.LastTick,
			Trajectory: make([][2]int, len(rec.Trajectory)),
		}
		for i, p := range rec.Trajectory {
			tr.Trajectory[i] = point(p)
		}
		resp.Tracks = append(resp.Tracks, tr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) screenshots(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	shots, err := h.store.Screenshots().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list screenshots")
		return
	}

	resp := listScreenshotsResponse{Screenshots: make([]screenshotResponse, 0, len(shots))}
	for _, s := range shots {
		resp.Screenshots = append(resp.Screenshots, screenshotResponse{
			ID:        s.ID,
			Path:      s.Path,
			Frame:     s.Frame,
			Tracks:    s.Tracks,
			CreatedAt: formatTime(s.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookup writes the error response itself when the session is unavailable.
func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	s, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return nil, false
	}
	return s, true
}
