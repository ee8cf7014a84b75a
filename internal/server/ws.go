package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/trailcam/internal/app"
	"github.com/ayusman/trailcam/internal/server/api"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedInterval is how often the websocket feed checks for a new snapshot.
const FeedInterval = 66 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TrackFeed broadcasts the live track table to websocket clients whenever a
// new frame has been processed.
type TrackFeed struct {
	pipeline api.Pipeline
	classes  []string
	log      *zap.SugaredLogger
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	done     chan struct{}
	once     sync.Once
}

// NewTrackFeed creates a TrackFeed and starts its broadcast loop.
func NewTrackFeed(p api.Pipeline, classes []string, log *zap.SugaredLogger) *TrackFeed {
	f := &TrackFeed{
		pipeline: p,
		classes:  classes,
		log:      log,
		clients:  make(map[*websocket.Conn]bool),
		done:     make(chan struct{}),
	}
	go f.broadcast()
	return f
}

// ServeHTTP handles WebSocket upgrade requests.
func (f *TrackFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Debugw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.clients[conn] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		f.mu.Unlock()
	}()

	// Send the current state right away so clients need not wait for a frame.
	if msg, err := f.message(); err == nil {
		f.mu.Lock()
		conn.WriteMessage(websocket.TextMessage, msg)
		f.mu.Unlock()
	}

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (f *TrackFeed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close stops the broadcast loop.
func (f *TrackFeed) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *TrackFeed) message() ([]byte, error) {
	return json.Marshal(api.ToTracksResponse(f.pipeline.Snapshot(), f.classes))
}

// feedKey identifies a snapshot state worth sending. Clearing trails while
// paused changes points without changing the frame.
type feedKey struct {
	frame  int
	paused bool
	points int
}

func keyOf(snap app.Snapshot) feedKey {
	k := feedKey{frame: snap.Frame, paused: snap.Paused}
	for _, t := range snap.Tracks {
		k.points += len(t.Trajectory)
	}
	return k
}

// broadcast sends the snapshot to all clients each time the frame changes.
func (f *TrackFeed) broadcast() {
	ticker := time.NewTicker(FeedInterval)
	defer ticker.Stop()

	var last feedKey
	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
		}

		if f.Clients() == 0 {
			continue
		}

		snap := f.pipeline.Snapshot()
		key := keyOf(snap)
		if key == last {
			continue
		}
		last = key

		msg, err := json.Marshal(api.ToTracksResponse(snap, f.classes))
		if err != nil {
			continue
		}

		// Writes hold the full lock: a websocket connection allows one
		// concurrent writer.
		f.mu.Lock()
		for conn := range f.clients {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				f.log.Debugw("websocket write failed", "error", err)
			}
		}
		f.mu.Unlock()
	}
}
