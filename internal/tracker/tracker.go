package tracker

import "image"

// Tracker defaults. The file playback and live camera presets differ only in
// association threshold and trail length.
const (
	DefaultThreshold      = 50.0
	DefaultMaxTrajectory  = 30
	DefaultBootstrapTicks = 2

	LiveThreshold     = 80.0
	LiveMaxTrajectory = 50
)

// Config holds configuration options for a Tracker.
type Config struct {
	// Threshold is the association distance in pixels. A detection matches a
	// track only when its centroid is strictly closer than this.
	Threshold float64 `json:"threshold"`

	// MaxTrajectory caps the number of points kept per track.
	MaxTrajectory int `json:"max_trajectory"`

	// BootstrapTicks is the number of initial ticks during which every
	// detection starts a new track and no association is attempted.
	BootstrapTicks int `json:"bootstrap_ticks"`
}

// DefaultConfig returns the file playback configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		MaxTrajectory:  DefaultMaxTrajectory,
		BootstrapTicks: DefaultBootstrapTicks,
	}
}

// FileConfig returns the configuration used for video file playback.
func FileConfig() Config {
	return DefaultConfig()
}

// LiveConfig returns the configuration used for a live camera.
func LiveConfig() Config {
	return Config{
		Threshold:      LiveThreshold,
		MaxTrajectory:  LiveMaxTrajectory,
		BootstrapTicks: DefaultBootstrapTicks,
	}
}

// Tracker assigns stable identities to detections across ticks.
//
// A Tracker is not safe for concurrent use. It is meant to be owned by a
// single driver loop that calls Update once per frame.
type Tracker struct {
	config Config
	tracks map[int]*Track
	ids    []int // live track ids in creation order
	nextID int
	tick   int

	onCreated func(Track)
	onRetired func(Track)
}

// New creates a Tracker. Non-positive config values fall back to defaults,
// except BootstrapTicks where zero disables the bootstrap phase.
func New(config Config) *Tracker {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.MaxTrajectory <= 0 {
		config.MaxTrajectory = DefaultMaxTrajectory
	}
	if config.BootstrapTicks < 0 {
		config.BootstrapTicks = DefaultBootstrapTicks
	}

	return &Tracker{
		config: config,
		tracks: make(map[int]*Track),
	}
}

// Config returns the tracker configuration in effect.
func (t *Tracker) Config() Config {
	return t.config
}

// OnCreated registers a callback invoked for each new track.
func (t *Tracker) OnCreated(fn func(Track)) {
	t.onCreated = fn
}

// OnRetired registers a callback invoked for each track deleted after
// failing to match.
func (t *Tracker) OnRetired(fn func(Track)) {
	t.onRetired = fn
}

// Update consumes one tick's detections and returns the resulting track table.
//
// During the bootstrap ticks every detection becomes a new track. Afterwards
// each live track, in ascending id order, claims the first unclaimed detection
// (in input order) whose centroid lies strictly within the threshold. Tracks
// that claim nothing are deleted and unclaimed detections start new tracks.
func (t *Tracker) Update(detections []Detection) map[int]Track {
	t.tick++

	if t.tick <= t.config.BootstrapTicks {
		for _, d := range detections {
			t.create(d)
		}
		return t.table()
	}

	claimed := make([]bool, len(detections))
	survivors := t.ids[:0:0]

	for _, id := range t.ids {
		track := t.tracks[id]

		match := -1
		for i, d := range detections {
			if claimed[i] {
				continue
			}
			if distance(track.Centroid, d.Centroid()) < t.config.Threshold {
				match = i
				break
			}
		}

		if match < 0 {
			delete(t.tracks, id)
			if t.onRetired != nil {
				t.onRetired(track.clone())
			}
			continue
		}

		claimed[match] = true
		t.advance(track, detections[match])
		survivors = append(survivors, id)
	}
	t.ids = survivors

	for i, d := range detections {
		if !claimed[i] {
			t.create(d)
		}
	}

	return t.table()
}

// Clear trims every trajectory down to the track's current centroid.
// Track identities, centroids, metadata and the id counter are unchanged.
func (t *Tracker) Clear() {
	for _, track := range t.tracks {
		track.Trajectory = append(track.Trajectory[:0], track.Centroid)
	}
}

// Tracks returns copies of all live tracks ordered by id.
func (t *Tracker) Tracks() []Track {
	out := make([]Track, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, t.tracks[id].clone())
	}
	return out
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	return len(t.tracks)
}

// Tick returns the number of Update calls made so far.
func (t *Tracker) Tick() int {
	return t.tick
}

// NextID returns the id the next new track will receive, which is also the
// total number of tracks created so far.
func (t *Tracker) NextID() int {
	return t.nextID
}

func (t *Tracker) create(d Detection) {
	c := d.Centroid()
	track := &Track{
		ID:         t.nextID,
		Centroid:   c,
		ClassID:    d.ClassID,
		Score:      d.Score,
		Trajectory: make([]image.Point, 1, t.config.MaxTrajectory),
		FirstTick:  t.tick,
		LastTick:   t.tick,
	}
	track.Trajectory[0] = c

	t.tracks[track.ID] = track
	t.ids = append(t.ids, track.ID)
	t.nextID++

	if t.onCreated != nil {
		t.onCreated(track.clone())
	}
}

func (t *Tracker) advance(track *Track, d Detection) {
	c := d.Centroid()
	track.Centroid = c
	track.ClassID = d.ClassID
	track.Score = d.Score
	track.LastTick = t.tick

	// Shift left by one once full, dropping the oldest point.
	if len(track.Trajectory) >= t.config.MaxTrajectory {
		copy(track.Trajectory, track.Trajectory[1:])
		track.Trajectory = track.Trajectory[:t.config.MaxTrajectory-1]
	}
	track.Trajectory = append(track.Trajectory, c)
}

func (t *Tracker) table() map[int]Track {
	out := make(map[int]Track, len(t.tracks))
	for id, track := range t.tracks {
		out[id] = track.clone()
	}
	return out
}
