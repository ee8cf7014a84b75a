package store

import (
	"database/sql"
	"encoding/json"
	"image"
	"time"

	"github.com/ayusman/trailcam/internal/tracker"
)

// TrackRecord is the summary of a retired track.
type TrackRecord struct {
	ID         int64         `json:"id"`
	SessionID  string        `json:"session_id"`
	TrackID    int           `json:"track_id"`
	ClassID    int           `json:"class_id"`
	Score      float32       `json:"score"`
	FirstTick  int           `json:"first_tick"`
	LastTick   int           `json:"last_tick"`
	Trajectory []image.Point `json:"trajectory"`
	CreatedAt  time.Time     `json:"created_at"`
}

// TrackRepository records retired tracks.
type TrackRepository struct {
	db *sql.DB
}

// Tracks returns the track history repository for this store.
func (s *Store) Tracks() *TrackRepository {
	return &TrackRepository{db: s.db}
}

// Record stores the final state of t under sessionID.
func (r *TrackRepository) Record(sessionID string, t tracker.Track) error {
	data, err := json.Marshal(t.Trajectory)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO track_history (session_id, track_id, class_id, score, first_tick, last_tick, trajectory)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, t.ID, t.ClassID, t.Score, t.FirstTick, t.LastTick, string(data),
	)
	return err
}

// ListBySession returns the tracks recorded for a session ordered by track id.
func (r *TrackRepository) ListBySession(sessionID string) ([]TrackRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, track_id, class_id, score, first_tick, last_tick, trajectory, created_at
		 FROM track_history
		 WHERE session_id = ?
		 ORDER BY track_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TrackRecord
	for rows.Next() {
		var rec TrackRecord
		var data string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.TrackID, &rec.ClassID, &rec.Score,
			&rec.FirstTick, &rec.LastTick, &data, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Trajectory); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountBySession returns how many tracks were recorded for a session.
func (r *TrackRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM track_history WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
