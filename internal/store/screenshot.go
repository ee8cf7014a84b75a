package store

import (
	"database/sql"
	"time"
)

// Screenshot records a frame saved to disk.
type Screenshot struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	Frame     int       `json:"frame"`
	Tracks    int       `json:"tracks"`
	CreatedAt time.Time `json:"created_at"`
}

// ScreenshotRepository provides operations on screenshots.
type ScreenshotRepository struct {
	db *sql.DB
}

// Screenshots returns the screenshot repository for this store.
func (s *Store) Screenshots() *ScreenshotRepository {
	return &ScreenshotRepository{db: s.db}
}

// Create inserts a screenshot and fills in its ID.
func (r *ScreenshotRepository) Create(shot *Screenshot) error {
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO screenshots (session_id, path, frame, tracks, created_at) VALUES (?, ?, ?, ?, ?)`,
		shot.SessionID, shot.Path, shot.Frame, shot.Tracks, shot.CreatedAt,
	)
	if err != nil {
		return err
	}

	shot.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns the screenshots of a session in frame order.
func (r *ScreenshotRepository) ListBySession(sessionID string) ([]Screenshot, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, path, frame, tracks, created_at
		 FROM screenshots WHERE session_id = ? ORDER BY frame`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []Screenshot
	for rows.Next() {
		var s Screenshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Path, &s.Frame, &s.Tracks, &s.CreatedAt); err != nil {
			return nil, err
		}
		shots = append(shots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shots, nil
}
