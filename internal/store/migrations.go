package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per run of the driver loop
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			preset TEXT NOT NULL,
			threshold REAL NOT NULL,
			max_trajectory INTEGER NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0,
			tracks INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Summary of every track at the moment it was retired
		`CREATE TABLE IF NOT EXISTS track_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			track_id INTEGER NOT NULL,
			class_id INTEGER NOT NULL,
			score REAL NOT NULL,
			first_tick INTEGER NOT NULL,
			last_tick INTEGER NOT NULL,
			trajectory TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS screenshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			frame INTEGER NOT NULL,
			tracks INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_track_history_session_id ON track_history(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_screenshots_session_id ON screenshots(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
