package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per detection session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Events table - accepted stable gesture events
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			hand_id INTEGER NOT NULL DEFAULT 0,
			bbox_min_x INTEGER NOT NULL,
			bbox_min_y INTEGER NOT NULL,
			bbox_max_x INTEGER NOT NULL,
			bbox_max_y INTEGER NOT NULL,
			center_x INTEGER NOT NULL,
			center_y INTEGER NOT NULL,
			landmarks TEXT NOT NULL DEFAULT '[]',
			previous_label TEXT NOT NULL DEFAULT '',
			previous_held_ms INTEGER NOT NULL DEFAULT 0,
			detected_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for history and per-label queries
		`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_detected_at ON events(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_label ON events(label)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
