package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"image"
	"time"

	"github.com/gestureguard/gestureguard/internal/gesture"
)

// Event is a persisted gesture event record.
type Event struct {
	ID           string
	SessionID    string
	Label        string
	Confidence   float64
	HandID       int
	BBox         image.Rectangle
	Center       image.Point
	Landmarks    []image.Point
	Previous     string
	PreviousHeld time.Duration
	DetectedAt   time.Time
	CreatedAt    time.Time
}

// EventRepository provides access to persisted gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record persists an accepted gesture event under the given session.
func (r *EventRepository) Record(sessionID string, e *gesture.Event) error {
	landmarks, err := json.Marshal(e.Landmarks)
	if err != nil {
		return err
	}

	var session any
	if sessionID != "" {
		session = sessionID
	}

	_, err = r.db.Exec(
		`INSERT INTO events (id, session_id, label, confidence, hand_id,
			bbox_min_x, bbox_min_y, bbox_max_x, bbox_max_y,
			center_x, center_y, landmarks, previous_label, previous_held_ms, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, session, e.Label, e.Confidence, e.HandID,
		e.BBox.Min.X, e.BBox.Min.Y, e.BBox.Max.X, e.BBox.Max.Y,
		e.Center.X, e.Center.Y, string(landmarks), e.Previous,
		e.PreviousHeld.Milliseconds(), e.DetectedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, label, confidence, hand_id,
			bbox_min_x, bbox_min_y, bbox_max_x, bbox_max_y,
			center_x, center_y, landmarks, previous_label, previous_held_ms,
			detected_at, created_at
		 FROM events WHERE id = ?`,
		id,
	)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListRecent retrieves the most recent events, newest first.
func (r *EventRepository) ListRecent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, label, confidence, hand_id,
			bbox_min_x, bbox_min_y, bbox_max_x, bbox_max_y,
			center_x, center_y, landmarks, previous_label, previous_held_ms,
			detected_at, created_at
		 FROM events ORDER BY detected_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByLabel returns the number of recorded events per gesture label.
func (r *EventRepository) CountByLabel() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM events GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// PurgeBefore deletes events detected before the cutoff and returns how
// many were removed.
func (r *EventRepository) PurgeBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE detected_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	event := &Event{}
	var sessionID sql.NullString
	var landmarks string
	var heldMs int64

	err := s.Scan(
		&event.ID, &sessionID, &event.Label, &event.Confidence, &event.HandID,
		&event.BBox.Min.X, &event.BBox.Min.Y, &event.BBox.Max.X, &event.BBox.Max.Y,
		&event.Center.X, &event.Center.Y, &landmarks, &event.Previous, &heldMs,
		&event.DetectedAt, &event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sessionID.Valid {
		event.SessionID = sessionID.String
	}
	event.PreviousHeld = time.Duration(heldMs) * time.Millisecond

	if err := json.Unmarshal([]byte(landmarks), &event.Landmarks); err != nil {
		return nil, err
	}

	return event, nil
}
