package gesture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/gestureguard/gestureguard/internal/detector"
)

// ErrInvalidObservation is returned when event construction is attempted
// from malformed geometry or confidence.
var ErrInvalidObservation = errors.New("invalid observation")

// Event is an immutable record of an accepted stable gesture, combining
// the transition with the observation that triggered it. Created once per
// transition and never mutated afterwards.
type Event struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	Confidence   float64         `json:"confidence"`
	HandID       int             `json:"hand_id"`
	BBox         image.Rectangle `json:"bbox"`
	Center       image.Point     `json:"center"`
	Landmarks    []image.Point   `json:"landmarks"`
	Previous     string          `json:"previous,omitempty"`
	PreviousHeld time.Duration   `json:"previous_held"`
	DetectedAt   time.Time       `json:"detected_at"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// BuildEvent combines a stability transition with its originating
// observation into an Event. It is a pure transform: it validates its
// inputs and either returns a complete event or an error wrapping
// ErrInvalidObservation, never a partial one.
func BuildEvent(tr *Transition, obs detector.Observation, cls detector.Classification) (*Event, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transition", ErrInvalidObservation)
	}
	if tr.Label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalidObservation)
	}
	if cls.Confidence < 0 || cls.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %f outside [0,1]", ErrInvalidObservation, cls.Confidence)
	}
	if obs.BBox.Min.X > obs.BBox.Max.X || obs.BBox.Min.Y > obs.BBox.Max.Y {
		return nil, fmt.Errorf("%w: inverted bounding box %v", ErrInvalidObservation, obs.BBox)
	}

	// Copy the landmark slice so the event stays immutable even if the
	// observation buffer is reused.
	landmarks := make([]image.Point, len(obs.Landmarks))
	copy(landmarks, obs.Landmarks)

	return &Event{
		ID:           uuid.NewString(),
		Label:        tr.Label,
		Confidence:   cls.Confidence,
		HandID:       obs.HandID,
		BBox:         obs.BBox,
		Center:       obs.Center,
		Landmarks:    landmarks,
		Previous:     tr.Previous,
		PreviousHeld: tr.PreviousHeld,
		DetectedAt:   tr.At,
		Metadata:     map[string]any{},
	}, nil
}
