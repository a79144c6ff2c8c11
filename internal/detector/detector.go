// Package detector provides hand observation and gesture classification
// types for the GestureGuard alerting pipeline.
package detector

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Observation is one hand detection for one frame. HandID is only stable
// within a single frame's detection batch; it is not a persistent identity
// across frames.
type Observation struct {
	HandID    int             `json:"hand_id"`
	BBox      image.Rectangle `json:"bbox"`
	Center    image.Point     `json:"center"`
	Landmarks []image.Point   `json:"landmarks"`
	Timestamp time.Time       `json:"timestamp"`
}

// Classification is the result of classifying a single observation.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps one observation to a gesture label with confidence.
// Implementations must be total: a well-formed observation never fails,
// an unrecognized pose yields a low-confidence Unknown label instead.
type Classifier interface {
	Classify(obs Observation) Classification
}

// Source defines the interface for landmark extraction implementations.
type Source interface {
	// Detect analyzes a video frame and returns one observation per
	// detected hand. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]Observation, error)

	// Close releases any resources held by the source.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.8,
		MinTrackingConf: 0.7,
	}
}
