// Package gesture turns noisy per-frame classifications into a stable
// gesture signal and builds immutable gesture events from stable
// transitions.
package gesture

import (
	"errors"
	"sync"
	"time"
)

// DefaultStabilityFrames is the window size used when none is configured.
const DefaultStabilityFrames = 5

var (
	// ErrEmptyLabel is returned when an observed label is empty.
	ErrEmptyLabel = errors.New("label must not be empty")
	// ErrConfidenceRange is returned when a confidence is outside [0,1].
	ErrConfidenceRange = errors.New("confidence must be in [0,1]")
)

// Transition reports that a new label has occupied an entire stability
// window. PreviousHeld is how long the prior stable label was in effect,
// zero when there was none.
type Transition struct {
	Slot         int
	Label        string
	Confidence   float64
	Previous     string
	PreviousHeld time.Duration
	At           time.Time
}

// slotState is the per-hand-slot window and stable label.
type slotState struct {
	window      []string
	stableLabel string
	stableSince time.Time
}

// Tracker maintains a fixed-size sliding window of recent labels per hand
// slot and emits a transition when a new label fills an entire window.
// A single outlier frame anywhere in the window resets eligibility: strict
// unanimity is required, not a majority vote. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	frames int
	slots  map[int]*slotState
	now    func() time.Time
}

// NewTracker creates a Tracker with the given window size. Sizes below 1
// fall back to DefaultStabilityFrames.
func NewTracker(stabilityFrames int) *Tracker {
	if stabilityFrames < 1 {
		stabilityFrames = DefaultStabilityFrames
	}
	return &Tracker{
		frames: stabilityFrames,
		slots:  make(map[int]*slotState),
		now:    time.Now,
	}
}

// Observe pushes a label into the slot's window, evicting the oldest entry
// when full. It returns a non-nil Transition when the window is exactly
// full, unanimous, and the label differs from the slot's current stable
// label. Any other outcome returns nil.
func (t *Tracker) Observe(slot int, label string, confidence float64) (*Transition, error) {
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if confidence < 0 || confidence > 1 {
		return nil, ErrConfidenceRange
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.slots[slot]
	if s == nil {
		s = &slotState{window: make([]string, 0, t.frames)}
		t.slots[slot] = s
	}

	if len(s.window) >= t.frames {
		copy(s.window, s.window[1:])
		s.window = s.window[:t.frames-1]
	}
	s.window = append(s.window, label)

	if len(s.window) != t.frames {
		return nil, nil
	}
	for _, l := range s.window {
		if l != label {
			return nil, nil
		}
	}
	if label == s.stableLabel {
		return nil, nil
	}

	now := t.now()
	transition := &Transition{
		Slot:       slot,
		Label:      label,
		Confidence: confidence,
		Previous:   s.stableLabel,
		At:         now,
	}
	if s.stableLabel != "" {
		transition.PreviousHeld = now.Sub(s.stableSince)
	}

	s.stableLabel = label
	s.stableSince = now

	return transition, nil
}

// Stability returns the most frequent label in the slot's window and the
// fraction of the window it occupies. An empty window yields ("", 0).
// This is a diagnostic view, independent of the strict-unanimity rule
// Observe applies.
func (t *Tracker) Stability(slot int) (string, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.slots[slot]
	if s == nil || len(s.window) == 0 {
		return "", 0
	}

	counts := make(map[string]int)
	for _, l := range s.window {
		counts[l]++
	}

	var best string
	var bestCount int
	for _, l := range s.window {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}

	return best, float64(bestCount) / float64(len(s.window))
}

// Current returns the slot's stable label and the time stability was first
// achieved. An empty label means no stable state yet.
func (t *Tracker) Current(slot int) (string, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.slots[slot]
	if s == nil {
		return "", time.Time{}
	}
	return s.stableLabel, s.stableSince
}

// Reset clears one slot's window and stable state.
func (t *Tracker) Reset(slot int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, slot)
}

// ResetAll clears every slot. Called on session boundaries.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = make(map[int]*slotState)
}
