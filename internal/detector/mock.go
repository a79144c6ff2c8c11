package detector

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// MockSource is a test implementation of the Source interface.
// It allows tests to control the detection results.
type MockSource struct {
	observations []Observation
	err          error
}

// NewMockSource creates a new MockSource instance.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// SetObservations sets the observations that will be returned by Detect.
func (m *MockSource) SetObservations(observations []Observation) {
	m.observations = observations
}

// SetError sets the error that will be returned by Detect.
func (m *MockSource) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured observations or error.
func (m *MockSource) Detect(frame *gocv.Mat) ([]Observation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.observations, nil
}

// Close is a no-op for the mock source.
func (m *MockSource) Close() error {
	return nil
}

// Fixture geometry: a right hand roughly centered in a 640x480 frame,
// wrist at the bottom, finger columns spread across x. Pixel y grows
// downward, so extended fingertips sit above (smaller y than) their PIPs.
const (
	fixtureFrameW = 640
	fixtureFrameH = 480
)

// fixtureObservation builds an observation whose landmark geometry matches
// the given per-finger extended states (thumb, index, middle, ring, pinky).
func fixtureObservation(fingers [5]bool) Observation {
	lm := make([]image.Point, NumLandmarks)

	lm[Wrist] = image.Point{X: 320, Y: 400}

	// Thumb reaches out to the right of the index column, so the
	// orientation check resolves "extended" to tip.x > ip.x.
	lm[ThumbCMC] = image.Point{X: 340, Y: 380}
	lm[ThumbMCP] = image.Point{X: 350, Y: 360}
	lm[ThumbIP] = image.Point{X: 360, Y: 340}
	if fingers[0] {
		lm[ThumbTip] = image.Point{X: 385, Y: 320}
	} else {
		lm[ThumbTip] = image.Point{X: 345, Y: 345}
	}

	cols := [4]int{300, 280, 260, 240}
	mcps := [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	pips := [4]int{IndexPIP, MiddlePIP, RingPIP, PinkyPIP}
	dips := [4]int{IndexDIP, MiddleDIP, RingDIP, PinkyDIP}
	tips := [4]int{IndexTip, MiddleTip, RingTip, PinkyTip}

	for i := 0; i < 4; i++ {
		x := cols[i]
		lm[mcps[i]] = image.Point{X: x, Y: 300}
		lm[pips[i]] = image.Point{X: x, Y: 280}
		if fingers[i+1] {
			lm[dips[i]] = image.Point{X: x, Y: 240}
			lm[tips[i]] = image.Point{X: x, Y: 200}
		} else {
			lm[dips[i]] = image.Point{X: x, Y: 300}
			lm[tips[i]] = image.Point{X: x, Y: 320}
		}
	}

	bbox := boundingBox(lm, fixtureFrameW, fixtureFrameH)

	return Observation{
		HandID:    0,
		BBox:      bbox,
		Center:    centerOf(bbox),
		Landmarks: lm,
		Timestamp: time.Now(),
	}
}

// FistObservation returns a preset observation with all fingers curled.
func FistObservation() Observation {
	return fixtureObservation([5]bool{false, false, false, false, false})
}

// OpenHandObservation returns a preset observation with all fingers extended.
func OpenHandObservation() Observation {
	return fixtureObservation([5]bool{true, true, true, true, true})
}

// PeaceObservation returns a preset observation with index and middle
// fingers extended.
func PeaceObservation() Observation {
	return fixtureObservation([5]bool{false, true, true, false, false})
}

// ThumbsUpObservation returns a preset observation with only the thumb
// extended.
func ThumbsUpObservation() Observation {
	return fixtureObservation([5]bool{true, false, false, false, false})
}

// PointingObservation returns a preset observation with only the index
// finger extended.
func PointingObservation() Observation {
	return fixtureObservation([5]bool{false, true, false, false, false})
}

// OKObservation returns a preset observation with all fingers extended and
// the thumb tip pinched against the index tip.
func OKObservation() Observation {
	obs := fixtureObservation([5]bool{true, true, true, true, true})

	// Fold the thumb across so its tip meets the index tip while still
	// reading as extended (tip.x > ip.x).
	obs.Landmarks[ThumbMCP] = image.Point{X: 330, Y: 340}
	obs.Landmarks[ThumbIP] = image.Point{X: 295, Y: 260}
	obs.Landmarks[ThumbTip] = image.Point{X: 310, Y: 210}

	obs.BBox = boundingBox(obs.Landmarks, fixtureFrameW, fixtureFrameH)
	obs.Center = centerOf(obs.BBox)

	return obs
}
