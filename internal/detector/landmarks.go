package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// BBoxPadding is the pixel padding added around the landmark extent when
// computing an observation bounding box.
const BBoxPadding = 20

// boundingBox computes the padded bounding box of a landmark set, clamped
// to the frame dimensions.
func boundingBox(landmarks []image.Point, width, height int) image.Rectangle {
	if len(landmarks) == 0 {
		return image.Rectangle{}
	}

	minX, minY := width, height
	maxX, maxY := 0, 0
	for _, p := range landmarks {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	minX -= BBoxPadding
	minY -= BBoxPadding
	maxX += BBoxPadding
	maxY += BBoxPadding

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if width > 0 && maxX > width {
		maxX = width
	}
	if height > 0 && maxY > height {
		maxY = height
	}

	return image.Rect(minX, minY, maxX, maxY)
}

// centerOf returns the integer center of a rectangle.
func centerOf(r image.Rectangle) image.Point {
	return image.Point{
		X: (r.Min.X + r.Max.X) / 2,
		Y: (r.Min.Y + r.Max.Y) / 2,
	}
}
