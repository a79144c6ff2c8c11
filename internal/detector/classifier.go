package detector

import "math"

// Gesture labels produced by the rule classifier. "No Hand" and "Unknown"
// flow through the stability window like any other label; downstream
// consumers decide whether to act on them.
const (
	LabelThumbsUp = "Thumbs_Up"
	LabelPeace    = "Peace"
	LabelFist     = "Fist"
	LabelOpenHand = "Open_Hand"
	LabelPointing = "Pointing"
	LabelOK       = "OK"
	LabelUnknown  = "Unknown"
	LabelNoHand   = "No Hand"
)

// baseConfidence is the confidence assigned to unambiguous finger patterns.
// Weaker patterns are scaled down from it.
const baseConfidence = 0.9

// RuleClassifier classifies hand poses from landmark geometry using
// per-finger extended/curled states. It is stateless and never fails:
// poses that match no rule yield a low-confidence Unknown label.
type RuleClassifier struct{}

// NewRuleClassifier creates a new RuleClassifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify maps an observation to a gesture label with confidence.
// An observation without the full landmark set yields "No Hand" at zero
// confidence.
func (c *RuleClassifier) Classify(obs Observation) Classification {
	if len(obs.Landmarks) < NumLandmarks {
		return Classification{Label: LabelNoHand, Confidence: 0}
	}

	lm := obs.Landmarks

	// Thumb orientation flips with handedness: decide which x comparison
	// means "extended" from the relative position of thumb and index MCPs.
	var thumbExtended bool
	if lm[ThumbMCP].X < lm[IndexMCP].X {
		thumbExtended = lm[ThumbTip].X < lm[ThumbIP].X
	} else {
		thumbExtended = lm[ThumbTip].X > lm[ThumbIP].X
	}

	// Pixel y grows downward, so an extended finger has its tip above
	// the PIP joint.
	fingers := [5]bool{
		thumbExtended,
		lm[IndexTip].Y < lm[IndexPIP].Y,
		lm[MiddleTip].Y < lm[MiddlePIP].Y,
		lm[RingTip].Y < lm[RingPIP].Y,
		lm[PinkyTip].Y < lm[PinkyPIP].Y,
	}

	switch fingers {
	case [5]bool{true, false, false, false, false}:
		return Classification{Label: LabelThumbsUp, Confidence: baseConfidence}
	case [5]bool{false, true, true, false, false}:
		return Classification{Label: LabelPeace, Confidence: baseConfidence}
	case [5]bool{false, false, false, false, false}:
		return Classification{Label: LabelFist, Confidence: baseConfidence}
	case [5]bool{false, true, false, false, false}:
		return Classification{Label: LabelPointing, Confidence: baseConfidence * 0.7}
	case [5]bool{true, true, true, true, true}:
		// Thumb tip pinched against the index tip distinguishes OK from
		// a plain open hand.
		if thumbIndexPinched(obs) {
			return Classification{Label: LabelOK, Confidence: baseConfidence * 0.6}
		}
		return Classification{Label: LabelOpenHand, Confidence: baseConfidence * 0.8}
	}

	return Classification{Label: LabelUnknown, Confidence: baseConfidence * 0.3}
}

// thumbIndexPinched reports whether the thumb and index tips are close
// together relative to the hand's bounding box.
func thumbIndexPinched(obs Observation) bool {
	span := obs.BBox.Dx()
	if span <= 0 {
		return false
	}

	dx := float64(obs.Landmarks[ThumbTip].X - obs.Landmarks[IndexTip].X)
	dy := float64(obs.Landmarks[ThumbTip].Y - obs.Landmarks[IndexTip].Y)
	dist := math.Sqrt(dx*dx + dy*dy)

	return dist < 0.15*float64(span)
}
