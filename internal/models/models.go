// Package models defines the core data structures for Vigil.
//
// It includes types for facial signals, attention readings, per-item review
// results, and review session phases, which are shared across modules.
package models

// ReviewPhase identifies where a review session is in its lifecycle.
type ReviewPhase string

const (
	// PhaseSetup is the initial phase before a session has started.
	PhaseSetup ReviewPhase = "setup"
	// PhaseReviewing is the active phase while items are being tracked.
	PhaseReviewing ReviewPhase = "reviewing"
	// PhaseResults is the terminal phase of a pass, showing aggregated scores.
	PhaseResults ReviewPhase = "results"
)

// Fixed flagging thresholds. An item whose averaged scores fall below either
// threshold is considered missed and queued for re-review.
const (
	// EngagementThreshold is the minimum average engagement for an item to count as reviewed.
	EngagementThreshold = 0.4
	// FocusThreshold is the minimum average focus for an item to count as reviewed.
	FocusThreshold = 0.35
)

// Blendshape score names produced by the landmark extractor.
const (
	BlendshapeEyeBlinkLeft     = "eyeBlinkLeft"
	BlendshapeEyeBlinkRight    = "eyeBlinkRight"
	BlendshapeEyeLookDownLeft  = "eyeLookDownLeft"
	BlendshapeEyeLookDownRight = "eyeLookDownRight"
	BlendshapeEyeLookOutLeft   = "eyeLookOutLeft"
	BlendshapeEyeLookOutRight  = "eyeLookOutRight"
)

// Face mesh landmark indices used by the estimator.
const (
	// LandmarkNoseTip is the nose tip landmark index.
	LandmarkNoseTip = 1
	// LandmarkForehead is the upper forehead landmark index.
	LandmarkForehead = 10
	// LandmarkChin is the chin landmark index.
	LandmarkChin = 152
)

// Landmark is a single face mesh point in normalized frame coordinates.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FacialSignal is one frame's worth of structured facial data: a landmark
// set plus named shape-intensity scores. Absence of a signal (nil, or an
// empty landmark set) means no face was detected in the frame.
type FacialSignal struct {
	Landmarks   []Landmark         `json:"landmarks"`
	Blendshapes map[string]float64 `json:"blendshapes,omitempty"`
}

// AttentionReading is one sampled engagement/focus estimate. Engagement and
// Focus are always in [0,1]; readings are ordered implicitly by sampling.
type AttentionReading struct {
	Engagement   float64 `json:"engagement"`
	Focus        float64 `json:"focus"`
	FaceDetected bool    `json:"face_detected"`
}

// LiveMetrics is the single current biometric snapshot. It is overwritten
// in place by whichever source is active and never retains history. Stress
// and HeartRate are carried for presentation only; the review core ignores
// them.
type LiveMetrics struct {
	Engagement   float64 `json:"engagement"`
	Focus        float64 `json:"focus"`
	FaceDetected bool    `json:"face_detected"`
	Stress       float64 `json:"stress,omitempty"`
	HeartRate    float64 `json:"heart_rate,omitempty"`
}

// Reading projects the snapshot down to the fields the review core consumes.
func (m LiveMetrics) Reading() AttentionReading {
	return AttentionReading{
		Engagement:   m.Engagement,
		Focus:        m.Focus,
		FaceDetected: m.FaceDetected,
	}
}

// MetricsFromReading builds a full snapshot from an attention reading,
// replacing the whole snapshot in one step.
func MetricsFromReading(r AttentionReading) LiveMetrics {
	return LiveMetrics{
		Engagement:   r.Engagement,
		Focus:        r.Focus,
		FaceDetected: r.FaceDetected,
	}
}

// ItemResult is the immutable aggregate produced when tracking for one item
// closes.
type ItemResult struct {
	ItemIndex     int     `json:"item_index"`
	AvgEngagement float64 `json:"avg_engagement"`
	AvgFocus      float64 `json:"avg_focus"`
	TimeSpentMs   int64   `json:"time_spent_ms"`
}

// Flagged reports whether the result falls below either fixed threshold.
func (r ItemResult) Flagged() bool {
	return r.AvgEngagement < EngagementThreshold || r.AvgFocus < FocusThreshold
}
