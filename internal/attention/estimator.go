// Package attention implements Vigil's engagement estimation core: the
// per-frame estimator, the demo synthesizer fallback, the live metrics
// stream, and the per-item attention tracker.
package attention

import (
	"math"

	"github.com/vigil-labs/vigil/internal/models"
)

// Estimator weight and reference constants. These are a fixed policy, not
// runtime-tunable: downstream flagging depends on bit-comparable scores.
const (
	gazeAwayPenalty     = 1.5
	headFacingFalloff   = 3.0
	referenceFaceHeight = 0.25

	engagementEyeWeight    = 0.45
	engagementFacingWeight = 0.35
	engagementTiltWeight   = 0.2

	focusGazeWeight   = 0.5
	focusEyeWeight    = 0.3
	focusFacingWeight = 0.2
)

// Estimate computes one attention reading from a facial signal. A nil
// signal, an empty landmark set, or a landmark set too short to cover the
// reference points all mean no detected face and yield the zero reading.
// Estimate never fails.
func Estimate(sig *models.FacialSignal) models.AttentionReading {
	if sig == nil || len(sig.Landmarks) <= models.LandmarkChin {
		return models.AttentionReading{}
	}

	bs := sig.Blendshapes
	eyeOpenness := 1 - (bs[models.BlendshapeEyeBlinkLeft]+bs[models.BlendshapeEyeBlinkRight])/2

	gazeAway := max(
		bs[models.BlendshapeEyeLookDownLeft],
		bs[models.BlendshapeEyeLookDownRight],
		bs[models.BlendshapeEyeLookOutLeft],
		bs[models.BlendshapeEyeLookOutRight],
	)
	gazeScore := math.Max(0, 1-gazeAway*gazeAwayPenalty)

	// Horizontal deviation of the nose tip from frame center.
	nose := sig.Landmarks[models.LandmarkNoseTip]
	headFacing := math.Max(0, 1-math.Abs(nose.X-0.5)*headFacingFalloff)

	// Vertical forehead-to-chin distance against the reference face height.
	faceHeight := math.Abs(sig.Landmarks[models.LandmarkChin].Y - sig.Landmarks[models.LandmarkForehead].Y)
	headTilt := math.Min(1, faceHeight/referenceFaceHeight)

	engagement := clamp01(eyeOpenness*engagementEyeWeight + headFacing*engagementFacingWeight + headTilt*engagementTiltWeight)
	focus := clamp01(gazeScore*focusGazeWeight + eyeOpenness*focusEyeWeight + headFacing*focusFacingWeight)

	return models.AttentionReading{
		Engagement:   engagement,
		Focus:        focus,
		FaceDetected: true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
