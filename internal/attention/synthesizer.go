package attention

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

// SynthesizerInterval is the fixed tick cadence of the demo synthesizer,
// matching the tracker's sampling cadence so downstream components are
// source-agnostic.
const SynthesizerInterval = 500 * time.Millisecond

// Synthesizer tuning constants.
const (
	smoothingRate  = 0.15
	noiseAmplitude = 0.04
	minPhaseTicks  = 6
	maxPhaseTicks  = 18

	// faceDetected simulation: near-certain while engaged, occasional
	// while in a disengaged phase.
	engagedFaceThreshold = 0.25
	engagedFaceProb      = 0.97
	disengagedFaceProb   = 0.15
)

// Regime boundaries for the per-phase target redraw. Roughly 30% low,
// 30% mid, 40% high over many phases.
const (
	lowRegimeCutoff = 0.3
	midRegimeCutoff = 0.6
)

// Synthesizer produces a believable wandering engagement/focus series when
// no real signal source is available. It is a designed fallback, not a
// degraded error state: output shape and cadence are identical to the
// estimator path.
type Synthesizer struct {
	rng *rand.Rand

	engagement       float64
	focus            float64
	engagementTarget float64
	focusTarget      float64
	phaseTimer       int
	phaseDuration    int
}

// NewSynthesizer creates a synthesizer with a randomized generator.
func NewSynthesizer() *Synthesizer {
	return NewSeededSynthesizer(rand.Uint64(), rand.Uint64())
}

// NewSeededSynthesizer creates a synthesizer with a deterministic generator,
// for reproducible test runs.
func NewSeededSynthesizer(seed1, seed2 uint64) *Synthesizer {
	return &Synthesizer{
		rng:        rand.New(rand.NewPCG(seed1, seed2)),
		engagement: 0.6,
		focus:      0.55,
		// phaseDuration starts at zero so the first tick draws a phase.
	}
}

// Tick advances the synthesizer by one step and returns the new snapshot.
func (s *Synthesizer) Tick() models.LiveMetrics {
	s.phaseTimer++
	if s.phaseTimer >= s.phaseDuration {
		s.phaseTimer = 0
		s.phaseDuration = minPhaseTicks + s.rng.IntN(maxPhaseTicks-minPhaseTicks)
		s.redrawTargets()
	}

	s.engagement = s.wander(s.engagement, s.engagementTarget)
	s.focus = s.wander(s.focus, s.focusTarget)

	faceProb := disengagedFaceProb
	if s.engagement > engagedFaceThreshold {
		faceProb = engagedFaceProb
	}

	return models.LiveMetrics{
		Engagement:   s.engagement,
		Focus:        s.focus,
		FaceDetected: s.rng.Float64() < faceProb,
	}
}

// redrawTargets draws a new regime with a single random roll.
func (s *Synthesizer) redrawTargets() {
	switch r := s.rng.Float64(); {
	case r < lowRegimeCutoff:
		s.engagementTarget = 0.1 + s.rng.Float64()*0.2
		s.focusTarget = 0.1 + s.rng.Float64()*0.2
	case r < midRegimeCutoff:
		s.engagementTarget = 0.4 + s.rng.Float64()*0.25
		s.focusTarget = 0.35 + s.rng.Float64()*0.25
	default:
		s.engagementTarget = 0.7 + s.rng.Float64()*0.25
		s.focusTarget = 0.65 + s.rng.Float64()*0.25
	}
}

// wander moves a value toward its target by exponential smoothing, adds
// uniform noise, and clamps to [0,1].
func (s *Synthesizer) wander(value, target float64) float64 {
	value += (target - value) * smoothingRate
	value += (s.rng.Float64()*2 - 1) * noiseAmplitude
	return clamp01(value)
}

// Run publishes synthesized snapshots to the stream at the given interval
// until the context is cancelled. An interval of zero or less uses
// SynthesizerInterval.
func (s *Synthesizer) Run(ctx context.Context, stream *MetricsStream, interval time.Duration) {
	if interval <= 0 {
		interval = SynthesizerInterval
	}
	slog.Info("Synthesizer.Run: starting demo metrics loop", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Synthesizer.Run: stopping")
			return
		case <-ticker.C:
			stream.Publish(s.Tick())
		}
	}
}
