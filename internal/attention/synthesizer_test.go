package attention

import (
	"context"
	"testing"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

func TestSynthesizer_OutputsAlwaysInRange(t *testing.T) {
	s := NewSeededSynthesizer(11, 42)
	for i := 0; i < 10000; i++ {
		m := s.Tick()
		if m.Engagement < 0 || m.Engagement > 1 {
			t.Fatalf("tick %d: engagement out of range: %v", i, m.Engagement)
		}
		if m.Focus < 0 || m.Focus > 1 {
			t.Fatalf("tick %d: focus out of range: %v", i, m.Focus)
		}
	}
}

func TestSynthesizer_RegimeSplit(t *testing.T) {
	s := NewSeededSynthesizer(7, 99)

	const draws = 10000
	var low, mid, high int
	for i := 0; i < draws; i++ {
		s.redrawTargets()
		switch {
		case s.engagementTarget < 0.3:
			low++
		case s.engagementTarget < 0.65:
			mid++
		default:
			high++
		}
	}

	// Expect roughly 30% / 30% / 40%; allow generous statistical slack.
	assertShare := func(name string, count int, want float64) {
		t.Helper()
		got := float64(count) / draws
		if got < want-0.03 || got > want+0.03 {
			t.Errorf("%s regime share: expected ~%v, got %v", name, want, got)
		}
	}
	assertShare("low", low, 0.30)
	assertShare("mid", mid, 0.30)
	assertShare("high", high, 0.40)
}

func TestSynthesizer_TargetRanges(t *testing.T) {
	s := NewSeededSynthesizer(3, 17)
	for i := 0; i < 5000; i++ {
		s.redrawTargets()
		e, f := s.engagementTarget, s.focusTarget
		switch {
		case e >= 0.1 && e < 0.3:
			if f < 0.1 || f >= 0.3 {
				t.Fatalf("low regime focus target out of range: %v", f)
			}
		case e >= 0.4 && e < 0.65:
			if f < 0.35 || f >= 0.6 {
				t.Fatalf("mid regime focus target out of range: %v", f)
			}
		case e >= 0.7 && e < 0.95:
			if f < 0.65 || f >= 0.9 {
				t.Fatalf("high regime focus target out of range: %v", f)
			}
		default:
			t.Fatalf("engagement target outside all regimes: %v", e)
		}
	}
}

func TestSynthesizer_PhaseDurationRange(t *testing.T) {
	s := NewSeededSynthesizer(1, 2)
	for i := 0; i < 2000; i++ {
		s.Tick()
		if s.phaseDuration < minPhaseTicks || s.phaseDuration >= maxPhaseTicks {
			t.Fatalf("phase duration out of range: %d", s.phaseDuration)
		}
	}
}

func TestSynthesizer_FaceDetectionBias(t *testing.T) {
	countDetections := func(s *Synthesizer, target float64) float64 {
		s.engagement = target
		s.focus = target
		s.engagementTarget = target
		s.focusTarget = target
		s.phaseTimer = 0
		s.phaseDuration = 1 << 30 // pin the regime

		const ticks = 2000
		detected := 0
		for i := 0; i < ticks; i++ {
			if s.Tick().FaceDetected {
				detected++
			}
		}
		return float64(detected) / ticks
	}

	if got := countDetections(NewSeededSynthesizer(5, 5), 0.9); got < 0.9 {
		t.Errorf("engaged phase: expected faceDetected fraction >= 0.9, got %v", got)
	}
	if got := countDetections(NewSeededSynthesizer(6, 6), 0.12); got > 0.35 {
		t.Errorf("disengaged phase: expected faceDetected fraction <= 0.35, got %v", got)
	}
}

func TestSynthesizer_RunPublishesAndStops(t *testing.T) {
	s := NewSeededSynthesizer(8, 8)
	stream := NewMetricsStream()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, stream, time.Millisecond)
	}()

	time.Sleep(25 * time.Millisecond)
	if stream.Snapshot() == (models.LiveMetrics{}) {
		t.Error("expected the run loop to publish snapshots")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop after cancellation")
	}
}
