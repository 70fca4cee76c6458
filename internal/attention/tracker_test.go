package attention

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

func TestTracker_AveragesAreExactMeans(t *testing.T) {
	stream := NewMetricsStream()
	tracker := NewTracker(stream)

	if err := tracker.StartTracking(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	readings := []models.LiveMetrics{
		{Engagement: 0.2, Focus: 0.1, FaceDetected: true},
		{Engagement: 0.6, Focus: 0.5, FaceDetected: true},
		{Engagement: 0.7, Focus: 0.9, FaceDetected: false},
	}
	for _, r := range readings {
		stream.Publish(r)
		tracker.Sample()
	}

	res := tracker.StopTracking(3)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.ItemIndex != 3 {
		t.Errorf("expected item index 3, got %d", res.ItemIndex)
	}
	wantEngagement := (0.2 + 0.6 + 0.7) / 3
	wantFocus := (0.1 + 0.5 + 0.9) / 3
	if math.Abs(res.AvgEngagement-wantEngagement) > 1e-12 {
		t.Errorf("avgEngagement: expected %v, got %v", wantEngagement, res.AvgEngagement)
	}
	if math.Abs(res.AvgFocus-wantFocus) > 1e-12 {
		t.Errorf("avgFocus: expected %v, got %v", wantFocus, res.AvgFocus)
	}
	if res.TimeSpentMs < 0 {
		t.Errorf("negative time spent: %d", res.TimeSpentMs)
	}
}

func TestTracker_ZeroReadingsFallsBackToLiveSnapshot(t *testing.T) {
	stream := NewMetricsStream()
	tracker := NewTracker(stream)

	stream.Publish(models.LiveMetrics{Engagement: 0.42, Focus: 0.37, FaceDetected: true})
	if err := tracker.StartTracking(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sub-sample dwell: no Sample calls before stop.
	res := tracker.StopTracking(0)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.AvgEngagement != 0.42 || res.AvgFocus != 0.37 {
		t.Errorf("expected live snapshot fallback {0.42 0.37}, got {%v %v}", res.AvgEngagement, res.AvgFocus)
	}
}

func TestTracker_StopWithoutMatchingRecordIsNoOp(t *testing.T) {
	tracker := NewTracker(NewMetricsStream())

	if res := tracker.StopTracking(0); res != nil {
		t.Errorf("expected nil result with no open record, got %+v", res)
	}

	if err := tracker.StartTracking(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res := tracker.StopTracking(2); res != nil {
		t.Errorf("expected nil result for mismatched index, got %+v", res)
	}
	// The original record is still open and can be closed normally.
	if res := tracker.StopTracking(1); res == nil {
		t.Error("expected the open record to close")
	}
}

func TestTracker_StartWhileOpenIsProtocolViolation(t *testing.T) {
	tracker := NewTracker(NewMetricsStream())

	if err := tracker.StartTracking(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.StartTracking(1); err == nil {
		t.Error("expected error when opening a second record")
	}
}

func TestTracker_AbortDiscardsOpenRecord(t *testing.T) {
	tracker := NewTracker(NewMetricsStream())

	if err := tracker.StartTracking(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracker.Abort()
	if res := tracker.StopTracking(0); res != nil {
		t.Errorf("expected no result after abort, got %+v", res)
	}
	// A fresh record can be opened after aborting.
	if err := tracker.StartTracking(0); err != nil {
		t.Errorf("unexpected error reopening after abort: %v", err)
	}
}

func TestTracker_SampleWithoutOpenRecordDoesNothing(t *testing.T) {
	stream := NewMetricsStream()
	tracker := NewTracker(stream)

	stream.Publish(models.LiveMetrics{Engagement: 0.9, Focus: 0.9})
	tracker.Sample() // no open record

	stream.Publish(models.LiveMetrics{Engagement: 0.1, Focus: 0.1})
	if err := tracker.StartTracking(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracker.Sample()
	res := tracker.StopTracking(0)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.AvgEngagement != 0.1 {
		t.Errorf("expected only the in-window sample, got avgEngagement %v", res.AvgEngagement)
	}
}

func TestTracker_RunSamplesUntilCancelled(t *testing.T) {
	stream := NewMetricsStream()
	tracker := NewTracker(stream)
	stream.Publish(models.LiveMetrics{Engagement: 0.5, Focus: 0.5, FaceDetected: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.Run(ctx, time.Millisecond)
	}()

	if err := tracker.StartTracking(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	res := tracker.StopTracking(0)
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.AvgEngagement != 0.5 || res.AvgFocus != 0.5 {
		t.Errorf("expected sampled averages {0.5 0.5}, got {%v %v}", res.AvgEngagement, res.AvgFocus)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampling loop did not stop after cancellation")
	}
}
