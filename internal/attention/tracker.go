package attention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

// SampleInterval is the fixed cadence at which the tracker copies the
// current live snapshot into the open tracking record.
const SampleInterval = 500 * time.Millisecond

// trackingRecord is the per-item reading buffer. Exactly one may be open at
// a time; it exists only while its item is actively tracked.
type trackingRecord struct {
	itemIndex int
	readings  []models.AttentionReading
	startTime time.Time
}

// Tracker opens and closes per-item tracking records and aggregates sampled
// readings into item results.
type Tracker struct {
	mu     sync.Mutex
	stream *MetricsStream
	open   *trackingRecord
}

// NewTracker creates a tracker sampling from the given stream.
func NewTracker(stream *MetricsStream) *Tracker {
	return &Tracker{stream: stream}
}

// StartTracking opens a fresh record for the item. Opening while another
// record is open is a caller protocol violation; the session state machine
// closes the previous item before opening the next.
func (t *Tracker) StartTracking(itemIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open != nil {
		return fmt.Errorf("tracking already open for item %d, cannot open item %d", t.open.itemIndex, itemIndex)
	}
	t.open = &trackingRecord{itemIndex: itemIndex, startTime: time.Now()}
	slog.Debug("Tracker.StartTracking: opened record", "itemIndex", itemIndex)
	return nil
}

// Sample appends a copy of the current live snapshot to the open record.
// With no open record it does nothing.
func (t *Tracker) Sample() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil {
		return
	}
	t.open.readings = append(t.open.readings, t.stream.Snapshot().Reading())
}

// StopTracking closes the record for itemIndex and returns its aggregate.
// Averages are exact arithmetic means over the collected readings; a record
// closed before any sample landed falls back to the live snapshot at stop
// time. Stopping with no matching open record is a no-op returning nil.
func (t *Tracker) StopTracking(itemIndex int) *models.ItemResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil || t.open.itemIndex != itemIndex {
		slog.Debug("Tracker.StopTracking: no matching open record", "itemIndex", itemIndex)
		return nil
	}

	rec := t.open
	t.open = nil
	result := &models.ItemResult{
		ItemIndex:   rec.itemIndex,
		TimeSpentMs: time.Since(rec.startTime).Milliseconds(),
	}

	if len(rec.readings) == 0 {
		// Sub-sample-interval dwell: use the snapshot at stop time.
		snap := t.stream.Snapshot()
		result.AvgEngagement = snap.Engagement
		result.AvgFocus = snap.Focus
	} else {
		var sumEngagement, sumFocus float64
		for _, r := range rec.readings {
			sumEngagement += r.Engagement
			sumFocus += r.Focus
		}
		n := float64(len(rec.readings))
		result.AvgEngagement = sumEngagement / n
		result.AvgFocus = sumFocus / n
	}

	slog.Debug("Tracker.StopTracking: closed record",
		"itemIndex", itemIndex, "readings", len(rec.readings),
		"avgEngagement", result.AvgEngagement, "avgFocus", result.AvgFocus,
		"timeSpentMs", result.TimeSpentMs)
	return result
}

// Abort discards any open record without producing a result. Used on abrupt
// session stops.
func (t *Tracker) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open != nil {
		slog.Debug("Tracker.Abort: discarding open record", "itemIndex", t.open.itemIndex)
		t.open = nil
	}
}

// Run samples the stream at the given interval until the context is
// cancelled. An interval of zero or less uses SampleInterval.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SampleInterval
	}
	slog.Debug("Tracker.Run: starting sampling loop", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Tracker.Run: stopping")
			return
		case <-ticker.C:
			t.Sample()
		}
	}
}
