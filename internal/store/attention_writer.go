package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigil-labs/vigil/internal/models"
)

// Writer retry defaults. Persistence is fire-and-forget from the session's
// perspective; the writer retries a bounded number of times with
// exponential backoff and then gives up.
const (
	DefaultWriterMaxAttempts = 3
	DefaultWriterBackoff     = 2 * time.Second
)

// AttentionLogWriter persists per-item review results as attention logs,
// deriving the flagged-missed column from the fixed thresholds.
type AttentionLogWriter struct {
	store       Store
	maxAttempts int
	backoff     time.Duration
	clock       func() time.Time
}

// NewAttentionLogWriter creates a writer with default retry behavior.
func NewAttentionLogWriter(st Store) *AttentionLogWriter {
	return &AttentionLogWriter{
		store:       st,
		maxAttempts: DefaultWriterMaxAttempts,
		backoff:     DefaultWriterBackoff,
		clock:       time.Now,
	}
}

// SaveResults converts the results into attention logs and writes them,
// retrying on failure. A final failure is returned for logging only; the
// in-memory results view stays valid regardless.
func (w *AttentionLogWriter) SaveResults(ctx context.Context, briefingID string, results []models.ItemResult) error {
	now := w.clock()
	logs := make([]models.AttentionLog, 0, len(results))
	for _, r := range results {
		logs = append(logs, models.AttentionLog{
			BriefingID:    briefingID,
			ItemIndex:     r.ItemIndex,
			AvgEngagement: r.AvgEngagement,
			AvgFocus:      r.AvgFocus,
			TimeSpentMs:   r.TimeSpentMs,
			FlaggedMissed: r.Flagged(),
			LoggedAt:      now,
		})
	}

	backoff := w.backoff
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = w.store.AddAttentionLogs(logs)
		if err == nil {
			slog.Debug("AttentionLogWriter.SaveResults: persisted results", "briefingID", briefingID, "count", len(logs), "attempt", attempt)
			return nil
		}
		slog.Warn("AttentionLogWriter.SaveResults: write failed", "briefingID", briefingID, "attempt", attempt, "error", err)
		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("failed to persist attention logs after %d attempts: %w", w.maxAttempts, err)
}
