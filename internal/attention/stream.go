package attention

import (
	"sync"

	"github.com/vigil-labs/vigil/internal/models"
)

// MetricsStream holds the single current biometric snapshot, overwritten by
// whichever source is active. Readers always observe a complete snapshot;
// no history is retained at this layer.
type MetricsStream struct {
	mu      sync.RWMutex
	current models.LiveMetrics
}

// NewMetricsStream creates an empty metrics stream.
func NewMetricsStream() *MetricsStream {
	return &MetricsStream{}
}

// Publish replaces the whole snapshot in one step.
func (s *MetricsStream) Publish(m models.LiveMetrics) {
	s.mu.Lock()
	s.current = m
	s.mu.Unlock()
}

// PublishReading replaces the snapshot with one built from an attention
// reading.
func (s *MetricsStream) PublishReading(r models.AttentionReading) {
	s.Publish(models.MetricsFromReading(r))
}

// Snapshot returns a copy of the most recent complete snapshot.
func (s *MetricsStream) Snapshot() models.LiveMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
