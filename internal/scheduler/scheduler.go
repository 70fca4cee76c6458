// Package scheduler provides retention maintenance for Vigil.
//
// Attention logs accumulate with every review pass; a cron-driven job
// prunes entries older than the configured retention window.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vigil-labs/vigil/internal/store"
)

// Scheduler owns the cron runner and the retention policy for a store's
// attention logs.
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	retention time.Duration
}

// NewScheduler creates and starts a cron scheduler pruning the given
// store's attention logs once a prune job is registered.
func NewScheduler(st store.Store, retention time.Duration) *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, store: st, retention: retention}
}

// SchedulePrune registers the retention prune job under the given cron
// expression. It returns an error if the expression is invalid.
func (s *Scheduler) SchedulePrune(expr string) error {
	_, err := s.cron.AddFunc(expr, s.prune)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// prune deletes attention logs older than the retention window. Failures
// are logged, not fatal.
func (s *Scheduler) prune() {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.PruneAttentionLogs(cutoff)
	if err != nil {
		slog.Error("Scheduler.prune: pruning attention logs failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Scheduler.prune: pruned attention logs", "count", n, "olderThan", cutoff)
	}
}
