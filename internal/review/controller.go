// Package review implements the attention-aware review session state
// machine: SETUP → REVIEWING → RESULTS, with a bounded re-review sub-flow
// over flagged items and an explicit reset edge.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vigil-labs/vigil/internal/attention"
	"github.com/vigil-labs/vigil/internal/models"
	"github.com/vigil-labs/vigil/internal/signal"
	"github.com/vigil-labs/vigil/internal/util"
)

// ResultSink receives finalized per-item results once a pass completes.
// Persistence is fire-and-forget from the session's perspective; a sink
// failure never invalidates the in-memory results view.
type ResultSink interface {
	SaveResults(ctx context.Context, briefingID string, results []models.ItemResult) error
}

// Config carries the collaborators and tuning for a review session. Source
// and Extractor are optional; without both, sessions run in demo mode.
type Config struct {
	BriefingID string
	Source     signal.Source
	Extractor  signal.Extractor
	Sink       ResultSink

	// SampleInterval and MetricsInterval override the 500 ms defaults,
	// mainly for tests. Zero keeps the defaults.
	SampleInterval  time.Duration
	MetricsInterval time.Duration
}

// Session is a read-only snapshot of the controller's state. SessionID is
// assigned on Start and lives until reset or stop; it spans the full pass
// and any sub-review passes.
type Session struct {
	SessionID   string
	Phase       models.ReviewPhase
	Queue       []int
	Position    int
	Results     map[int]models.ItemResult
	Flagged     []int
	IsSubReview bool
	DemoMode    bool
}

// Controller owns the single active review session. All state mutation
// happens inside its transition methods; everything else reads through
// Snapshot or LiveMetrics.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	itemCount int
	stream    *attention.MetricsStream
	tracker   *attention.Tracker

	sessionID   string
	phase       models.ReviewPhase
	queue       []int
	position    int
	results     map[int]models.ItemResult
	flagged     map[int]struct{}
	isSubReview bool
	demoMode    bool

	sourceHeld  bool
	cancelLoops context.CancelFunc
	loops       sync.WaitGroup
}

// NewController creates a controller for a briefing with itemCount items.
func NewController(itemCount int, cfg Config) *Controller {
	stream := attention.NewMetricsStream()
	return &Controller{
		cfg:       cfg,
		itemCount: itemCount,
		stream:    stream,
		tracker:   attention.NewTracker(stream),
		phase:     models.PhaseSetup,
		results:   make(map[int]models.ItemResult),
		flagged:   make(map[int]struct{}),
	}
}

// Start begins a full pass over all items (SETUP → REVIEWING). Signal
// acquisition is best-effort: on failure the session proceeds in demo mode
// rather than raising an error.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseSetup {
		return fmt.Errorf("cannot start review from phase %s", c.phase)
	}
	if c.itemCount <= 0 {
		return fmt.Errorf("cannot start review with %d items", c.itemCount)
	}

	c.sessionID = util.GenerateSessionID()
	c.queue = make([]int, c.itemCount)
	for i := range c.queue {
		c.queue[i] = i
	}
	c.position = 0
	c.isSubReview = false
	c.results = make(map[int]models.ItemResult)
	c.flagged = make(map[int]struct{})

	c.startLoops(ctx)
	c.phase = models.PhaseReviewing
	slog.Info("Controller.Start: review session started",
		"sessionID", c.sessionID, "briefingID", c.cfg.BriefingID, "items", c.itemCount, "demoMode", c.demoMode)
	return c.tracker.StartTracking(c.queue[0])
}

// startLoops acquires the signal source (best-effort), starts the metrics
// production loop and the sampling loop, and records the cancel handle.
// Caller holds c.mu.
func (c *Controller) startLoops(ctx context.Context) {
	demo := true
	if c.cfg.Source != nil && c.cfg.Extractor != nil {
		if err := c.cfg.Source.Acquire(ctx); err != nil {
			slog.Warn("Controller.startLoops: signal source unavailable, entering demo mode", "error", err)
		} else {
			demo = false
			c.sourceHeld = true
		}
	}
	c.demoMode = demo

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelLoops = cancel

	if demo {
		synth := attention.NewSynthesizer()
		c.loops.Add(1)
		go func() {
			defer c.loops.Done()
			synth.Run(loopCtx, c.stream, c.cfg.MetricsInterval)
		}()
	} else {
		pump := signal.NewPump(c.cfg.Source, c.cfg.Extractor, c.stream)
		c.loops.Add(1)
		go func() {
			defer c.loops.Done()
			pump.Run(loopCtx)
		}()
	}

	c.loops.Add(1)
	go func() {
		defer c.loops.Done()
		c.tracker.Run(loopCtx, c.cfg.SampleInterval)
	}()
}

// stopLoops cancels the metrics and sampling loops, waits for both to halt,
// and releases the signal source. Caller holds c.mu.
func (c *Controller) stopLoops() {
	if c.cancelLoops != nil {
		c.cancelLoops()
		c.cancelLoops = nil
	}
	c.loops.Wait()
	if c.sourceHeld {
		c.cfg.Source.Release()
		c.sourceHeld = false
	}
}

// Advance closes tracking on the current item and either moves to the next
// item or finishes the pass (REVIEWING → REVIEWING | RESULTS).
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseReviewing {
		return fmt.Errorf("cannot advance from phase %s", c.phase)
	}

	idx := c.queue[c.position]
	if res := c.tracker.StopTracking(idx); res != nil {
		c.results[idx] = *res
	}

	if c.position < len(c.queue)-1 {
		c.position++
		return c.tracker.StartTracking(c.queue[c.position])
	}

	c.finishPass()
	return nil
}

// Back closes the current item's tracking (its result is recorded,
// possibly provisional) and re-opens a fresh tracking window on the
// previous item. Revisiting starts a new window rather than resuming the
// prior one; the revisit's result replaces the provisional entry when the
// item is next closed.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseReviewing {
		return fmt.Errorf("cannot go back from phase %s", c.phase)
	}
	if c.position == 0 {
		return fmt.Errorf("already at the first item")
	}

	idx := c.queue[c.position]
	if res := c.tracker.StopTracking(idx); res != nil {
		c.results[idx] = *res
	}

	c.position--
	return c.tracker.StartTracking(c.queue[c.position])
}

// finishPass releases the loops and source, computes the flagged set over
// the current queue, transitions to RESULTS, and emits the pass's results
// to the sink. Caller holds c.mu.
//
// A full pass rebuilds the flagged set; a sub-review pass only re-evaluates
// its own queue, so items outside it keep their prior flagged status.
func (c *Controller) finishPass() {
	c.stopLoops()

	if !c.isSubReview {
		c.flagged = make(map[int]struct{})
	}
	for _, i := range c.queue {
		if c.results[i].Flagged() {
			c.flagged[i] = struct{}{}
		} else {
			delete(c.flagged, i)
		}
	}

	c.phase = models.PhaseResults
	slog.Info("Controller.finishPass: pass complete",
		"sessionID", c.sessionID, "briefingID", c.cfg.BriefingID, "subReview", c.isSubReview,
		"results", len(c.results), "flagged", len(c.flagged))

	c.emitResults()
}

// emitResults hands the finished pass's results to the sink, fire-and-
// forget. Caller holds c.mu.
func (c *Controller) emitResults() {
	if c.cfg.Sink == nil {
		return
	}
	batch := make([]models.ItemResult, 0, len(c.queue))
	for _, i := range c.queue {
		batch = append(batch, c.results[i])
	}
	briefingID := c.cfg.BriefingID
	go func() {
		if err := c.cfg.Sink.SaveResults(context.Background(), briefingID, batch); err != nil {
			slog.Error("Controller.emitResults: persisting results failed", "briefingID", briefingID, "error", err)
		}
	}()
}

// StartReReview begins a sub-review pass over the flagged items in their
// original relative order (RESULTS → REVIEWING). It is only reachable when
// the flagged set is non-empty.
func (c *Controller) StartReReview(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseResults {
		return fmt.Errorf("cannot start re-review from phase %s", c.phase)
	}
	if len(c.flagged) == 0 {
		return fmt.Errorf("no flagged items to re-review")
	}

	c.queue = c.flaggedIndices()
	c.position = 0
	c.isSubReview = true

	c.startLoops(ctx)
	c.phase = models.PhaseReviewing
	slog.Info("Controller.StartReReview: sub-review started",
		"sessionID", c.sessionID, "briefingID", c.cfg.BriefingID, "items", len(c.queue), "demoMode", c.demoMode)
	return c.tracker.StartTracking(c.queue[0])
}

// Reset discards all session state (RESULTS → SETUP).
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != models.PhaseResults {
		return fmt.Errorf("cannot reset from phase %s", c.phase)
	}
	sessionID := c.sessionID
	c.clearLocked()
	slog.Info("Controller.Reset: session reset", "sessionID", sessionID, "briefingID", c.cfg.BriefingID)
	return nil
}

// Stop aborts the session from any phase, discarding the open tracking
// record and any partial state. Both periodic loops are observably halted
// and the source released before Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessionID := c.sessionID
	c.tracker.Abort()
	c.clearLocked()
	slog.Info("Controller.Stop: session stopped", "sessionID", sessionID, "briefingID", c.cfg.BriefingID)
}

// clearLocked cancels loops, releases resources, and returns to SETUP.
// Caller holds c.mu.
func (c *Controller) clearLocked() {
	c.stopLoops()
	c.sessionID = ""
	c.queue = nil
	c.position = 0
	c.results = make(map[int]models.ItemResult)
	c.flagged = make(map[int]struct{})
	c.isSubReview = false
	c.demoMode = false
	c.phase = models.PhaseSetup
}

// flaggedIndices returns the flagged set in original item order. Caller
// holds c.mu.
func (c *Controller) flaggedIndices() []int {
	out := make([]int, 0, len(c.flagged))
	for i := range c.flagged {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make(map[int]models.ItemResult, len(c.results))
	for k, v := range c.results {
		results[k] = v
	}
	return Session{
		SessionID:   c.sessionID,
		Phase:       c.phase,
		Queue:       append([]int(nil), c.queue...),
		Position:    c.position,
		Results:     results,
		Flagged:     c.flaggedIndices(),
		IsSubReview: c.isSubReview,
		DemoMode:    c.demoMode,
	}
}

// LiveMetrics returns the most recent biometric snapshot, for presentation
// polling while REVIEWING.
func (c *Controller) LiveMetrics() models.LiveMetrics {
	return c.stream.Snapshot()
}

// Stream exposes the underlying metrics stream. Tests and alternative
// metrics producers publish through it.
func (c *Controller) Stream() *attention.MetricsStream {
	return c.stream
}
