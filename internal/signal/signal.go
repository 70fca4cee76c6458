// Package signal abstracts acquisition of the real facial signal source.
//
// A Source supplies per-frame access (typically a camera), and an Extractor
// turns frames into structured facial signals. Either may be absent or fail
// to initialize; the review session then falls back to the demo
// synthesizer transparently.
package signal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vigil-labs/vigil/internal/attention"
	"github.com/vigil-labs/vigil/internal/models"
)

// ErrUnavailable indicates the signal source or extractor cannot be
// acquired. It is never fatal to a review session.
var ErrUnavailable = errors.New("signal source unavailable")

// Frame is one captured video frame with metadata.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Sequence  uint64
	Timestamp int64
}

// Source supplies per-frame access to a signal device. Acquire may take
// variable time and can fail; acquisition failure must not block a session.
type Source interface {
	// Acquire opens the source. It blocks until the source is ready, the
	// context is cancelled, or acquisition fails.
	Acquire(ctx context.Context) error

	// Frames returns the channel of captured frames. The channel closes
	// when the source is released.
	Frames() <-chan Frame

	// Release closes the source and stops frame production.
	Release()
}

// Extractor turns a frame into a structured facial signal, or reports that
// no face is present.
type Extractor interface {
	// Detect returns the facial signal for the frame, or ok=false when no
	// face was found.
	Detect(frame Frame) (sig *models.FacialSignal, ok bool)
}

// Pump drives frames from a source through an extractor and the engagement
// estimator into the live metrics stream. It is the real-signal counterpart
// of the synthesizer loop.
type Pump struct {
	source    Source
	extractor Extractor
	stream    *attention.MetricsStream
}

// NewPump wires a source and extractor to a metrics stream.
func NewPump(source Source, extractor Extractor, stream *attention.MetricsStream) *Pump {
	return &Pump{source: source, extractor: extractor, stream: stream}
}

// Run consumes frames until the context is cancelled or the source's frame
// channel closes. Frames with no detected face publish the zero reading, so
// the stream always reflects the latest frame.
func (p *Pump) Run(ctx context.Context) {
	slog.Info("Pump.Run: starting frame loop")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Pump.Run: stopping")
			return
		case frame, ok := <-p.source.Frames():
			if !ok {
				slog.Info("Pump.Run: frame channel closed")
				return
			}
			sig, found := p.extractor.Detect(frame)
			if !found {
				p.stream.PublishReading(models.AttentionReading{})
				continue
			}
			p.stream.PublishReading(attention.Estimate(sig))
		}
	}
}

// UnavailableSource is a Source whose acquisition always fails. It stands
// in when no capture device is configured, forcing demo mode.
type UnavailableSource struct{}

// Acquire always returns ErrUnavailable.
func (UnavailableSource) Acquire(ctx context.Context) error { return ErrUnavailable }

// Frames returns nil; the source never produces frames.
func (UnavailableSource) Frames() <-chan Frame { return nil }

// Release is a no-op.
func (UnavailableSource) Release() {}
