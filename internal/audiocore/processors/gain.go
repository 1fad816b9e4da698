// Package processors provides concrete render-pipeline stages for audiocore.
package processors

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/errors"
	"github.com/tphakala/audiocore/internal/logging"
)

// GainProcessor applies buf[i] *= g with g linearly ramped from the
// previous per-buffer gain to the current target across the buffer
// (spec.md 4.2). Grounded directly on the teacher's GainProcessor
// (atomic.Value gain target, dB->linear conversion on the control side),
// generalized from byte-buffer PCM gain to in-place float32 gain with a
// per-buffer ramp instead of an instantaneous scalar multiply.
type GainProcessor struct {
	targetGain atomic.Value // stores float64, linear units
	lastGain   float64      // render-thread-owned: gain applied at the end of the previous buffer
	logger     *slog.Logger
}

// NewGainProcessor creates a gain processor with the given initial linear
// gain (1.0 = unity).
func NewGainProcessor(initialGain float64) (*GainProcessor, error) {
	if initialGain < 0.0 || initialGain > 10.0 {
		return nil, errors.New(nil).
			Component("audiocore").
			Category(errors.CategoryValidation).
			Context("gain", initialGain).
			Build()
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	gp := &GainProcessor{
		lastGain: initialGain,
		logger:   logger.With("component", "gain_processor"),
	}
	gp.targetGain.Store(initialGain)
	return gp, nil
}

// DBToLinear converts a decibel value to a linear gain multiplier. Control
// side only; never called from the render thread.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// SetGainDB sets the gain target from a decibel value.
func (gp *GainProcessor) SetGainDB(db float64) {
	gp.SetGainLinear(DBToLinear(db))
}

// SetGainLinear sets the gain target directly in linear units. Safe to call
// from any control thread; the render thread picks it up atomically at the
// start of its next Process call.
func (gp *GainProcessor) SetGainLinear(gain float64) {
	gp.targetGain.Store(gain)
	gp.logger.Debug("gain target updated", "gain_linear", gain)
}

// Process ramps buf in place from the gain applied at the end of the
// previous buffer to the current target, reaching the target exactly on
// the first sample of the *next* buffer (spec.md 4.2 contract: transitions
// are always first-order continuous). Render-thread-safe: no allocation,
// no locking, no I/O.
func (gp *GainProcessor) Process(buf []float32, frames, channels int) {
	if frames == 0 || channels == 0 {
		return
	}
	target := gp.targetGain.Load().(float64)
	start := gp.lastGain

	if start == target {
		if target != 1.0 {
			g := float32(target)
			for i := range buf {
				buf[i] *= g
			}
		}
		return
	}

	step := (target - start) / float64(frames)
	for f := 0; f < frames; f++ {
		g := float32(start + step*float64(f+1))
		base := f * channels
		for ch := 0; ch < channels; ch++ {
			buf[base+ch] *= g
		}
	}
	gp.lastGain = target
}

// Reset snaps the ramp state to the current target, discarding any
// in-flight ramp. Used on seek.
func (gp *GainProcessor) Reset() {
	gp.lastGain = gp.targetGain.Load().(float64)
}

// GainLinear returns the current target gain in linear units.
func (gp *GainProcessor) GainLinear() float64 {
	return gp.targetGain.Load().(float64)
}
