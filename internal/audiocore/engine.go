package audiocore

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/audiocore/internal/audiocore/cpuspec"
	"github.com/tphakala/audiocore/internal/audiocore/crossfeed"
	"github.com/tphakala/audiocore/internal/audiocore/equalizer"
	"github.com/tphakala/audiocore/internal/audiocore/fade"
	"github.com/tphakala/audiocore/internal/audiocore/hrtf"
	"github.com/tphakala/audiocore/internal/audiocore/processors"
	"github.com/tphakala/audiocore/internal/audiocore/reverb"
	"github.com/tphakala/audiocore/internal/logging"
	"github.com/tphakala/audiocore/internal/metrics"
)

// Engine is the top-level pipeline orchestrator (spec.md 4.1): it owns the
// fixed six-stage render pipeline and exposes Process to the audio driver.
// Ordering is fixed per spec.md: headroom gain -> crossfeed -> convolution
// reverb -> HRTF binauralizer -> equalizer -> plugin chain. The equalizer's
// linear-phase mode, when active, replaces the biquad stage in place
// internally; the pipeline never needs to know which mode is active.
type Engine struct {
	format AudioFormat

	gain      *processors.GainProcessor
	crossfeed *crossfeed.Crossfeed
	reverb    *reverb.Reverb
	hrtf      *hrtf.Binauralizer
	eq        *equalizer.Equalizer
	plugins   *Chain

	enabled    atomic.Bool
	enableRamp *fade.Ramp
	dryScratch []float32

	metrics metrics.Recorder

	sessionID string
	cpu       cpuspec.Spec
	logger    *slog.Logger
}

// NewEngine builds an engine for the given format, all stages starting
// disabled except the headroom gain (unity) and equalizer (flat). Returns
// ErrInvalidSampleRate/ErrInvalidChannelCount for an invalid format.
func NewEngine(format AudioFormat) (*Engine, error) {
	if format.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if format.Channels < 1 || format.Channels > 24 {
		return nil, ErrInvalidChannelCount
	}
	if format.MaxBlockSize < 1 {
		format.MaxBlockSize = 4096
	}

	gainProc, err := processors.NewGainProcessor(1.0)
	if err != nil {
		return nil, err
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	sessionID := uuid.New().String()[:8]
	cpu := cpuspec.Detect()

	e := &Engine{
		format:     format,
		gain:       gainProc,
		crossfeed:  crossfeed.New(float64(format.SampleRate), crossfeed.Medium),
		reverb:     reverb.New(format.Channels),
		hrtf:       hrtf.New(format.MaxBlockSize),
		eq:         equalizer.New(float64(format.SampleRate), format.Channels),
		plugins:    NewChain(),
		enableRamp: fade.NewRamp(),
		metrics:    metrics.NoopRecorder{},
		sessionID:  sessionID,
		cpu:        cpu,
		logger:     logger.With("component", "engine", "session", sessionID),
	}
	e.enabled.Store(true)
	e.logger.Info("engine started",
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"max_block_size", format.MaxBlockSize,
		"cpu_brand", cpu.BrandName,
		"cpu_logical_cores", cpu.LogicalCores,
		"cpu_avx2", cpu.HasAVX2,
	)
	return e, nil
}

// Prepare re-negotiates the audio format for an already-running engine:
// resizes buffers, rebuilds filter coefficients, and re-partitions FIR
// kernels for the new sample rate/channel count/max block size. Unlike
// NewEngine this is callable repeatedly over the engine's lifetime, e.g. on
// an output device change. Control-thread only, and only while the render
// thread is stopped: every DSP stage is rebuilt from scratch for the new
// format, so sample-rate-dependent state (loaded IRs, HRTF angle, equalizer
// bands) must be reloaded by the caller afterward. The headroom gain target
// and crossfeed preset, which do not depend on sample rate in a way that
// needs rebuilding from raw parameters, are carried over.
func (e *Engine) Prepare(sampleRate, channels, maxBlockSize int) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if channels < 1 || channels > 24 {
		return ErrInvalidChannelCount
	}
	if maxBlockSize < 1 {
		maxBlockSize = 4096
	}

	gainProc, err := processors.NewGainProcessor(e.gain.GainLinear())
	if err != nil {
		return err
	}

	e.format = AudioFormat{SampleRate: sampleRate, Channels: channels, MaxBlockSize: maxBlockSize}
	e.gain = gainProc
	e.crossfeed = crossfeed.New(float64(sampleRate), e.crossfeed.CurrentLevel())
	e.reverb = reverb.New(channels)
	e.hrtf = hrtf.New(maxBlockSize)
	e.eq = equalizer.New(float64(sampleRate), channels)
	e.dryScratch = nil
	e.plugins.Prepare(float64(sampleRate), channels)

	e.logger.Info("engine re-prepared",
		"sample_rate", sampleRate,
		"channels", channels,
		"max_block_size", maxBlockSize,
	)
	return nil
}

// EngineSnapshot is the aggregate persisted session state for an entire
// pipeline: each fixed stage's enabled flag and key parameters, plus the
// plugin chain's order/state/enabled snapshot (spec.md 6's "Persisted
// state"). Opaque beyond that to callers; encode/decode it as JSON.
type EngineSnapshot struct {
	GainLinear       float64             `json:"gain_linear"`
	CrossfeedEnabled bool                `json:"crossfeed_enabled"`
	CrossfeedLevel   crossfeed.Level     `json:"crossfeed_level"`
	ReverbEnabled    bool                `json:"reverb_enabled"`
	HRTFEnabled      bool                `json:"hrtf_enabled"`
	HRTFAngleDeg     float64             `json:"hrtf_angle_deg"`
	EQPhaseMode      equalizer.PhaseMode `json:"eq_phase_mode"`
	EQActiveBands    int                 `json:"eq_active_bands"`
	Plugins          []ProcessorSnapshot `json:"plugins"`
}

// SaveSession captures the whole pipeline's persisted session state.
// Control-thread only.
func (e *Engine) SaveSession() EngineSnapshot {
	return EngineSnapshot{
		GainLinear:       e.gain.GainLinear(),
		CrossfeedEnabled: e.crossfeed.IsEnabled(),
		CrossfeedLevel:   e.crossfeed.CurrentLevel(),
		ReverbEnabled:    e.reverb.IsEnabled(),
		HRTFEnabled:      e.hrtf.IsEnabled(),
		HRTFAngleDeg:     e.hrtf.CurrentAngle(),
		EQPhaseMode:      e.eq.CurrentPhaseMode(),
		EQActiveBands:    e.eq.ActiveBandCount(),
		Plugins:          e.plugins.SaveSession(),
	}
}

// RestoreSession applies a previously saved pipeline session. Control-thread
// only. IR/dataset-backed state (reverb's loaded IR, HRTF's dataset) is not
// part of the snapshot and must be reloaded by the caller first; this only
// restores the headroom gain, enabled flags, the crossfeed preset, the
// equalizer's phase mode and active band count, and the plugin chain's
// order/state/enabled flags.
func (e *Engine) RestoreSession(s EngineSnapshot) {
	e.gain.SetGainLinear(s.GainLinear)
	e.crossfeed.SetLevel(s.CrossfeedLevel)
	e.crossfeed.SetEnabled(s.CrossfeedEnabled)
	e.reverb.SetEnabled(s.ReverbEnabled)
	e.hrtf.SetEnabled(s.HRTFEnabled)
	e.eq.SetActiveBands(s.EQActiveBands)
	e.eq.SetPhaseMode(s.EQPhaseMode)
	e.plugins.RestoreSession(s.Plugins)
}

// SessionID returns the short correlation ID generated for this engine
// instance, included in every log line it emits.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// CPU returns the host CPU characteristics detected at construction time,
// used by callers sizing off-render-thread kernel-build concurrency.
func (e *Engine) CPU() cpuspec.Spec {
	return e.cpu
}

// Format returns the negotiated audio format.
func (e *Engine) Format() AudioFormat {
	return e.format
}

// Gain returns the headroom gain processor for control-thread configuration.
func (e *Engine) Gain() *processors.GainProcessor {
	return e.gain
}

// Crossfeed returns the crossfeed mixer for control-thread configuration.
func (e *Engine) Crossfeed() *crossfeed.Crossfeed {
	return e.crossfeed
}

// Reverb returns the convolution reverb for control-thread configuration.
func (e *Engine) Reverb() *reverb.Reverb {
	return e.reverb
}

// HRTF returns the binauralizer for control-thread configuration.
func (e *Engine) HRTF() *hrtf.Binauralizer {
	return e.hrtf
}

// Equalizer returns the parametric equalizer for control-thread
// configuration.
func (e *Engine) Equalizer() *equalizer.Equalizer {
	return e.eq
}

// Plugins returns the plugin chain for control-thread add/remove/reorder.
func (e *Engine) Plugins() *Chain {
	return e.plugins
}

// SetMetricsRecorder installs a metrics.Recorder for this engine's pipeline
// telemetry, e.g. a metrics.NewPrometheusRecorder wired to an HTTP /metrics
// endpoint. Defaults to metrics.NoopRecorder{}; safe to swap at any time
// since Process only ever reads the interface value, never partial state.
func (e *Engine) SetMetricsRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	e.metrics = r
}

// SetEnabled toggles the entire pipeline on or off, starting a ~6ms
// cross-fade (spec.md 4.1: "cross-fade over ~6ms between the untouched
// input copy and the processed output").
func (e *Engine) SetEnabled(enabled bool) {
	if e.enabled.Swap(enabled) != enabled {
		e.enableRamp.Start()
	}
}

// IsEnabled reports the current pipeline enable target.
func (e *Engine) IsEnabled() bool {
	return e.enabled.Load()
}

// Reset zeroes the render-owned history of the gain ramp, crossfeed, reverb
// and HRTF stages, e.g. on seek. The equalizer's filter and convolution
// state and the plugin processors are not reset.
func (e *Engine) Reset() {
	e.gain.Reset()
	e.crossfeed.Reset()
	e.reverb.Reset()
	e.hrtf.Reset()
}

func (e *Engine) dryBuffer(n int) []float32 {
	if cap(e.dryScratch) < n {
		e.dryScratch = make([]float32, n)
	}
	return e.dryScratch[:n]
}

// Process runs one buffer through the pipeline in place. Render-thread-safe:
// no allocation beyond what NewEngine/dryBuffer have already sized, no
// blocking locks, no I/O.
//
// dopPassthrough skips all processing including headroom (DoP passthrough).
// bitPerfect skips everything except headroom gain (bit-perfect PCM/DSD
// pass-through).
func (e *Engine) Process(buf []float32, frames, channels int, dopPassthrough, bitPerfect bool) {
	if dopPassthrough {
		return
	}
	if bitPerfect {
		e.gain.Process(buf, frames, channels)
		return
	}

	start := time.Now()
	target := e.enabled.Load()
	if !target && !e.enableRamp.Active() {
		e.metrics.RecordOperation("process", "disabled")
		return
	}

	n := frames * channels
	dry := e.dryBuffer(n)
	copy(dry, buf[:n])

	e.gain.Process(buf, frames, channels)
	e.crossfeed.Process(buf, frames, channels)
	e.reverb.Process(buf, frames, channels)
	e.hrtf.Process(buf, frames, channels)
	e.eq.Process(buf, frames, channels)
	ran := e.plugins.TryProcess(buf, frames, channels)
	if !ran {
		e.metrics.RecordError("process", "plugin_chain_locked")
	}
	e.metrics.RecordOperation("process", "ok")
	e.metrics.RecordDuration("process", time.Since(start).Seconds())

	if !e.enableRamp.Active() {
		return
	}

	for i := 0; i < frames; i++ {
		t := e.enableRamp.Next()
		if !target {
			t = 1 - t
		}
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			buf[base+ch] = dry[base+ch]*float32(1-t) + buf[base+ch]*float32(t)
		}
	}
}
