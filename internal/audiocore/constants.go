package audiocore

import "time"

// FIR length selection by sample rate (spec.md 4.3 "FIR length by rate").
const (
	FIRLengthLowRate  = 4096  // fs <= 50kHz
	FIRLengthMidRate  = 8192  // fs <= 100kHz
	FIRLengthHighRate = 16384 // otherwise

	FIRLengthLowRateMaxFs = 50000
	FIRLengthMidRateMaxFs = 100000
)

// Partitioned-convolution constants shared by the linear-phase EQ and the
// convolution reverb (both built on the fdl package).
const (
	PartitionSize  = 1024 // samples per partition
	ConvolutionFFT = 2048 // FFT size used for each partition (1024 zero-padded to 2048)
)

// MaxBands is the maximum number of cascaded parametric-EQ bands.
const MaxBands = 20

// Fade/ramp constants (spec.md 4.8).
const (
	// WetMixFadeStep is the per-sample increment for the linear wet-mix
	// fade (~45ms at 44.1kHz).
	WetMixFadeStep = 0.0005

	// CoeffRampSamples is the linear ramp length (~6ms) used for
	// minimum-phase coefficient changes and pipeline enable/disable.
	CoeffRampSamples = 256

	// KernelCrossfadeSamples is the equal-power cross-fade length (~3ms)
	// used for linear-phase kernel swaps.
	KernelCrossfadeSamples = 128
)

// Crossfeed level presets (spec.md 4.4).
type CrossfeedLevel int

const (
	CrossfeedLight CrossfeedLevel = iota
	CrossfeedMedium
	CrossfeedStrong
)

// CrossfeedParams holds the crossfeed gain (dB), cutoff (Hz) and delay for
// one of the fixed presets.
type CrossfeedParams struct {
	CrossfeedDB float64
	CutoffHz    float64
	Delay       time.Duration
}

var crossfeedPresets = map[CrossfeedLevel]CrossfeedParams{
	CrossfeedLight:  {CrossfeedDB: -6.0, CutoffHz: 700, Delay: 300 * time.Microsecond},
	CrossfeedMedium: {CrossfeedDB: -4.5, CutoffHz: 700, Delay: 300 * time.Microsecond},
	CrossfeedStrong: {CrossfeedDB: -3.0, CutoffHz: 650, Delay: 300 * time.Microsecond},
}

// Params returns the fixed mixer parameters for a crossfeed level.
func (l CrossfeedLevel) Params() CrossfeedParams {
	return crossfeedPresets[l]
}

// Crossfeed delay is clamped to this sample range after rounding.
const (
	CrossfeedDelayMinSamples = 1
	CrossfeedDelayMaxSamples = 63
)

// IR swap starvation timeout (spec.md 4.5).
const IRSwapTimeout = 2 * time.Second

// HRTF staged-swap wait timeout (spec.md 4.6).
const HRTFSwapTimeout = 100 * time.Millisecond
