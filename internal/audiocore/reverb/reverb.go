// Package reverb implements the partitioned-convolution impulse-response
// reverb of spec.md section 4.5. It shares the fdl package's partitioned
// overlap-add engine with the linear-phase equalizer, parameterized instead
// over an externally decoded impulse response, with the same
// publish.Value-based staged-swap handoff used throughout this module.
package reverb

import (
	"sync/atomic"
	"time"

	"github.com/tphakala/audiocore/internal/audiocore/fade"
	"github.com/tphakala/audiocore/internal/audiocore/fdl"
	"github.com/tphakala/audiocore/internal/audiocore/publish"
	"github.com/tphakala/audiocore/internal/errors"
)

// ComponentReverb identifies this package in categorized errors.
const ComponentReverb = "reverb"

// ErrIRRejected is returned by LoadIR for an empty or malformed impulse
// response.
var ErrIRRejected = errors.New(nil).
	Component(ComponentReverb).
	Category(errors.CategoryValidation).
	Context("resource", "impulse_response").
	Build()

// ErrSwapStarved is returned by LoadIR when a previously staged IR has not
// been adopted by the render thread within the swap timeout (spec.md 4.5:
// "abandons the load rather than stacking").
var ErrSwapStarved = errors.New(nil).
	Component(ComponentReverb).
	Category(errors.CategoryTimeout).
	Context("resource", "staged_swap").
	Build()

// SwapTimeout bounds how long LoadIR busy-waits for a previously staged IR
// to be consumed before abandoning the new load (spec.md 4.5: "<= 2s, >=
// 1ms sleeps").
const SwapTimeout = 2 * time.Second

const swapPollInterval = 1 * time.Millisecond

// kernelSet is the staged unit: one fdl.Kernel per IR channel, the channel
// count it was decoded with, and the sample rate it was captured at.
// Swapped atomically via publish.Value.
type kernelSet struct {
	kernels    []*fdl.Kernel
	irChans    int
	sampleRate int32
}

// silentKernelSet returns the identity staged value used both at
// construction and by ClearIR: a single zero-sample IR, i.e. no reverb tail
// at all.
func silentKernelSet() *kernelSet {
	return &kernelSet{kernels: []*fdl.Kernel{fdl.BuildKernel(make([]float64, fdl.PartitionSize))}, irChans: 1}
}

// Reverb is the render-thread-owned convolution reverb processor. One
// fdl.State per output audio channel; output channels map to IR channels
// per spec.md 4.5 (mono IR -> all channels, stereo IR -> alternating L/R,
// >=3 channel IR -> 1:1 with extras passed through).
type Reverb struct {
	channels int

	states    []*fdl.State
	active    *kernelSet
	stagedSet *publish.Value[kernelSet]

	enabled atomic.Bool
	wet     *fade.WetMix

	inBlock     []float64
	outBlock    [][]float64
}

// New creates a reverb processor for the given channel count, starting
// disabled with a silent (zero-sample) impulse response.
func New(channels int) *Reverb {
	if channels < 1 {
		channels = 1
	}
	r := &Reverb{
		channels:  channels,
		wet:       fade.NewWetMix(0),
		stagedSet: publish.NewValue(silentKernelSet()),
		inBlock:   make([]float64, fdl.PartitionSize),
	}
	r.states = make([]*fdl.State, channels)
	r.outBlock = make([][]float64, channels)
	for ch := 0; ch < channels; ch++ {
		r.states[ch] = fdl.NewState(1)
		r.outBlock[ch] = make([]float64, fdl.PartitionSize)
	}
	r.active = silentKernelSet()
	return r
}

// LoadIR builds partitioned kernels from a deinterleaved float PCM impulse
// response (one slice per IR channel), captured at irSampleRate, and stages
// it for the render thread to adopt on its next buffer. irSampleRate is
// recorded on the staged kernel set for future resampling/reporting and must
// be positive. Control-thread only: allocates freely.
//
// If a previously staged IR has not yet been consumed, this busy-waits up
// to SwapTimeout (polling every 1ms, per spec.md 4.5) before giving up and
// returning ErrSwapStarved rather than stacking a second pending swap.
func (r *Reverb) LoadIR(irChannels [][]float64, irSampleRate int32) error {
	if len(irChannels) == 0 || len(irChannels[0]) == 0 || irSampleRate <= 0 {
		return ErrIRRejected
	}

	deadline := time.Now().Add(SwapTimeout)
	for r.stagedSet.HasPending() {
		if time.Now().After(deadline) {
			return ErrSwapStarved
		}
		time.Sleep(swapPollInterval)
	}

	kernels := make([]*fdl.Kernel, len(irChannels))
	for i, ir := range irChannels {
		kernels[i] = fdl.BuildKernel(ir)
	}
	r.stagedSet.Stage(&kernelSet{kernels: kernels, irChans: len(irChannels), sampleRate: irSampleRate})
	return nil
}

// ClearIR reverts to the silent (zero-sample) impulse response staged at
// construction, e.g. when the user picks "None" from an IR list. Follows the
// same busy-wait/SwapTimeout protocol as LoadIR.
func (r *Reverb) ClearIR() error {
	deadline := time.Now().Add(SwapTimeout)
	for r.stagedSet.HasPending() {
		if time.Now().After(deadline) {
			return ErrSwapStarved
		}
		time.Sleep(swapPollInterval)
	}
	r.stagedSet.Stage(silentKernelSet())
	return nil
}

// SetEnabled targets the wet (processed) signal on or off; the actual
// transition ramps over the wet-mix fade (spec.md 4.5: "~45ms").
func (r *Reverb) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// IsEnabled reports the current enable target.
func (r *Reverb) IsEnabled() bool {
	return r.enabled.Load()
}

// kernelForChannel implements spec.md 4.5's channel-mapping rule given the
// active kernel set's IR channel count.
func kernelForChannel(set *kernelSet, ch int) *fdl.Kernel {
	n := len(set.kernels)
	switch {
	case n == 0:
		return nil
	case set.irChans == 1:
		return set.kernels[0]
	case set.irChans == 2:
		return set.kernels[ch%2]
	case ch < n:
		return set.kernels[ch]
	default:
		return nil // extra channel beyond the IR's: passed through unchanged
	}
}

// Process runs the convolution reverb over an interleaved buffer in place.
// No locking or I/O; adopting a staged IR swaps the active kernel set and
// allocates fresh per-channel FDL state sized to its partition count, so
// that one buffer allocates on the render thread.
func (r *Reverb) Process(buf []float32, frames, channels int) {
	if staged, ok := r.stagedSet.Adopt(); ok {
		r.adopt(staged, channels)
	}

	if !r.enabled.Load() && r.wet.Level() == 0 {
		return
	}
	if channels != r.channels {
		return
	}

	for i := 0; i < frames; i += fdl.PartitionSize {
		n := fdl.PartitionSize
		if i+n > frames {
			n = frames - i
		}

		for ch := 0; ch < channels; ch++ {
			k := kernelForChannel(r.active, ch)
			if k == nil {
				for j := 0; j < n; j++ {
					r.outBlock[ch][j] = 0
				}
				continue
			}
			for j := 0; j < n; j++ {
				r.inBlock[j] = float64(buf[(i+j)*channels+ch])
			}
			for j := n; j < fdl.PartitionSize; j++ {
				r.inBlock[j] = 0
			}
			r.states[ch].ProcessBlock(k, r.inBlock, r.outBlock[ch])
		}

		target := 0.0
		if r.enabled.Load() {
			target = 1.0
		}
		for j := 0; j < n; j++ {
			w := r.wet.Step(target)
			for ch := 0; ch < channels; ch++ {
				if kernelForChannel(r.active, ch) == nil {
					continue // no IR channel for this one: left unchanged
				}
				dry := buf[(i+j)*channels+ch]
				wet := float32(r.outBlock[ch][j])
				buf[(i+j)*channels+ch] = dry*float32(1-w) + wet*float32(w)
			}
		}
	}
}

// adopt resizes per-channel FDL state to match the new kernel set's
// partition count and clears all state, per spec.md 4.5's swap protocol.
// Called only from the render thread inside Process.
func (r *Reverb) adopt(set *kernelSet, channels int) {
	partitions := 1
	if len(set.kernels) > 0 {
		partitions = set.kernels[0].NumPartitions()
	}
	if channels != r.channels || len(r.states) != channels {
		r.channels = channels
		r.states = make([]*fdl.State, channels)
		r.outBlock = make([][]float64, channels)
		for ch := 0; ch < channels; ch++ {
			r.outBlock[ch] = make([]float64, fdl.PartitionSize)
		}
	}
	for ch := range r.states {
		r.states[ch] = fdl.NewState(partitions)
	}
	r.active = set
}

// Reset clears all convolution state, e.g. on seek.
func (r *Reverb) Reset() {
	for _, s := range r.states {
		s.Reset()
	}
}
