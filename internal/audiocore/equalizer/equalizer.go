package equalizer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/tphakala/audiocore/internal/audiocore/fade"
	"github.com/tphakala/audiocore/internal/audiocore/fdl"
	"github.com/tphakala/audiocore/internal/audiocore/publish"
)

// PhaseMode selects between cascaded-biquad and linear-phase-FIR
// processing (spec.md 4.3).
type PhaseMode int

const (
	MinimumPhase PhaseMode = iota
	LinearPhase
)

// Equalizer implements both equalizer phase modes sharing one magnitude
// response, the phase-mode transition state machine, and the frequency
// response query (spec.md 4.3). Grounded on the teacher's biquad/FilterChain
// API extended with the FDL-based linear-phase path (fdl package) and the
// staged-pending-bands spin-lock handoff (publish package).
type Equalizer struct {
	sampleRate float64
	channels   int

	activeBands  [MaxBands]Band
	activeCount  int
	pendingBands *publish.Value[[]Band]

	batchMu    sync.Mutex
	batching   bool
	batchBands []Band

	chains []*FilterChain // one per channel, minimum-phase mode

	coeffFade *fade.Ramp
	dryScratch []float32 // allocated by dryBuffer on first use, grown to frames*channels

	mode         atomic.Int32 // PhaseMode, render-thread-read
	pendingMode  atomic.Int32
	modeDirty    atomic.Bool
	transition   *fade.Envelope

	// Linear-phase state: two OLA slots per channel (cur, next).
	curStates  []*fdl.State
	nextStates []*fdl.State
	curKernel  *fdl.Kernel
	nextKernel *fdl.Kernel
	warmingUp       bool
	kernelXfade     *fade.Crossfade
	kernelXfadeDone bool

	stagedKernel *publish.Value[fdl.Kernel]

	inBlock      []float64   // scratch, PartitionSize
	outChannels  [][]float64 // scratch, one PartitionSize buffer per channel (cur slot)
	nextChannels [][]float64 // scratch, one PartitionSize buffer per channel (next slot)
}

// MaxBands is re-exported here for callers that only import equalizer.
const MaxBands = 20

// New creates an equalizer for the given format, defaulting to
// minimum-phase mode with every band disabled (flat response).
func New(sampleRate float64, channels int) *Equalizer {
	eq := &Equalizer{
		sampleRate:   sampleRate,
		channels:     channels,
		pendingBands: publish.NewValue(new([]Band)),
		coeffFade:    fade.NewRamp(),
		transition:   fade.NewEnvelope(),
		kernelXfade:  fade.NewCrossfade(),
		stagedKernel: publish.NewValue(new(fdl.Kernel)),
		inBlock:      make([]float64, fdl.PartitionSize),
	}
	for i := range eq.activeBands {
		eq.activeBands[i] = DefaultBand()
	}
	eq.chains = make([]*FilterChain, channels)
	for ch := range eq.chains {
		eq.chains[ch] = NewFilterChain()
	}
	eq.curStates = make([]*fdl.State, channels)
	eq.nextStates = make([]*fdl.State, channels)
	eq.outChannels = make([][]float64, channels)
	eq.nextChannels = make([][]float64, channels)
	lpPartitions := FIRLengthForRate(sampleRate) / fdl.PartitionSize
	for ch := 0; ch < channels; ch++ {
		eq.curStates[ch] = fdl.NewState(lpPartitions)
		eq.nextStates[ch] = fdl.NewState(lpPartitions)
		eq.outChannels[ch] = make([]float64, fdl.PartitionSize)
		eq.nextChannels[ch] = make([]float64, fdl.PartitionSize)
	}
	eq.curKernel = identityKernel()
	return eq
}

// identityKernel is a single-partition FDL kernel built from a unit impulse
// at sample 0: a flat passthrough, not silence. Used to seed the
// linear-phase path before any real kernel has been built or staged.
func identityKernel() *fdl.Kernel {
	ir := make([]float64, fdl.PartitionSize)
	ir[0] = 1
	return fdl.BuildKernel(ir)
}

// SetBand stages a new value for band index (control thread). Returns
// false if index or band parameters are invalid. Between
// BeginBatchUpdate/EndBatchUpdate, the change accumulates in the open batch
// instead of staging (and fading in) immediately.
func (eq *Equalizer) SetBand(index int, b Band) bool {
	if index < 0 || index >= MaxBands || !b.Validate(eq.sampleRate) {
		return false
	}
	eq.batchMu.Lock()
	defer eq.batchMu.Unlock()
	if eq.batching {
		eq.batchBands[index] = b
		return true
	}
	next := append([]Band(nil), eq.activeBands[:]...)
	next[index] = b
	eq.pendingBands.Stage(&next)
	return true
}

// BeginBatchUpdate opens a batch: subsequent SetBand calls accumulate
// against a snapshot of the active bands instead of staging one at a time,
// so the render thread adopts the whole set as a single coefficient
// rebuild/fade rather than one per call (spec.md 6). Control-thread only;
// must be paired with EndBatchUpdate.
func (eq *Equalizer) BeginBatchUpdate() {
	eq.batchMu.Lock()
	defer eq.batchMu.Unlock()
	eq.batching = true
	eq.batchBands = append([]Band(nil), eq.activeBands[:]...)
}

// EndBatchUpdate stages the accumulated batch as one pending update and
// closes the batch. A no-op if BeginBatchUpdate was never called.
func (eq *Equalizer) EndBatchUpdate() {
	eq.batchMu.Lock()
	defer eq.batchMu.Unlock()
	if eq.batching {
		batch := eq.batchBands
		eq.pendingBands.Stage(&batch)
	}
	eq.batching = false
	eq.batchBands = nil
}

// GetBand returns the currently active band at index.
func (eq *Equalizer) GetBand(index int) (Band, bool) {
	if index < 0 || index >= MaxBands {
		return Band{}, false
	}
	return eq.activeBands[index], true
}

// SetActiveBands sets how many of the 20 band slots are considered
// (count 1..20); bands beyond count are ignored even if enabled.
func (eq *Equalizer) SetActiveBands(count int) {
	if count < 1 {
		count = 1
	}
	if count > MaxBands {
		count = MaxBands
	}
	eq.activeCount = count
}

// SetPhaseMode triggers the phase-mode transition state machine (spec.md
// 4.3's FadeOut -> Warmup+FadeIn sequence). Switching into LinearPhase
// builds and stages a kernel from the currently active bands immediately,
// so the transition never lands on a stale or identity-only kernel.
func (eq *Equalizer) SetPhaseMode(mode PhaseMode) {
	if mode == LinearPhase {
		eq.StageLinearPhaseKernel()
	}
	eq.pendingMode.Store(int32(mode))
	eq.modeDirty.Store(true)
}

func (eq *Equalizer) warmupDuration(newMode PhaseMode) int {
	if newMode == LinearPhase {
		firLen := FIRLengthForRate(eq.sampleRate)
		p := (fdl.PartitionSize + firLen/2 + fdl.PartitionSize - 1) / fdl.PartitionSize
		return (p+1)*fdl.PartitionSize + fade.RampSamples
	}
	return 2 * fade.RampSamples
}

// adoptPendingBands applies a staged band snapshot if one is ready,
// rebuilding per-channel minimum-phase chains and starting the coefficient
// cross-fade. Render-thread-safe (the publish.Value Adopt call never
// blocks).
func (eq *Equalizer) adoptPendingBands() {
	staged, ok := eq.pendingBands.Adopt()
	if !ok {
		return
	}
	bands := *staged
	for i := 0; i < MaxBands && i < len(bands); i++ {
		eq.activeBands[i] = bands[i]
	}
	for ch, chain := range eq.chains {
		*chain = *NewFilterChain()
		for i := 0; i < eq.activeCount; i++ {
			b := eq.activeBands[i]
			if !b.Enabled {
				continue
			}
			chain.AddFilter(b.buildFilter(eq.sampleRate, 1))
			_ = ch
		}
	}
	eq.coeffFade.Start()
}

// Process runs the equalizer over an interleaved float32 buffer in place.
// Render-thread-safe except that dryBuffer allocates its scratch buffer the
// first time a coefficient fade runs (and again if a larger buffer arrives).
func (eq *Equalizer) Process(buf []float32, frames, channels int) {
	if eq.modeDirty.Load() && eq.transition.Stage() == fade.StageIdle {
		eq.transition.Begin(eq.warmupDuration(PhaseMode(eq.pendingMode.Load())))
		eq.modeDirty.Store(false)
	}

	if eq.transition.Stage() != fade.StageIdle {
		eq.processTransitioning(buf, frames, channels)
		return
	}

	switch PhaseMode(eq.mode.Load()) {
	case LinearPhase:
		eq.processLinearPhase(buf, frames, channels)
	default:
		eq.processMinimumPhase(buf, frames, channels)
	}
}

func (eq *Equalizer) processTransitioning(buf []float32, frames, channels int) {
	for i := 0; i < frames; i++ {
		g, flip, _ := eq.transition.Next()
		if flip {
			eq.mode.Store(eq.pendingMode.Load())
			for ch := range eq.curStates {
				eq.curStates[ch].Reset()
			}
			for ch := range eq.chains {
				eq.chains[ch].Reset()
			}
		}
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			buf[base+ch] *= float32(g)
		}
	}
}

func (eq *Equalizer) processMinimumPhase(buf []float32, frames, channels int) {
	eq.adoptPendingBands()

	if !eq.coeffFade.Active() {
		for ch := 0; ch < channels && ch < len(eq.chains); ch++ {
			eq.chains[ch].ApplyInterleaved(buf, frames, channels, ch)
		}
		return
	}

	dry := eq.dryBuffer(frames * channels)
	copy(dry, buf[:frames*channels])
	for ch := 0; ch < channels && ch < len(eq.chains); ch++ {
		eq.chains[ch].ApplyInterleaved(buf, frames, channels, ch)
	}
	for i := 0; i < frames; i++ {
		t := eq.coeffFade.Next()
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			buf[base+ch] = dry[base+ch]*float32(1-t) + buf[base+ch]*float32(t)
		}
	}
}

func (eq *Equalizer) dryBuffer(n int) []float32 {
	if cap(eq.dryScratch) < n {
		eq.dryScratch = make([]float32, n)
	}
	return eq.dryScratch[:n]
}

// processLinearPhase runs the partitioned-convolution path, including the
// cur/next warm-up cross-fade of spec.md 4.3.
func (eq *Equalizer) processLinearPhase(buf []float32, frames, channels int) {
	if staged, ok := eq.stagedKernel.Adopt(); ok {
		if !eq.curStates[0].HasOutput() {
			eq.curKernel = staged
			for ch := range eq.curStates {
				eq.curStates[ch].Reset()
			}
		} else if !eq.warmingUp {
			eq.warmingUp = true
			eq.nextKernel = staged
			for ch := range eq.nextStates {
				eq.nextStates[ch].Reset()
			}
		} else {
			eq.nextKernel = staged
			for ch := range eq.nextStates {
				eq.nextStates[ch].Reset()
			}
		}
	}

	for i := 0; i < frames; i += fdl.PartitionSize {
		n := fdl.PartitionSize
		if i+n > frames {
			n = frames - i
		}

		wasWarming := eq.warmingUp
		nextReachedOutput := false

		for ch := 0; ch < channels; ch++ {
			for j := 0; j < n; j++ {
				eq.inBlock[j] = float64(buf[(i+j)*channels+ch])
			}
			for j := n; j < fdl.PartitionSize; j++ {
				eq.inBlock[j] = 0
			}

			eq.curStates[ch].ProcessBlock(eq.curKernel, eq.inBlock, eq.outChannels[ch])

			if wasWarming {
				eq.nextStates[ch].ProcessBlock(eq.nextKernel, eq.inBlock, eq.nextChannels[ch])
				if eq.nextStates[ch].HasOutput() {
					nextReachedOutput = true
				}
			}
		}

		if !wasWarming {
			for ch := 0; ch < channels; ch++ {
				for j := 0; j < n; j++ {
					buf[(i+j)*channels+ch] = float32(eq.outChannels[ch][j])
				}
			}
			continue
		}

		// One shared crossfade progression per sample, applied identically
		// to every channel — advancing it once per channel per sample
		// would desync the equal-power curve from wall-clock time.
		if nextReachedOutput && !eq.kernelXfade.Active() && !eq.kernelXfadeDone {
			eq.kernelXfade.Start()
		}
		for j := 0; j < n; j++ {
			gOld, gNew := 1.0, 0.0
			switch {
			case eq.kernelXfade.Active():
				gOld, gNew = eq.kernelXfade.Next()
			case eq.kernelXfadeDone:
				gOld, gNew = 0, 1
			}
			for ch := 0; ch < channels; ch++ {
				out := eq.outChannels[ch][j]*gOld + eq.nextChannels[ch][j]*gNew
				buf[(i+j)*channels+ch] = float32(out)
			}
		}

		if nextReachedOutput {
			eq.kernelXfadeDone = true
		}

		if eq.kernelXfadeDone && !eq.kernelXfade.Active() {
			eq.curStates, eq.nextStates = eq.nextStates, eq.curStates
			eq.curKernel = eq.nextKernel
			eq.warmingUp = false
			eq.kernelXfadeDone = false
		}
	}
}

// StageLinearPhaseKernel builds a new linear-phase kernel from the current
// active bands and stages it for the render thread. Control-thread only.
func (eq *Equalizer) StageLinearPhaseKernel() {
	k := BuildLinearPhaseKernel(eq.activeBands[:eq.activeCount], eq.sampleRate)
	eq.stagedKernel.Stage(k)
}

// ActiveBandCount returns how many of the 20 band slots SetActiveBands last
// configured as active.
func (eq *Equalizer) ActiveBandCount() int {
	return eq.activeCount
}

// CurrentPhaseMode returns the phase mode currently in effect on the render
// thread (not the pending target of an in-flight SetPhaseMode transition).
func (eq *Equalizer) CurrentPhaseMode() PhaseMode {
	return PhaseMode(eq.mode.Load())
}

// Latency returns the processing latency in samples (spec.md 4.3): 0 in
// minimum-phase mode, 1024 + firLen/2 in linear-phase mode.
func (eq *Equalizer) Latency() int {
	if PhaseMode(eq.mode.Load()) == LinearPhase {
		return fdl.PartitionSize + FIRLengthForRate(eq.sampleRate)/2
	}
	return 0
}

// FrequencyResponse returns dB magnitude at numPoints logarithmically
// spaced frequencies from 20Hz to 20kHz, computed from the active bands'
// biquad transfer functions. A band update staged by SetBand is reflected
// only after the render thread has adopted it in Process.
func (eq *Equalizer) FrequencyResponse(numPoints int) []float64 {
	if numPoints < 1 {
		return nil
	}
	out := make([]float64, numPoints)
	const lo, hi = 20.0, 20000.0
	for i := 0; i < numPoints; i++ {
		t := float64(i) / float64(numPoints-1)
		if numPoints == 1 {
			t = 0
		}
		freq := lo * math.Pow(10, t*math.Log10(hi/lo))
		out[i] = magnitudeDB(eq.activeBands[:eq.activeCount], eq.sampleRate, freq)
	}
	return out
}
