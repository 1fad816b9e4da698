// Package hrtf implements the stereo-only HRTF binauralizer of spec.md
// section 4.6: for a configurable virtual speaker angle, convolve each
// input channel against the dataset's four head-related impulse responses
// (left-speaker and right-speaker, to each ear) and sum.
//
// No SOFA file parsing is implemented (spec.md's Non-goals exclude the file
// format itself); Dataset is a small interface so a loader built elsewhere
// can supply IRs, and MemoryDataset offers a direct nearest-angle in-memory
// table grounded on the same staged-swap pattern as the reverb and
// equalizer packages.
package hrtf

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/tphakala/audiocore/internal/audiocore/fade"
	"github.com/tphakala/audiocore/internal/audiocore/publish"
	"github.com/tphakala/audiocore/internal/errors"
)

// ComponentHRTF identifies this package in categorized errors.
const ComponentHRTF = "hrtf"

// ErrDatasetUnavailable is returned when a Dataset has no entry usable for
// the requested angle.
var ErrDatasetUnavailable = errors.New(nil).
	Component(ComponentHRTF).
	Category(errors.CategoryResource).
	Context("resource", "hrtf_dataset").
	Build()

// ErrSwapStarved is returned by LoadAngle when a previously staged IR set
// has not been adopted by the render thread within SwapTimeout.
var ErrSwapStarved = errors.New(nil).
	Component(ComponentHRTF).
	Category(errors.CategoryTimeout).
	Context("resource", "staged_swap").
	Build()

// SwapTimeout bounds how long LoadAngle waits for a previous staged set to
// be consumed (spec.md 4.6: "waits (<=100ms) for a previous staged set to
// be consumed before overwriting").
const SwapTimeout = 100 * time.Millisecond

const swapPollInterval = 1 * time.Millisecond

// MinAngleDeg and MaxAngleDeg bound the configurable speaker angle
// (spec.md 4.6).
const (
	MinAngleDeg = 10.0
	MaxAngleDeg = 90.0
)

// Dataset supplies the four impulse responses (left-speaker and
// right-speaker response at each ear) for a given speaker angle in
// degrees.
type Dataset interface {
	IRsForAngle(angleDeg float64) (ll, lr, rl, rr []float64, err error)
}

// entry is one angle's measured IR set in a MemoryDataset.
type entry struct {
	angleDeg       float64
	ll, lr, rl, rr []float64
}

// MemoryDataset is an in-memory HRTF table queried by nearest angle. Built
// by a loader elsewhere (spec.md's Non-goals exclude SOFA parsing here);
// this package only consumes already-decoded IRs.
type MemoryDataset struct {
	entries []entry
}

// NewMemoryDataset creates an empty dataset.
func NewMemoryDataset() *MemoryDataset {
	return &MemoryDataset{}
}

// AddEntry registers the four impulse responses for one measured angle.
// All four must be the same length.
func (d *MemoryDataset) AddEntry(angleDeg float64, ll, lr, rl, rr []float64) {
	d.entries = append(d.entries, entry{angleDeg: angleDeg, ll: ll, lr: lr, rl: rl, rr: rr})
}

// IRsForAngle returns the closest-angle entry's IRs, or
// ErrDatasetUnavailable if the dataset has no entries.
func (d *MemoryDataset) IRsForAngle(angleDeg float64) (ll, lr, rl, rr []float64, err error) {
	if len(d.entries) == 0 {
		return nil, nil, nil, nil, ErrDatasetUnavailable
	}
	best := d.entries[0]
	bestDist := math.Abs(best.angleDeg - angleDeg)
	for _, e := range d.entries[1:] {
		dist := math.Abs(e.angleDeg - angleDeg)
		if dist < bestDist {
			best, bestDist = e, dist
		}
	}
	return best.ll, best.lr, best.rl, best.rr, nil
}

// DecodeMemoryDataset reads a self-describing binary HRTF table: a little-
// endian int32 angle count, a little-endian int32 IR length shared by
// every entry, then per angle a float32 angle in degrees followed by four
// float32 IR arrays (ll, lr, rl, rr) of that length — enough to exercise
// the staged-swap and angle-symmetry properties without a SOFA/netCDF
// dependency.
func DecodeMemoryDataset(r io.Reader) (*MemoryDataset, error) {
	var header [2]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, ErrDatasetUnavailable
	}
	count, irLen := int(header[0]), int(header[1])
	if count < 0 || irLen < 0 {
		return nil, ErrDatasetUnavailable
	}

	ds := NewMemoryDataset()
	for i := 0; i < count; i++ {
		var angle32 float32
		if err := binary.Read(r, binary.LittleEndian, &angle32); err != nil {
			return nil, ErrDatasetUnavailable
		}
		irs := make([][]float64, 4)
		for k := range irs {
			f32 := make([]float32, irLen)
			if err := binary.Read(r, binary.LittleEndian, &f32); err != nil {
				return nil, ErrDatasetUnavailable
			}
			irs[k] = make([]float64, irLen)
			for j, v := range f32 {
				irs[k][j] = float64(v)
			}
		}
		ds.AddEntry(float64(angle32), irs[0], irs[1], irs[2], irs[3])
	}
	return ds, nil
}

// irSet is the staged unit: four IRs plus their reversed copies only. The
// history and scratch buffers are not part of the set; resizeScratch
// reallocates them on the render thread when a set is adopted.
type irSet struct {
	n                          int
	irLL, irRL, irLR, irRR     []float64
	revLL, revRL, revLR, revRR []float64
}

func reversed(ir []float64) []float64 {
	r := make([]float64, len(ir))
	for i, v := range ir {
		r[len(ir)-1-i] = v
	}
	return r
}

func newIRSet(irLL, irRL, irLR, irRR []float64) *irSet {
	return &irSet{
		n:     len(irLL),
		irLL:  irLL, irRL: irRL, irLR: irLR, irRR: irRR,
		revLL: reversed(irLL), revRL: reversed(irRL),
		revLR: reversed(irLR), revRR: reversed(irRR),
	}
}

// identitySet is the default passthrough IR: N=1, out_L=L, out_R=R.
func identitySet() *irSet {
	one := []float64{1}
	zero := []float64{0}
	return newIRSet(one, zero, zero, one)
}

// Binauralizer is the render-thread-owned HRTF convolver. Stereo-only: a
// Process call on a non-stereo buffer is a no-op.
type Binauralizer struct {
	maxBlockSize int
	angleDeg     float64

	active    *irSet
	stagedSet *publish.Value[irSet]

	historyL, historyR []float64 // length active.n - 1
	extL, extR         []float64 // scratch, length (active.n-1)+maxBlockSize

	enabled atomic.Bool
	wet     *fade.WetMix
}

// New creates a binauralizer sized for maxBlockSize frames per Process
// call, starting disabled with an identity (passthrough) IR set.
func New(maxBlockSize int) *Binauralizer {
	if maxBlockSize < 1 {
		maxBlockSize = 1
	}
	b := &Binauralizer{
		maxBlockSize: maxBlockSize,
		angleDeg:     30,
		active:       identitySet(),
		stagedSet:    publish.NewValue(&irSet{}),
		wet:          fade.NewWetMix(0),
	}
	b.resizeScratch(b.active.n)
	return b
}

func (b *Binauralizer) resizeScratch(n int) {
	hist := n - 1
	if hist < 0 {
		hist = 0
	}
	b.historyL = make([]float64, hist)
	b.historyR = make([]float64, hist)
	b.extL = make([]float64, hist+b.maxBlockSize)
	b.extR = make([]float64, hist+b.maxBlockSize)
}

// LoadAngle queries dataset for the IRs closest to angleDeg (clamped to
// [MinAngleDeg, MaxAngleDeg]) and stages them for the render thread.
// Control-thread only: allocates freely. Busy-waits up to SwapTimeout for
// a previously staged set to be consumed before abandoning this load.
func (b *Binauralizer) LoadAngle(dataset Dataset, angleDeg float64) error {
	if angleDeg < MinAngleDeg {
		angleDeg = MinAngleDeg
	}
	if angleDeg > MaxAngleDeg {
		angleDeg = MaxAngleDeg
	}
	irLL, irLR, irRL, irRR, err := dataset.IRsForAngle(angleDeg)
	if err != nil || len(irLL) == 0 {
		return ErrDatasetUnavailable
	}

	deadline := time.Now().Add(SwapTimeout)
	for b.stagedSet.HasPending() {
		if time.Now().After(deadline) {
			return ErrSwapStarved
		}
		time.Sleep(swapPollInterval)
	}

	b.angleDeg = angleDeg
	b.stagedSet.Stage(newIRSet(irLL, irRL, irLR, irRR))
	return nil
}

// SetEnabled targets the wet (binauralized) signal on or off.
func (b *Binauralizer) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

// IsEnabled reports the current enable target.
func (b *Binauralizer) IsEnabled() bool {
	return b.enabled.Load()
}

// CurrentAngle returns the speaker angle last passed to LoadAngle (or the
// 30 degree default from New).
func (b *Binauralizer) CurrentAngle() float64 {
	return b.angleDeg
}

// Process runs the binauralizer over a stereo interleaved buffer in place.
// Non-stereo buffers pass through untouched. Adopting a staged IR set swaps
// the active pointer and reallocates the history/scratch buffers through
// resizeScratch, so that buffer allocates on the render thread.
func (b *Binauralizer) Process(buf []float32, frames, channels int) {
	if staged, ok := b.stagedSet.Adopt(); ok && staged.n > 0 {
		b.active = staged
		b.resizeScratch(staged.n)
	}
	if channels != 2 {
		return
	}
	target := 0.0
	if b.enabled.Load() {
		target = 1.0
	}
	if b.wet.Level() == 0 && target == 0 {
		return
	}
	if frames > b.maxBlockSize {
		frames = b.maxBlockSize
	}

	n := b.active.n
	hist := n - 1

	copy(b.extL[:hist], b.historyL)
	copy(b.extR[:hist], b.historyR)
	for i := 0; i < frames; i++ {
		b.extL[hist+i] = float64(buf[i*channels])
		b.extR[hist+i] = float64(buf[i*channels+1])
	}

	for i := 0; i < frames; i++ {
		var outL, outR float64
		for k := 0; k < n; k++ {
			l := b.extL[i+k]
			r := b.extR[i+k]
			outL += l*b.active.revLL[k] + r*b.active.revRL[k]
			outR += l*b.active.revLR[k] + r*b.active.revRR[k]
		}

		w := b.wet.Step(target)
		dryL, dryR := float64(buf[i*channels]), float64(buf[i*channels+1])
		buf[i*channels] = float32(dryL*(1-w) + outL*w)
		buf[i*channels+1] = float32(dryR*(1-w) + outR*w)
	}

	if hist > 0 {
		copy(b.historyL, b.extL[frames:frames+hist])
		copy(b.historyR, b.extR[frames:frames+hist])
	}

	if target == 0 && b.wet.Level() == 0 {
		for i := range b.historyL {
			b.historyL[i] = 0
		}
		for i := range b.historyR {
			b.historyR[i] = 0
		}
	}
}

// Reset clears history state, e.g. on seek.
func (b *Binauralizer) Reset() {
	for i := range b.historyL {
		b.historyL[i] = 0
	}
	for i := range b.historyR {
		b.historyR[i] = 0
	}
}
