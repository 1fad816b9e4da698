// Package crossfeed implements the fixed two-band bs2b-style stereo mixer
// of spec.md section 4.4: a 1-pole low-pass followed by a short delay line,
// cross-mixed between channels to simulate loudspeaker inter-aural bleed
// for headphone listening.
//
// The delay ring is github.com/smallnest/ringbuffer — a real dependency
// already present in the teacher's go.mod that the retrieved file subset
// never exercised. It is a byte-oriented ring buffer, so each channel's
// delay line pushes/pops its float32 sample through a fixed 4-byte scratch
// array (stack-allocated, never a render-thread heap allocation) via
// encoding/binary.
package crossfeed

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/audiocore/internal/audiocore/fade"
	"github.com/tphakala/audiocore/internal/audiocore/publish"
)

// Level selects one of the three fixed crossfeed presets (spec.md 4.4).
type Level int

const (
	Light Level = iota
	Medium
	Strong
)

type params struct {
	crossfeedDB float64
	cutoffHz    float64
	delaySec    float64
}

var presets = map[Level]params{
	Light:  {crossfeedDB: -6.0, cutoffHz: 700, delaySec: 300e-6},
	Medium: {crossfeedDB: -4.5, cutoffHz: 700, delaySec: 300e-6},
	Strong: {crossfeedDB: -3.0, cutoffHz: 650, delaySec: 300e-6},
}

// delayLine is a fixed-capacity float32 ring backed by a byte ring buffer.
type delayLine struct {
	rb   *ringbuffer.RingBuffer
	size int
}

func newDelayLine(samples int) *delayLine {
	if samples < 1 {
		samples = 1
	}
	d := &delayLine{
		rb:   ringbuffer.New(samples * 4),
		size: samples,
	}
	d.fill(0)
	return d
}

func (d *delayLine) fill(v float32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
	for i := 0; i < d.size; i++ {
		_, _ = d.rb.Write(scratch[:])
	}
}

// pushPop writes the new sample and returns the oldest one, keeping the
// ring at a constant fill level. Render-thread-safe: the 4-byte scratch
// array does not escape.
func (d *delayLine) pushPop(in float32) float32 {
	var out [4]byte
	_, _ = d.rb.Read(out[:])
	delayed := math.Float32frombits(binary.LittleEndian.Uint32(out[:]))

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(in))
	_, _ = d.rb.Write(scratch[:])
	return delayed
}

func (d *delayLine) reset() {
	d.fill(0)
}

// tuning is a fully-built preset: gains and ready-to-use delay lines, built
// entirely on the control thread and handed to the render thread as one
// staged pointer swap (spec.md 5's "every mutable heavy resource ... uses
// the same [staged-swap] pattern"). The render thread never allocates or
// computes coefficients itself; it only adopts the pointer.
type tuning struct {
	crossGain, directGain, lpAlpha float64
	delayL, delayR                 *delayLine
}

// Crossfeed is the render-thread-owned stereo crossfeed mixer.
type Crossfeed struct {
	sampleRate float64

	level   Level
	staged  *publish.Value[tuning]
	current *tuning

	lpStateL, lpStateR float64

	enabled atomic.Bool
	wet     *fade.WetMix
}

// New creates a crossfeed mixer at the given level for sampleRate, starting
// disabled with wet mix at 0.
func New(sampleRate float64, level Level) *Crossfeed {
	cf := &Crossfeed{
		sampleRate: sampleRate,
		wet:        fade.NewWetMix(0),
	}
	cf.current = buildTuning(sampleRate, level)
	cf.staged = publish.NewValue(cf.current)
	cf.level = level
	return cf
}

// SetLevel reconfigures the mixer's fixed preset (spec.md 4.4's table).
// Control-thread only: builds new gain coefficients and delay lines and
// stages them; the render thread adopts the swap at the next Process call,
// never reading or mutating these fields directly mid-buffer.
func (cf *Crossfeed) SetLevel(level Level) {
	cf.level = level
	cf.staged.Stage(buildTuning(cf.sampleRate, level))
}

func buildTuning(sampleRate float64, level Level) *tuning {
	p := presets[level]
	crossGain, directGain := normalize(p.crossfeedDB)
	lpAlpha := math.Exp(-2 * math.Pi * p.cutoffHz / sampleRate)

	delaySamples := int(math.Round(p.delaySec * sampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples > 63 {
		delaySamples = 63
	}
	return &tuning{
		crossGain:  crossGain,
		directGain: directGain,
		lpAlpha:    lpAlpha,
		delayL:     newDelayLine(delaySamples),
		delayR:     newDelayLine(delaySamples),
	}
}

// normalize returns (crossfeedGain, directGain) such that
// direct + crossfeed = 1, preserving the crossfeedDB/0dB ratio (spec.md
// 4.4: "guarantee no clipping for correlated mono content").
func normalize(crossfeedDB float64) (crossGain, directGain float64) {
	cross := math.Pow(10, crossfeedDB/20)
	total := 1 + cross
	return cross / total, 1 / total
}

// SetEnabled starts a fade-in (pre-filling the delay first) or fade-out.
func (cf *Crossfeed) SetEnabled(enabled bool) {
	if enabled && !cf.enabled.Load() {
		cf.current.delayL.reset()
		cf.current.delayR.reset()
		cf.lpStateL, cf.lpStateR = 0, 0
	}
	cf.enabled.Store(enabled)
}

// IsEnabled reports whether the mixer is targeting the wet (processed)
// signal.
func (cf *Crossfeed) IsEnabled() bool {
	return cf.enabled.Load()
}

// CurrentLevel returns the preset last passed to SetLevel (or New).
func (cf *Crossfeed) CurrentLevel() Level {
	return cf.level
}

// Process runs the crossfeed mixer over an interleaved buffer in place.
// Only the first two channels are treated as the stereo pair; channels
// beyond 2 pass through unchanged. Render-thread-safe.
func (cf *Crossfeed) Process(buf []float32, frames, channels int) {
	if staged, ok := cf.staged.Adopt(); ok {
		cf.current = staged
		cf.lpStateL, cf.lpStateR = 0, 0
	}

	if channels < 2 {
		return
	}
	target := 0.0
	if cf.enabled.Load() {
		target = 1.0
	}
	if cf.wet.Level() == 0 && target == 0 {
		return
	}

	t := cf.current
	for i := 0; i < frames; i++ {
		base := i * channels
		l := float64(buf[base])
		r := float64(buf[base+1])

		cf.lpStateL = t.lpAlpha*cf.lpStateL + (1-t.lpAlpha)*l
		cf.lpStateR = t.lpAlpha*cf.lpStateR + (1-t.lpAlpha)*r

		delayedLPL := t.delayL.pushPop(float32(cf.lpStateL))
		delayedLPR := t.delayR.pushPop(float32(cf.lpStateR))

		wetL := t.directGain*l + t.crossGain*float64(delayedLPR)
		wetR := t.directGain*r + t.crossGain*float64(delayedLPL)

		w := cf.wet.Step(target)
		buf[base] = float32(l*(1-w) + wetL*w)
		buf[base+1] = float32(r*(1-w) + wetR*w)
	}

	if target == 0 && cf.wet.Level() == 0 {
		t.delayL.reset()
		t.delayR.reset()
		cf.lpStateL, cf.lpStateR = 0, 0
	}
}

// Reset zeroes the filter and delay state, e.g. on seek.
func (cf *Crossfeed) Reset() {
	cf.current.delayL.reset()
	cf.current.delayR.reset()
	cf.lpStateL, cf.lpStateR = 0, 0
}
