package equalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualizer_FlatResponseIsNoOp(t *testing.T) {
	t.Parallel()

	eq := New(44100, 2)
	eq.SetActiveBands(1)

	buf := make([]float32, 8*2)
	for i := range buf {
		buf[i] = float32(i) * 0.01
	}
	want := append([]float32{}, buf...)
	eq.Process(buf, 8, 2)
	for i := range buf {
		assert.InDelta(t, float64(want[i]), float64(buf[i]), 1e-6)
	}
}

func TestEqualizer_SetBandAppliesAfterSettle(t *testing.T) {
	t.Parallel()

	eq := New(48000, 1)
	eq.SetActiveBands(1)
	ok := eq.SetBand(0, Band{Enabled: true, Type: Peak, FreqHz: 1000, GainDB: 6, Q: 1})
	require.True(t, ok)

	const frames = 512
	buf := make([]float32, frames)
	for i := range buf {
		buf[i] = float32(0.25 * math.Sin(2*math.Pi*1000*float64(i)/48000))
	}

	// First buffer adopts the pending band and ramps in over 256 samples.
	eq.Process(buf, frames, 1)

	// Second buffer should be fully settled with a boosted 1kHz tone.
	buf2 := make([]float32, frames)
	for i := range buf2 {
		buf2[i] = float32(0.25 * math.Sin(2*math.Pi*1000*float64(i)/48000))
	}
	eq.Process(buf2, frames, 1)

	var rms float64
	for _, s := range buf2 {
		rms += float64(s) * float64(s)
	}
	rms = math.Sqrt(rms / float64(len(buf2)))

	wantRMS := 0.25 * math.Pow(10, 6.0/20) / math.Sqrt2
	assert.InEpsilon(t, wantRMS, rms, 0.1)
}

func TestEqualizer_RejectsInvalidBand(t *testing.T) {
	t.Parallel()

	eq := New(44100, 1)
	assert.False(t, eq.SetBand(-1, DefaultBand()))
	assert.False(t, eq.SetBand(MaxBands, DefaultBand()))
	assert.False(t, eq.SetBand(0, Band{Enabled: true, Type: Peak, FreqHz: 10, GainDB: 0, Q: 1}))
}

func TestBiquadFilter_PolesAreStable(t *testing.T) {
	t.Parallel()

	f, err := NewPeaking(44100, 1000, 12, 0.5, 1)
	require.NoError(t, err)
	p1, p2 := f.Poles()
	assert.Less(t, p1, 1.0)
	assert.Less(t, p2, 1.0)
}

func TestLatency_ZeroInMinimumPhase(t *testing.T) {
	t.Parallel()

	eq := New(44100, 2)
	assert.Equal(t, 0, eq.Latency())
}

// TestEqualizer_SetPhaseModeLinearBuildsKernelAutomatically exercises
// SetPhaseMode(LinearPhase) with no other setup (no manual
// StageLinearPhaseKernel call). A flat EQ switched into linear-phase mode
// must still pass a constant signal through once settled (spec.md 4.3/8 S1),
// not collapse to silence the way an unstaged all-zero kernel would.
func TestEqualizer_SetPhaseModeLinearBuildsKernelAutomatically(t *testing.T) {
	t.Parallel()

	eq := New(48000, 1)
	eq.SetActiveBands(1)
	eq.SetPhaseMode(LinearPhase)

	const frames = 1024
	const totalBlocks = 40
	var lastRMS float64
	for block := 0; block < totalBlocks; block++ {
		buf := make([]float32, frames)
		for i := range buf {
			buf[i] = 0.5
		}
		eq.Process(buf, frames, 1)
		if block == totalBlocks-1 {
			var sumSq float64
			for _, s := range buf {
				sumSq += float64(s) * float64(s)
			}
			lastRMS = math.Sqrt(sumSq / float64(len(buf)))
		}
	}
	assert.InDelta(t, 0.5, lastRMS, 0.05)
}

// TestEqualizer_BatchUpdateStagesOnce exercises BeginBatchUpdate/
// EndBatchUpdate: several SetBand calls inside a batch must land in one
// pending update rather than pendingBands.HasPending() toggling on and off as
// each call stages its own.
func TestEqualizer_BatchUpdateStagesOnce(t *testing.T) {
	t.Parallel()

	eq := New(48000, 1)
	eq.SetActiveBands(2)

	eq.BeginBatchUpdate()
	ok1 := eq.SetBand(0, Band{Enabled: true, Type: Peak, FreqHz: 200, GainDB: 3, Q: 1})
	ok2 := eq.SetBand(1, Band{Enabled: true, Type: Peak, FreqHz: 4000, GainDB: -3, Q: 1})
	require.True(t, ok1)
	require.True(t, ok2)
	assert.False(t, eq.pendingBands.HasPending())
	eq.EndBatchUpdate()
	assert.True(t, eq.pendingBands.HasPending())

	buf := make([]float32, 512)
	eq.Process(buf, 512, 1)
	assert.False(t, eq.pendingBands.HasPending())

	b0, ok := eq.GetBand(0)
	require.True(t, ok)
	assert.InDelta(t, 200, b0.FreqHz, 1e-9)
	b1, ok := eq.GetBand(1)
	require.True(t, ok)
	assert.InDelta(t, 4000, b1.FreqHz, 1e-9)
}
