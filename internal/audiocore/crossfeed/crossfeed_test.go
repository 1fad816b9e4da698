package crossfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossfeed_DisabledIsPassthrough(t *testing.T) {
	t.Parallel()

	cf := New(44100, Light)
	buf := []float32{0.5, -0.3, 0.1, 0.2, -0.4, 0.25}
	want := append([]float32{}, buf...)
	cf.Process(buf, 3, 2)

	for i := range buf {
		assert.InDelta(t, float64(want[i]), float64(buf[i]), 1e-9)
	}
}

func TestCrossfeed_EnableThenDisableReturnsToPassthrough(t *testing.T) {
	t.Parallel()

	cf := New(44100, Medium)
	cf.SetEnabled(true)

	buf := make([]float32, 4096*2)
	for i := range buf {
		buf[i] = 0.2
	}
	cf.Process(buf, 4096, 2)

	cf.SetEnabled(false)
	for i := 0; i < 4096; i++ {
		cf.Process(buf[:2], 1, 2)
	}

	in := []float32{0.3, -0.3}
	out := append([]float32{}, in...)
	cf.Process(out, 1, 2)
	assert.InDelta(t, float64(in[0]), float64(out[0]), 1e-6)
	assert.InDelta(t, float64(in[1]), float64(out[1]), 1e-6)
}

func TestCrossfeed_MonoBufferUntouched(t *testing.T) {
	t.Parallel()

	cf := New(48000, Strong)
	cf.SetEnabled(true)
	buf := []float32{0.1, 0.2, 0.3}
	want := append([]float32{}, buf...)
	cf.Process(buf, 3, 1)
	assert.Equal(t, want, buf)
}

func TestCrossfeed_NormalizePreservesEnergyBalance(t *testing.T) {
	t.Parallel()

	cross, direct := normalize(-6.0)
	assert.InDelta(t, 1.0, cross+direct, 1e-9)
	assert.Less(t, cross, direct)
}

func TestCrossfeed_SetLevelStagesWithoutMutatingMidBuffer(t *testing.T) {
	t.Parallel()

	cf := New(44100, Light)
	cf.SetEnabled(true)

	buf := make([]float32, 4096*2)
	for i := range buf {
		buf[i] = 0.2
	}
	cf.Process(buf, 4096, 2) // settle onto Light's tuning and fully fade in

	cf.SetLevel(Strong)
	assert.True(t, cf.staged.HasPending())

	out := []float32{0.4, -0.4}
	cf.Process(out, 1, 2) // first call after SetLevel adopts the new tuning
	assert.False(t, cf.staged.HasPending())
}

func TestCrossfeed_SymmetricInputsStaySymmetric(t *testing.T) {
	t.Parallel()

	cf := New(44100, Light)
	cf.SetEnabled(true)

	buf := make([]float32, 256*2)
	for i := 0; i < 256; i++ {
		buf[i*2] = 0.5
		buf[i*2+1] = 0.5
	}
	cf.Process(buf, 256, 2)

	for i := 200; i < 256; i++ {
		assert.InDelta(t, float64(buf[i*2]), float64(buf[i*2+1]), 1e-4)
	}
}
