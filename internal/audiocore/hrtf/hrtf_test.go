package hrtf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinauralizer_DisabledIsPassthrough(t *testing.T) {
	t.Parallel()

	b := New(512)
	buf := []float32{0.5, -0.2, 0.1, 0.3}
	want := append([]float32{}, buf...)
	b.Process(buf, 2, 2)
	for i := range buf {
		assert.InDelta(t, float64(want[i]), float64(buf[i]), 1e-9)
	}
}

func TestBinauralizer_NonStereoPassesThrough(t *testing.T) {
	t.Parallel()

	b := New(512)
	b.SetEnabled(true)
	buf := []float32{0.1, 0.2, 0.3}
	want := append([]float32{}, buf...)
	b.Process(buf, 3, 1)
	assert.Equal(t, want, buf)
}

func TestBinauralizer_RejectsEmptyDataset(t *testing.T) {
	t.Parallel()

	b := New(512)
	ds := NewMemoryDataset()
	assert.ErrorIs(t, b.LoadAngle(ds, 30), ErrDatasetUnavailable)
}

func TestBinauralizer_AngleClampedToRange(t *testing.T) {
	t.Parallel()

	b := New(512)
	ds := NewMemoryDataset()
	ds.AddEntry(10, []float64{1, 0}, []float64{0, 0}, []float64{0, 0}, []float64{1, 0})
	ds.AddEntry(90, []float64{0.5, 0}, []float64{0, 0}, []float64{0, 0}, []float64{0.5, 0})
	require.NoError(t, b.LoadAngle(ds, 500))
	assert.Equal(t, MaxAngleDeg, b.angleDeg)
}

func TestBinauralizer_IdentityIRPassesSignalThrough(t *testing.T) {
	t.Parallel()

	b := New(512)
	b.SetEnabled(true)
	buf := make([]float32, 256*2)
	for i := 0; i < 256; i++ {
		buf[i*2] = 0.3
		buf[i*2+1] = -0.3
	}
	b.Process(buf, 256, 2)

	assert.InDelta(t, 0.3, float64(buf[254*2]), 0.05)
	assert.InDelta(t, -0.3, float64(buf[254*2+1]), 0.05)
}

func TestDecodeMemoryDataset_RoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, [2]int32{1, 2}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, float32(45)))
	for i := 0; i < 4; i++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, []float32{0.1, 0.2}))
	}

	ds, err := DecodeMemoryDataset(&buf)
	require.NoError(t, err)

	ll, lr, rl, rr, err := ds.IRsForAngle(45)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, ll)
	assert.Equal(t, []float64{0.1, 0.2}, lr)
	assert.Equal(t, []float64{0.1, 0.2}, rl)
	assert.Equal(t, []float64{0.1, 0.2}, rr)
}

func TestDecodeMemoryDataset_RejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	_, err := DecodeMemoryDataset(bytes.NewReader([]byte{1, 2}))
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
}
