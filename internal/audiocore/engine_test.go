package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_RejectsInvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(AudioFormat{SampleRate: 0, Channels: 2, MaxBlockSize: 512})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = NewEngine(AudioFormat{SampleRate: 44100, Channels: 0, MaxBlockSize: 512})
	assert.ErrorIs(t, err, ErrInvalidChannelCount)
}

func TestEngine_DopPassthroughIsNoOp(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 1024})
	require.NoError(t, err)

	buf := []float32{0.5, -0.5, 0.25, -0.25}
	want := append([]float32{}, buf...)
	eng.Process(buf, 2, 2, true, false)
	assert.Equal(t, want, buf)
}

func TestEngine_BitPerfectOnlyAppliesGain(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 1024})
	require.NoError(t, err)
	eng.Gain().SetGainLinear(2.0)

	buf := []float32{0.1, 0.2}
	eng.Process(buf, 1, 2, false, true)
	assert.InDelta(t, 0.2, float64(buf[0]), 1e-6)
	assert.InDelta(t, 0.4, float64(buf[1]), 1e-6)
}

func TestEngine_DisableCrossfadesToDryInput(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 4096})
	require.NoError(t, err)

	eng.SetEnabled(false)
	buf := make([]float32, 2048*2)
	for i := range buf {
		buf[i] = 0.3
	}
	want := append([]float32{}, buf...)
	eng.Process(buf, 2048, 2, false, false)

	for i := range buf {
		assert.InDelta(t, float64(want[i]), float64(buf[i]), 1e-6)
	}
}

func TestNewEngine_AssignsUniqueSessionIDAndDetectsCPU(t *testing.T) {
	t.Parallel()

	a, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 512})
	require.NoError(t, err)
	b, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 512})
	require.NoError(t, err)

	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
	assert.GreaterOrEqual(t, a.CPU().RecommendedPartitionWorkers(), 1)
}

func TestEngine_PluginChainIsReachable(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 1, MaxBlockSize: 512})
	require.NoError(t, err)
	assert.Equal(t, 0, eng.Plugins().Count())
}

func TestEngine_PrepareRenegotiatesFormatAndRejectsInvalid(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 1024})
	require.NoError(t, err)
	eng.Gain().SetGainLinear(1.5)

	require.NoError(t, eng.Prepare(48000, 1, 2048))
	assert.Equal(t, AudioFormat{SampleRate: 48000, Channels: 1, MaxBlockSize: 2048}, eng.Format())
	assert.InDelta(t, 1.5, eng.Gain().GainLinear(), 1e-9)

	// Buffers must be correctly resized for the new format; this must not
	// panic or silently truncate.
	buf := make([]float32, 2048)
	assert.NotPanics(t, func() {
		eng.Process(buf, 2048, 1, false, false)
	})

	assert.ErrorIs(t, eng.Prepare(0, 2, 1024), ErrInvalidSampleRate)
	assert.ErrorIs(t, eng.Prepare(44100, 0, 1024), ErrInvalidChannelCount)
}

func TestEngine_SaveAndRestoreSessionRoundTrips(t *testing.T) {
	t.Parallel()

	eng, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 1024})
	require.NoError(t, err)
	eng.Gain().SetGainLinear(0.5)
	eng.Crossfeed().SetLevel(2) // Strong
	eng.Crossfeed().SetEnabled(true)
	eng.Reverb().SetEnabled(true)
	eng.HRTF().SetEnabled(true)
	eng.Equalizer().SetActiveBands(5)

	snapshot := eng.SaveSession()

	other, err := NewEngine(AudioFormat{SampleRate: 44100, Channels: 2, MaxBlockSize: 1024})
	require.NoError(t, err)
	other.RestoreSession(snapshot)

	assert.InDelta(t, 0.5, other.Gain().GainLinear(), 1e-9)
	assert.Equal(t, other.Crossfeed().CurrentLevel(), eng.Crossfeed().CurrentLevel())
	assert.True(t, other.Crossfeed().IsEnabled())
	assert.True(t, other.Reverb().IsEnabled())
	assert.True(t, other.HRTF().IsEnabled())
	assert.Equal(t, 5, other.Equalizer().ActiveBandCount())
}
