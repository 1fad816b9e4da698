package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor is a minimal Processor used to exercise Chain independent of
// any real DSP stage.
type fakeProcessor struct {
	name    string
	enabled bool
	state   []byte
}

func (f *fakeProcessor) Name() string                       { return f.name }
func (f *fakeProcessor) IsEnabled() bool                     { return f.enabled }
func (f *fakeProcessor) SetEnabled(enabled bool)             { f.enabled = enabled }
func (f *fakeProcessor) Prepare(sampleRate float64, ch int)  {}
func (f *fakeProcessor) Reset()                              {}
func (f *fakeProcessor) Process(buf []float32, n, ch int)    {}
func (f *fakeProcessor) Parameters() []Parameter             { return nil }
func (f *fakeProcessor) SetParameter(index int32, v float32) {}
func (f *fakeProcessor) SaveState() []byte                   { return f.state }
func (f *fakeProcessor) RestoreState(data []byte) bool       { f.state = data; return true }

func TestChain_OnConfigurationChangedFiresAfterAddAndRemove(t *testing.T) {
	t.Parallel()

	c := NewChain()
	var fired int
	c.OnConfigurationChanged(func() { fired++ })

	c.Add(&fakeProcessor{name: "a"})
	assert.Equal(t, 1, fired)

	_, err := c.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
}

func TestChain_SaveAndRestoreSessionPreservesOrderStateAndEnabled(t *testing.T) {
	t.Parallel()

	c := NewChain()
	a := &fakeProcessor{name: "a", enabled: true, state: []byte("a-state")}
	b := &fakeProcessor{name: "b", enabled: false, state: []byte("b-state")}
	c.Add(a)
	c.Add(b)

	snapshot := c.SaveSession()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].Name)
	assert.True(t, snapshot[0].Enabled)
	assert.Equal(t, "b", snapshot[1].Name)
	assert.False(t, snapshot[1].Enabled)

	// Mutate live state, then reverse the saved order before restoring.
	a.enabled = false
	b.enabled = true
	reversed := []ProcessorSnapshot{snapshot[1], snapshot[0]}
	c.RestoreSession(reversed)

	got := c.Processors()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name())
	assert.False(t, got[0].IsEnabled())
	assert.Equal(t, "a", got[1].Name())
	assert.True(t, got[1].IsEnabled())
}
