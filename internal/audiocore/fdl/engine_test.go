package fdl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedBlocks(t *testing.T, kernel *Kernel, input []float64) []float64 {
	t.Helper()
	st := NewState(kernel.NumPartitions())
	var out []float64
	for i := 0; i < len(input); i += PartitionSize {
		end := i + PartitionSize
		block := make([]float64, PartitionSize)
		if end > len(input) {
			end = len(input)
		}
		copy(block, input[i:end])
		outBlock := make([]float64, PartitionSize)
		st.ProcessBlock(kernel, block, outBlock)
		out = append(out, outBlock...)
	}
	return out
}

func TestDiracIdentity(t *testing.T) {
	t.Parallel()

	ir := make([]float64, PartitionSize)
	ir[0] = 1.0
	kernel := BuildKernel(ir)
	require.Equal(t, 1, kernel.NumPartitions())

	const numBlocks = 4
	input := make([]float64, numBlocks*PartitionSize)
	for i := range input {
		input[i] = 0.5
	}

	out := feedBlocks(t, kernel, input)

	// After the P+1 = 2 partition warm-up, output should equal the
	// constant input (spec.md 8.3: Dirac identity).
	for i := 2 * PartitionSize; i < len(out); i++ {
		assert.InDelta(t, 0.5, out[i], 1e-3)
	}
}

func directConvolve(input, ir []float64) []float64 {
	out := make([]float64, len(input)+len(ir)-1)
	for i, x := range input {
		if x == 0 {
			continue
		}
		for j, h := range ir {
			out[i+j] += x * h
		}
	}
	return out
}

func TestPartitionedConvolutionExactness(t *testing.T) {
	t.Parallel()

	ir := make([]float64, 2*PartitionSize)
	for i := range ir {
		ir[i] = math.Exp(-float64(i) / 200.0)
	}
	kernel := BuildKernel(ir)

	input := make([]float64, 8*PartitionSize)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * 0.01 * float64(i))
	}

	got := feedBlocks(t, kernel, input)
	want := directConvolve(input, ir)

	// Compare the steady-state region (after warm-up, before the IR's
	// tail extends past the block-convolved range).
	p := kernel.NumPartitions()
	start := (p + 1) * PartitionSize
	end := len(input) - len(ir)
	if end > len(got) {
		end = len(got)
	}
	require.Greater(t, end, start, "not enough samples for steady-state comparison")

	var maxErr, maxVal float64
	for i := start; i < end; i++ {
		d := math.Abs(got[i] - want[i])
		if d > maxErr {
			maxErr = d
		}
		if math.Abs(want[i]) > maxVal {
			maxVal = math.Abs(want[i])
		}
	}
	assert.Less(t, maxErr/maxVal, 1e-3)
}

func TestState_HasOutputAfterWarmup(t *testing.T) {
	t.Parallel()

	ir := make([]float64, PartitionSize)
	ir[0] = 1.0
	kernel := BuildKernel(ir)
	st := NewState(kernel.NumPartitions())

	in := make([]float64, PartitionSize)
	out := make([]float64, PartitionSize)
	assert.False(t, st.HasOutput())
	st.ProcessBlock(kernel, in, out)
	assert.False(t, st.HasOutput())
	st.ProcessBlock(kernel, in, out)
	assert.True(t, st.HasOutput())
}

func TestState_Reset(t *testing.T) {
	t.Parallel()

	ir := make([]float64, PartitionSize)
	ir[0] = 1.0
	kernel := BuildKernel(ir)
	st := NewState(kernel.NumPartitions())

	in := make([]float64, PartitionSize)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]float64, PartitionSize)
	st.ProcessBlock(kernel, in, out)
	st.ProcessBlock(kernel, in, out)
	require.True(t, st.HasOutput())

	st.Reset()
	assert.False(t, st.HasOutput())
	assert.Equal(t, 0, st.PartitionsProcessed())
}
