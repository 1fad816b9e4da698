package fdl

import "testing"

func BenchmarkState_ProcessBlock(b *testing.B) {
	ir := make([]float64, PartitionSize*4)
	ir[0] = 1
	kernel := BuildKernel(ir)
	state := NewState(kernel.NumPartitions())

	in := make([]float64, PartitionSize)
	out := make([]float64, PartitionSize)
	for i := range in {
		in[i] = 0.1
	}

	b.ReportAllocs()
	for b.Loop() {
		state.ProcessBlock(kernel, in, out)
	}
}
