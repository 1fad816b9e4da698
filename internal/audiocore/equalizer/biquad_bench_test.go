package equalizer

import (
	"math"
	"testing"
)

var benchFilterResult []float64

func BenchmarkFilter_ApplyBatch_Sizes(b *testing.B) {
	sizes := []struct {
		name string
		size int
	}{
		{"1000_samples", 1000},
		{"48000_samples_1sec", 48000},
	}

	for _, sz := range sizes {
		f, err := NewLowPass(48000, 1000, 0.707, 1)
		if err != nil {
			b.Fatal(err)
		}

		input := make([]float64, sz.size)
		for i := range input {
			input[i] = math.Sin(2 * math.Pi * 440.0 * float64(i) / 48000.0)
		}

		b.Run(sz.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(sz.size * 8))

			for b.Loop() {
				f.in1[0], f.in2[0], f.out1[0], f.out2[0] = 0, 0, 0, 0
				f.ApplyBatch(input)
				benchFilterResult = input
			}
		})
	}
}

func BenchmarkFilterChain_ApplyInterleaved(b *testing.B) {
	chain := NewFilterChain()
	chain.AddFilter(mustLowPass(b))
	chain.AddFilter(mustPeaking(b))

	const frames = 4096
	const channels = 2
	buf := make([]float32, frames*channels)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 440.0 * float64(i) / 48000.0))
	}

	b.ReportAllocs()
	for b.Loop() {
		chain.ApplyInterleaved(buf, frames, channels, 0)
	}
}

func mustLowPass(b *testing.B) *Filter {
	f, err := NewLowPass(48000, 1000, 0.707, 2)
	if err != nil {
		b.Fatal(err)
	}
	return f
}

func mustPeaking(b *testing.B) *Filter {
	f, err := NewPeaking(48000, 2000, 6, 1, 2)
	if err != nil {
		b.Fatal(err)
	}
	return f
}
