package crossfeed

import "testing"

func BenchmarkCrossfeed_Process(b *testing.B) {
	cf := New(44100, Medium)
	cf.SetEnabled(true)

	const frames = 4096
	buf := make([]float32, frames*2)
	for i := range buf {
		buf[i] = 0.1
	}

	b.ReportAllocs()
	for b.Loop() {
		cf.Process(buf, frames, 2)
	}
}
