package equalizer

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/audiocore/internal/audiocore/fdl"
)

// FIRLengthForRate implements spec.md 4.3's "FIR length by rate": fs<=50kHz
// -> 4096, fs<=100kHz -> 8192, otherwise 16384. The build FFT size is the
// next power of two >= FIR length, which for these three fixed lengths is
// always the length itself (they are already powers of two).
func FIRLengthForRate(sampleRate float64) int {
	switch {
	case sampleRate <= 50000:
		return 4096
	case sampleRate <= 100000:
		return 8192
	default:
		return 16384
	}
}

// blackmanHarris returns the 4-term Blackman-Harris window of length n.
func blackmanHarris(n int) []float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n-1)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x)
	}
	return w
}

// BuildLinearPhaseKernel converts the active bands' combined magnitude
// response into a zero-phase, symmetric FIR and partitions it into an fdl
// Kernel, following spec.md 4.3's recipe:
//
//  1. sample magnitude on buildFFT/2+1 bins
//  2. pack as a real spectrum (imag=0)
//  3. inverse real FFT
//  4. circular shift so the peak is centered
//  5. apply a Blackman-Harris window
//  6. partition into 1024-sample blocks and forward-FFT each into the
//     kernel ring (fdl.BuildKernel)
//
// Control-thread only: allocates freely.
func BuildLinearPhaseKernel(bands []Band, sampleRate float64) *fdl.Kernel {
	firLen := FIRLengthForRate(sampleRate)
	buildFFT := firLen // already a power of two at every selectable length

	bins := buildFFT/2 + 1
	spectrum := make([]complex128, bins)
	for i := 0; i < bins; i++ {
		freq := float64(i) * sampleRate / float64(buildFFT)
		if freq > sampleRate/2 {
			freq = sampleRate / 2
		}
		magDB := magnitudeDB(bands, sampleRate, math.Max(freq, 1e-6))
		mag := math.Pow(10, magDB/20)
		spectrum[i] = complex(mag, 0)
	}

	fft := fourier.NewFFT(buildFFT)
	timeDomain := make([]float64, buildFFT)
	fft.Sequence(timeDomain, spectrum)
	// gonum's inverse transform is unnormalized (scaled by buildFFT).
	for i := range timeDomain {
		timeDomain[i] /= float64(buildFFT)
	}

	shifted := make([]float64, buildFFT)
	half := buildFFT / 2
	for i := 0; i < buildFFT; i++ {
		shifted[i] = timeDomain[(i+half)%buildFFT]
	}

	window := blackmanHarris(buildFFT)
	ir := make([]float64, buildFFT)
	for i := range ir {
		ir[i] = shifted[i] * window[i]
	}

	return fdl.BuildKernel(ir)
}
