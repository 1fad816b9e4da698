package equalizer

import "math"

// Band is the user-facing description of one equalizer section (spec.md
// 3's Band entity): enabled flag, shape, and the three cookbook parameters.
// Two copies exist per spec.md's Data Model — active (render-thread-read)
// and pending (control-thread-write) — managed by Equalizer.
type Band struct {
	Enabled bool
	Type    BandType
	FreqHz  float64
	GainDB  float64
	Q       float64
}

// DefaultBand returns a disabled, flat peaking band at 1kHz, Q=1 — a safe
// zero value for an unconfigured slot.
func DefaultBand() Band {
	return Band{Enabled: false, Type: Peak, FreqHz: 1000, GainDB: 0, Q: 1.0}
}

// Validate checks a Band's parameters against spec.md 3's valid ranges,
// given the Nyquist frequency implied by sampleRate.
func (b Band) Validate(sampleRate float64) bool {
	nyquist := sampleRate / 2
	maxFreq := nyquist * 0.49
	if b.FreqHz < 20 || b.FreqHz > maxFreq {
		return false
	}
	if b.GainDB < -30 || b.GainDB > 30 {
		return false
	}
	if b.Q < 0.1 || b.Q > 30 {
		return false
	}
	switch b.Type {
	case Peak, LowShelf, HighShelf, LowPass, HighPass, Notch, BandPass:
	default:
		return false
	}
	return true
}

// buildFilter constructs the biquad Filter for this band at the given
// sample rate and channel count.
func (b Band) buildFilter(sampleRate float64, channels int) *Filter {
	switch b.Type {
	case LowPass:
		f, _ := NewLowPass(sampleRate, b.FreqHz, b.Q, channels)
		return f
	case HighPass:
		f, _ := NewHighPass(sampleRate, b.FreqHz, b.Q, channels)
		return f
	case BandPass:
		f, _ := NewBandPass(sampleRate, b.FreqHz, b.Q, channels)
		return f
	case Notch:
		f, _ := NewNotch(sampleRate, b.FreqHz, b.Q, channels)
		return f
	case LowShelf:
		f, _ := NewLowShelf(sampleRate, b.FreqHz, b.GainDB, b.Q, channels)
		return f
	case HighShelf:
		f, _ := NewHighShelf(sampleRate, b.FreqHz, b.GainDB, b.Q, channels)
		return f
	default: // Peak
		f, _ := NewPeaking(sampleRate, b.FreqHz, b.GainDB, b.Q, channels)
		return f
	}
}

// magnitudeDB evaluates the combined magnitude response (dB) of every
// enabled band in bands at freqHz (converted to angular frequency
// internally), by summing each
// band's individual dB response — valid because a cascade's magnitude in
// dB is the sum of its sections' magnitudes in dB.
func magnitudeDB(bands []Band, sampleRate, freqHz float64) float64 {
	omega := 2 * math.Pi * freqHz / sampleRate
	total := 0.0
	for _, b := range bands {
		if !b.Enabled {
			continue
		}
		f := b.buildFilter(sampleRate, 1)
		total += f.TransferAt(omega)
	}
	return total
}
