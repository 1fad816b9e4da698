package audiocore

import (
	"github.com/tphakala/audiocore/internal/errors"
)

// ComponentAudioCore identifies this package in categorized errors.
const ComponentAudioCore = "audiocore"

// Control-thread-facing errors, mapped onto the error taxonomy of SPEC_FULL
// section 7: configuration errors use CategoryValidation, resource errors
// use CategoryResource, staged-swap starvation uses CategoryTimeout.
var (
	// ErrBandIndexOutOfRange describes a band index outside [0, MaxBands).
	// Equalizer.SetBand/GetBand report that case with a false result, not
	// with this error.
	ErrBandIndexOutOfRange = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("resource", "eq_band").
		Build()

	// ErrInvalidBandParams describes a Band whose frequency, gain, or Q
	// falls outside its valid range. Band.Validate reports that case as a
	// bool; no function in this module returns this error.
	ErrInvalidBandParams = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("resource", "eq_band").
		Build()

	// ErrInvalidChannelCount is returned by Prepare for channel counts
	// outside [1, 24].
	ErrInvalidChannelCount = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("resource", "audio_format").
		Build()

	// ErrInvalidSampleRate is returned by Prepare for a non-positive sample
	// rate.
	ErrInvalidSampleRate = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryValidation).
		Context("resource", "audio_format").
		Build()

	// ErrIRDecodeFailed describes an impulse response that cannot be
	// accepted. No function returns it; reverb.LoadIR returns
	// reverb.ErrIRRejected for that case.
	ErrIRDecodeFailed = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryResource).
		Context("resource", "impulse_response").
		Build()

	// ErrDatasetUnavailable describes an HRTF dataset that cannot be
	// loaded. No function returns it; the hrtf package returns its own
	// hrtf.ErrDatasetUnavailable.
	ErrDatasetUnavailable = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryResource).
		Context("resource", "hrtf_dataset").
		Build()

	// ErrSwapStarvation describes a control thread timing out while
	// waiting for the render thread to consume a previously staged swap.
	// No function returns it; the reverb and hrtf packages return their own
	// ErrSwapStarved.
	ErrSwapStarvation = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryTimeout).
		Context("resource", "staged_swap").
		Build()

	// ErrProcessorNotFound is returned when a plugin-chain operation
	// references a processor index that does not exist.
	ErrProcessorNotFound = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryNotFound).
		Context("resource", "processor").
		Build()
)
