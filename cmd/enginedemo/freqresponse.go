package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiocore/internal/audiocore"
	"github.com/tphakala/audiocore/internal/audiocore/equalizer"
)

func freqResponseCommand() *cobra.Command {
	var (
		sampleRate float64
		points     int
		band       string
	)

	cmd := &cobra.Command{
		Use:   "freqresponse",
		Short: "Print the equalizer's frequency response for a single peaking band at +6dB/1kHz",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreqResponse(sampleRate, points)
		},
	}
	cmd.Flags().Float64Var(&sampleRate, "sample-rate", 44100, "sample rate in Hz")
	cmd.Flags().IntVar(&points, "points", 20, "number of logarithmically spaced points from 20Hz to 20kHz")
	cmd.Flags().StringVar(&band, "band", "peak:1000:6:1", "band spec type:freqHz:gainDB:Q (not read: the response is always for a peaking band at 1000Hz, +6dB, Q=1)")
	return cmd
}

func runFreqResponse(sampleRate float64, points int) error {
	format := audiocore.AudioFormat{SampleRate: int(sampleRate), Channels: 2, MaxBlockSize: 4096}
	engine, err := audiocore.NewEngine(format)
	if err != nil {
		return fmt.Errorf("preparing engine: %w", err)
	}

	eq := engine.Equalizer()
	eq.SetActiveBands(1)
	eq.SetBand(0, equalizer.Band{Enabled: true, Type: equalizer.Peak, FreqHz: 1000, GainDB: 6, Q: 1})

	// Run one silent buffer so the staged band is adopted before querying.
	silence := make([]float32, format.MaxBlockSize*format.Channels)
	engine.Process(silence, format.MaxBlockSize, format.Channels, false, false)

	response := eq.FrequencyResponse(points)
	for i, db := range response {
		t := float64(i) / float64(points-1)
		freq := 20.0 * math.Pow(10, t*math.Log10(20000.0/20.0))
		fmt.Printf("%8.1f Hz  %+6.2f dB\n", freq, db)
	}
	return nil
}
