package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/tphakala/audiocore/internal/audiocore"
	"github.com/tphakala/audiocore/internal/audiocore/crossfeed"
	"github.com/tphakala/audiocore/internal/audiocore/equalizer"
)

func renderCommand() *cobra.Command {
	var (
		inPath       string
		outPath      string
		gainDB       float64
		crossfeedLvl string
		phaseMode    string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a WAV file through the engine pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("both --in and --out are required")
			}
			return runRender(inPath, outPath, gainDB, crossfeedLvl, phaseMode)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input WAV file")
	cmd.Flags().StringVar(&outPath, "out", "", "output WAV file")
	cmd.Flags().Float64Var(&gainDB, "gain-db", 0, "headroom gain in dB")
	cmd.Flags().StringVar(&crossfeedLvl, "crossfeed", "off", "crossfeed level: off, light, medium, strong")
	cmd.Flags().StringVar(&phaseMode, "phase-mode", "minimum", "equalizer phase mode: minimum, linear")
	return cmd
}

func runRender(inPath, outPath string, gainDB float64, crossfeedLvl, phaseMode string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	decoder := wav.NewDecoder(in)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return fmt.Errorf("%s is not a valid WAV file", inPath)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("decoding PCM: %w", err)
	}

	sampleRate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)

	format := audiocore.AudioFormat{SampleRate: sampleRate, Channels: channels, MaxBlockSize: 4096}
	engine, err := audiocore.NewEngine(format)
	if err != nil {
		return fmt.Errorf("preparing engine: %w", err)
	}

	engine.Gain().SetGainDB(gainDB)

	if lvl, ok := parseCrossfeedLevel(crossfeedLvl); ok {
		engine.Crossfeed().SetLevel(lvl)
		engine.Crossfeed().SetEnabled(true)
	}

	switch phaseMode {
	case "linear":
		engine.Equalizer().SetPhaseMode(equalizer.LinearPhase)
	default:
		engine.Equalizer().SetPhaseMode(equalizer.MinimumPhase)
	}

	samples := intToFloat32(pcm.Data, bitDepth)

	blockSize := format.MaxBlockSize
	totalFrames := len(samples) / channels
	for start := 0; start < totalFrames; start += blockSize {
		frames := blockSize
		if start+frames > totalFrames {
			frames = totalFrames - start
		}
		block := samples[start*channels : (start+frames)*channels]
		engine.Process(block, frames, channels, false, false)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	encoder := wav.NewEncoder(out, sampleRate, bitDepth, channels, 1)
	defer encoder.Close()

	outBuf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		Data:           float32ToInt(samples, bitDepth),
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(outBuf); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Printf("rendered %d frames at %dHz/%dch to %s\n", totalFrames, sampleRate, channels, outPath)
	return nil
}

func parseCrossfeedLevel(name string) (crossfeed.Level, bool) {
	switch name {
	case "light":
		return crossfeed.Light, true
	case "medium":
		return crossfeed.Medium, true
	case "strong":
		return crossfeed.Strong, true
	default:
		return 0, false
	}
}

func intToFloat32(data []int, bitDepth int) []float32 {
	scale := float32(int(1) << (bitDepth - 1))
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

func float32ToInt(data []float32, bitDepth int) []int {
	scale := float64(int(1) << (bitDepth - 1))
	max := scale - 1
	out := make([]int, len(data))
	for i, v := range data {
		s := float64(v) * scale
		if s > max {
			s = max
		}
		if s < -scale {
			s = -scale
		}
		out[i] = int(math.Round(s))
	}
	return out
}
