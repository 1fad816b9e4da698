// Package config loads engine.Settings via spf13/viper, the same idiom the
// teacher's (now-replaced) internal/conf package used: SetDefault-seeded
// defaults, an optional config file, environment variable overrides, and
// Unmarshal into a typed struct. Scope is limited to what the DSP engine
// itself needs — format, initial EQ bands, crossfeed level, and default
// IR/HRTF dataset paths — none of the teacher's BirdNET-specific sections
// (species filters, MQTT, web server) apply here.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// BandSetting is the config-file shape of one equalizer.Band.
type BandSetting struct {
	Enabled bool
	Type    string
	FreqHz  float64
	GainDB  float64
	Q       float64
}

// Settings is the engine's full configuration surface.
type Settings struct {
	Audio struct {
		SampleRate   int
		Channels     int
		MaxBlockSize int
	}

	Equalizer struct {
		PhaseMode string // "minimum" or "linear"
		Bands     []BandSetting
	}

	Crossfeed struct {
		Enabled bool
		Level   string // "light", "medium", "strong"
	}

	Reverb struct {
		Enabled bool
		IRPath  string
	}

	HRTF struct {
		Enabled     bool
		DatasetPath string
		AngleDeg    float64
	}
}

// Load initializes viper with the engine's defaults, merges an optional
// config file named "audiocore.yaml" found on configPaths (if any exist),
// applies environment variable overrides, and unmarshals into Settings.
func Load(configPaths []string) (*Settings, error) {
	v := viper.New()
	v.SetConfigName("audiocore")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("AUDIOCORE")
	v.AutomaticEnv()

	setDefaults(v)

	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config into struct: %w", err)
	}
	return settings, nil
}

// Save marshals settings to YAML and writes it to path, overwriting any
// existing file. Unlike Load (which goes through viper), this writes the
// exact struct the caller holds, useful for persisting runtime adjustments
// (e.g. a user-tuned EQ curve) back to disk.
func Save(path string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.samplerate", 44100)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.maxblocksize", 4096)

	v.SetDefault("equalizer.phasemode", "minimum")
	v.SetDefault("equalizer.bands", []BandSetting{})

	v.SetDefault("crossfeed.enabled", false)
	v.SetDefault("crossfeed.level", "medium")

	v.SetDefault("reverb.enabled", false)
	v.SetDefault("reverb.irpath", "")

	v.SetDefault("hrtf.enabled", false)
	v.SetDefault("hrtf.datasetpath", "")
	v.SetDefault("hrtf.angledeg", 30.0)
}
