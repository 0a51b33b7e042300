// Package config holds player settings loaded from YAML, the environment and flags
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/asciiplay/audio"
	"github.com/lixenwraith/asciiplay/glyph"
	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/palette"
)

// Config represents the complete player configuration
type Config struct {
	Width      int           `yaml:"width"`       // output columns
	FPS        float64       `yaml:"fps"`         // 0 follows the source rate
	Invert     bool          `yaml:"invert"`      // reverse the glyph ramp
	Color      bool          `yaml:"color"`       // quantize frame colors to a palette
	Overlay    string        `yaml:"overlay"`     // text file drawn bottom-right
	Ramp       string        `yaml:"ramp"`        // glyphs darkest to brightest
	CharAspect float64       `yaml:"char_aspect"` // cell width over cell height
	LogFile    string        `yaml:"log_file"`
	Palette    PaletteConfig `yaml:"palette"`
	Audio      audio.Config  `yaml:"audio"`
}

// PaletteConfig contains palette construction settings
type PaletteConfig struct {
	Method          string `yaml:"method"` // kmeans, dominant
	StartSlot       int    `yaml:"start_slot"`
	MaxSlots        int    `yaml:"max_slots"`
	MinSlots        int    `yaml:"min_slots"`
	SampleFrames    int    `yaml:"sample_frames"`
	SamplesPerFrame int    `yaml:"samples_per_frame"`
	MaxSamples      int    `yaml:"max_samples"` // cap on clustered points
	CacheSize       int    `yaml:"cache_size"`  // memo entries before reset
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Width:      120,
		Ramp:       glyph.DefaultRamp,
		CharAspect: media.DefaultCharAspect,
		Palette: PaletteConfig{
			Method:          palette.MethodKMeans.String(),
			StartSlot:       palette.DefaultStartSlot,
			MaxSlots:        palette.DefaultMaxSlots,
			MinSlots:        palette.DefaultMinSlots,
			SampleFrames:    media.DefaultSampleFrames,
			SamplesPerFrame: media.DefaultSamplesPerFrame,
			MaxSamples:      palette.DefaultMaxSamples,
			CacheSize:       palette.DefaultCacheSize,
		},
		Audio: audio.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ASCIIPLAY_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ASCIIPLAY_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Width = n
		}
	}
	if v := os.Getenv("ASCIIPLAY_FPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.FPS = f
		}
	}
	if v := os.Getenv("ASCIIPLAY_COLOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Color = b
		}
	}
	if v := os.Getenv("ASCIIPLAY_INVERT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Invert = b
		}
	}
	if v := os.Getenv("ASCIIPLAY_RAMP"); v != "" {
		c.Ramp = v
	}
	if v := os.Getenv("ASCIIPLAY_PALETTE_METHOD"); v != "" {
		c.Palette.Method = v
	}
	c.Audio.ApplyEnv()
}

// Builder returns a palette builder configured from the palette section
func (c *Config) Builder() (*palette.Builder, error) {
	method, err := palette.ParseMethod(c.Palette.Method)
	if err != nil {
		return nil, err
	}
	b := palette.NewBuilder()
	b.Method = method
	b.StartSlot = c.Palette.StartSlot
	b.MaxSlots = c.Palette.MaxSlots
	b.MinSlots = c.Palette.MinSlots
	b.MaxSamples = c.Palette.MaxSamples
	return b, nil
}
