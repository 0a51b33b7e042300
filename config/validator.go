package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/lixenwraith/asciiplay/palette"
)

// Validate checks if the configuration is valid, filling zero-valued
// optional fields with defaults
func Validate(cfg *Config) error {
	if cfg.Width <= 0 {
		return fmt.Errorf("width must be > 0")
	}
	if cfg.FPS < 0 {
		return fmt.Errorf("fps must be >= 0")
	}
	if cfg.CharAspect < 0 {
		return fmt.Errorf("char_aspect must be >= 0")
	}
	if cfg.Ramp == "" {
		return fmt.Errorf("ramp is required")
	}
	if !utf8.ValidString(cfg.Ramp) {
		return fmt.Errorf("ramp must be valid UTF-8")
	}

	if err := validatePalette(&cfg.Palette); err != nil {
		return fmt.Errorf("palette validation failed: %w", err)
	}

	if cfg.Audio.Volume < 0 || cfg.Audio.Volume > 1 {
		return fmt.Errorf("audio.volume must be within [0, 1]")
	}
	return nil
}

func validatePalette(p *PaletteConfig) error {
	if _, err := palette.ParseMethod(p.Method); err != nil {
		return err
	}
	if p.StartSlot < 0 {
		return fmt.Errorf("start_slot must be >= 0")
	}
	if p.MinSlots < 0 || p.MaxSlots < 0 {
		return fmt.Errorf("slot limits must be >= 0")
	}
	if p.MaxSlots > 0 && p.MinSlots > p.MaxSlots {
		return fmt.Errorf("min_slots (%d) exceeds max_slots (%d)", p.MinSlots, p.MaxSlots)
	}

	// Set defaults if not provided
	if p.SampleFrames <= 0 {
		p.SampleFrames = 30
	}
	if p.SamplesPerFrame <= 0 {
		p.SamplesPerFrame = 1000
	}
	if p.CacheSize <= 0 {
		p.CacheSize = palette.DefaultCacheSize
	}
	return nil
}
