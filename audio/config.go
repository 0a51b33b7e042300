package audio

import (
	"os"
	"strconv"
)

// Config controls soundtrack playback
type Config struct {
	Enabled  bool    `yaml:"enabled"`
	Volume   float64 `yaml:"volume"`    // 0.0 - 1.0
	BufferMs int     `yaml:"buffer_ms"` // speaker buffer length
}

// DefaultConfig returns full volume with a 100ms speaker buffer
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Volume:   1.0,
		BufferMs: 100,
	}
}

// ApplyEnv overrides fields from ASCIIPLAY_AUDIO_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv() {
	if enabled := os.Getenv("ASCIIPLAY_AUDIO_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			c.Enabled = val
		}
	}

	// Volume is 0-100 in the environment
	if volume := os.Getenv("ASCIIPLAY_AUDIO_VOLUME"); volume != "" {
		if val, err := strconv.Atoi(volume); err == nil {
			c.Volume = min(max(float64(val)/100.0, 0), 1)
		}
	}

	if buf := os.Getenv("ASCIIPLAY_AUDIO_BUFFER_MS"); buf != "" {
		if val, err := strconv.Atoi(buf); err == nil && val > 0 {
			c.BufferMs = val
		}
	}
}
