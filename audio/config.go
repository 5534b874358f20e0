package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
)

// AudioConfig selects and tunes the playback backend
type AudioConfig struct {
	Backend         BackendType `toml:"backend" env:"GLTF_AUDIO_BACKEND"`
	SampleRate      int         `toml:"sample_rate" env:"GLTF_AUDIO_SAMPLE_RATE"`
	BufferMillis    int         `toml:"buffer_ms" env:"GLTF_AUDIO_BUFFER_MS"`
	MasterVolume    float64     `toml:"master_volume" env:"GLTF_AUDIO_MASTER_VOLUME"`
	ForceMono       bool        `toml:"force_mono" env:"GLTF_AUDIO_FORCE_MONO"`
	ResampleQuality int         `toml:"resample_quality" env:"GLTF_AUDIO_RESAMPLE_QUALITY"`
}

// DefaultAudioConfig returns speaker output at 44.1kHz with a 100ms device buffer
func DefaultAudioConfig() *AudioConfig {
	return &AudioConfig{
		Backend:         BackendSpeaker,
		SampleRate:      44100,
		BufferMillis:    100,
		MasterVolume:    1.0,
		ForceMono:       false,
		ResampleQuality: 4,
	}
}

// Validate checks value ranges
func (c *AudioConfig) Validate() error {
	switch c.Backend {
	case BackendSpeaker, BackendNull:
	default:
		return fmt.Errorf("audio.backend: unsupported value %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate: must be positive, got %d", c.SampleRate)
	}
	if c.BufferMillis <= 0 {
		return fmt.Errorf("audio.buffer_ms: must be positive, got %d", c.BufferMillis)
	}
	if c.MasterVolume < 0 || c.MasterVolume > 1 {
		return fmt.Errorf("audio.master_volume: must be within 0..1, got %v", c.MasterVolume)
	}
	if c.ResampleQuality < 1 || c.ResampleQuality > 64 {
		return fmt.Errorf("audio.resample_quality: must be within 1..64, got %d", c.ResampleQuality)
	}
	return nil
}

// Rate returns the output sample rate
func (c *AudioConfig) Rate() beep.SampleRate {
	return beep.SampleRate(c.SampleRate)
}

// BufferSize returns the device buffer length in samples
func (c *AudioConfig) BufferSize() int {
	return c.Rate().N(time.Duration(c.BufferMillis) * time.Millisecond)
}
