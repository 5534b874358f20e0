// Package config assembles player settings from defaults, an optional TOML file
// and GLTF_AUDIO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/scene"
	"github.com/lixenwraith/gltf-audio/vmath"
)

// Config is the complete player configuration
type Config struct {
	Audio    audio.AudioConfig `toml:"audio"`
	Engine   EngineConfig      `toml:"engine"`
	Listener ListenerConfig    `toml:"listener"`
	Log      LogConfig         `toml:"log"`
}

// EngineConfig tunes the update loop
type EngineConfig struct {
	TickInterval Duration `toml:"tick_interval" env:"GLTF_AUDIO_TICK_INTERVAL"`
	MaxTicks     int      `toml:"max_ticks" env:"GLTF_AUDIO_MAX_TICKS"`
	Extension    string   `toml:"extension" env:"GLTF_AUDIO_EXTENSION"`
}

// ListenerConfig is the listener placement at load time
type ListenerConfig struct {
	Position [3]float64 `toml:"position"`
	Velocity [3]float64 `toml:"velocity"`
	Forward  [3]float64 `toml:"forward"`
	Up       [3]float64 `toml:"up"`
}

// LogConfig selects log verbosity and destination
type LogConfig struct {
	Level  string `toml:"level" env:"GLTF_AUDIO_LOG_LEVEL"`
	Format string `toml:"format" env:"GLTF_AUDIO_LOG_FORMAT"` // auto, text or json
	File   string `toml:"file" env:"GLTF_AUDIO_LOG_FILE"`
}

// Duration reads Go duration strings such as "10ms" from TOML and env
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: *audio.DefaultAudioConfig(),
		Engine: EngineConfig{
			TickInterval: Duration(10 * time.Millisecond),
			Extension:    scene.DefaultExtension,
		},
		Listener: ListenerConfig{
			Forward: [3]float64{0, 0, -1},
			Up:      [3]float64{0, 1, 0},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load layers the TOML file at path (optional when empty) and the environment over Default
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %q not found", expanded)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return err
	}
	if c.Engine.TickInterval < 0 {
		return fmt.Errorf("engine.tick_interval: must not be negative, got %s", time.Duration(c.Engine.TickInterval))
	}
	if c.Engine.MaxTicks < 0 {
		return fmt.Errorf("engine.max_ticks: must not be negative, got %d", c.Engine.MaxTicks)
	}
	if strings.TrimSpace(c.Engine.Extension) == "" {
		return errors.New("engine.extension: must not be empty")
	}
	if vmath.V3FIsZero(vmath.V3FFromArray(c.Listener.Forward)) {
		return errors.New("listener.forward: must not be zero")
	}
	if vmath.V3FIsZero(vmath.V3FFromArray(c.Listener.Up)) {
		return errors.New("listener.up: must not be zero")
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unsupported value %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log.format: unsupported value %q", c.Log.Format)
	}
	return nil
}

// ListenerState converts the listener section to the backend representation
func (c *Config) ListenerState() audio.Listener {
	return audio.Listener{
		Position: vmath.V3FFromArray(c.Listener.Position),
		Velocity: vmath.V3FFromArray(c.Listener.Velocity),
		Forward:  vmath.V3FFromArray(c.Listener.Forward),
		Up:       vmath.V3FFromArray(c.Listener.Up),
	}
}

// Interval returns the tick interval as a time.Duration
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Engine.TickInterval)
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
